package corpus

import "errors"

var (
	ErrInvalidSplit = errors.New("invalid split configuration")
	ErrEmptyCorpus  = errors.New("corpus has no samples")
)

// Sample is one labeled sentence of an abstract.
type Sample struct {
	AbstractID string `csv:"abstract_id" json:"abstract_id"`
	LineNumber int    `csv:"line_number" json:"line_number"`
	TotalLines int    `csv:"total_lines" json:"total_lines"`
	Target     string `csv:"target" json:"target"`
	Text       string `csv:"text" json:"text"`
}

// Texts projects the sentence text of every sample.
func Texts(samples []Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Text
	}
	return out
}

// Targets projects the label of every sample.
func Targets(samples []Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Target
	}
	return out
}

// WithTexts returns a copy of samples with Text replaced position-wise.
func WithTexts(samples []Sample, texts []string) []Sample {
	out := make([]Sample, len(samples))
	copy(out, samples)
	for i := range out {
		if i < len(texts) {
			out[i].Text = texts[i]
		}
	}
	return out
}
