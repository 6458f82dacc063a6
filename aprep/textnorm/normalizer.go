package textnorm

import (
	"context"
	"regexp"
	"runtime"
	"sort"
	"strings"

	porterstemmer "github.com/kiteco/go-porterstemmer"
	"github.com/sourcegraph/conc/pool"
)

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	punctuationRe   = regexp.MustCompile(`([-;.,!?<=>])`)
	nonAlnumRe      = regexp.MustCompile(`[^A-Za-z0-9]+`)
	multiSpaceRe    = regexp.MustCompile(` +`)
)

// Normalizer lowercases sentences and strips stopwords, parentheticals and
// punctuation. It is safe for concurrent use.
type Normalizer struct {
	stopwords  []string
	stopwordRe *regexp.Regexp // nil when there are no stopwords
	stem       bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStemming Porter-stems every token of the normalized output.
func WithStemming() Option {
	return func(n *Normalizer) { n.stem = true }
}

// New builds a Normalizer removing the given stopwords. Pass EnglishStopwords
// for the default list or nil to keep every word.
func New(stopwords []string, opts ...Option) *Normalizer {
	n := &Normalizer{}
	seen := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		n.stopwords = append(n.stopwords, w)
	}
	if len(n.stopwords) > 0 {
		quoted := make([]string, len(n.stopwords))
		for i, w := range n.stopwords {
			quoted[i] = regexp.QuoteMeta(w)
		}
		n.stopwordRe = regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b\s*`)
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Stopwords returns a sorted copy of the configured stopwords.
func (n *Normalizer) Stopwords() []string {
	out := append([]string(nil), n.stopwords...)
	sort.Strings(out)
	return out
}

// Normalize applies, in order: lowercase, stopword removal, parenthetical
// removal, spacing around punctuation, non-alphanumeric collapse, whitespace
// collapse and trim.
func (n *Normalizer) Normalize(sentence string) string {
	s := strings.ToLower(sentence)
	if n.stopwordRe != nil {
		s = n.stopwordRe.ReplaceAllString(s, "")
	}
	s = parentheticalRe.ReplaceAllString(s, "")
	s = punctuationRe.ReplaceAllString(s, " $1 ")
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if n.stem && s != "" {
		tokens := strings.Split(s, " ")
		for i, t := range tokens {
			tokens[i] = porterstemmer.StemString(t)
		}
		s = strings.Join(tokens, " ")
	}
	return s
}

// NormalizeAll normalizes texts on at most workers goroutines, preserving
// order. workers <= 0 uses GOMAXPROCS.
func (n *Normalizer) NormalizeAll(ctx context.Context, texts []string, workers int) ([]string, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]string, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	chunk := (len(texts) + workers - 1) / workers
	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError()
	for start := 0; start < len(texts); start += chunk {
		end := min(start+chunk, len(texts))
		p.Go(func(ctx context.Context) error {
			for i := start; i < end; i++ {
				if (i-start)%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				out[i] = n.Normalize(texts[i])
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
