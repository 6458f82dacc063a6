package tokenizer

import (
	"errors"

	"github.com/ZanzyTHEbar/abstract-prep/aprep/vocab"
)

// Tokenizer turns sentences into fixed-length id rows and attention masks.
type Tokenizer interface {
	Tokenize(texts []string) (inputIDs [][]int64, attentionMasks [][]int64, err error)
}

// Config selects the subword view built over a fitted vocabulary.
type Config struct {
	// Dir receives the generated vocab.txt.
	Dir       string
	MaxSeqLen int
}

// ErrUnsupported reports a vocabulary or setting no subword view can use.
var ErrUnsupported = errors.New("unsupported tokenizer configuration")

var _ Tokenizer = (*SugarWordPiece)(nil)

// New builds the WordPiece view of v described by cfg.
func New(v *vocab.Tokenizer, cfg Config) (Tokenizer, error) {
	return NewSugarWordPiece(v, cfg.Dir, cfg.MaxSeqLen)
}
