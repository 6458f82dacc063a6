package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"

	"github.com/ZanzyTHEbar/abstract-prep/aprep/vocab"
)

// SugarWordPiece wraps a sugarme/tokenizer WordPiece model built from a
// fitted vocabulary, so its indices match vocab.Tokenizer's.
type SugarWordPiece struct {
	t         *tk.Tokenizer
	maxSeqLen int
}

// NewSugarWordPiece writes v as vocab.txt under dir and builds a BERT-style
// WordPiece tokenizer over it. Unknown words map to v's OOV token.
func NewSugarWordPiece(v *vocab.Tokenizer, dir string, maxSeq int) (*SugarWordPiece, error) {
	if v.CharLevel() {
		return nil, fmt.Errorf("%w: character level vocabulary", ErrUnsupported)
	}
	if maxSeq <= 0 {
		return nil, fmt.Errorf("%w: max sequence length %d", ErrUnsupported, maxSeq)
	}

	vocabFile := filepath.Join(dir, "vocab.txt")
	f, err := os.Create(vocabFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", vocabFile, err)
	}
	if err := v.WriteVocabTxt(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write %s: %w", vocabFile, err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	wp, err := wordpiece.NewWordPieceFromFile(vocabFile, v.OOVToken())
	if err != nil {
		return nil, fmt.Errorf("failed to load wordpiece vocabulary: %w", err)
	}

	t := tk.NewTokenizer(wp)
	t.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	t.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())
	t.WithTruncation(&tk.TruncationParams{MaxLength: maxSeq})
	return &SugarWordPiece{t: t, maxSeqLen: maxSeq}, nil
}

// Tokenize encodes texts to fixed-length id and mask rows, zero padded.
func (s *SugarWordPiece) Tokenize(texts []string) ([][]int64, [][]int64, error) {
	ids := make([][]int64, len(texts))
	masks := make([][]int64, len(texts))
	for i, txt := range texts {
		enc, err := s.t.Encode(tk.NewSingleEncodeInput(tk.NewInputSequence(txt)), false)
		if err != nil {
			return nil, nil, err
		}
		uids := enc.GetIds()
		umask := enc.GetAttentionMask()

		// enforce fixed-length output (pad/truncate to maxSeqLen)
		rowIDs := make([]int64, s.maxSeqLen)
		rowMask := make([]int64, s.maxSeqLen)
		n := min(len(uids), s.maxSeqLen)
		for j := 0; j < n; j++ {
			rowIDs[j] = int64(uids[j])
			if j < len(umask) {
				rowMask[j] = int64(umask[j])
			} else {
				rowMask[j] = 1
			}
		}
		ids[i] = rowIDs
		masks[i] = rowMask
	}
	return ids, masks, nil
}
