package vocab

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// document is the persisted form of a Tokenizer.
type document struct {
	CharLevel    bool           `json:"ch_lvl"`
	OOVToken     string         `json:"oov_tkn"`
	TokenToIndex map[string]int `json:"tkn_to_idx"`
}

func (t *Tokenizer) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.document())
}

func (t *Tokenizer) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	restored, err := fromDocument(doc)
	if err != nil {
		return err
	}
	*t = *restored
	return nil
}

// Save writes {"ch_lvl", "oov_tkn", "tkn_to_idx"} to path.
func (t *Tokenizer) Save(path string) error {
	data, err := json.MarshalIndent(t.document(), "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal vocabulary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write vocabulary to %s: %w", path, err)
	}
	return nil
}

// Load restores a tokenizer written by Save.
func Load(path string) (*Tokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary from %s: %w", path, err)
	}
	t := &Tokenizer{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary from %s: %w", path, err)
	}
	return t, nil
}

// WriteVocabTxt writes one token per line in index order, the layout WordPiece
// vocab.txt files use.
func (t *Tokenizer) WriteVocabTxt(w io.Writer) error {
	for _, tok := range t.indexToToken {
		if _, err := fmt.Fprintln(w, tok); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tokenizer) document() document {
	return document{
		CharLevel:    t.charLevel,
		OOVToken:     t.oovToken,
		TokenToIndex: t.tokenToIndex,
	}
}

// fromDocument rebuilds a tokenizer. Indices must be dense from 0 and the OOV
// token must sit at OOVIndex; the token at PadIndex becomes the pad token.
func fromDocument(doc document) (*Tokenizer, error) {
	n := len(doc.TokenToIndex)
	if n < reserved {
		return nil, fmt.Errorf("%w: %d entries, need at least %d", ErrInvalidVocab, n, reserved)
	}
	tokens := make([]string, n)
	filled := make([]bool, n)
	for tok, idx := range doc.TokenToIndex {
		if idx < 0 || idx >= n || filled[idx] {
			return nil, fmt.Errorf("%w: index %d for %q", ErrInvalidVocab, idx, tok)
		}
		tokens[idx] = tok
		filled[idx] = true
	}
	if tokens[OOVIndex] != doc.OOVToken {
		return nil, fmt.Errorf("%w: oov token %q is not at index %d", ErrInvalidVocab, doc.OOVToken, OOVIndex)
	}

	t := New(WithCharLevel(doc.CharLevel), WithPadToken(tokens[PadIndex]), WithOOVToken(doc.OOVToken))
	for _, tok := range tokens[reserved:] {
		t.add(tok)
	}
	return t, nil
}
