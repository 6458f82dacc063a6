package vocab

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/armon/go-radix"
)

const (
	// PadIndex is the index reserved for padding.
	PadIndex = 0
	// OOVIndex is the index substituted for unseen tokens.
	OOVIndex = 1

	DefaultPadToken = "<PAD>"
	DefaultOOVToken = "<UNK>"

	reserved = 2
)

var (
	ErrCapacityTooSmall = errors.New("vocabulary capacity must leave room beyond the reserved tokens")
	ErrInvalidVocab     = errors.New("invalid vocabulary")
)

// Tokenizer maps word or character tokens to integer indices. Index 0 is the
// padding token and index 1 the out-of-vocabulary token.
type Tokenizer struct {
	charLevel    bool
	capacity     int // 0 means unbounded
	padToken     string
	oovToken     string
	tokenToIndex map[string]int
	indexToToken []string
	minTokenFreq int
	prefixes     *radix.Tree
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithCharLevel splits texts into characters instead of words.
func WithCharLevel(on bool) Option {
	return func(t *Tokenizer) { t.charLevel = on }
}

// WithCapacity bounds the vocabulary size, the two reserved tokens included.
// Zero means unbounded.
func WithCapacity(n int) Option {
	return func(t *Tokenizer) { t.capacity = n }
}

// WithPadToken overrides the padding token string.
func WithPadToken(s string) Option {
	return func(t *Tokenizer) { t.padToken = s }
}

// WithOOVToken overrides the out-of-vocabulary token string.
func WithOOVToken(s string) Option {
	return func(t *Tokenizer) { t.oovToken = s }
}

// New returns a tokenizer holding only the reserved tokens.
func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{padToken: DefaultPadToken, oovToken: DefaultOOVToken}
	for _, opt := range opts {
		opt(t)
	}
	t.reset()
	return t
}

func (t *Tokenizer) reset() {
	t.tokenToIndex = map[string]int{t.padToken: PadIndex, t.oovToken: OOVIndex}
	t.indexToToken = []string{t.padToken, t.oovToken}
	t.minTokenFreq = 0
	t.prefixes = radix.New()
	t.prefixes.Insert(t.padToken, PadIndex)
	t.prefixes.Insert(t.oovToken, OOVIndex)
}

func (t *Tokenizer) add(token string) int {
	idx := len(t.indexToToken)
	t.tokenToIndex[token] = idx
	t.indexToToken = append(t.indexToToken, token)
	t.prefixes.Insert(token, idx)
	return idx
}

func (t *Tokenizer) split(text string) []string {
	if t.charLevel {
		runes := []rune(text)
		out := make([]string, len(runes))
		for i, r := range runes {
			out[i] = string(r)
		}
		return out
	}
	return strings.Split(text, " ")
}

func (t *Tokenizer) separator() string {
	if t.charLevel {
		return ""
	}
	return " "
}

// Fit counts tokens across texts and indexes the most frequent ones from 2
// upwards, in descending frequency with ties broken by first occurrence. A
// previous fit is discarded.
func (t *Tokenizer) Fit(texts []string) (*Tokenizer, error) {
	if t.capacity > 0 && t.capacity <= reserved {
		return nil, fmt.Errorf("%w: %d", ErrCapacityTooSmall, t.capacity)
	}
	if t.padToken == t.oovToken {
		return nil, fmt.Errorf("%w: pad and oov tokens are both %q", ErrInvalidVocab, t.padToken)
	}

	type entry struct {
		token string
		count int
	}
	counts := make(map[string]*entry)
	var order []*entry
	for _, text := range texts {
		for _, tok := range t.split(text) {
			if e, ok := counts[tok]; ok {
				e.count++
				continue
			}
			e := &entry{token: tok, count: 1}
			counts[tok] = e
			order = append(order, e)
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].count > order[j].count })

	t.reset()
	limit := len(order)
	if t.capacity > 0 {
		limit = t.capacity - reserved
	}
	for _, e := range order {
		if len(t.indexToToken)-reserved >= limit {
			break
		}
		if _, taken := t.tokenToIndex[e.token]; taken {
			continue
		}
		t.add(e.token)
		t.minTokenFreq = e.count
	}

	slog.Debug("Fitted vocabulary",
		"distinct_tokens", len(order),
		"size", t.Len(),
		"min_token_freq", t.minTokenFreq,
		"char_level", t.charLevel)
	return t, nil
}

// Encode converts texts to index sequences. Unseen tokens map to OOVIndex.
func (t *Tokenizer) Encode(texts []string) [][]int {
	out := make([][]int, len(texts))
	for i, text := range texts {
		toks := t.split(text)
		seq := make([]int, len(toks))
		for j, tok := range toks {
			idx, ok := t.tokenToIndex[tok]
			if !ok {
				idx = OOVIndex
			}
			seq[j] = idx
		}
		out[i] = seq
	}
	return out
}

// Decode converts index sequences back to text. Unknown indices become the
// OOV token.
func (t *Tokenizer) Decode(seqs [][]int) []string {
	out := make([]string, len(seqs))
	sep := t.separator()
	for i, seq := range seqs {
		toks := make([]string, len(seq))
		for j, idx := range seq {
			toks[j] = t.Token(idx)
		}
		out[i] = strings.Join(toks, sep)
	}
	return out
}

// Token returns the token for idx, or the OOV token when idx is unknown.
func (t *Tokenizer) Token(idx int) string {
	if idx < 0 || idx >= len(t.indexToToken) {
		return t.oovToken
	}
	return t.indexToToken[idx]
}

// Lookup returns the index of token.
func (t *Tokenizer) Lookup(token string) (int, bool) {
	idx, ok := t.tokenToIndex[token]
	return idx, ok
}

// TokensWithPrefix lists vocabulary tokens starting with prefix, in
// lexicographic order.
func (t *Tokenizer) TokensWithPrefix(prefix string) []string {
	var out []string
	t.prefixes.WalkPrefix(prefix, func(key string, _ interface{}) bool {
		out = append(out, key)
		return false
	})
	return out
}

// Len is the vocabulary size including reserved tokens.
func (t *Tokenizer) Len() int { return len(t.indexToToken) }

// MinTokenFreq is the count of the least frequent token kept by Fit.
func (t *Tokenizer) MinTokenFreq() int { return t.minTokenFreq }

func (t *Tokenizer) CharLevel() bool { return t.charLevel }
func (t *Tokenizer) PadToken() string { return t.padToken }
func (t *Tokenizer) OOVToken() string { return t.oovToken }
func (t *Tokenizer) Capacity() int { return t.capacity }
func (t *Tokenizer) Tokens() []string { return append([]string(nil), t.indexToToken...) }
