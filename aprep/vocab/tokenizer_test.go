package vocab

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"patients were randomized",
	"patients received placebo",
	"placebo group improved",
	"patients improved",
}

func TestFit(t *testing.T) {
	t.Run("reserved indices", func(t *testing.T) {
		tok := New()
		assert.Equal(t, 2, tok.Len())
		assert.Equal(t, DefaultPadToken, tok.Token(PadIndex))
		assert.Equal(t, DefaultOOVToken, tok.Token(OOVIndex))
	})

	t.Run("descending frequency with first-seen ties", func(t *testing.T) {
		tok, err := New().Fit(corpus)
		require.NoError(t, err)

		want := []string{DefaultPadToken, DefaultOOVToken,
			"patients", "placebo", "improved",
			"were", "randomized", "received", "group"}
		assert.Equal(t, want, tok.Tokens())
		assert.Equal(t, 1, tok.MinTokenFreq())
	})

	t.Run("capacity keeps the most frequent", func(t *testing.T) {
		tok, err := New(WithCapacity(4)).Fit(corpus)
		require.NoError(t, err)
		assert.Equal(t, 4, tok.Len())
		assert.Equal(t, []string{DefaultPadToken, DefaultOOVToken, "patients", "placebo"}, tok.Tokens())
		assert.Equal(t, 2, tok.MinTokenFreq())
	})

	t.Run("capacity too small", func(t *testing.T) {
		_, err := New(WithCapacity(2)).Fit(corpus)
		assert.ErrorIs(t, err, ErrCapacityTooSmall)
	})

	t.Run("pad and oov must differ", func(t *testing.T) {
		_, err := New(WithPadToken("x"), WithOOVToken("x")).Fit(corpus)
		assert.ErrorIs(t, err, ErrInvalidVocab)
	})

	t.Run("refit replaces", func(t *testing.T) {
		tok, err := New().Fit(corpus)
		require.NoError(t, err)
		_, err = tok.Fit([]string{"alpha beta"})
		require.NoError(t, err)
		assert.Equal(t, 4, tok.Len())
		_, ok := tok.Lookup("patients")
		assert.False(t, ok)
	})

	t.Run("reserved token in text keeps its index", func(t *testing.T) {
		tok, err := New().Fit([]string{"<UNK> <UNK> word"})
		require.NoError(t, err)
		idx, ok := tok.Lookup(DefaultOOVToken)
		assert.True(t, ok)
		assert.Equal(t, OOVIndex, idx)
		assert.Equal(t, 3, tok.Len())
	})

	t.Run("empty corpus", func(t *testing.T) {
		tok, err := New().Fit(nil)
		require.NoError(t, err)
		assert.Equal(t, 2, tok.Len())
		assert.Zero(t, tok.MinTokenFreq())
	})
}

func TestEncodeDecode(t *testing.T) {
	tok, err := New().Fit(corpus)
	require.NoError(t, err)

	t.Run("in-vocabulary round trip", func(t *testing.T) {
		texts := []string{"placebo group improved", "patients were randomized"}
		seqs := tok.Encode(texts)
		assert.Equal(t, []int{3, 8, 4}, seqs[0])
		assert.Equal(t, texts, tok.Decode(seqs))
	})

	t.Run("unseen token becomes oov", func(t *testing.T) {
		seqs := tok.Encode([]string{"patients died"})
		assert.Equal(t, []int{2, OOVIndex}, seqs[0])
		assert.Equal(t, []string{"patients <UNK>"}, tok.Decode(seqs))
	})

	t.Run("unknown index decodes to oov token", func(t *testing.T) {
		assert.Equal(t, []string{"<UNK> patients <UNK>"}, tok.Decode([][]int{{99, 2, -3}}))
	})
}

func TestCharLevel(t *testing.T) {
	tok, err := New(WithCharLevel(true)).Fit([]string{"abba", "cab"})
	require.NoError(t, err)
	assert.True(t, tok.CharLevel())
	assert.Equal(t, []string{DefaultPadToken, DefaultOOVToken, "a", "b", "c"}, tok.Tokens())

	seqs := tok.Encode([]string{"cab", "abz"})
	assert.Equal(t, [][]int{{4, 2, 3}, {2, 3, OOVIndex}}, seqs)
	assert.Equal(t, []string{"cab", "ab<UNK>"}, tok.Decode(seqs))
}

func TestTokensWithPrefix(t *testing.T) {
	tok, err := New().Fit(corpus)
	require.NoError(t, err)
	assert.Equal(t, []string{"patients", "placebo"}, tok.TokensWithPrefix("p"))
	assert.Equal(t, []string{"randomized", "received"}, tok.TokensWithPrefix("r"))
	assert.Empty(t, tok.TokensWithPrefix("zzz"))
}

func TestSaveLoad(t *testing.T) {
	for _, charLevel := range []bool{false, true} {
		name := "word"
		if charLevel {
			name = "char"
		}
		t.Run(name, func(t *testing.T) {
			tok, err := New(WithCharLevel(charLevel)).Fit(corpus)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "vocab.json")
			require.NoError(t, tok.Save(path))

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			var doc map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(raw, &doc))
			assert.Contains(t, doc, "ch_lvl")
			assert.Contains(t, doc, "oov_tkn")
			assert.Contains(t, doc, "tkn_to_idx")

			restored, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, charLevel, restored.CharLevel())
			assert.Equal(t, tok.Tokens(), restored.Tokens())
			assert.Equal(t, tok.PadToken(), restored.PadToken())

			heldOut := []string{"placebo patients improved", "nobody knows"}
			assert.Equal(t, tok.Encode(heldOut), restored.Encode(heldOut))
			assert.Equal(t, tok.Decode(tok.Encode(heldOut)), restored.Decode(restored.Encode(heldOut)))
		})
	}
}

func TestLoadRejectsBrokenDocuments(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"too small":     `{"ch_lvl": false, "oov_tkn": "<UNK>", "tkn_to_idx": {"<UNK>": 0}}`,
		"gap":           `{"ch_lvl": false, "oov_tkn": "<UNK>", "tkn_to_idx": {"<PAD>": 0, "<UNK>": 1, "a": 3}}`,
		"oov misplaced": `{"ch_lvl": false, "oov_tkn": "<UNK>", "tkn_to_idx": {"<UNK>": 0, "<PAD>": 1}}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalidVocab)
		})
	}
}

func TestWriteVocabTxt(t *testing.T) {
	tok, err := New(WithCapacity(4)).Fit(corpus)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tok.WriteVocabTxt(&buf))
	assert.Equal(t, "<PAD>\n<UNK>\npatients\nplacebo\n", buf.String())
}
