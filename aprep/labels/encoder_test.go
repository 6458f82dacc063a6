package labels

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var targets = []string{"RESULTS", "METHODS", "BACKGROUND", "METHODS", "OBJECTIVE", "CONCLUSIONS", "RESULTS"}

func TestFit(t *testing.T) {
	e := NewEncoder().Fit(targets)
	assert.Equal(t, 5, e.Len())
	assert.Equal(t, []string{"BACKGROUND", "CONCLUSIONS", "METHODS", "OBJECTIVE", "RESULTS"}, e.Classes())

	idx, ok := e.Index("METHODS")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestFitReplaces(t *testing.T) {
	e := NewEncoder().Fit([]string{"b", "c"})
	e.Fit([]string{"a", "b"})

	assert.Equal(t, []string{"a", "b"}, e.Classes())
	_, ok := e.Index("c")
	assert.False(t, ok, "refit drops labels of the previous fit")
}

func TestEncodeDecode(t *testing.T) {
	e := NewEncoder().Fit(targets)

	t.Run("round trip", func(t *testing.T) {
		enc, err := e.Encode(targets)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 2, 0, 2, 3, 1, 4}, enc)

		dec, err := e.Decode(enc)
		require.NoError(t, err)
		assert.Equal(t, targets, dec)
	})

	t.Run("unknown label", func(t *testing.T) {
		_, err := e.Encode([]string{"METHODS", "DISCUSSION"})
		assert.ErrorIs(t, err, ErrUnknownLabel)
		assert.Contains(t, err.Error(), "DISCUSSION")
	})

	t.Run("unknown index", func(t *testing.T) {
		_, err := e.Decode([]int{0, 5})
		assert.ErrorIs(t, err, ErrUnknownIndex)
		_, err = e.Decode([]int{-1})
		assert.ErrorIs(t, err, ErrUnknownIndex)
	})

	t.Run("empty input", func(t *testing.T) {
		enc, err := e.Encode(nil)
		require.NoError(t, err)
		assert.Empty(t, enc)
	})
}

func TestCounts(t *testing.T) {
	e := NewEncoder().Fit(targets)
	assert.Equal(t, []int{1, 1, 2, 1, 2}, e.Counts(targets))
	assert.Equal(t, []int{0, 0, 0, 0, 0}, e.Counts([]string{"UNSEEN"}))
}

func TestFromMapping(t *testing.T) {
	e, err := FromMapping(map[string]int{"x": 1, "y": 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, e.Classes())

	for name, m := range map[string]map[string]int{
		"gap":       {"x": 0, "y": 2},
		"duplicate": {"x": 0, "y": 0},
		"negative":  {"x": -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromMapping(m)
			assert.ErrorIs(t, err, ErrInvalidMapping)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	e := NewEncoder().Fit(targets)
	path := filepath.Join(t.TempDir(), "labels.json")
	require.NoError(t, e.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]int
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 4, doc["target_classes"]["RESULTS"])

	restored, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, e.Classes(), restored.Classes())

	heldOut := []string{"OBJECTIVE", "BACKGROUND", "RESULTS"}
	want, err := e.Encode(heldOut)
	require.NoError(t, err)
	got, err := restored.Encode(heldOut)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = restored.Encode([]string{"DISCUSSION"})
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"target_classes": {"a": 3}}`), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidMapping)
}

func TestJSONMarshal(t *testing.T) {
	e := NewEncoder().Fit([]string{"b", "a"})
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"target_classes": {"a": 0, "b": 1}}`, string(data))
}
