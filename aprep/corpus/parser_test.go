package corpus

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoAbstracts = "###24293578\n" +
	"OBJECTIVE\tTo investigate the efficacy of 6 weeks of daily low-dose oral prednisolone.\n" +
	"METHODS\tA total of 125 patients were randomized.\n" +
	"RESULTS\tThere was a clinically relevant reduction.\n" +
	"\n" +
	"###24854809\n" +
	"BACKGROUND\tEmotional eating is associated with overeating.\n" +
	"CONCLUSIONS\tFindings suggest a role for mindfulness.\n" +
	"\n"

func TestParse(t *testing.T) {
	t.Run("two abstracts produce m+n samples", func(t *testing.T) {
		samples, report, err := Parse(strings.NewReader(twoAbstracts), DefaultParseOptions())
		require.NoError(t, err)
		require.Len(t, samples, 5)
		assert.Equal(t, 2, report.Abstracts)
		assert.Equal(t, 5, report.Samples)
		assert.Zero(t, report.Malformed)

		for _, s := range samples[:3] {
			assert.Equal(t, 2, s.TotalLines)
			assert.Equal(t, "24293578", s.AbstractID)
		}
		for _, s := range samples[3:] {
			assert.Equal(t, 1, s.TotalLines)
			assert.Equal(t, "24854809", s.AbstractID)
		}
	})

	t.Run("line numbers are zero based per abstract", func(t *testing.T) {
		samples, _, err := Parse(strings.NewReader(twoAbstracts), DefaultParseOptions())
		require.NoError(t, err)
		got := make([]int, len(samples))
		for i, s := range samples {
			got[i] = s.LineNumber
		}
		assert.Equal(t, []int{0, 1, 2, 0, 1}, got)
	})

	t.Run("targets and lowercased text", func(t *testing.T) {
		samples, _, err := Parse(strings.NewReader(twoAbstracts), DefaultParseOptions())
		require.NoError(t, err)
		assert.Equal(t, "OBJECTIVE", samples[0].Target)
		assert.Equal(t, "a total of 125 patients were randomized.", samples[1].Text)
	})

	t.Run("lowercasing can be disabled", func(t *testing.T) {
		samples, _, err := Parse(strings.NewReader(twoAbstracts), ParseOptions{})
		require.NoError(t, err)
		assert.Equal(t, "A total of 125 patients were randomized.", samples[1].Text)
	})

	t.Run("line without separator produces no sample", func(t *testing.T) {
		in := "###1\nMETHODS\tfirst\nno separator here\nRESULTS\tthird\n\n"
		samples, report, err := Parse(strings.NewReader(in), DefaultParseOptions())
		require.NoError(t, err)
		require.Len(t, samples, 2)
		assert.Equal(t, 1, report.Malformed)
		assert.Equal(t, 2, samples[0].TotalLines)
		assert.Equal(t, 2, samples[1].LineNumber)
	})

	t.Run("abstract open at EOF is flushed", func(t *testing.T) {
		in := "###1\nMETHODS\tfirst\nRESULTS\tsecond"
		samples, report, err := Parse(strings.NewReader(in), DefaultParseOptions())
		require.NoError(t, err)
		assert.Len(t, samples, 2)
		assert.Equal(t, 1, report.Abstracts)
	})

	t.Run("whitespace-only line terminates and CRLF is tolerated", func(t *testing.T) {
		in := "###1\r\nMETHODS\tfirst\r\n   \r\n###2\r\nRESULTS\tsecond\r\n\r\n"
		samples, _, err := Parse(strings.NewReader(in), DefaultParseOptions())
		require.NoError(t, err)
		require.Len(t, samples, 2)
		assert.Equal(t, "first", samples[0].Text)
		assert.Equal(t, "2", samples[1].AbstractID)
	})

	t.Run("empty input", func(t *testing.T) {
		samples, report, err := Parse(strings.NewReader(""), DefaultParseOptions())
		require.NoError(t, err)
		assert.Empty(t, samples)
		assert.Zero(t, report.Abstracts)
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParseReadError(t *testing.T) {
	_, _, err := Parse(failingReader{}, DefaultParseOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.txt")
	require.NoError(t, os.WriteFile(path, []byte(twoAbstracts), 0o644))

	samples, _, err := ParseFile(path, DefaultParseOptions())
	require.NoError(t, err)
	assert.Len(t, samples, 5)

	_, _, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"), DefaultParseOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCSVRoundTrip(t *testing.T) {
	samples, _, err := Parse(strings.NewReader(twoAbstracts), DefaultParseOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, samples))
	assert.True(t, strings.HasPrefix(buf.String(), "abstract_id,line_number,total_lines,target,text"))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, samples, back)
}

func TestProjections(t *testing.T) {
	samples := []Sample{{Target: "A", Text: "x"}, {Target: "B", Text: "y"}}
	assert.Equal(t, []string{"x", "y"}, Texts(samples))
	assert.Equal(t, []string{"A", "B"}, Targets(samples))

	replaced := WithTexts(samples, []string{"p", "q"})
	assert.Equal(t, []string{"p", "q"}, Texts(replaced))
	assert.Equal(t, "x", samples[0].Text, "original slice untouched")
}
