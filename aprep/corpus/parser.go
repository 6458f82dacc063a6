package corpus

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	abstractMarker = "###"
	fieldSeparator = "\t"
)

// ParseOptions controls how sentence text is captured.
type ParseOptions struct {
	// Lowercase lowercases the sentence text while parsing.
	Lowercase bool
}

// DefaultParseOptions lowercases sentence text.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{Lowercase: true}
}

// ParseReport summarizes a parse.
type ParseReport struct {
	Abstracts int
	Samples   int
	Malformed int
}

// ParseFile parses the annotated-abstract file at path.
func ParseFile(path string, opts ParseOptions) ([]Sample, ParseReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ParseReport{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	samples, report, err := Parse(f, opts)
	if err != nil {
		return nil, report, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return samples, report, nil
}

// Parse reads abstracts from r. A line starting with "###" opens an abstract,
// following "label<TAB>text" lines are collected, and a blank line closes it.
// Lines without a TAB produce no sample but still count towards TotalLines.
func Parse(r io.Reader, opts ParseOptions) ([]Sample, ParseReport, error) {
	var (
		samples    []Sample
		report     ParseReport
		abstractID string
		pending    []string
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		report.Abstracts++
		total := len(pending) - 1
		for n, line := range pending {
			target, text, ok := strings.Cut(line, fieldSeparator)
			if !ok {
				report.Malformed++
				slog.Warn("Skipping line without label separator",
					"abstract", abstractID,
					"line_number", n)
				continue
			}
			if opts.Lowercase {
				text = strings.ToLower(text)
			}
			samples = append(samples, Sample{
				AbstractID: abstractID,
				LineNumber: n,
				TotalLines: total,
				Target:     target,
				Text:       text,
			})
		}
		pending = pending[:0]
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, abstractMarker):
			abstractID = strings.TrimSpace(strings.TrimPrefix(line, abstractMarker))
			pending = pending[:0]
		case strings.TrimSpace(line) == "":
			flush()
		default:
			pending = append(pending, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, report, fmt.Errorf("failed to read abstracts: %w", err)
	}
	// no trailing blank line
	flush()

	report.Samples = len(samples)
	slog.Debug("Parsed abstracts",
		"abstracts", report.Abstracts,
		"samples", report.Samples,
		"malformed", report.Malformed)
	return samples, report, nil
}
