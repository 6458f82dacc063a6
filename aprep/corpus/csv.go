package corpus

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// WriteCSV writes samples with a header row.
func WriteCSV(w io.Writer, samples []Sample) error {
	if err := gocsv.Marshal(samples, w); err != nil {
		return fmt.Errorf("failed to write samples as csv: %w", err)
	}
	return nil
}

// ReadCSV reads samples written by WriteCSV.
func ReadCSV(r io.Reader) ([]Sample, error) {
	var samples []Sample
	if err := gocsv.Unmarshal(r, &samples); err != nil {
		return nil, fmt.Errorf("failed to read samples from csv: %w", err)
	}
	return samples, nil
}
