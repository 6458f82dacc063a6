package labels

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

var (
	ErrUnknownLabel   = errors.New("unknown label")
	ErrUnknownIndex   = errors.New("unknown label index")
	ErrInvalidMapping = errors.New("label mapping is not a dense bijection")
)

// Encoder maps class names to dense indices 0..N-1 and back.
type Encoder struct {
	toIndex map[string]int
	classes []string // classes[i] is the label with index i
}

// document is the persisted form.
type document struct {
	TargetClasses map[string]int `json:"target_classes"`
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{toIndex: map[string]int{}}
}

// FromMapping builds an encoder from a label->index mapping. The indices must
// be exactly 0..len(m)-1.
func FromMapping(m map[string]int) (*Encoder, error) {
	classes := make([]string, len(m))
	filled := make([]bool, len(m))
	for label, idx := range m {
		if idx < 0 || idx >= len(m) || filled[idx] {
			return nil, fmt.Errorf("%w: index %d for %q", ErrInvalidMapping, idx, label)
		}
		classes[idx] = label
		filled[idx] = true
	}
	e := NewEncoder()
	e.classes = classes
	for i, c := range classes {
		e.toIndex[c] = i
	}
	return e, nil
}

// Fit assigns every distinct target, sorted ascending, an index. A previous
// mapping is discarded.
func (e *Encoder) Fit(targets []string) *Encoder {
	seen := make(map[string]struct{}, 16)
	classes := make([]string, 0, 16)
	for _, t := range targets {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		classes = append(classes, t)
	}
	sort.Strings(classes)

	e.classes = classes
	e.toIndex = make(map[string]int, len(classes))
	for i, c := range classes {
		e.toIndex[c] = i
	}
	return e
}

// Encode maps each target to its index.
func (e *Encoder) Encode(targets []string) ([]int, error) {
	out := make([]int, len(targets))
	for i, t := range targets {
		idx, ok := e.toIndex[t]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, t)
		}
		out[i] = idx
	}
	return out, nil
}

// Decode maps each index back to its label.
func (e *Encoder) Decode(indices []int) ([]string, error) {
	out := make([]string, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(e.classes) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownIndex, idx)
		}
		out[i] = e.classes[idx]
	}
	return out, nil
}

// Len returns the number of classes.
func (e *Encoder) Len() int { return len(e.classes) }

// Classes returns the labels in index order.
func (e *Encoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// Index looks up a single label.
func (e *Encoder) Index(label string) (int, bool) {
	idx, ok := e.toIndex[label]
	return idx, ok
}

// Counts returns how often each class occurs in targets, in index order.
// Unknown targets are ignored.
func (e *Encoder) Counts(targets []string) []int {
	counts := make([]int, len(e.classes))
	for _, t := range targets {
		if idx, ok := e.toIndex[t]; ok {
			counts[idx]++
		}
	}
	return counts
}

func (e *Encoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{TargetClasses: e.mapping()})
}

func (e *Encoder) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	restored, err := FromMapping(doc.TargetClasses)
	if err != nil {
		return err
	}
	*e = *restored
	return nil
}

// Save writes the mapping as {"target_classes": {...}}.
func (e *Encoder) Save(path string) error {
	data, err := json.MarshalIndent(document{TargetClasses: e.mapping()}, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal label mapping: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write label mapping to %s: %w", path, err)
	}
	return nil
}

// Load restores an encoder written by Save.
func Load(path string) (*Encoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label mapping from %s: %w", path, err)
	}
	e := NewEncoder()
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("failed to decode label mapping from %s: %w", path, err)
	}
	return e, nil
}

func (e *Encoder) mapping() map[string]int {
	m := make(map[string]int, len(e.classes))
	for i, c := range e.classes {
		m[c] = i
	}
	return m
}
