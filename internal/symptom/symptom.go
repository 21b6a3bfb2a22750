package symptom

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownSymptom = errors.New("unknown symptom")

// Vocabulary is the fixed list offered to the user, in display order.
var Vocabulary = []string{
	"Fever", "Cough", "Fatigue", "Headache", "Chest pain", "Difficulty breathing",
	"Sore throat", "Nausea", "Vomiting", "Diarrhea", "Muscle pain", "Joint pain",
	"Rash", "Dizziness", "Loss of appetite", "Shortness of breath", "Abdominal pain",
	"Chills", "Sweating", "Loss of consciousness",
}

var canonical = func() map[string]string {
	m := make(map[string]string, len(Vocabulary))
	for _, label := range Vocabulary {
		m[strings.ToLower(label)] = label
	}
	return m
}()

// Set is an unordered collection of vocabulary labels without duplicates.
type Set struct {
	labels map[string]struct{}
}

// ParseSet maps user selections onto canonical labels. Matching ignores case and
// surrounding spaces; duplicates collapse.
func ParseSet(selected []string) (Set, error) {
	s := Set{labels: make(map[string]struct{}, len(selected))}
	for _, raw := range selected {
		label, ok := canonical[strings.ToLower(strings.TrimSpace(raw))]
		if !ok {
			return Set{}, fmt.Errorf("%w: %q", ErrUnknownSymptom, raw)
		}
		s.labels[label] = struct{}{}
	}
	return s, nil
}

// MustSet is ParseSet for fixed label lists.
func MustSet(labels ...string) Set {
	s, err := ParseSet(labels)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Set) Has(label string) bool {
	_, ok := s.labels[label]
	return ok
}

func (s Set) Len() int {
	return len(s.labels)
}

func (s Set) Empty() bool {
	return len(s.labels) == 0
}

// Labels returns the members in vocabulary order.
func (s Set) Labels() []string {
	out := make([]string, 0, len(s.labels))
	for _, label := range Vocabulary {
		if s.Has(label) {
			out = append(out, label)
		}
	}
	return out
}
