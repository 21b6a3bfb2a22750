package symptom

import (
	"fmt"
	"strings"
)

const (
	EmptyMessage  = "No symptoms selected. Please choose symptoms to analyze."
	UrgentMessage = "Urgent: These symptoms may indicate a serious condition. Seek immediate medical attention."
	Disclaimer    = "I am not a doctor. Consult a healthcare professional for medical advice."
)

type Kind string

const (
	KindEmpty   Kind = "empty"
	KindUrgent  Kind = "urgent"
	KindForward Kind = "forward"
)

// Pair is an unordered combination of two labels.
type Pair [2]string

// CriticalPairs short-circuit to UrgentMessage when both members are reported.
var CriticalPairs = []Pair{
	{"Chest pain", "Difficulty breathing"},
	{"Chest pain", "Loss of consciousness"},
	{"Difficulty breathing", "Loss of consciousness"},
}

type Result struct {
	Kind Kind `json:"kind"`
	// Message is set for Empty and Urgent.
	Message string `json:"message,omitempty"`
	// Prompt is set for Forward and must be sent to the completion service.
	Prompt string `json:"-"`
	// Matched lists the critical pairs found, for logging and alerts.
	Matched []Pair `json:"-"`
}

// Evaluate decides between the static warning and forwarding to the model.
// Any match yields the same message, so pair order does not matter.
func Evaluate(s Set) Result {
	if s.Empty() {
		return Result{Kind: KindEmpty, Message: EmptyMessage}
	}

	var matched []Pair
	for _, p := range CriticalPairs {
		if s.Has(p[0]) && s.Has(p[1]) {
			matched = append(matched, p)
		}
	}
	if len(matched) > 0 {
		return Result{Kind: KindUrgent, Message: UrgentMessage, Matched: matched}
	}

	return Result{Kind: KindForward, Prompt: BuildPrompt(s)}
}

// BuildPrompt lists every label once and asks for at most three candidate
// conditions, each kept non-diagnostic, followed by the disclaimer.
func BuildPrompt(s Set) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user reports the following symptoms: %s.\n", strings.Join(s.Labels(), ", "))
	b.WriteString("Based on these symptoms, suggest up to three possible medical conditions with brief explanations. ")
	b.WriteString("If the symptoms are ambiguous, state so. Always emphasize consulting a healthcare professional and avoid definitive diagnoses. ")
	b.WriteString("Format the response as:\n")
	b.WriteString("- Condition 1: [Explanation]\n")
	b.WriteString("- Condition 2: [Explanation]\n")
	b.WriteString("- Condition 3: [Explanation]\n")
	b.WriteString("End with this exact sentence: ")
	b.WriteString(Disclaimer)
	return b.String()
}
