package bmi

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidInput = errors.New("weight and height must be positive numbers")

type Category string

const (
	Underweight Category = "Underweight"
	Normal      Category = "Normal"
	Overweight  Category = "Overweight"
	Obese       Category = "Obese"
)

// band is a half-open interval [lower, upper).
type band struct {
	lower, upper float64
	category     Category
}

var bands = []band{
	{0, 18.5, Underweight},
	{18.5, 25, Normal},
	{25, 30, Overweight},
	{30, math.Inf(1), Obese},
}

type Result struct {
	Value    float64  `json:"value"`
	Category Category `json:"category"`
}

// Classify computes weight/height² and picks its category. Inputs must already
// have passed Validate.
func Classify(weightKg, heightM float64) Result {
	value := weightKg / (heightM * heightM)
	for _, b := range bands {
		// The last band is open-ended and also holds +Inf.
		if value >= b.lower && (value < b.upper || math.IsInf(b.upper, 1)) {
			return Result{Value: value, Category: b.category}
		}
	}
	// Only negative or NaN values get here; Validate rules both out.
	return Result{Value: value, Category: Underweight}
}

// Physical limits for calculator input.
const (
	MaxWeightKg = 1000
	MaxHeightM  = 3
)

// Validate rejects inputs that are not positive, exceed the physical limits,
// or whose weight/height² is not a finite number.
func Validate(weightKg, heightM float64) error {
	if !positive(weightKg) || !positive(heightM) {
		return ErrInvalidInput
	}
	if weightKg > MaxWeightKg || heightM > MaxHeightM {
		return fmt.Errorf("%w: weight must be at most %d kg and height at most %d m", ErrInvalidInput, MaxWeightKg, MaxHeightM)
	}
	v := weightKg / (heightM * heightM)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Errorf("%w: height is too small", ErrInvalidInput)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1) && !math.IsNaN(v)
}

func (r Result) Message() string {
	return fmt.Sprintf("Your BMI is %.1f (%s). Consult a doctor for personalized advice.", r.Value, r.Category)
}

// Record is one calculator submission kept for the session's trend.
type Record struct {
	WeightKg   float64   `json:"weight_kg"`
	HeightM    float64   `json:"height_m"`
	Value      float64   `json:"value"`
	Category   Category  `json:"category"`
	RecordedAt time.Time `json:"recorded_at"`
}

func NewRecord(weightKg, heightM float64, at time.Time) (Record, error) {
	if err := Validate(weightKg, heightM); err != nil {
		return Record{}, err
	}
	r := Classify(weightKg, heightM)
	return Record{
		WeightKg:   weightKg,
		HeightM:    heightM,
		Value:      r.Value,
		Category:   r.Category,
		RecordedAt: at,
	}, nil
}

func (r Record) Result() Result {
	return Result{Value: r.Value, Category: r.Category}
}
