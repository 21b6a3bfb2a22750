package habit

import "errors"

var ErrInvalidInput = errors.New("habit counts must not be negative")

const (
	WaterGoal = 8
	StepsGoal = 10000
)

// Progress is today's count for the tracked challenges.
type Progress struct {
	WaterGlasses int `json:"water_glasses"`
	Steps        int `json:"steps"`
}

func (p Progress) Validate() error {
	if p.WaterGlasses < 0 || p.Steps < 0 {
		return ErrInvalidInput
	}
	return nil
}

// Achievements lists a message for every goal the progress meets.
func Achievements(p Progress) []string {
	out := []string{}
	if p.WaterGlasses >= WaterGoal {
		out = append(out, "Great job! You've met your daily water goal!")
	}
	if p.Steps >= StepsGoal {
		out = append(out, "Awesome! You've hit 10,000 steps today!")
	}
	return out
}
