package habit

import (
	"errors"
	"testing"
)

func TestAchievements(t *testing.T) {
	cases := []struct {
		in   Progress
		want int
	}{
		{Progress{}, 0},
		{Progress{WaterGlasses: 7, Steps: 9999}, 0},
		{Progress{WaterGlasses: 8}, 1},
		{Progress{Steps: 10000}, 1},
		{Progress{WaterGlasses: 12, Steps: 15000}, 2},
	}
	for _, c := range cases {
		if got := Achievements(c.in); len(got) != c.want {
			t.Errorf("Achievements(%+v) = %v, want %d messages", c.in, got, c.want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := (Progress{WaterGlasses: -1}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := (Progress{WaterGlasses: 3, Steps: 100}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
