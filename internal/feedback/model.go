package feedback

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

const (
	MinRating = 1
	MaxRating = 5
)

type Entry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SessionID uuid.UUID `json:"session_id" db:"session_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func NewEntry(sessionID uuid.UUID, rating int, comment string) (Entry, error) {
	if rating < MinRating || rating > MaxRating {
		return Entry{}, ErrInvalidRating
	}
	return Entry{
		ID:        uuid.New(),
		SessionID: sessionID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: time.Now(),
	}, nil
}

// Summary is the transcript line recorded for the entry.
func (e Entry) Summary() string {
	return fmt.Sprintf("Feedback: %d/5 - %s", e.Rating, e.Comment)
}
