package events

import "time"

type EntryUpdatedEvent struct {
	SessionID string    `json:"session_id"`
	Course    string    `json:"course"`
	Title     string    `json:"title"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// ResultsComputedEvent carries the display-rounded figures, so NaN results
// travel as the string "NaN".
type ResultsComputedEvent struct {
	SessionID string    `json:"session_id,omitempty"`
	Surface   string    `json:"surface"`
	Overall   string    `json:"overall"`
	Best90    string    `json:"best90"`
	Worst30   string    `json:"worst30"`
	Courses   int       `json:"courses_scored"`
	Timestamp time.Time `json:"timestamp"`
}
