package knowledge

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Template is a canned response selectable by keyword.
type Template struct {
	Keyword string
	Body    string
}

// Example is a historical product question with its approved answer, used
// as few-shot context when generating new answers. Never mutated.
type Example struct {
	ID       string
	Product  string
	Question string
	Answer   string
}

// AnswerRecord is one dispatched answer, kept as an audit trail.
type AnswerRecord struct {
	ID         string
	Store      string
	QuestionID int64
	Origin     string // "auto", "manual", or "relay"
	Body       string
	CreatedAt  time.Time
}
