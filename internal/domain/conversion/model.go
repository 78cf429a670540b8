package conversion

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("conversion not found")

// Record is one entry of the conversion history. Result is the converted
// tree for successful conversions; ErrorCode and ErrorMessage are set for
// rejected expressions.
type Record struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Expression   string          `db:"expression" json:"expression"`
	Result       json.RawMessage `db:"result" json:"result,omitempty"`
	ErrorCode    string          `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage string          `db:"error_message" json:"error_message,omitempty"`
	LeafCount    int             `db:"leaf_count" json:"leaf_count"`
	UserID       string          `db:"user_id" json:"user_id,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

func (r *Record) Succeeded() bool { return r.ErrorCode == "" }

// Outcome filters history listings.
type Outcome string

const (
	OutcomeAny       Outcome = ""
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

type ListFilter struct {
	Outcome   Outcome
	ErrorCode string
}

func (f ListFilter) matches(r *Record) bool {
	switch f.Outcome {
	case OutcomeSucceeded:
		if !r.Succeeded() {
			return false
		}
	case OutcomeFailed:
		if r.Succeeded() {
			return false
		}
	}
	return f.ErrorCode == "" || f.ErrorCode == r.ErrorCode
}
