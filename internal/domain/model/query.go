package model

import "time"

// QueryStatus tracks a user query through triage.
type QueryStatus string

// Query states.
const (
	QueryOpen       QueryStatus = "open"
	QueryInProgress QueryStatus = "in-progress"
	QueryResolved   QueryStatus = "resolved"
)

// Valid reports whether s is a known state.
func (s QueryStatus) Valid() bool {
	switch s {
	case QueryOpen, QueryInProgress, QueryResolved:
		return true
	}
	return false
}

// UserQuery is a complaint raised on behalf of a user.
type UserQuery struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId"`
	UserName     string      `json:"userName"`
	ComplaintTag string      `json:"complaintTag"`
	Comment      string      `json:"comment"`
	Status       QueryStatus `json:"status"`
	Timestamp    time.Time   `json:"timestamp"`
	CreatedBy    string      `json:"createdBy,omitempty"`
}
