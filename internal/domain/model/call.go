package model

import "time"

// CallStatus is the outcome of a call to a user.
type CallStatus string

// Call outcomes.
const (
	CallConnected    CallStatus = "call connected"
	CallNotConnected CallStatus = "call not connected"
	CallSwitchedOff  CallStatus = "switched off"
	CallLater        CallStatus = "call later"
)

// CallStatuses lists every valid outcome.
var CallStatuses = []CallStatus{CallConnected, CallNotConnected, CallSwitchedOff, CallLater}

// Valid reports whether s is a known outcome.
func (s CallStatus) Valid() bool {
	for _, v := range CallStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// CallRecord is the latest call logged against a user. There is at most one
// per UserID; logging a new call replaces the previous one.
type CallRecord struct {
	UserID       string     `json:"userId"`
	Status       CallStatus `json:"status"`
	Comment      string     `json:"comment"`
	ComplaintTag string     `json:"complaintTag,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	CreatedBy    string     `json:"createdBy,omitempty"`
}
