package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("location set already registered")
	// ErrInvalidLocation marks a coordinate outside the valid lat/lon ranges.
	ErrInvalidLocation = errors.New("invalid geolocation")
	// ErrRejected matches every *RejectionError via errors.Is.
	ErrRejected = errors.New("location set rejected")
)

// RejectReason names the validation step that rejected a proposal.
type RejectReason string

const (
	ReasonEmptyLocationSet             RejectReason = "EmptyLocationSet"
	ReasonDuplicateIdentifier          RejectReason = "DuplicateIdentifier"
	ReasonInvalidGeolocation           RejectReason = "InvalidGeolocation"
	ReasonIntraSetTooClose             RejectReason = "IntraSetTooClose"
	ReasonTooNearPole                  RejectReason = "TooNearPole"
	ReasonTooNearDateline              RejectReason = "TooNearDateline"
	ReasonTooCloseToOtherRegisteredSet RejectReason = "TooCloseToOtherRegisteredSet"
)

var reasonMessages = map[RejectReason]string{
	ReasonEmptyLocationSet:             "location set has no locations",
	ReasonDuplicateIdentifier:          "location set already registered",
	ReasonInvalidGeolocation:           "invalid geolocation specified",
	ReasonIntraSetTooClose:             "minimum solar trip time violated within supplied locations",
	ReasonTooNearPole:                  "minimum distance violated towards pole",
	ReasonTooNearDateline:              "minimum distance violated towards dateline",
	ReasonTooCloseToOtherRegisteredSet: "minimum solar trip time violated towards other registered location set",
}

// Message returns a human readable description of the reason.
func (r RejectReason) Message() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

// RejectionError is returned by validation when a proposal is not admissible.
// Index is the offending location within the proposal (-1 when not
// applicable); Conflict is set for TooCloseToOtherRegisteredSet.
type RejectionError struct {
	Reason   RejectReason
	Index    int
	Location *Location
	Conflict *LocationSetID
}

func (e *RejectionError) Error() string {
	msg := e.Reason.Message()
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s (location %d)", msg, e.Index)
	}
	if e.Conflict != nil {
		msg = fmt.Sprintf("%s (conflicts with %s)", msg, e.Conflict)
	}
	return msg
}

func (e *RejectionError) Is(target error) bool { return target == ErrRejected }

// Reject builds a RejectionError for the location at index (or -1).
func Reject(reason RejectReason, index int) *RejectionError {
	return &RejectionError{Reason: reason, Index: index}
}

// ReasonOf extracts the reject reason from err, if any.
func ReasonOf(err error) (RejectReason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
