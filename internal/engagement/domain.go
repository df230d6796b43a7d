// Package engagement models financial works, their units, and finalization.
package engagement

import (
	"errors"
	"regexp"
	"time"
)

// WorkStatus enumerates the engagement lifecycle. Transitions are monotonic;
// FINALIZED is terminal for editing purposes.
type WorkStatus string

const (
	StatusDraft      WorkStatus = "DRAFT"
	StatusInProgress WorkStatus = "IN_PROGRESS"
	StatusReview     WorkStatus = "REVIEW"
	StatusFinalized  WorkStatus = "FINALIZED"
)

// Next returns the following lifecycle state, or false from FINALIZED.
func (s WorkStatus) Next() (WorkStatus, bool) {
	switch s {
	case StatusDraft:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusReview, true
	case StatusReview:
		return StatusFinalized, true
	default:
		return s, false
	}
}

// Work is one audit/compliance assignment over a financial period.
type Work struct {
	ID          int64
	CompanyName string
	StartDate   time.Time
	EndDate     time.Time
	Status      WorkStatus
	UDIN        string
	SignedOn    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Unit is a branch or division under a work, each carrying its own
// independently versioned trial balance. Every work has a "Main" unit.
type Unit struct {
	ID        int64
	WorkID    int64
	Name      string
	CreatedAt time.Time
}

// DefaultUnitName is created with every new work.
const DefaultUnitName = "Main"

var (
	// ErrWorkNotFound indicates the work id does not exist.
	ErrWorkNotFound = errors.New("engagement: work not found")
	// ErrUnitNotFound indicates the unit does not exist under the work.
	ErrUnitNotFound = errors.New("engagement: unit not found")
	// ErrInvalidUDIN indicates the finalization token failed format checks.
	ErrInvalidUDIN = errors.New("engagement: invalid UDIN format")
	// ErrWorkFinalized indicates the work no longer accepts edits.
	ErrWorkFinalized = errors.New("engagement: work is finalized")
	// ErrInvalidTransition indicates a non-monotonic status change.
	ErrInvalidTransition = errors.New("engagement: invalid status transition")
	// ErrNotReadyToFinalize indicates the work has not reached REVIEW.
	ErrNotReadyToFinalize = errors.New("engagement: work must be in review to finalize")
)

// udinPattern: two digit year, six digit member id, ten alphanumerics.
var udinPattern = regexp.MustCompile(`^\d{2}\d{6}[A-Z0-9]{10}$`)

// ValidateUDIN checks the 18-character finalization token format.
func ValidateUDIN(udin string) error {
	if !udinPattern.MatchString(udin) {
		return ErrInvalidUDIN
	}
	return nil
}
