// Package trialbalance stores versioned trial balance uploads and the
// analyst-authored mappings from raw entries to chart of accounts sub-heads.
package trialbalance

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Row is one pre-parsed ledger line as received from the external parser.
// Currency cleanup happens upstream; unparsable values arrive as 0.
type Row struct {
	AccountName string
	Debit       float64
	Credit      float64
}

// Entry is one immutable ledger line under a specific unit and version.
// The closing balance is recomputed as debit - credit at ingestion and is
// never trusted from the source file.
type Entry struct {
	ID             int64
	UnitID         int64
	VersionNumber  int64
	AccountName    string
	Debit          float64
	Credit         float64
	ClosingBalance float64
	CreatedAt      time.Time
}

// Version records one upload batch for a unit. Versions are append-only and
// retained forever for audit history.
type Version struct {
	ID            int64
	UnitID        int64
	VersionNumber int64
	BatchRef      uuid.UUID
	UploadedAt    time.Time
}

// VersionInfo summarises one version for listing, newest first.
type VersionInfo struct {
	Version    int64
	RowCount   int64
	UploadedAt time.Time
}

// Totals is the trial balance tally over the latest version of every unit
// belonging to a work.
type Totals struct {
	TotalDebit  float64
	TotalCredit float64
	Difference  float64
}

// Mapping links one trial balance entry to exactly one SUB_HEAD account.
type Mapping struct {
	ID        int64
	EntryID   int64
	AccountID int64
	UpdatedAt time.Time
}

var (
	// ErrUnitNotFound indicates the unit does not belong to the work.
	ErrUnitNotFound = errors.New("trialbalance: unit not found under work")
	// ErrEmptyUpload indicates the parsed row set was empty.
	ErrEmptyUpload = errors.New("trialbalance: upload contains no rows")
	// ErrEntryNotFound indicates the trial balance entry does not exist.
	ErrEntryNotFound = errors.New("trialbalance: entry not found")
	// ErrNotSubHead indicates a mapping target that is not SUB_HEAD typed.
	ErrNotSubHead = errors.New("trialbalance: entries can only be mapped to SUB_HEAD accounts")
	// ErrVersionConflict indicates a concurrent upload claimed the same
	// version number; the upload is retried with a fresh number.
	ErrVersionConflict = errors.New("trialbalance: version number conflict")
)
