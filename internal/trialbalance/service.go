package trialbalance

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerloom/ledgerloom/internal/coa"
)

// AccountDirectory resolves mapping targets against the chart of accounts.
type AccountDirectory interface {
	GetAccount(ctx context.Context, id int64) (coa.Account, error)
}

// Service coordinates uploads and mapping operations.
type Service struct {
	repo     RepositoryPort
	accounts AccountDirectory
}

// uploadRetries bounds how often an upload competes for a version number
// before giving up. Two concurrent uploads to the same unit conflict on the
// (unit, version) uniqueness constraint and the loser recomputes.
const uploadRetries = 3

// NewService constructs the trial balance service.
func NewService(repo RepositoryPort, accounts AccountDirectory) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// Upload appends a new immutable version of the unit's trial balance and
// returns its version number. Prior versions are never touched.
func (s *Service) Upload(ctx context.Context, workID, unitID int64, rows []Row) (int64, error) {
	if len(rows) == 0 {
		return 0, ErrEmptyUpload
	}
	if err := s.repo.UnitBelongsToWork(ctx, workID, unitID); err != nil {
		return 0, err
	}

	batchRef := uuid.New()
	var version int64
	var lastErr error
	for attempt := 0; attempt < uploadRetries; attempt++ {
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			max, err := tx.MaxVersion(ctx, unitID)
			if err != nil {
				return err
			}
			version = max + 1
			if err := tx.InsertVersion(ctx, Version{UnitID: unitID, VersionNumber: version, BatchRef: batchRef}); err != nil {
				return err
			}
			entries := make([]Entry, 0, len(rows))
			for _, row := range rows {
				name := strings.TrimSpace(row.AccountName)
				if name == "" {
					continue
				}
				entries = append(entries, Entry{
					UnitID:        unitID,
					VersionNumber: version,
					AccountName:   name,
					Debit:         row.Debit,
					Credit:        row.Credit,
					// Recomputed here; the source file's own closing
					// column is not trusted.
					ClosingBalance: row.Debit - row.Credit,
				})
			}
			if len(entries) == 0 {
				return ErrEmptyUpload
			}
			return tx.InsertEntries(ctx, entries)
		})
		if err == nil {
			return version, nil
		}
		lastErr = err
		if !errors.Is(err, ErrVersionConflict) {
			return 0, err
		}
	}
	return 0, lastErr
}

// ListVersions returns the unit's upload history, newest first.
func (s *Service) ListVersions(ctx context.Context, workID, unitID int64) ([]VersionInfo, error) {
	if err := s.repo.UnitBelongsToWork(ctx, workID, unitID); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, unitID)
}

// Totals tallies the latest version of every unit belonging to the work.
func (s *Service) Totals(ctx context.Context, workID int64) (Totals, error) {
	return s.repo.Totals(ctx, workID)
}

// UnmappedEntries lists latest-version entries with no mapping yet.
func (s *Service) UnmappedEntries(ctx context.Context, workID int64) ([]Entry, error) {
	return s.repo.UnmappedEntries(ctx, workID)
}

// MapEntry links an entry to a SUB_HEAD account, updating the existing link
// when one exists. The operation is idempotent under repeated calls.
func (s *Service) MapEntry(ctx context.Context, entryID, accountID int64) (Mapping, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return Mapping{}, err
	}
	if account.Type != coa.AccountTypeSubHead {
		return Mapping{}, ErrNotSubHead
	}
	if _, err := s.repo.GetEntry(ctx, entryID); err != nil {
		return Mapping{}, err
	}
	return s.repo.UpsertMapping(ctx, entryID, accountID)
}
