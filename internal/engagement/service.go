package engagement

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Service coordinates work lifecycle operations.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the engagement service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateInput groups fields required to open a new work.
type CreateInput struct {
	CompanyName string
	StartDate   time.Time
	EndDate     time.Time
}

// CreateWork opens a new engagement in DRAFT with its default Main unit.
func (s *Service) CreateWork(ctx context.Context, input CreateInput) (Work, error) {
	if strings.TrimSpace(input.CompanyName) == "" {
		return Work{}, errors.New("engagement: company name required")
	}
	if input.EndDate.Before(input.StartDate) {
		return Work{}, errors.New("engagement: end date before start date")
	}
	var work Work
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertWork(ctx, Work{
			CompanyName: strings.TrimSpace(input.CompanyName),
			StartDate:   input.StartDate,
			EndDate:     input.EndDate,
			Status:      StatusDraft,
		})
		if err != nil {
			return err
		}
		if _, err := tx.InsertUnit(ctx, Unit{WorkID: inserted.ID, Name: DefaultUnitName}); err != nil {
			return err
		}
		work = inserted
		return nil
	})
	if err != nil {
		return Work{}, err
	}
	return work, nil
}

// AddUnit appends a named unit to an existing, non-finalized work.
func (s *Service) AddUnit(ctx context.Context, workID int64, name string) (Unit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Unit{}, errors.New("engagement: unit name required")
	}
	var unit Unit
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		work, err := tx.GetWorkForUpdate(ctx, workID)
		if err != nil {
			return err
		}
		if work.Status == StatusFinalized {
			return ErrWorkFinalized
		}
		inserted, err := tx.InsertUnit(ctx, Unit{WorkID: workID, Name: name})
		if err != nil {
			return err
		}
		unit = inserted
		return nil
	})
	if err != nil {
		return Unit{}, err
	}
	return unit, nil
}

// Advance moves the work one step forward in its lifecycle. Finalization
// must go through Finalize, which enforces the UDIN contract.
func (s *Service) Advance(ctx context.Context, workID int64) (Work, error) {
	var work Work
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetWorkForUpdate(ctx, workID)
		if err != nil {
			return err
		}
		next, ok := current.Status.Next()
		if !ok {
			return ErrWorkFinalized
		}
		if next == StatusFinalized {
			return ErrInvalidTransition
		}
		if err := tx.UpdateWorkStatus(ctx, workID, next); err != nil {
			return err
		}
		current.Status = next
		work = current
		return nil
	})
	if err != nil {
		return Work{}, err
	}
	return work, nil
}

// FinalizeInput carries the validated identifier and signing date.
type FinalizeInput struct {
	WorkID   int64
	UDIN     string
	SignedOn time.Time
}

// Finalize transitions a REVIEW work to FINALIZED. The UDIN format check and
// the status change succeed or fail together; a rejected token leaves no
// partial state behind.
func (s *Service) Finalize(ctx context.Context, input FinalizeInput) (Work, error) {
	udin := strings.ToUpper(strings.TrimSpace(input.UDIN))
	if err := ValidateUDIN(udin); err != nil {
		return Work{}, err
	}
	if input.SignedOn.IsZero() {
		return Work{}, errors.New("engagement: signing date required")
	}
	var work Work
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetWorkForUpdate(ctx, input.WorkID)
		if err != nil {
			return err
		}
		if current.Status == StatusFinalized {
			return ErrWorkFinalized
		}
		if current.Status != StatusReview {
			return ErrNotReadyToFinalize
		}
		signed := input.SignedOn
		current.Status = StatusFinalized
		current.UDIN = udin
		current.SignedOn = &signed
		if err := tx.FinalizeWork(ctx, current); err != nil {
			return err
		}
		work = current
		return nil
	})
	if err != nil {
		return Work{}, err
	}
	return work, nil
}

// GetWork fetches one work.
func (s *Service) GetWork(ctx context.Context, workID int64) (Work, error) {
	return s.repo.GetWork(ctx, workID)
}

// ListWorks returns all works.
func (s *Service) ListWorks(ctx context.Context) ([]Work, error) {
	return s.repo.ListWorks(ctx)
}

// ListUnits returns the units of a work.
func (s *Service) ListUnits(ctx context.Context, workID int64) ([]Unit, error) {
	if _, err := s.repo.GetWork(ctx, workID); err != nil {
		return nil, err
	}
	return s.repo.ListUnits(ctx, workID)
}
