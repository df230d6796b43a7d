package engagement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerloom/ledgerloom/internal/platform/db"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetWork(ctx context.Context, workID int64) (Work, error)
	ListWorks(ctx context.Context) ([]Work, error)
	ListUnits(ctx context.Context, workID int64) ([]Unit, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertWork(ctx context.Context, work Work) (Work, error)
	InsertUnit(ctx context.Context, unit Unit) (Unit, error)
	GetWorkForUpdate(ctx context.Context, workID int64) (Work, error)
	UpdateWorkStatus(ctx context.Context, workID int64, status WorkStatus) error
	FinalizeWork(ctx context.Context, work Work) error
}

// Repository persists engagement entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("engagement repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const workColumns = `id, company_name, start_date, end_date, status, udin, signed_on, created_at, updated_at`

func scanWork(row pgx.Row) (Work, error) {
	var w Work
	var udin *string
	err := row.Scan(&w.ID, &w.CompanyName, &w.StartDate, &w.EndDate, &w.Status, &udin, &w.SignedOn, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return Work{}, err
	}
	if udin != nil {
		w.UDIN = *udin
	}
	return w, nil
}

// GetWork fetches one work by id.
func (r *Repository) GetWork(ctx context.Context, workID int64) (Work, error) {
	work, err := scanWork(r.pool.QueryRow(ctx, `SELECT `+workColumns+` FROM works WHERE id=$1`, workID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Work{}, ErrWorkNotFound
		}
		return Work{}, err
	}
	return work, nil
}

// ListWorks returns all works newest first.
func (r *Repository) ListWorks(ctx context.Context) ([]Work, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+workColumns+` FROM works ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var works []Work
	for rows.Next() {
		work, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		works = append(works, work)
	}
	return works, rows.Err()
}

// ListUnits returns the units belonging to a work.
func (r *Repository) ListUnits(ctx context.Context, workID int64) ([]Unit, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, work_id, name, created_at FROM work_units WHERE work_id=$1 ORDER BY id`, workID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.WorkID, &u.Name, &u.CreatedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertWork(ctx context.Context, work Work) (Work, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO works (company_name, start_date, end_date, status)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`, work.CompanyName, work.StartDate, work.EndDate, work.Status)
	if err := row.Scan(&work.ID, &work.CreatedAt, &work.UpdatedAt); err != nil {
		return Work{}, err
	}
	return work, nil
}

func (r *txRepository) InsertUnit(ctx context.Context, unit Unit) (Unit, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO work_units (work_id, name) VALUES ($1,$2) RETURNING id, created_at`, unit.WorkID, unit.Name)
	if err := row.Scan(&unit.ID, &unit.CreatedAt); err != nil {
		return Unit{}, err
	}
	return unit, nil
}

func (r *txRepository) GetWorkForUpdate(ctx context.Context, workID int64) (Work, error) {
	work, err := scanWork(r.tx.QueryRow(ctx, `SELECT `+workColumns+` FROM works WHERE id=$1 FOR UPDATE`, workID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Work{}, ErrWorkNotFound
		}
		return Work{}, err
	}
	return work, nil
}

func (r *txRepository) UpdateWorkStatus(ctx context.Context, workID int64, status WorkStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE works SET status=$2, updated_at=NOW() WHERE id=$1`, workID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrWorkNotFound
	}
	return nil
}

func (r *txRepository) FinalizeWork(ctx context.Context, work Work) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE works SET status=$2, udin=$3, signed_on=$4, updated_at=NOW() WHERE id=$1`,
		work.ID, StatusFinalized, work.UDIN, work.SignedOn)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrWorkNotFound
	}
	return nil
}
