package trialbalance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerloom/ledgerloom/internal/platform/db"
)

// RepositoryPort abstracts persistence for the trial balance service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	UnitBelongsToWork(ctx context.Context, workID, unitID int64) error
	ListVersions(ctx context.Context, unitID int64) ([]VersionInfo, error)
	Totals(ctx context.Context, workID int64) (Totals, error)
	UnmappedEntries(ctx context.Context, workID int64) ([]Entry, error)
	GetEntry(ctx context.Context, entryID int64) (Entry, error)
	UpsertMapping(ctx context.Context, entryID, accountID int64) (Mapping, error)
}

// TxRepository exposes the operations of one upload transaction.
type TxRepository interface {
	MaxVersion(ctx context.Context, unitID int64) (int64, error)
	InsertVersion(ctx context.Context, version Version) error
	InsertEntries(ctx context.Context, entries []Entry) error
}

// Repository persists trial balance versions, entries, and mappings.
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
		return errors.New("trialbalance repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// UnitBelongsToWork verifies the unit exists under the given work.
func (r *Repository) UnitBelongsToWork(ctx context.Context, workID, unitID int64) error {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM work_units WHERE id=$1 AND work_id=$2`, unitID, workID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnitNotFound
		}
		return err
	}
	return nil
}

// ListVersions returns version summaries for a unit, newest first.
func (r *Repository) ListVersions(ctx context.Context, unitID int64) ([]VersionInfo, error) {
	rows, err := r.pool.Query(ctx, `SELECT v.version_number, COUNT(e.id), v.uploaded_at
FROM tb_versions v
LEFT JOIN trial_balance_entries e ON e.unit_id = v.unit_id AND e.version_number = v.version_number
WHERE v.unit_id = $1
GROUP BY v.version_number, v.uploaded_at
ORDER BY v.version_number DESC`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var infos []VersionInfo
	for rows.Next() {
		var info VersionInfo
		if err := rows.Scan(&info.Version, &info.RowCount, &info.UploadedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// latestEntriesCTE restricts entries to the latest version per unit of a work.
const latestEntriesCTE = `WITH latest AS (
	SELECT e.unit_id, MAX(e.version_number) AS version_number
	FROM trial_balance_entries e
	JOIN work_units u ON u.id = e.unit_id
	WHERE u.work_id = $1
	GROUP BY e.unit_id
)`

// Totals tallies debit, credit, and their difference over the latest version
// of every unit belonging to the work.
func (r *Repository) Totals(ctx context.Context, workID int64) (Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx, latestEntriesCTE+`
SELECT COALESCE(SUM(e.debit),0), COALESCE(SUM(e.credit),0)
FROM trial_balance_entries e
JOIN latest l ON l.unit_id = e.unit_id AND l.version_number = e.version_number`, workID).
		Scan(&t.TotalDebit, &t.TotalCredit)
	if err != nil {
		return Totals{}, err
	}
	t.Difference = t.TotalDebit - t.TotalCredit
	return t, nil
}

// UnmappedEntries returns latest-version entries with no mapping row.
func (r *Repository) UnmappedEntries(ctx context.Context, workID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, latestEntriesCTE+`
SELECT e.id, e.unit_id, e.version_number, e.account_name, e.debit, e.credit, e.closing_balance, e.created_at
FROM trial_balance_entries e
JOIN latest l ON l.unit_id = e.unit_id AND l.version_number = e.version_number
LEFT JOIN mapped_ledger_entries m ON m.trial_balance_entry_id = e.id
WHERE m.id IS NULL
ORDER BY e.id`, workID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UnitID, &e.VersionNumber, &e.AccountName, &e.Debit, &e.Credit, &e.ClosingBalance, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetEntry fetches one trial balance entry.
func (r *Repository) GetEntry(ctx context.Context, entryID int64) (Entry, error) {
	var e Entry
	err := r.pool.QueryRow(ctx, `SELECT id, unit_id, version_number, account_name, debit, credit, closing_balance, created_at
FROM trial_balance_entries WHERE id=$1`, entryID).
		Scan(&e.ID, &e.UnitID, &e.VersionNumber, &e.AccountName, &e.Debit, &e.Credit, &e.ClosingBalance, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

// UpsertMapping creates or retargets the mapping for an entry. The unique
// constraint on trial_balance_entry_id makes concurrent upserts collapse to
// a single row.
func (r *Repository) UpsertMapping(ctx context.Context, entryID, accountID int64) (Mapping, error) {
	var m Mapping
	err := r.pool.QueryRow(ctx, `INSERT INTO mapped_ledger_entries (trial_balance_entry_id, account_id)
VALUES ($1,$2)
ON CONFLICT (trial_balance_entry_id) DO UPDATE SET account_id = EXCLUDED.account_id, updated_at = NOW()
RETURNING id, trial_balance_entry_id, account_id, updated_at`, entryID, accountID).
		Scan(&m.ID, &m.EntryID, &m.AccountID, &m.UpdatedAt)
	if err != nil {
		return Mapping{}, err
	}
	return m, nil
}

// MappedSums returns the sum of latest-version closing balances grouped by
// target account for a work. Consumed by the statement aggregation engine.
func (r *Repository) MappedSums(ctx context.Context, workID int64) (map[int64]float64, error) {
	rows, err := r.pool.Query(ctx, latestEntriesCTE+`
SELECT m.account_id, COALESCE(SUM(e.closing_balance),0)
FROM trial_balance_entries e
JOIN latest l ON l.unit_id = e.unit_id AND l.version_number = e.version_number
JOIN mapped_ledger_entries m ON m.trial_balance_entry_id = e.id
GROUP BY m.account_id`, workID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := make(map[int64]float64)
	for rows.Next() {
		var accountID int64
		var total float64
		if err := rows.Scan(&accountID, &total); err != nil {
			return nil, err
		}
		sums[accountID] = total
	}
	return sums, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) MaxVersion(ctx context.Context, unitID int64) (int64, error) {
	var max int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(version_number),0) FROM tb_versions WHERE unit_id=$1`, unitID).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *txRepository) InsertVersion(ctx context.Context, version Version) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO tb_versions (unit_id, version_number, batch_ref) VALUES ($1,$2,$3)`,
		version.UnitID, version.VersionNumber, version.BatchRef)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrVersionConflict
		}
		return err
	}
	return nil
}

func (r *txRepository) InsertEntries(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if _, err := r.tx.Exec(ctx, `INSERT INTO trial_balance_entries (unit_id, version_number, account_name, debit, credit, closing_balance)
VALUES ($1,$2,$3,$4,$5,$6)`, e.UnitID, e.VersionNumber, e.AccountName, e.Debit, e.Credit, e.ClosingBalance); err != nil {
			return err
		}
	}
	return nil
}
