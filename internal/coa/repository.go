package coa

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
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
}

// TxRepository exposes the operations available inside one import transaction.
type TxRepository interface {
	FindAccount(ctx context.Context, name string, accType AccountType, parentID *int64) (Account, error)
	InsertAccount(ctx context.Context, account Account) (Account, error)
}

// Repository persists chart of accounts nodes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn within a repeatable-read transaction. The whole import
// run commits or rolls back as a unit.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("coa repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// ListAccounts returns every chart of accounts node.
func (r *Repository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, type, category_type, parent_id, created_at, updated_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.CategoryType, &a.ParentID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetAccount fetches a single node by id.
func (r *Repository) GetAccount(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, `SELECT id, name, type, category_type, parent_id, created_at, updated_at FROM accounts WHERE id=$1`, id).
		Scan(&a.ID, &a.Name, &a.Type, &a.CategoryType, &a.ParentID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) FindAccount(ctx context.Context, name string, accType AccountType, parentID *int64) (Account, error) {
	var a Account
	err := r.tx.QueryRow(ctx, `SELECT id, name, type, category_type, parent_id, created_at, updated_at
FROM accounts WHERE name=$1 AND type=$2 AND parent_id IS NOT DISTINCT FROM $3`, name, accType, parentID).
		Scan(&a.ID, &a.Name, &a.Type, &a.CategoryType, &a.ParentID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) InsertAccount(ctx context.Context, account Account) (Account, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO accounts (name, type, category_type, parent_id)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`, account.Name, account.Type, account.CategoryType, account.ParentID)
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return Account{}, err
	}
	return account, nil
}

// CreateAccount inserts a single node, verifying the parent exists first.
func (r *Repository) CreateAccount(ctx context.Context, account Account) (Account, error) {
	if account.ParentID != nil {
		if _, err := r.GetAccount(ctx, *account.ParentID); err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return Account{}, ErrParentNotFound
			}
			return Account{}, err
		}
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (name, type, category_type, parent_id)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`, account.Name, account.Type, account.CategoryType, account.ParentID)
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return Account{}, err
	}
	return account, nil
}
