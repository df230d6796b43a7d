package statement

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTemplateNotFound indicates the report template does not exist.
var ErrTemplateNotFound = errors.New("statement: report template not found")

// Template is one stored report layout.
type Template struct {
	ID            int64
	Name          string
	StatementType string
	Definition    []byte
}

// Repository persists report templates and per-work note configuration.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetTemplate fetches a report template with its raw definition.
func (r *Repository) GetTemplate(ctx context.Context, templateID int64) (Template, error) {
	var t Template
	err := r.pool.QueryRow(ctx, `SELECT id, name, statement_type, definition FROM report_templates WHERE id=$1`, templateID).
		Scan(&t.ID, &t.Name, &t.StatementType, &t.Definition)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, err
	}
	return t, nil
}

// ListTemplates returns all stored templates without their definitions.
func (r *Repository) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, statement_type FROM report_templates ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var templates []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.StatementType); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// CreateTemplate stores a new report template after its definition has been
// parsed successfully.
func (r *Repository) CreateTemplate(ctx context.Context, t Template) (Template, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO report_templates (name, statement_type, definition) VALUES ($1,$2,$3) RETURNING id`,
		t.Name, t.StatementType, t.Definition).Scan(&t.ID)
	if err != nil {
		return Template{}, err
	}
	return t, nil
}

// ManualNotes loads the analyst-authored note texts for a work, keyed by
// note reference. Works without a configuration row get an empty map.
func (r *Repository) ManualNotes(ctx context.Context, workID int64) (map[string]string, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT custom_notes FROM work_report_configs WHERE work_id=$1`, workID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	notes := make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &notes); err != nil {
			return nil, err
		}
	}
	return notes, nil
}

// SaveManualNotes upserts the work's note text configuration.
func (r *Repository) SaveManualNotes(ctx context.Context, workID int64, notes map[string]string) error {
	raw, err := json.Marshal(notes)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO work_report_configs (work_id, custom_notes) VALUES ($1,$2)
ON CONFLICT (work_id) DO UPDATE SET custom_notes = EXCLUDED.custom_notes, updated_at = NOW()`, workID, raw)
	return err
}
