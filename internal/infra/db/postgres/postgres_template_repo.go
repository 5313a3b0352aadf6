package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/repository"
)

var _ repository.PromptTemplateRepository = (*promptTemplateRepo)(nil)

type promptTemplateRepo struct {
	pool *pgxpool.Pool
}

func NewPromptTemplateRepo(pool *pgxpool.Pool) *promptTemplateRepo {
	return &promptTemplateRepo{pool: pool}
}

func (r *promptTemplateRepo) Save(ctx context.Context, tx repository.Tx, t *model.PromptTemplate) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.UpdatedAt = time.Now()

	const q = `
INSERT INTO prompt_templates (id, user_id, name, stage, body, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  stage = EXCLUDED.stage,
  body = EXCLUDED.body,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, t.UserID, t.Name, string(t.Stage), t.Body, t.CreatedAt, t.UpdatedAt)
	return err
}

func scanPromptTemplate(row interface{ Scan(...interface{}) error }) (*model.PromptTemplate, error) {
	var t model.PromptTemplate
	var stage string
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &stage, &t.Body, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translateNoRows(err)
	}
	t.Stage = model.PromptStage(stage)
	return &t, nil
}

func (r *promptTemplateRepo) FindByID(ctx context.Context, tx repository.Tx, id, userID string) (*model.PromptTemplate, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT id, user_id, name, stage, body, created_at, updated_at
		 FROM prompt_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, err
	}
	return scanPromptTemplate(row)
}

func (r *promptTemplateRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PromptTemplate, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT id, user_id, name, stage, body, created_at, updated_at
		 FROM prompt_templates WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PromptTemplate
	for rows.Next() {
		t, err := scanPromptTemplate(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *promptTemplateRepo) Delete(ctx context.Context, tx repository.Tx, id, userID string) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`DELETE FROM prompt_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ repository.PinTemplateRepository = (*pinTemplateRepo)(nil)

type pinTemplateRepo struct {
	pool *pgxpool.Pool
}

func NewPinTemplateRepo(pool *pgxpool.Pool) *pinTemplateRepo {
	return &pinTemplateRepo{pool: pool}
}

func (r *pinTemplateRepo) Save(ctx context.Context, tx repository.Tx, t *model.PinTemplate) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.UpdatedAt = time.Now()

	slots, err := json.Marshal(t.Slots)
	if err != nil {
		return err
	}
	overlays, err := json.Marshal(t.Overlays)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO pin_templates (id, user_id, name, width, height, background, slots, overlays, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  width = EXCLUDED.width,
  height = EXCLUDED.height,
  background = EXCLUDED.background,
  slots = EXCLUDED.slots,
  overlays = EXCLUDED.overlays,
  updated_at = EXCLUDED.updated_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		t.ID, t.UserID, t.Name, t.Width, t.Height, t.Background, slots, overlays, t.CreatedAt, t.UpdatedAt)
	return err
}

func scanPinTemplate(row interface{ Scan(...interface{}) error }) (*model.PinTemplate, error) {
	var t model.PinTemplate
	var slots, overlays []byte
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Width, &t.Height, &t.Background, &slots, &overlays, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translateNoRows(err)
	}
	if len(slots) > 0 {
		if err := json.Unmarshal(slots, &t.Slots); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(overlays) > 0 {
		if err := json.Unmarshal(overlays, &t.Overlays); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &t, nil
}

const pinTemplateColumns = `id, user_id, name, width, height, background, slots, overlays, created_at, updated_at`

func (r *pinTemplateRepo) FindByID(ctx context.Context, tx repository.Tx, id, userID string) (*model.PinTemplate, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT `+pinTemplateColumns+` FROM pin_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, err
	}
	return scanPinTemplate(row)
}

func (r *pinTemplateRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PinTemplate, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+pinTemplateColumns+` FROM pin_templates WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PinTemplate
	for rows.Next() {
		t, err := scanPinTemplate(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *pinTemplateRepo) Delete(ctx context.Context, tx repository.Tx, id, userID string) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`DELETE FROM pin_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
