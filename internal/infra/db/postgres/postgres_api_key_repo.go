package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/repository"
)

var _ repository.APIKeyRepository = (*apiKeyRepo)(nil)

type apiKeyRepo struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepo(pool *pgxpool.Pool) *apiKeyRepo {
	return &apiKeyRepo{pool: pool}
}

func (r *apiKeyRepo) Save(ctx context.Context, tx repository.Tx, k *model.APIKey) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	k.UpdatedAt = time.Now()

	const q = `
INSERT INTO api_keys (id, user_id, name, provider, secret_encrypted, model_name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  provider = EXCLUDED.provider,
  secret_encrypted = EXCLUDED.secret_encrypted,
  model_name = EXCLUDED.model_name,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		k.ID, k.UserID, k.Name, string(k.Provider), k.SecretEncrypted, k.ModelName, k.CreatedAt, k.UpdatedAt)
	return err
}

const apiKeyColumns = `id, user_id, name, provider, secret_encrypted, model_name, created_at, updated_at`

func scanAPIKey(row interface{ Scan(...interface{}) error }) (*model.APIKey, error) {
	var k model.APIKey
	var provider string
	err := row.Scan(&k.ID, &k.UserID, &k.Name, &provider, &k.SecretEncrypted, &k.ModelName, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, translateNoRows(err)
	}
	k.Provider = model.ProviderType(provider)
	return &k, nil
}

// FindByID is scoped to the owner; someone else's key is ErrNotFound.
func (r *apiKeyRepo) FindByID(ctx context.Context, tx repository.Tx, id, userID string) (*model.APIKey, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, err
	}
	return scanAPIKey(row)
}

func (r *apiKeyRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.APIKey, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *apiKeyRepo) Delete(ctx context.Context, tx repository.Tx, id, userID string) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
