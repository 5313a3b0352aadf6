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

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	const q = `
INSERT INTO users (id, email, password_hash, display_name, role_id, created_at, last_active_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  password_hash = EXCLUDED.password_hash,
  display_name = EXCLUDED.display_name,
  role_id = EXCLUDED.role_id,
  last_active_at = EXCLUDED.last_active_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.RoleID, u.CreatedAt, u.LastActiveAt)
	return err
}

const userColumns = `id, email, password_hash, display_name, role_id, created_at, last_active_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.RoleID, &u.CreatedAt, &u.LastActiveAt)
	if err != nil {
		return nil, translateNoRows(err)
	}
	return &u, nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.User, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

var _ repository.RoleRepository = (*roleRepo)(nil)

type roleRepo struct {
	pool *pgxpool.Pool
}

func NewRoleRepo(pool *pgxpool.Pool) *roleRepo {
	return &roleRepo{pool: pool}
}

func (r *roleRepo) Save(ctx context.Context, tx repository.Tx, role *model.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	if role.CreatedAt.IsZero() {
		role.CreatedAt = time.Now()
	}
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO roles (id, name, permissions, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  permissions = EXCLUDED.permissions;`

	_, err = execSQL(ctx, r.pool, tx, q, role.ID, role.Name, perms, role.CreatedAt)
	return err
}

func scanRole(row interface{ Scan(...interface{}) error }) (*model.Role, error) {
	var role model.Role
	var perms []byte
	if err := row.Scan(&role.ID, &role.Name, &perms, &role.CreatedAt); err != nil {
		return nil, translateNoRows(err)
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &role.Permissions); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &role, nil
}

func (r *roleRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Role, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT id, name, permissions, created_at FROM roles WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanRole(row)
}

func (r *roleRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.Role, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT id, name, permissions, created_at FROM roles WHERE name = $1`, name)
	if err != nil {
		return nil, err
	}
	return scanRole(row)
}

func (r *roleRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Role, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT id, name, permissions, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, role)
	}
	return out, rows.Err()
}
