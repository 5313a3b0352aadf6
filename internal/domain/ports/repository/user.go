package repository

import (
	"context"

	"pinterest-ai-studio/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.User, error)
}

type RoleRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Role) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Role, error)
	FindByName(ctx context.Context, tx Tx, name string) (*model.Role, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Role, error)
}
