package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/repository"
	"pinterest-ai-studio/internal/infra/logging"
)

// defaultRoleName is assigned to self-registered accounts.
const defaultRoleName = "editor"

type UserUseCase interface {
	Register(ctx context.Context, email, password, displayName string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

var _ UserUseCase = (*userUseCase)(nil)

type userUseCase struct {
	users repository.UserRepository
	roles repository.RoleRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, roles repository.RoleRepository, logger *zerolog.Logger) *userUseCase {
	l := logger.With().Str("component", "UserUC").Logger()
	return &userUseCase{users: users, roles: roles, log: &l}
}

func (u *userUseCase) Register(ctx context.Context, email, password, displayName string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Register")()

	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password too short", domain.ErrInvalidArgument)
	}
	if existing, err := u.users.FindByEmail(ctx, nil, email); err == nil && !existing.IsZero() {
		return nil, domain.ErrAlreadyExists
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	role, err := u.roles.FindByName(ctx, nil, defaultRoleName)
	if err != nil {
		return nil, fmt.Errorf("default role: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := model.NewUser(email, string(hash), displayName, role.ID)
	if err != nil {
		return nil, err
	}
	if err := u.users.Save(ctx, nil, user); err != nil {
		return nil, err
	}
	u.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

func (u *userUseCase) Login(ctx context.Context, email, password string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Login")()

	user, err := u.users.FindByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	user.Touch()
	if err := u.users.Save(ctx, nil, user); err != nil {
		u.log.Warn().Err(err).Msg("update last active")
	}
	return user, nil
}

func (u *userUseCase) Get(ctx context.Context, id string) (*model.User, error) {
	return u.users.FindByID(ctx, nil, id)
}
