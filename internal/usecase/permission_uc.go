package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain/ports/repository"
)

// PolicyEvaluator is the single permission decision point. HTTP middleware
// consults it per route; background workers are not permission-checked.
type PolicyEvaluator interface {
	Check(ctx context.Context, userID, module, action string) (bool, error)
}

var _ PolicyEvaluator = (*policyUseCase)(nil)

type policyUseCase struct {
	users repository.UserRepository
	roles repository.RoleRepository
	log   *zerolog.Logger
}

func NewPolicyUseCase(users repository.UserRepository, roles repository.RoleRepository, logger *zerolog.Logger) *policyUseCase {
	l := logger.With().Str("component", "PolicyUC").Logger()
	return &policyUseCase{users: users, roles: roles, log: &l}
}

func (p *policyUseCase) Check(ctx context.Context, userID, module, action string) (bool, error) {
	user, err := p.users.FindByID(ctx, nil, userID)
	if err != nil {
		return false, err
	}
	role, err := p.roles.FindByID(ctx, nil, user.RoleID)
	if err != nil {
		return false, err
	}
	allowed := role.Allows(module, action)
	if !allowed {
		p.log.Debug().
			Str("user_id", userID).Str("role", role.Name).
			Str("module", module).Str("action", action).
			Msg("permission denied")
	}
	return allowed, nil
}
