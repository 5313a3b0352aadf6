package model

import (
	"strings"
	"time"

	"pinterest-ai-studio/internal/domain"

	"github.com/google/uuid"
)

// User is a dashboard account. Every owned entity (API keys, templates,
// bulk jobs) hangs off the user ID; the role decides what the account may do.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	RoleID       string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

func NewUser(email, passwordHash, displayName, roleID string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	if passwordHash == "" || roleID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		RoleID:       roleID,
		CreatedAt:    now,
		LastActiveAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
func (u *User) Touch()       { u.LastActiveAt = time.Now() }
