package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
)

func newUserRig(t *testing.T) (*userUseCase, *memUsers) {
	t.Helper()
	nop := zerolog.Nop()
	users := newMemUsers()
	editor := &model.Role{ID: uuid.NewString(), Name: "editor", CreatedAt: time.Now()}
	return NewUserUseCase(users, newMemRoles(editor), &nop), users
}

func TestRegisterThenLogin(t *testing.T) {
	t.Parallel()
	uc, _ := newUserRig(t)

	user, err := uc.Register(context.Background(), "Ann@Example.com", "correct horse", "Ann")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "ann@example.com" {
		t.Fatalf("email = %q, want lowercased", user.Email)
	}
	if user.PasswordHash == "correct horse" {
		t.Fatal("password must be hashed")
	}

	got, err := uc.Login(context.Background(), "ann@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("logged in as %s, want %s", got.ID, user.ID)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	t.Parallel()
	uc, _ := newUserRig(t)

	_, err := uc.Register(context.Background(), "a@b.com", "short", "A")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()
	uc, _ := newUserRig(t)

	if _, err := uc.Register(context.Background(), "dup@example.com", "password1", "First"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := uc.Register(context.Background(), "dup@example.com", "password2", "Second")
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()
	uc, _ := newUserRig(t)

	if _, err := uc.Register(context.Background(), "ann@example.com", "correct horse", "Ann"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := uc.Login(context.Background(), "ann@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := uc.Login(context.Background(), "ghost@example.com", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}
