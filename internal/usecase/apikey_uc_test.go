package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/infra/security"
)

func newKeyRig(t *testing.T) (*apiKeyUseCase, *memAPIKeys) {
	t.Helper()
	enc, err := security.NewEncryptionService("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewEncryptionService: %v", err)
	}
	nop := zerolog.Nop()
	keys := newMemAPIKeys()
	return NewAPIKeyUseCase(keys, enc, &nop), keys
}

func TestCreateAndResolveRoundTrip(t *testing.T) {
	t.Parallel()
	uc, keys := newKeyRig(t)

	key, err := uc.Create(context.Background(), "user-1", "openai main", model.ProviderOpenAI, "sk-live-secret", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if key.SecretEncrypted == "sk-live-secret" {
		t.Fatal("secret must not be stored in plaintext")
	}
	if keys.keys[key.ID].SecretEncrypted != key.SecretEncrypted {
		t.Fatal("persisted record does not match returned key")
	}

	cred, err := uc.Resolve(context.Background(), key.ID, "user-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cred.Secret != "sk-live-secret" {
		t.Fatalf("resolved secret = %q", cred.Secret)
	}
	if cred.Provider != model.ProviderOpenAI || cred.Model != "gpt-4o-mini" {
		t.Fatalf("credential = %+v", cred)
	}
}

func TestResolveForeignKeyIsNotFound(t *testing.T) {
	t.Parallel()
	uc, _ := newKeyRig(t)

	key, err := uc.Create(context.Background(), "user-1", "mine", model.ProviderGemini, "secret", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := uc.Resolve(context.Background(), key.ID, "user-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for a foreign key", err)
	}
}

func TestCreateRejectsUnknownProvider(t *testing.T) {
	t.Parallel()
	uc, _ := newKeyRig(t)

	_, err := uc.Create(context.Background(), "user-1", "bad", model.ProviderType("anthropic"), "secret", "")
	if !errors.Is(err, domain.ErrUnsupportedProvider) {
		t.Fatalf("err = %v, want ErrUnsupportedProvider", err)
	}
}

func TestDeleteScopedToOwner(t *testing.T) {
	t.Parallel()
	uc, keys := newKeyRig(t)

	key, err := uc.Create(context.Background(), "user-1", "mine", model.ProviderOpenAI, "secret", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := uc.Delete(context.Background(), key.ID, "user-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign delete err = %v, want ErrNotFound", err)
	}
	if err := uc.Delete(context.Background(), key.ID, "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(keys.keys) != 0 {
		t.Fatal("key still present after delete")
	}
}
