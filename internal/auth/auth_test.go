package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopdesk/supportbot/internal/auth"
	"github.com/shopdesk/supportbot/internal/models"
)

type memoryStore struct {
	users map[string]models.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]models.User)}
}

func (m *memoryStore) Insert(_ context.Context, user models.User) error {
	key := strings.ToLower(user.Username)
	if _, exists := m.users[key]; exists {
		return auth.ErrUserExists
	}
	for _, existing := range m.users {
		if existing.Email != "" && strings.EqualFold(existing.Email, user.Email) {
			return auth.ErrEmailExists
		}
	}
	m.users[key] = user
	return nil
}

func (m *memoryStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	key := strings.ToLower(strings.TrimSpace(identifier))
	if user, ok := m.users[key]; ok {
		return user, nil
	}
	for _, user := range m.users {
		if strings.EqualFold(user.Email, identifier) {
			return user, nil
		}
	}
	return models.User{}, auth.ErrUserNotFound
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	svc, err := auth.NewService("test-secret", time.Hour, newMemoryStore())
	if err != nil {
		t.Fatalf("unexpected error creating auth service: %v", err)
	}

	registerResult, err := svc.Register(context.Background(), auth.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "s3cret!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	if registerResult.Token == "" {
		t.Fatalf("expected token on registration")
	}

	if registerResult.User.PasswordHash != "" {
		t.Fatalf("password hash must not leave the service")
	}

	claims, err := svc.VerifyToken(registerResult.Token)
	if err != nil {
		t.Fatalf("verify token failed: %v", err)
	}

	if claims.Subject != registerResult.User.ID {
		t.Fatalf("expected token subject %s, got %s", registerResult.User.ID, claims.Subject)
	}

	if _, err := svc.Register(context.Background(), auth.RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "another!",
	}); !errors.Is(err, auth.ErrUserExists) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}

	loginResult, err := svc.Login(context.Background(), auth.LoginInput{
		Identifier: "alice@example.com",
		Password:   "s3cret!",
	})
	if err != nil {
		t.Fatalf("login by email returned error: %v", err)
	}

	if loginResult.User.Username != "alice" {
		t.Fatalf("expected login user to be alice, got %s", loginResult.User.Username)
	}

	if _, err := svc.Login(context.Background(), auth.LoginInput{
		Identifier: "alice",
		Password:   "wrong",
	}); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials error, got %v", err)
	}

	if _, err := svc.Login(context.Background(), auth.LoginInput{
		Identifier: "nobody",
		Password:   "whatever",
	}); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("unknown users must look like bad credentials, got %v", err)
	}
}

func TestAuthServiceValidation(t *testing.T) {
	if _, err := auth.NewService("   ", time.Hour, newMemoryStore()); !errors.Is(err, auth.ErrSecretRequired) {
		t.Fatalf("expected ErrSecretRequired, got %v", err)
	}

	svc, err := auth.NewService("test-secret", time.Hour, newMemoryStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Register(context.Background(), auth.RegisterInput{Password: "secret123"}); !errors.Is(err, auth.ErrUsernameRequired) {
		t.Fatalf("expected ErrUsernameRequired, got %v", err)
	}

	if _, err := svc.Register(context.Background(), auth.RegisterInput{Username: "bob", Password: "short"}); !errors.Is(err, auth.ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak, got %v", err)
	}

	if _, err := svc.VerifyToken("not-a-token"); err == nil {
		t.Fatalf("expected garbage token to fail verification")
	}
}
