// Package auth verifies API callers against the stored user accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chemequip/backend/internal/models"
	"github.com/chemequip/backend/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticator checks credentials against a UserStore.
type Authenticator struct {
	users storage.UserStore
}

func NewAuthenticator(users storage.UserStore) *Authenticator {
	return &Authenticator{users: users}
}

// Authenticate returns the user when the credentials are valid. Unknown
// users and wrong passwords both yield (nil, nil); only storage failures are
// returned as errors.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil
	}

	u, err := a.users.GetUser(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %q: %w", username, err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, nil
	}
	return u, nil
}

// EnsureUser creates a staff user or resets its password. It reports whether
// the user was newly created.
func EnsureUser(ctx context.Context, users storage.UserStore, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, errors.New("username is required")
	}
	if password == "" {
		return false, errors.New("password is required")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hashing password: %w", err)
	}
	return users.UpsertUser(ctx, username, hash, true)
}
