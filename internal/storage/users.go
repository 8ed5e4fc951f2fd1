package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chemequip/backend/internal/models"
)

// UpsertUser creates a user or updates the password of an existing one.
func (s *SQLStore) UpsertUser(ctx context.Context, username, passwordHash string, staff bool) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, s.q(`SELECT username FROM users WHERE username = ?`), username).Scan(&existing)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("looking up user: %w", err)
	}

	if created {
		_, err = tx.ExecContext(ctx,
			s.q(`INSERT INTO users (username, password_hash, is_staff, created_at) VALUES (?, ?, ?, ?)`),
			username, passwordHash, staff, s.now().UTC().UnixMicro(),
		)
	} else {
		_, err = tx.ExecContext(ctx,
			s.q(`UPDATE users SET password_hash = ?, is_staff = ? WHERE username = ?`),
			passwordHash, staff, username,
		)
	}
	if err != nil {
		return false, fmt.Errorf("saving user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing user: %w", err)
	}
	return created, nil
}

// GetUser returns a user or ErrNotFound.
func (s *SQLStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	var (
		u         models.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT username, password_hash, is_staff, created_at FROM users WHERE username = ?`),
		username,
	).Scan(&u.Username, &u.PasswordHash, &u.IsStaff, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading user: %w", err)
	}
	u.CreatedAt = time.UnixMicro(createdAt).UTC()
	return &u, nil
}
