package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateUser(ctx context.Context, login, email, password string) (string, error) {
	id := uuid.New().String()
	query := "INSERT INTO users (id, login, email, password, created_at) VALUES (?, ?, ?, ?, ?)"
	err := s.exec(ctx, query, id, login, email, password, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetByLogin returns the user id and password hash. An unknown login yields empty
// strings and no error.
func (s *Store) GetByLogin(ctx context.Context, login string) (string, string, error) {
	var id, hash string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT id, password FROM users WHERE login=?"), login).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", nil
		}
		return "", "", err
	}
	return id, hash, nil
}
