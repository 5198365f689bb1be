package repo

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"Strata/internal/soil"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	CreateUser(ctx context.Context, login, email, password string) (string, error)
	GetByLogin(ctx context.Context, login string) (string, string, error)

	CreateProject(ctx context.Context, p *soil.Project) error
	ListProjects(ctx context.Context) ([]soil.Project, error)
	GetProject(ctx context.Context, id string) (soil.Project, error)

	SaveBorehole(ctx context.Context, projectID string, b *soil.Borehole) error
	SaveSample(ctx context.Context, boreholeID string, s *soil.Sample) error

	SaveStratum(ctx context.Context, projectID string, st *soil.Stratum) error
	GetStratum(ctx context.Context, projectID, strataID string) (soil.Stratum, error)
}

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Store implements Repository over either database. Queries are written with ?
// placeholders and rebound for Postgres.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	return err
}
