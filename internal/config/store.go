package config

import (
	"context"

	"Strata/internal/repo"
)

// OpenStore connects to the configured database and applies the schema.
func (c Config) OpenStore(ctx context.Context) (*repo.Store, error) {
	if c.StoreDriver == DriverPostgres {
		return repo.OpenPostgres(ctx, c.DatabaseURL)
	}
	return repo.OpenSQLite(ctx, c.SQLitePath)
}
