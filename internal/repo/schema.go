package repo

import (
	"context"
	"fmt"
	"strings"
)

// One schema for both drivers: TEXT ids and timestamps, JSON stored as TEXT.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	login       TEXT NOT NULL UNIQUE,
	email       TEXT NOT NULL,
	password    TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id                TEXT PRIMARY KEY,
	project_name      TEXT NOT NULL,
	project_number    TEXT NOT NULL,
	client            TEXT,
	location          TEXT,
	description       TEXT,
	coordinate_system TEXT NOT NULL,
	date_created      TEXT NOT NULL,
	created_by        TEXT,
	version           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS boreholes (
	id                  TEXT PRIMARY KEY,
	project_id          TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	borehole_id         TEXT NOT NULL,
	x_coordinate        DOUBLE PRECISION NOT NULL,
	y_coordinate        DOUBLE PRECISION NOT NULL,
	elevation           DOUBLE PRECISION NOT NULL,
	coordinate_system   TEXT,
	drilling_method     TEXT,
	drilling_date       TEXT,
	drilling_contractor TEXT,
	total_depth         DOUBLE PRECISION,
	groundwater_depth   DOUBLE PRECISION,
	UNIQUE (project_id, borehole_id)
);

CREATE TABLE IF NOT EXISTS samples (
	id                  TEXT PRIMARY KEY,
	borehole_id         TEXT NOT NULL REFERENCES boreholes(id) ON DELETE CASCADE,
	sample_id           TEXT NOT NULL,
	depth_top           DOUBLE PRECISION NOT NULL,
	depth_bottom        DOUBLE PRECISION NOT NULL,
	field_description   TEXT,
	uscs_classification TEXT,
	test_data           TEXT NOT NULL,
	UNIQUE (borehole_id, sample_id)
);

CREATE INDEX IF NOT EXISTS ix_sample_depth ON samples (depth_top, depth_bottom);

CREATE TABLE IF NOT EXISTS strata_layers (
	id                  TEXT PRIMARY KEY,
	project_id          TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	strata_id           TEXT NOT NULL,
	top_elevation       DOUBLE PRECISION NOT NULL,
	bottom_elevation    DOUBLE PRECISION NOT NULL,
	soil_type           TEXT NOT NULL,
	uscs_classification TEXT NOT NULL,
	design_parameters   TEXT NOT NULL,
	samples_used        TEXT NOT NULL,
	calculation_details TEXT NOT NULL,
	refs                TEXT NOT NULL,
	interpreted_by      TEXT,
	interpretation_date TEXT,
	confidence_level    DOUBLE PRECISION,
	UNIQUE (project_id, strata_id)
);

CREATE INDEX IF NOT EXISTS ix_strata_elevation ON strata_layers (top_elevation, bottom_elevation);
`

// Migrate creates any missing tables. Statements run one at a time so the same
// text works through both drivers.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
