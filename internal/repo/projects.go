package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Strata/internal/soil"

	"github.com/google/uuid"
)

const projectVersion = "1.0.0"

func (s *Store) CreateProject(ctx context.Context, p *soil.Project) error {
	p.ID = uuid.New().String()
	if p.CoordinateSystem == "" {
		p.CoordinateSystem = soil.DefaultCoordinateSystem
	}
	if p.Version == "" {
		p.Version = projectVersion
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO projects (id, project_name, project_number, client, location, description,
		coordinate_system, date_created, created_by, version) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	err := s.exec(ctx, query, p.ID, p.Name, p.Number, p.Client, p.Location, p.Description,
		p.CoordinateSystem, formatTime(p.CreatedAt), p.CreatedBy, p.Version)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

const projectColumns = `id, project_name, project_number, client, location, description,
	coordinate_system, date_created, created_by, version`

func scanProject(row interface{ Scan(...any) error }) (soil.Project, error) {
	var (
		p                                        soil.Project
		client, location, description, createdBy sql.NullString
		created                                  string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Number, &client, &location, &description,
		&p.CoordinateSystem, &created, &createdBy, &p.Version)
	if err != nil {
		return soil.Project{}, err
	}
	p.Client, p.Location, p.Description, p.CreatedBy = client.String, location.String, description.String, createdBy.String
	p.CreatedAt, err = parseTime(created)
	return p, err
}

// ListProjects returns project headers without boreholes or strata, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]soil.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY date_created DESC")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []soil.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProject loads a project with its boreholes, samples and strata.
func (s *Store) GetProject(ctx context.Context, id string) (soil.Project, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+projectColumns+" FROM projects WHERE id=?"), id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return soil.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return soil.Project{}, fmt.Errorf("get project: %w", err)
	}
	if p.Boreholes, err = s.boreholes(ctx, id); err != nil {
		return soil.Project{}, err
	}
	for i := range p.Boreholes {
		if p.Boreholes[i].Samples, err = s.samples(ctx, p.Boreholes[i].ID); err != nil {
			return soil.Project{}, err
		}
	}
	if p.Strata, err = s.strata(ctx, id); err != nil {
		return soil.Project{}, err
	}
	return p, nil
}

// SaveBorehole inserts b or updates the project's borehole with the same
// borehole_id. b.ID is set to the stored row id.
func (s *Store) SaveBorehole(ctx context.Context, projectID string, b *soil.Borehole) error {
	var date sql.NullString
	if b.DrillingDate != nil {
		date = sql.NullString{String: formatTime(*b.DrillingDate), Valid: true}
	}
	query := `INSERT INTO boreholes (id, project_id, borehole_id, x_coordinate, y_coordinate, elevation,
		coordinate_system, drilling_method, drilling_date, drilling_contractor, total_depth, groundwater_depth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, borehole_id) DO UPDATE SET
			x_coordinate = excluded.x_coordinate,
			y_coordinate = excluded.y_coordinate,
			elevation = excluded.elevation,
			coordinate_system = excluded.coordinate_system,
			drilling_method = excluded.drilling_method,
			drilling_date = excluded.drilling_date,
			drilling_contractor = excluded.drilling_contractor,
			total_depth = excluded.total_depth,
			groundwater_depth = excluded.groundwater_depth
		RETURNING id`
	err := s.db.QueryRowContext(ctx, s.rebind(query),
		uuid.New().String(), projectID, b.BoreholeID, b.X, b.Y, b.Elevation,
		b.CoordinateSystem, b.DrillingMethod, date, b.Contractor,
		nullFloat(b.TotalDepth), nullFloat(b.GroundwaterDepth),
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("save borehole %s: %w", b.BoreholeID, err)
	}
	return nil
}

func (s *Store) boreholes(ctx context.Context, projectID string) ([]soil.Borehole, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, borehole_id, x_coordinate, y_coordinate, elevation,
		coordinate_system, drilling_method, drilling_date, drilling_contractor, total_depth, groundwater_depth
		FROM boreholes WHERE project_id=? ORDER BY borehole_id`), projectID)
	if err != nil {
		return nil, fmt.Errorf("list boreholes: %w", err)
	}
	defer rows.Close()

	var out []soil.Borehole
	for rows.Next() {
		var (
			b                                soil.Borehole
			system, method, date, contractor sql.NullString
			total, water                     sql.NullFloat64
		)
		if err := rows.Scan(&b.ID, &b.BoreholeID, &b.X, &b.Y, &b.Elevation,
			&system, &method, &date, &contractor, &total, &water); err != nil {
			return nil, fmt.Errorf("scan borehole: %w", err)
		}
		b.CoordinateSystem, b.DrillingMethod, b.Contractor = system.String, method.String, contractor.String
		if date.Valid && date.String != "" {
			t, err := parseTime(date.String)
			if err != nil {
				return nil, err
			}
			b.DrillingDate = &t
		}
		b.TotalDepth, b.GroundwaterDepth = floatPtr(total), floatPtr(water)
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveSample inserts s or replaces the borehole's sample with the same sample_id.
func (s *Store) SaveSample(ctx context.Context, boreholeID string, smp *soil.Sample) error {
	tests, err := json.Marshal(smp.Tests)
	if err != nil {
		return fmt.Errorf("encode test data: %w", err)
	}
	query := `INSERT INTO samples (id, borehole_id, sample_id, depth_top, depth_bottom,
		field_description, uscs_classification, test_data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (borehole_id, sample_id) DO UPDATE SET
			depth_top = excluded.depth_top,
			depth_bottom = excluded.depth_bottom,
			field_description = excluded.field_description,
			uscs_classification = excluded.uscs_classification,
			test_data = excluded.test_data
		RETURNING id`
	err = s.db.QueryRowContext(ctx, s.rebind(query),
		uuid.New().String(), boreholeID, smp.SampleID, smp.DepthTop, smp.DepthBottom,
		smp.Description, string(smp.Classification), string(tests),
	).Scan(&smp.ID)
	if err != nil {
		return fmt.Errorf("save sample %s: %w", smp.SampleID, err)
	}
	return nil
}

func (s *Store) samples(ctx context.Context, boreholeID string) ([]soil.Sample, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, sample_id, depth_top, depth_bottom,
		field_description, uscs_classification, test_data
		FROM samples WHERE borehole_id=? ORDER BY depth_top`), boreholeID)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var out []soil.Sample
	for rows.Next() {
		var (
			smp       soil.Sample
			desc, cls sql.NullString
			tests     string
		)
		if err := rows.Scan(&smp.ID, &smp.SampleID, &smp.DepthTop, &smp.DepthBottom, &desc, &cls, &tests); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		smp.Description, smp.Classification = desc.String, soil.Classification(cls.String)
		if err := json.Unmarshal([]byte(tests), &smp.Tests); err != nil {
			return nil, fmt.Errorf("sample %s: %w: %v", smp.SampleID, soil.ErrMalformedTestData, err)
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
