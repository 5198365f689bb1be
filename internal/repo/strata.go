package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"Strata/internal/soil"

	"github.com/google/uuid"
)

// SaveStratum inserts st or replaces the project's layer with the same strata_id.
func (s *Store) SaveStratum(ctx context.Context, projectID string, st *soil.Stratum) error {
	params, err := json.Marshal(st.Parameters)
	if err != nil {
		return fmt.Errorf("encode design parameters: %w", err)
	}
	samples, err := json.Marshal(st.Supporting.SamplesUsed)
	if err != nil {
		return fmt.Errorf("encode samples used: %w", err)
	}
	details, err := json.Marshal(st.Supporting.CalculationDetails)
	if err != nil {
		return fmt.Errorf("encode calculation details: %w", err)
	}
	refs, err := json.Marshal(st.Supporting.References)
	if err != nil {
		return fmt.Errorf("encode references: %w", err)
	}
	var interpreted sql.NullString
	if st.InterpretedAt != nil {
		interpreted = sql.NullString{String: formatTime(*st.InterpretedAt), Valid: true}
	}

	query := `INSERT INTO strata_layers (id, project_id, strata_id, top_elevation, bottom_elevation,
		soil_type, uscs_classification, design_parameters, samples_used, calculation_details, refs,
		interpreted_by, interpretation_date, confidence_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, strata_id) DO UPDATE SET
			top_elevation = excluded.top_elevation,
			bottom_elevation = excluded.bottom_elevation,
			soil_type = excluded.soil_type,
			uscs_classification = excluded.uscs_classification,
			design_parameters = excluded.design_parameters,
			samples_used = excluded.samples_used,
			calculation_details = excluded.calculation_details,
			refs = excluded.refs,
			interpreted_by = excluded.interpreted_by,
			interpretation_date = excluded.interpretation_date,
			confidence_level = excluded.confidence_level`
	err = s.exec(ctx, query,
		uuid.New().String(), projectID, st.ID, st.TopElevation, st.BottomElevation,
		st.SoilType, string(st.Classification), string(params), string(samples), string(details), string(refs),
		st.InterpretedBy, interpreted, st.ConfidenceLevel,
	)
	if err != nil {
		return fmt.Errorf("save stratum %s: %w", st.ID, err)
	}
	return nil
}

const strataColumns = `strata_id, top_elevation, bottom_elevation, soil_type, uscs_classification,
	design_parameters, samples_used, calculation_details, refs, interpreted_by, interpretation_date,
	confidence_level`

func (s *Store) GetStratum(ctx context.Context, projectID, strataID string) (soil.Stratum, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind("SELECT "+strataColumns+" FROM strata_layers WHERE project_id=? AND strata_id=?"),
		projectID, strataID)
	st, err := scanStratum(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return soil.Stratum{}, fmt.Errorf("stratum %s: %w", strataID, ErrNotFound)
		}
		return soil.Stratum{}, err
	}
	return st, nil
}

// strata lists a project's layers from the top down.
func (s *Store) strata(ctx context.Context, projectID string) ([]soil.Stratum, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT "+strataColumns+" FROM strata_layers WHERE project_id=? ORDER BY top_elevation DESC"),
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list strata: %w", err)
	}
	defer rows.Close()

	var out []soil.Stratum
	for rows.Next() {
		st, err := scanStratum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanStratum(row interface{ Scan(...any) error }) (soil.Stratum, error) {
	var (
		st                            soil.Stratum
		cls, params, samples, details string
		refs                          string
		interpretedBy, interpretedAt  sql.NullString
		confidence                    sql.NullFloat64
	)
	err := row.Scan(&st.ID, &st.TopElevation, &st.BottomElevation, &st.SoilType, &cls,
		&params, &samples, &details, &refs, &interpretedBy, &interpretedAt, &confidence)
	if err != nil {
		return soil.Stratum{}, err
	}
	st.Classification = soil.Classification(cls)
	st.InterpretedBy = interpretedBy.String
	st.ConfidenceLevel = confidence.Float64
	if interpretedAt.Valid && interpretedAt.String != "" {
		at, err := parseTime(interpretedAt.String)
		if err != nil {
			return soil.Stratum{}, err
		}
		st.InterpretedAt = &at
	}
	for _, f := range []struct {
		raw  string
		dest any
	}{
		{params, &st.Parameters},
		{samples, &st.Supporting.SamplesUsed},
		{details, &st.Supporting.CalculationDetails},
		{refs, &st.Supporting.References},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return soil.Stratum{}, fmt.Errorf("stratum %s: decode: %w", st.ID, err)
		}
	}
	return st, nil
}
