package export

import (
	"fmt"
	"io"

	"Strata/internal/soil"

	"github.com/xuri/excelize/v2"
)

const (
	ParametersSheet = "Design Parameters"
	SamplesSheet    = "Samples"
)

// SampleColumns is the lab sample table layout shared with the workbook importer.
var SampleColumns = []string{
	"borehole_id", "sample_id", "depth_top", "depth_bottom", "uscs_classification", "field_description",
	"spt_n_value", "natural_moisture", "dry_density", "wet_density",
	"gravel_percent", "sand_percent", "fines_percent", "d10", "d30", "d60", "cu", "cc",
	"liquid_limit", "plastic_limit", "plasticity_index",
	"unconfined_compression", "horizontal_permeability", "vertical_permeability",
	"preconsolidation_pressure", "compression_index", "coefficient_consolidation",
}

// SampleRow lays s out in SampleColumns order; missing readings are empty cells.
func SampleRow(boreholeID string, s soil.Sample) []any {
	t := s.Tests
	num := func(v *float64) any {
		if v == nil {
			return ""
		}
		return *v
	}
	return []any{
		boreholeID, s.SampleID, s.DepthTop, s.DepthBottom, string(s.Classification), s.Description,
		num(t.FieldTests.SPTN), num(t.MoistureDensity.NaturalMoisture), num(t.MoistureDensity.DryDensity), num(t.MoistureDensity.WetDensity),
		num(t.Gradation.GravelPercent), num(t.Gradation.SandPercent), num(t.Gradation.FinesPercent),
		num(t.Gradation.D10), num(t.Gradation.D30), num(t.Gradation.D60), num(t.Gradation.Cu), num(t.Gradation.Cc),
		num(t.Atterberg.LiquidLimit), num(t.Atterberg.PlasticLimit), num(t.Atterberg.PlasticityIndex),
		num(t.StrengthTests.UnconfinedCompression), num(t.Permeability.Horizontal), num(t.Permeability.Vertical),
		num(t.Consolidation.PreconsolidationPressure), num(t.Consolidation.CompressionIndex), num(t.Consolidation.CoefficientConsolidation),
	}
}

// Workbook writes the design parameter table and the sample table as xlsx.
func (e *Exporter) Workbook(w io.Writer, p soil.Project) error {
	if _, err := Validate(p); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ParametersSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	keys := soil.ParameterKeys()
	header := []any{"strata_id", "top_elevation", "bottom_elevation", "soil_type", "uscs_classification"}
	for _, k := range keys {
		header = append(header, k, k+"_method")
	}
	header = append(header, "confidence_level")
	if err := writeRow(f, ParametersSheet, 1, header); err != nil {
		return err
	}
	for i, st := range sortedStrata(p.Strata) {
		row := []any{st.ID, st.TopElevation, st.BottomElevation, st.SoilType, string(st.Classification)}
		for _, k := range keys {
			if param, ok := st.Parameters[k]; ok {
				row = append(row, param.Value, param.CalculationMethod)
			} else {
				row = append(row, "", "")
			}
		}
		row = append(row, st.ConfidenceLevel)
		if err := writeRow(f, ParametersSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SamplesSheet); err != nil {
		return err
	}
	header = make([]any, len(SampleColumns))
	for i, c := range SampleColumns {
		header[i] = c
	}
	if err := writeRow(f, SamplesSheet, 1, header); err != nil {
		return err
	}
	row := 2
	for _, b := range p.Boreholes {
		for _, s := range b.Samples {
			if err := writeRow(f, SamplesSheet, row, SampleRow(b.BoreholeID, s)); err != nil {
				return err
			}
			row++
		}
	}

	for _, sheet := range []string{ParametersSheet, SamplesSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	e.log.Info("workbook exported", "project", p.Number)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}
