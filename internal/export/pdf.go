package export

import (
	"fmt"
	"io"

	"Strata/internal/soil"
	"Strata/internal/validate"

	"github.com/phpdave11/gofpdf"
)

// Report writes a PDF summary of the interpreted strata and their design parameters.
func (e *Exporter) Report(w io.Writer, p soil.Project, author string) error {
	results, err := Validate(p)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Soil Profile Interpretation")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Project: %s (%s)", p.Name, p.Number))
	pdf.Ln(6)
	if p.Client != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Client: %s", p.Client))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Author: %s", author))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", e.Now().Format("2006-01-02")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Explorations: %d   Validation: %s", len(p.Boreholes), validate.Summary(results)))
	pdf.Ln(10)

	for _, st := range sortedStrata(p.Strata) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, fmt.Sprintf("%s  %s (%s)  El. %.1f to %.1f ft",
			st.ID, st.SoilType, st.Classification, st.TopElevation, st.BottomElevation))
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "B", 9)
		for _, h := range []struct {
			text  string
			width float64
		}{{"Parameter", 55}, {"Value", 30}, {"Method", 55}, {"Source", 25}, {"Conf.", 20}} {
			pdf.CellFormat(h.width, 6, h.text, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		for _, k := range soil.ParameterKeys() {
			param, ok := st.Parameters[k]
			if !ok {
				continue
			}
			pdf.CellFormat(55, 6, k, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%.4g", param.Value), "1", 0, "R", false, 0, "")
			pdf.CellFormat(55, 6, param.CalculationMethod, "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, string(param.Source), "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, fmt.Sprintf("%.2f", param.Confidence), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
			if param.OverrideJustification != "" {
				pdf.SetFont("Helvetica", "I", 8)
				pdf.MultiCell(0, 5, fmt.Sprintf("Override by %s: %s", param.OverriddenBy, param.OverrideJustification), "", "L", false)
				pdf.SetFont("Helvetica", "", 9)
			}
		}
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, fmt.Sprintf("Samples used: %d   Confidence: %.2f", len(st.Supporting.SamplesUsed), st.ConfidenceLevel), "", "L", false)
		pdf.Ln(4)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
