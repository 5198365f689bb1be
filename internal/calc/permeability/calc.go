package permeability

import (
	"fmt"
	"math"

	"Strata/internal/calc/candidate"
	"Strata/internal/soil"
)

// Kozeny-Carman shape constant for spherical particles.
const kozenyC = 180.0

type Calculator struct{}

// Calculate returns hydraulic conductivity candidates in cm/s.
func (Calculator) Calculate(agg soil.Aggregate) []candidate.Result {
	var results []candidate.Result
	pt := agg.Data.Permeability

	if pt.Horizontal != nil {
		results = append(results, candidate.Result{
			Value:      *pt.Horizontal,
			Method:     candidate.LaboratoryPermeability,
			Confidence: 0.90,
			SourceData: map[string]any{"horizontal_permeability": *pt.Horizontal},
			References: []string{"ASTM D5084"},
			Notes:      "Direct laboratory measurement (horizontal)",
		})
	}
	if pt.Vertical != nil {
		results = append(results, candidate.Result{
			Value:      *pt.Vertical,
			Method:     candidate.LaboratoryPermeability,
			Confidence: 0.90,
			SourceData: map[string]any{"vertical_permeability": *pt.Vertical},
			References: []string{"ASTM D5084"},
			Notes:      "Direct laboratory measurement (vertical)",
		})
	}

	g := agg.Data.Gradation
	if g.D10 == nil {
		return results
	}
	d10 := *g.D10

	if cleanSand(agg.Classification, g) {
		// C = 100 with d10 in mm, then /10 to cm/s
		k := 100 * d10 * d10 / 10
		confidence := 0.6
		source := map[string]any{"d10": d10}
		if g.Cu != nil {
			source["cu"] = *g.Cu
			if *g.Cu < 5 {
				confidence = 0.7
			}
		}
		results = append(results, candidate.Result{
			Value:      k,
			Method:     candidate.HazenFormula,
			Confidence: confidence,
			SourceData: source,
			References: []string{"Hazen (1892)"},
			Notes:      fmt.Sprintf("k = 100*d10² for clean sand, d10=%gmm", d10),
		})
	}

	if g.HasBreakdown() {
		n, measured := porosity(agg)
		source := map[string]any{"d10": d10}
		notes := fmt.Sprintf("Simplified Kozeny-Carman with estimated porosity=%.2f", n)
		if measured {
			source["porosity"] = n
			notes = fmt.Sprintf("Simplified Kozeny-Carman with measured porosity=%.2f", n)
		} else {
			source["estimated_porosity"] = n
		}
		results = append(results, candidate.Result{
			Value:      kozenyCarman(d10, n),
			Method:     candidate.KozenyCarman,
			Confidence: 0.5,
			SourceData: source,
			References: []string{"Kozeny (1927), Carman (1937)"},
			Notes:      notes,
		})
	}
	return results
}

func (Calculator) AvailableMethods(agg soil.Aggregate) []candidate.Method {
	var methods []candidate.Method
	pt := agg.Data.Permeability
	if pt.Horizontal != nil || pt.Vertical != nil {
		methods = append(methods, candidate.LaboratoryPermeability)
	}
	g := agg.Data.Gradation
	if g.D10 != nil && cleanSand(agg.Classification, g) {
		methods = append(methods, candidate.HazenFormula)
	}
	if g.D10 != nil && g.HasBreakdown() {
		methods = append(methods, candidate.KozenyCarman)
	}
	return methods
}

// cleanSand treats missing fines as dirty.
func cleanSand(c soil.Classification, g soil.Gradation) bool {
	return c.IsCleanSandCandidate() && g.FinesPercent != nil && *g.FinesPercent < 5
}

// porosity prefers a measured value strictly between 0 and 1.
func porosity(agg soil.Aggregate) (n float64, measured bool) {
	if p := agg.Data.MoistureDensity.Porosity; p != nil && *p > 0 && *p < 1 {
		return *p, true
	}
	return agg.Classification.EstimatedPorosity(), false
}

func kozenyCarman(d10, n float64) float64 {
	k := d10 * d10 * math.Pow(n, 3) / (kozenyC * math.Pow(1-n, 2))
	return k * 1000
}
