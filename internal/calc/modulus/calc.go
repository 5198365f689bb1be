package modulus

import (
	"Strata/internal/calc/candidate"
	"Strata/internal/soil"
)

type Calculator struct{}

// Calculate returns E in ksf from SPT and unconfined compression correlations.
func (Calculator) Calculate(agg soil.Aggregate) []candidate.Result {
	var results []candidate.Result
	granular := agg.Classification.IsGranular()

	if n := agg.Data.FieldTests.SPTN; n != nil {
		r := candidate.Result{
			Method:     candidate.EmpiricalCorrelation,
			SourceData: map[string]any{"spt_n_value": *n},
			References: []string{"Bowles (1996)"},
		}
		if granular {
			r.Value = 500 * *n
			r.Confidence = 0.6
			r.Notes = "Empirical correlation for granular soils: E = 500*N"
		} else {
			r.Value = 300 * *n
			r.Confidence = 0.5
			r.Notes = "Empirical correlation for fine-grained soils: E = 300*N"
		}
		results = append(results, r)
	}

	// E ranges 100-500 qu for clays; midpoint used
	if qu := agg.Data.StrengthTests.UnconfinedCompression; qu != nil && !granular {
		results = append(results, candidate.Result{
			Value:      300 * *qu,
			Method:     candidate.EmpiricalCorrelation,
			Confidence: 0.65,
			SourceData: map[string]any{"unconfined_compression": *qu},
			References: []string{"Duncan and Buchignani (1976)"},
			Notes:      "E = 300*qu for clay soils",
		})
	}
	return results
}

func (Calculator) AvailableMethods(agg soil.Aggregate) []candidate.Method {
	if agg.Data.FieldTests.SPTN != nil ||
		(agg.Data.StrengthTests.UnconfinedCompression != nil && !agg.Classification.IsGranular()) {
		return []candidate.Method{candidate.EmpiricalCorrelation}
	}
	return nil
}
