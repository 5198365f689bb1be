package undrained

import (
	"fmt"

	"Strata/internal/calc/candidate"
	"Strata/internal/soil"
)

type Calculator struct{}

func (Calculator) Calculate(agg soil.Aggregate) []candidate.Result {
	var results []candidate.Result
	st := agg.Data.StrengthTests

	if qu := st.UnconfinedCompression; qu != nil {
		results = append(results, candidate.Result{
			Value:      *qu / 2,
			Method:     candidate.UnconfinedCompression,
			Confidence: 0.85,
			SourceData: map[string]any{"unconfined_compression": *qu},
			References: []string{"ASTM D2166"},
			Notes:      fmt.Sprintf("Su = qu/2 = %g/2", *qu),
		})
	}

	var undrained []soil.Triaxial
	sum := 0.0
	for _, t := range st.Triaxial {
		if t.PeakStrength != nil {
			undrained = append(undrained, t)
			sum += *t.PeakStrength
		}
	}
	if len(undrained) > 0 {
		results = append(results, candidate.Result{
			Value:      sum / float64(len(undrained)),
			Method:     candidate.TriaxialUndrained,
			Confidence: 0.90,
			SourceData: map[string]any{"triaxial_tests": undrained},
			References: []string{"ASTM D4767"},
			Notes:      fmt.Sprintf("Average of %d undrained triaxial tests", len(undrained)),
		})
	}
	return results
}

func (Calculator) AvailableMethods(agg soil.Aggregate) []candidate.Method {
	var methods []candidate.Method
	st := agg.Data.StrengthTests
	if st.UnconfinedCompression != nil {
		methods = append(methods, candidate.UnconfinedCompression)
	}
	for _, t := range st.Triaxial {
		if t.PeakStrength != nil {
			methods = append(methods, candidate.TriaxialUndrained)
			break
		}
	}
	return methods
}
