package friction

import (
	"fmt"
	"math"

	"Strata/internal/calc/candidate"
	"Strata/internal/logger"
	"Strata/internal/soil"
)

const (
	maxSPTAngle   = 45.0
	maxShearAngle = 50.0
	baseSPTAngle  = 28.0
)

type Calculator struct{}

func (Calculator) Calculate(agg soil.Aggregate) []candidate.Result {
	var results []candidate.Result
	n := agg.Data.FieldTests.SPTN

	if n != nil && agg.Classification.IsGranular() {
		// Peck, Hanson and Thornburn
		phi := baseSPTAngle
		if *n > 0 {
			phi = baseSPTAngle + 15*math.Log10(*n)
		}
		phi = math.Min(phi, maxSPTAngle)
		confidence := 0.6
		if *n >= 10 {
			confidence = 0.7
		}
		results = append(results, candidate.Result{
			Value:      phi,
			Method:     candidate.SPTCorrelation,
			Confidence: confidence,
			SourceData: map[string]any{"spt_n_value": *n},
			References: []string{"Peck, Hanson, and Thornburn (1974)"},
			Notes:      fmt.Sprintf("φ = 28 + 15*log10(N) for N=%g", *n),
		})
	}

	shear := agg.Data.StrengthTests.DirectShear
	if len(shear) >= 2 {
		if phi, ok := angleFromShear(shear); ok {
			results = append(results, candidate.Result{
				Value:      phi,
				Method:     candidate.DirectShear,
				Confidence: 0.90,
				SourceData: map[string]any{"direct_shear_tests": shear},
				References: []string{"ASTM D3080"},
				Notes:      fmt.Sprintf("Calculated from %d direct shear tests", len(shear)),
			})
		} else {
			logger.ForComponent("calc.friction").Debug("degenerate direct shear regression", "pairs", len(shear))
		}
	}

	var drained []soil.Triaxial
	sum := 0.0
	for _, t := range agg.Data.StrengthTests.Triaxial {
		if t.FrictionAngle != nil {
			drained = append(drained, t)
			sum += *t.FrictionAngle
		}
	}
	if len(drained) > 0 {
		results = append(results, candidate.Result{
			Value:      sum / float64(len(drained)),
			Method:     candidate.TriaxialDrained,
			Confidence: 0.95,
			SourceData: map[string]any{"triaxial_tests": drained},
			References: []string{"ASTM D4767"},
			Notes:      fmt.Sprintf("Average of %d drained triaxial tests", len(drained)),
		})
	}
	return results
}

func (Calculator) AvailableMethods(agg soil.Aggregate) []candidate.Method {
	var methods []candidate.Method
	if agg.Data.FieldTests.SPTN != nil && agg.Classification.IsGranular() {
		methods = append(methods, candidate.SPTCorrelation)
	}
	if len(agg.Data.StrengthTests.DirectShear) >= 2 {
		methods = append(methods, candidate.DirectShear)
	}
	for _, t := range agg.Data.StrengthTests.Triaxial {
		if t.FrictionAngle != nil {
			methods = append(methods, candidate.TriaxialDrained)
			break
		}
	}
	return methods
}

// angleFromShear fits τ = c + σ·tan(φ) by least squares and returns φ in degrees,
// clamped to [0, 50]. ok is false when the normal stresses do not vary.
func angleFromShear(tests []soil.DirectShear) (phi float64, ok bool) {
	n := float64(len(tests))
	var sumX, sumY, sumXY, sumX2 float64
	for _, t := range tests {
		sumX += t.NormalStress
		sumY += t.ShearStrength
		sumXY += t.NormalStress * t.ShearStrength
		sumX2 += t.NormalStress * t.NormalStress
	}
	denominator := n*sumX2 - sumX*sumX
	if math.Abs(denominator) < 1e-10 {
		return 0, false
	}
	slope := (n*sumXY - sumX*sumY) / denominator
	phi = math.Atan(slope) * 180 / math.Pi
	return math.Max(0, math.Min(phi, maxShearAngle)), true
}
