package candidate

import (
	"fmt"
	"sort"
	"strings"

	"Strata/internal/soil"
)

type Method string

const (
	SaturatedUnitWeight    Method = "saturated_unit_weight"
	DryUnitWeight          Method = "dry_unit_weight"
	SubmergedUnitWeight    Method = "submerged_unit_weight"
	SPTCorrelation         Method = "spt_correlation"
	DirectShear            Method = "direct_shear"
	TriaxialDrained        Method = "triaxial_drained"
	UnconfinedCompression  Method = "unconfined_compression"
	TriaxialUndrained      Method = "triaxial_undrained"
	FieldVane              Method = "field_vane"
	EmpiricalCorrelation   Method = "empirical_correlation"
	LaboratoryTest         Method = "laboratory_test"
	HazenFormula           Method = "hazen_formula"
	KozenyCarman           Method = "kozeny_carman"
	LaboratoryPermeability Method = "laboratory_permeability"
	CasagrandeMethod       Method = "casagrande_method"
	StrainEnergyMethod     Method = "strain_energy_method"
)

// Result is one method's candidate value for a parameter.
type Result struct {
	Value      float64        `json:"value"`
	Method     Method         `json:"method"`
	Confidence float64        `json:"confidence"`
	SourceData map[string]any `json:"source_data"`
	References []string       `json:"references"`
	Notes      string         `json:"notes"`
}

// Calculator turns a sample aggregate into zero or more candidates.
// Missing input data yields no candidate, never an error.
type Calculator interface {
	Calculate(agg soil.Aggregate) []Result
	AvailableMethods(agg soil.Aggregate) []Method
}

// measured methods outrank correlations when confidence ties
var preference = map[Method]int{
	LaboratoryPermeability: 10,
	TriaxialDrained:        9,
	TriaxialUndrained:      9,
	DirectShear:            8,
	DryUnitWeight:          8,
	UnconfinedCompression:  7,
	SaturatedUnitWeight:    7,
	SPTCorrelation:         6,
	EmpiricalCorrelation:   5,
	HazenFormula:           4,
	KozenyCarman:           3,
}

// Preference returns the tie-break rank of m; unranked methods are 0.
func Preference(m Method) int {
	return preference[m]
}

// SelectBest picks the candidate with the highest confidence, then method preference.
// Remaining ties fall back to a total order on value, method, notes, source data and
// references so that the winner does not depend on input order. Returns nil for no candidates.
func SelectBest(results []Result) *Result {
	if len(results) == 0 {
		return nil
	}
	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return better(sorted[i], sorted[j])
	})
	best := sorted[0]
	return &best
}

func better(a, b Result) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if pa, pb := Preference(a.Method), Preference(b.Method); pa != pb {
		return pa > pb
	}
	if a.Value != b.Value {
		return a.Value > b.Value
	}
	if a.Method != b.Method {
		return a.Method < b.Method
	}
	if a.Notes != b.Notes {
		return a.Notes < b.Notes
	}
	// fmt prints maps with sorted keys
	if sa, sb := fmt.Sprint(a.SourceData), fmt.Sprint(b.SourceData); sa != sb {
		return sa < sb
	}
	return strings.Join(a.References, "\x00") < strings.Join(b.References, "\x00")
}
