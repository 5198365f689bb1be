package validate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"Strata/internal/soil"
)

type Severity string

const (
	Info     Severity = "info"
	Warning  Severity = "warning"
	Error    Severity = "error"
	Critical Severity = "critical"
)

// Result is one diagnostic. SuggestedValue is set when a derivable value disagrees
// with the supplied one.
type Result struct {
	IsValid        bool     `json:"is_valid"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	FieldName      string   `json:"field_name,omitempty"`
	SuggestedValue *float64 `json:"suggested_value,omitempty"`
}

func (r Result) String() string {
	if r.FieldName == "" {
		return fmt.Sprintf("[%s] %s", r.Severity, r.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", r.Severity, r.FieldName, r.Message)
}

// ElevationTolerance is the gap/overlap slack between adjacent strata.
const ElevationTolerance = 1e-10

// Validator accumulates diagnostics for one pass. It is not safe for concurrent use;
// give each pass its own instance.
type Validator struct {
	results []Result
}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) Add(r Result) {
	v.results = append(v.results, r)
}

func (v *Validator) Clear() {
	v.results = nil
}

// Results returns a copy of the accumulated diagnostics in detection order.
func (v *Validator) Results() []Result {
	return append([]Result{}, v.results...)
}

func (v *Validator) HasErrors() bool {
	return hasErrors(v.results)
}

func (v *Validator) HasWarnings() bool {
	for _, r := range v.results {
		if r.Severity == Warning {
			return true
		}
	}
	return false
}

func (v *Validator) fail(sev Severity, field, format string, args ...any) {
	v.Add(Result{Severity: sev, FieldName: field, Message: fmt.Sprintf(format, args...)})
}

func (v *Validator) suggest(field string, value float64, format string, args ...any) {
	v.Add(Result{Severity: Warning, FieldName: field, Message: fmt.Sprintf(format, args...), SuggestedValue: &value})
}

// Coordinate checks State Plane coordinates; other systems are not range-checked.
func (v *Validator) Coordinate(x, y float64, system string) bool {
	if system == "" {
		system = soil.DefaultCoordinateSystem
	}
	if !strings.EqualFold(system, soil.DefaultCoordinateSystem) {
		return true
	}
	ok := true
	if x < 0 || x > 3000000 {
		v.fail(Warning, "x_coordinate", "X coordinate %g may be outside typical State Plane range", x)
		ok = false
	}
	if y < 0 || y > 3000000 {
		v.fail(Warning, "y_coordinate", "Y coordinate %g may be outside typical State Plane range", y)
		ok = false
	}
	return ok
}

// Elevation checks the -1000 to 15000 ft band.
func (v *Validator) Elevation(elevation float64) bool {
	if elevation < -1000 || elevation > 15000 {
		v.fail(Warning, "elevation", "Elevation %g may be outside reasonable range (-1000 to 15000 ft)", elevation)
		return false
	}
	return true
}

func (v *Validator) DepthInterval(top, bottom float64) bool {
	ok := true
	if top >= bottom {
		v.fail(Error, "depth_interval", "Top depth (%g) must be less than bottom depth (%g)", top, bottom)
		ok = false
	}
	if top < 0 {
		v.fail(Error, "depth_top", "Top depth cannot be negative: %g", top)
		ok = false
	}
	if bottom > 500 {
		v.fail(Warning, "depth_bottom", "Bottom depth (%g) is unusually deep", bottom)
	}
	return ok
}

func (v *Validator) Gradation(g soil.Gradation) bool {
	ok := true

	var percents []float64
	for _, p := range []struct {
		name  string
		value *float64
	}{
		{"gravel_percent", g.GravelPercent},
		{"sand_percent", g.SandPercent},
		{"fines_percent", g.FinesPercent},
	} {
		if p.value == nil {
			continue
		}
		if *p.value < 0 || *p.value > 100 {
			v.fail(Error, p.name, "%s must be between 0 and 100: %g", p.name, *p.value)
			ok = false
			continue
		}
		percents = append(percents, *p.value)
	}
	if len(percents) == 3 {
		total := percents[0] + percents[1] + percents[2]
		if math.Abs(total-100) > 1 {
			v.fail(Warning, "gradation_total", "Gradation percentages sum to %g%%, should be 100%%", total)
		}
	}

	type diameter struct {
		name  string
		value float64
	}
	var sizes []diameter
	for _, d := range []struct {
		name  string
		value *float64
	}{
		{"d10", g.D10}, {"d30", g.D30}, {"d60", g.D60},
	} {
		if d.value == nil {
			continue
		}
		if *d.value <= 0 {
			v.fail(Error, d.name, "%s must be positive: %g", d.name, *d.value)
			ok = false
			continue
		}
		sizes = append(sizes, diameter{d.name, *d.value})
	}
	for i := 0; i+1 < len(sizes); i++ {
		if sizes[i].value >= sizes[i+1].value {
			v.fail(Error, "grain_sizes", "%s (%g) should be less than %s (%g)",
				sizes[i].name, sizes[i].value, sizes[i+1].name, sizes[i+1].value)
			ok = false
		}
	}
	positive := func(p *float64) bool { return p != nil && *p > 0 }

	if g.Cu != nil {
		if *g.Cu < 1 {
			v.fail(Error, "cu", "Uniformity coefficient (Cu) must be ≥ 1: %g", *g.Cu)
			ok = false
		}
		if positive(g.D10) && positive(g.D60) {
			calc := *g.D60 / *g.D10
			if math.Abs(*g.Cu-calc) > 0.1*calc {
				v.suggest("cu", calc, "Provided Cu (%g) differs from calculated Cu (%.2f)", *g.Cu, calc)
			}
		}
	}

	if g.Cc != nil {
		if *g.Cc <= 0 {
			v.fail(Error, "cc", "Coefficient of curvature (Cc) must be positive: %g", *g.Cc)
			ok = false
		}
		if positive(g.D10) && positive(g.D30) && positive(g.D60) {
			calc := *g.D30 * *g.D30 / (*g.D60 * *g.D10)
			if math.Abs(*g.Cc-calc) > 0.1*calc {
				v.suggest("cc", calc, "Provided Cc (%g) differs from calculated Cc (%.3f)", *g.Cc, calc)
			}
		}
	}
	return ok
}

func (v *Validator) Atterberg(a soil.Atterberg) bool {
	ok := true
	for _, l := range []struct {
		name  string
		value *float64
	}{
		{"liquid_limit", a.LiquidLimit},
		{"plastic_limit", a.PlasticLimit},
	} {
		if l.value != nil && (*l.value < 0 || *l.value > 200) {
			v.fail(Error, l.name, "%s must be between 0 and 200: %g", l.name, *l.value)
			ok = false
		}
	}
	if a.LiquidLimit == nil || a.PlasticLimit == nil {
		return ok
	}
	ll, pl := *a.LiquidLimit, *a.PlasticLimit
	if pl > ll {
		v.fail(Error, "atterberg_limits", "Plastic limit (%g) cannot exceed liquid limit (%g)", pl, ll)
		ok = false
	}
	if a.PlasticityIndex != nil {
		calc := ll - pl
		if math.Abs(*a.PlasticityIndex-calc) > 1 {
			v.suggest("plasticity_index", calc, "Provided PI (%g) differs from calculated PI (%g)", *a.PlasticityIndex, calc)
		}
	}
	return ok
}

// DesignParameter checks confidence, the plausible range for name, and manual sourcing.
// Out-of-range values are warnings unless below half the minimum or above twice the maximum.
func (v *Validator) DesignParameter(name string, value float64, source soil.ParameterSource, confidence float64) bool {
	ok := true
	if confidence < 0 || confidence > 1 {
		v.fail(Error, name+"_confidence", "Confidence must be between 0.0 and 1.0: %g", confidence)
		ok = false
	}
	if r, found := RangeFor(name); found && (value < r.Min || value > r.Max) {
		sev := Warning
		if value < r.Min*0.5 || value > r.Max*2 {
			sev = Error
			ok = false
		}
		v.fail(sev, name, "%s (%g %s) outside typical range (%g-%g %s)", name, value, r.Units, r.Min, r.Max, r.Units)
	}
	if source == soil.SourceManual && confidence < 0.8 {
		v.fail(Warning, name+"_confidence", "Manual parameter %s has low confidence (%g)", name, confidence)
	}
	return ok
}

// Classification checks the code and its consistency with gradation and Atterberg data.
// Either test group may be nil.
func (v *Validator) Classification(code string, g *soil.Gradation, a *soil.Atterberg) bool {
	c := soil.Classification(code)
	if !c.Valid() {
		v.fail(Error, "uscs_classification", "Invalid USCS classification: %s", code)
		return false
	}

	if g != nil && g.FinesPercent != nil {
		fines := *g.FinesPercent
		switch {
		case c.IsGranular() && fines >= 50:
			v.fail(Warning, "uscs_classification", "Classification %s inconsistent with %g%% fines (should be <50%%)", c, fines)
		case c.IsFineGrained() && fines < 50:
			v.fail(Warning, "uscs_classification", "Classification %s inconsistent with %g%% fines (should be ≥50%%)", c, fines)
		}
	}

	if a != nil && a.LiquidLimit != nil {
		ll := *a.LiquidLimit
		switch {
		case c.Plasticity() == soil.PlasticityHigh && ll < 50:
			v.fail(Warning, "uscs_classification", "High plasticity classification %s with LL=%g (<50)", c, ll)
		case c.Plasticity() == soil.PlasticityLow && ll >= 50:
			v.fail(Warning, "uscs_classification", "Low plasticity classification %s with LL=%g (≥50)", c, ll)
		}
	}
	return true
}

// StrataGeometry walks layers by descending top elevation. A gap is a warning, an
// overlap an error.
func (v *Validator) StrataGeometry(layers []soil.Stratum) bool {
	ok := true
	sorted := append([]soil.Stratum(nil), layers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TopElevation > sorted[j].TopElevation
	})
	for _, l := range sorted {
		if l.TopElevation <= l.BottomElevation {
			v.fail(Error, "strata_geometry", "Layer %s top elevation (%g) must be above bottom elevation (%g)",
				l.ID, l.TopElevation, l.BottomElevation)
			ok = false
		}
	}
	for i := 0; i+1 < len(sorted); i++ {
		bottom := sorted[i].BottomElevation
		nextTop := sorted[i+1].TopElevation
		if math.Abs(bottom-nextTop) <= ElevationTolerance {
			continue
		}
		if bottom > nextTop {
			v.fail(Warning, "strata_geometry", "Gap of %.2f ft between layers at elevation %.2f", bottom-nextTop, bottom)
		} else {
			v.fail(Error, "strata_geometry", "Overlap of %.2f ft between layers at elevation %.2f", nextTop-bottom, nextTop)
			ok = false
		}
	}
	return ok
}
