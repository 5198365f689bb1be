package validate

import (
	"fmt"
	"sort"

	"Strata/internal/soil"
)

// Sample runs the depth, gradation, Atterberg and classification rules for one sample.
func (v *Validator) Sample(s soil.Sample) bool {
	before := len(v.results)
	v.DepthInterval(s.DepthTop, s.DepthBottom)

	g := &s.Tests.Gradation
	if g.Empty() {
		g = nil
	} else {
		v.Gradation(*g)
	}
	a := &s.Tests.Atterberg
	if a.Empty() {
		a = nil
	} else {
		v.Atterberg(*a)
	}
	if s.Classification != "" {
		v.Classification(string(s.Classification), g, a)
	}
	return !hasErrors(v.results[before:])
}

// Stratum checks a layer's stored design parameters in name order.
func (v *Validator) Stratum(st soil.Stratum) bool {
	before := len(v.results)
	if !st.Classification.Valid() {
		v.fail(Error, "uscs_classification", "Layer %s has invalid USCS classification: %s", st.ID, st.Classification)
	}
	names := make([]string, 0, len(st.Parameters))
	for name := range st.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := st.Parameters[name]
		if !p.Source.Valid() {
			v.fail(Error, name+"_source", "Parameter %s has unknown source %q", name, p.Source)
		}
		if p.Source == soil.SourceManual && p.OverrideJustification == "" {
			v.fail(Warning, name+"_justification", "Manual parameter %s has no override justification", name)
		}
		v.DesignParameter(name, p.Value, p.Source, p.Confidence)
	}
	return !hasErrors(v.results[before:])
}

// Project validates a full project document: metadata, every borehole and sample,
// every stratum's parameters and the strata geometry.
func (v *Validator) Project(p soil.Project) bool {
	before := len(v.results)
	if p.Name == "" {
		v.fail(Error, "project_name", "Project name is required")
	}
	if p.Number == "" {
		v.fail(Error, "project_number", "Project number is required")
	}
	for _, b := range p.Boreholes {
		system := b.CoordinateSystem
		if system == "" {
			system = p.CoordinateSystem
		}
		v.Coordinate(b.X, b.Y, system)
		v.Elevation(b.Elevation)
		for _, s := range b.Samples {
			v.Sample(s)
		}
	}
	for _, st := range p.Strata {
		v.Stratum(st)
	}
	if len(p.Strata) > 0 {
		v.StrataGeometry(p.Strata)
	}
	return !hasErrors(v.results[before:])
}

// ValidateSample runs a fresh pass over one sample.
func ValidateSample(s soil.Sample) (bool, []Result) {
	v := New()
	v.Sample(s)
	return !v.HasErrors(), v.Results()
}

func ValidateProject(p soil.Project) (bool, []Result) {
	v := New()
	v.Project(p)
	return !v.HasErrors(), v.Results()
}

func hasErrors(results []Result) bool {
	for _, r := range results {
		if r.Severity == Error || r.Severity == Critical {
			return true
		}
	}
	return false
}

// Summary counts diagnostics by severity, for log lines.
func Summary(results []Result) string {
	counts := map[Severity]int{}
	for _, r := range results {
		counts[r.Severity]++
	}
	return fmt.Sprintf("%d critical, %d errors, %d warnings, %d info",
		counts[Critical], counts[Error], counts[Warning], counts[Info])
}
