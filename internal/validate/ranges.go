package validate

import "Strata/internal/soil"

type Range struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Units string  `json:"units"`
}

var ranges = map[string]Range{
	soil.ParamUnitWeight:               {80, 150, "pcf"},
	soil.ParamFrictionAngle:            {15, 45, "degrees"},
	soil.ParamCohesion:                 {0, 5000, "psf"},
	soil.ParamModulusElasticity:        {1000, 100000, "ksf"},
	"permeability":                     {1e-9, 1e-3, "cm/s"},
	soil.ParamPermeabilityHorizontal:   {1e-9, 1e-3, "cm/s"},
	soil.ParamPermeabilityVertical:     {1e-9, 1e-3, "cm/s"},
	soil.ParamPreconsolidationPressure: {500, 20000, "psf"},
	soil.ParamCompressionIndex:         {0.01, 2.0, "dimensionless"},
	soil.ParamCoefficientConsolidation: {1e-5, 1e-1, "in²/min"},
}

func RangeFor(name string) (Range, bool) {
	r, ok := ranges[name]
	return r, ok
}

// Ranges returns a copy of the plausible-range table.
func Ranges() map[string]Range {
	out := make(map[string]Range, len(ranges))
	for k, r := range ranges {
		out[k] = r
	}
	return out
}
