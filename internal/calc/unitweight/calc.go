package unitweight

import (
	"Strata/internal/calc/candidate"
	"Strata/internal/soil"
)

// WaterUnitWeight in pcf.
const WaterUnitWeight = 62.4

type Calculator struct{}

func (Calculator) Calculate(agg soil.Aggregate) []candidate.Result {
	var results []candidate.Result
	md := agg.Data.MoistureDensity

	if md.DryDensity != nil {
		results = append(results, candidate.Result{
			Value:      *md.DryDensity,
			Method:     candidate.DryUnitWeight,
			Confidence: 0.95,
			SourceData: map[string]any{"dry_density": *md.DryDensity},
			References: []string{"ASTM D7263"},
			Notes:      "Direct measurement from laboratory test",
		})
	}

	var saturated []float64
	switch {
	case md.WetDensity != nil:
		saturated = append(saturated, *md.WetDensity)
		results = append(results, candidate.Result{
			Value:      *md.WetDensity,
			Method:     candidate.SaturatedUnitWeight,
			Confidence: 0.90,
			SourceData: map[string]any{"wet_density": *md.WetDensity},
			References: []string{"ASTM D7263"},
			Notes:      "Measured wet density",
		})
	case md.DryDensity != nil && md.NaturalMoisture != nil:
		wet := *md.DryDensity * (1 + *md.NaturalMoisture/100)
		saturated = append(saturated, wet)
		results = append(results, candidate.Result{
			Value:      wet,
			Method:     candidate.SaturatedUnitWeight,
			Confidence: 0.85,
			SourceData: map[string]any{"dry_density": *md.DryDensity, "natural_moisture": *md.NaturalMoisture},
			References: []string{"Soil Mechanics Fundamentals"},
			Notes:      "Calculated from dry density and moisture content",
		})
	}

	if len(saturated) > 0 {
		sat := saturated[0]
		for _, v := range saturated[1:] {
			if v > sat {
				sat = v
			}
		}
		results = append(results, candidate.Result{
			Value:      sat - WaterUnitWeight,
			Method:     candidate.SubmergedUnitWeight,
			Confidence: 0.90,
			SourceData: map[string]any{"saturated_weight": sat},
			References: []string{"Soil Mechanics Fundamentals"},
			Notes:      "Saturated unit weight minus water unit weight",
		})
	}
	return results
}

func (Calculator) AvailableMethods(agg soil.Aggregate) []candidate.Method {
	var methods []candidate.Method
	md := agg.Data.MoistureDensity
	if md.DryDensity != nil {
		methods = append(methods, candidate.DryUnitWeight)
	}
	if md.WetDensity != nil || (md.DryDensity != nil && md.NaturalMoisture != nil) {
		methods = append(methods, candidate.SaturatedUnitWeight, candidate.SubmergedUnitWeight)
	}
	return methods
}
