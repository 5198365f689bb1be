package unitweight

import (
	"math"
	"testing"

	"Strata/internal/calc/candidate"
	"Strata/internal/soil"
)

var calc Calculator

func byMethod(results []candidate.Result, m candidate.Method) []candidate.Result {
	var out []candidate.Result
	for _, r := range results {
		if r.Method == m {
			out = append(out, r)
		}
	}
	return out
}

func TestDryDensityIsDirect(t *testing.T) {
	for _, d := range []float64{85, 100.5, 128, 145} {
		agg := soil.Aggregate{Classification: soil.CL, Data: soil.TestData{
			MoistureDensity: soil.MoistureDensity{DryDensity: soil.Num(d)},
		}}
		dry := byMethod(calc.Calculate(agg), candidate.DryUnitWeight)
		if len(dry) != 1 {
			t.Fatalf("d=%v: expected one dry candidate, got %d", d, len(dry))
		}
		if dry[0].Value != d || dry[0].Confidence < 0.9 {
			t.Errorf("d=%v: got %+v", d, dry[0])
		}
	}
}

func TestSaturatedFromDryAndMoisture(t *testing.T) {
	tests := []struct{ dry, moisture float64 }{
		{100, 20}, {110, 12.5}, {95.3, 31}, {120, 0},
	}
	for _, tt := range tests {
		agg := soil.Aggregate{Classification: soil.SM, Data: soil.TestData{
			MoistureDensity: soil.MoistureDensity{DryDensity: soil.Num(tt.dry), NaturalMoisture: soil.Num(tt.moisture)},
		}}
		results := calc.Calculate(agg)
		sat := byMethod(results, candidate.SaturatedUnitWeight)
		if len(sat) != 1 {
			t.Fatalf("expected one saturated candidate, got %d", len(sat))
		}
		want := tt.dry * (1 + tt.moisture/100)
		if math.Abs(sat[0].Value-want) > 1e-9 {
			t.Errorf("saturated = %v, want %v", sat[0].Value, want)
		}
		if sat[0].Confidence != 0.85 {
			t.Errorf("confidence = %v, want 0.85", sat[0].Confidence)
		}
		sub := byMethod(results, candidate.SubmergedUnitWeight)
		if len(sub) != 1 || math.Abs(sub[0].Value-(want-WaterUnitWeight)) > 1e-9 {
			t.Errorf("submerged = %+v, want %v", sub, want-WaterUnitWeight)
		}
	}
}

func TestWetDensityTakesPrecedence(t *testing.T) {
	agg := soil.Aggregate{Classification: soil.CL, Data: soil.TestData{
		MoistureDensity: soil.MoistureDensity{
			DryDensity: soil.Num(100), NaturalMoisture: soil.Num(20), WetDensity: soil.Num(125),
		},
	}}
	results := calc.Calculate(agg)
	sat := byMethod(results, candidate.SaturatedUnitWeight)
	if len(sat) != 1 || sat[0].Value != 125 || sat[0].Confidence != 0.90 {
		t.Fatalf("unexpected saturated candidates: %+v", sat)
	}
	sub := byMethod(results, candidate.SubmergedUnitWeight)
	if len(sub) != 1 || math.Abs(sub[0].Value-62.6) > 1e-9 {
		t.Fatalf("unexpected submerged: %+v", sub)
	}
}

func TestNoSubmergedWithoutSaturated(t *testing.T) {
	agg := soil.Aggregate{Classification: soil.CL, Data: soil.TestData{
		MoistureDensity: soil.MoistureDensity{DryDensity: soil.Num(100)},
	}}
	results := calc.Calculate(agg)
	if len(byMethod(results, candidate.SubmergedUnitWeight)) != 0 {
		t.Fatal("submerged produced without a saturated candidate")
	}
	if len(results) != 1 {
		t.Fatalf("expected only the dry candidate, got %d", len(results))
	}
}

func TestEmptyData(t *testing.T) {
	agg := soil.Aggregate{Classification: soil.SP}
	if got := calc.Calculate(agg); len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
	if got := calc.AvailableMethods(agg); len(got) != 0 {
		t.Fatalf("expected no methods, got %v", got)
	}
}

func TestAvailableMethods(t *testing.T) {
	agg := soil.Aggregate{Classification: soil.SP, Data: soil.TestData{
		MoistureDensity: soil.MoistureDensity{DryDensity: soil.Num(100), NaturalMoisture: soil.Num(10)},
	}}
	got := calc.AvailableMethods(agg)
	want := []candidate.Method{candidate.DryUnitWeight, candidate.SaturatedUnitWeight, candidate.SubmergedUnitWeight}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
