package soil

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestClassificationGroups(t *testing.T) {
	tests := []struct {
		code  Classification
		group Group
		plast Plasticity
	}{
		{GW, Granular, PlasticityNone},
		{SC, Granular, PlasticityNone},
		{CL, FineGrained, PlasticityLow},
		{CH, FineGrained, PlasticityHigh},
		{OH, FineGrained, PlasticityHigh},
		{PT, Organic, PlasticityNone},
	}
	for _, tt := range tests {
		if got := tt.code.Group(); got != tt.group {
			t.Errorf("%s group = %q, want %q", tt.code, got, tt.group)
		}
		if got := tt.code.Plasticity(); got != tt.plast {
			t.Errorf("%s plasticity = %q, want %q", tt.code, got, tt.plast)
		}
	}
	if len(Classifications()) != 15 {
		t.Fatalf("expected 15 codes, got %d", len(Classifications()))
	}
}

func TestParseClassification(t *testing.T) {
	c, err := ParseClassification(" sp ")
	if err != nil || c != SP {
		t.Fatalf("ParseClassification(sp) = %q, %v", c, err)
	}
	if _, err := ParseClassification("XX"); !errors.Is(err, ErrInvalidClassification) {
		t.Fatalf("expected ErrInvalidClassification, got %v", err)
	}
}

func TestEstimatedPorosityRange(t *testing.T) {
	for _, c := range Classifications() {
		n := c.EstimatedPorosity()
		if n < 0.25 || n > 0.80 {
			t.Errorf("%s porosity %v outside 0.25-0.80", c, n)
		}
	}
	if Classification("ZZ").EstimatedPorosity() != defaultPorosity {
		t.Error("unknown code should fall back to default porosity")
	}
}

func TestAggregateFromMap(t *testing.T) {
	raw := map[string]any{
		"moisture_density": map[string]any{"dry_density": 110.0, "natural_moisture": 20.0},
		"strength_tests": map[string]any{
			"direct_shear": []any{
				map[string]any{"normal_stress": 1000.0, "shear_strength": 700.0},
				map[string]any{"normal_stress": 2000.0, "shear_strength": 1300.0},
			},
		},
	}
	agg, err := AggregateFromMap(raw, 12.5, "CL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agg.Classification != CL || agg.Depth != 12.5 {
		t.Errorf("unexpected aggregate header: %+v", agg)
	}
	if *agg.Data.MoistureDensity.DryDensity != 110 {
		t.Errorf("dry density not decoded")
	}
	if len(agg.Data.StrengthTests.DirectShear) != 2 {
		t.Errorf("expected 2 direct shear pairs, got %d", len(agg.Data.StrengthTests.DirectShear))
	}
}

func TestAggregateFromMapRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		cls  string
		want error
	}{
		{"unknown category", map[string]any{"seismic": map[string]any{}}, "CL", ErrMalformedTestData},
		{"wrong type", map[string]any{"field_tests": map[string]any{"spt_n_value": "ten"}}, "SP", ErrMalformedTestData},
		{"bad code", nil, "QQ", ErrInvalidClassification},
		{"direct shear without normal stress", map[string]any{"strength_tests": map[string]any{
			"direct_shear": []any{
				map[string]any{"shear_strength": 500.0},
				map[string]any{"normal_stress": 1000.0, "shear_strength": 1077.0},
			},
		}}, "SP", ErrMalformedTestData},
		{"direct shear with null strength", map[string]any{"strength_tests": map[string]any{
			"direct_shear": []any{map[string]any{"normal_stress": 1000.0, "shear_strength": nil}},
		}}, "SP", ErrMalformedTestData},
		{"triaxial without confining pressure", map[string]any{"strength_tests": map[string]any{
			"triaxial_tests": []any{map[string]any{"peak_strength": 2400.0}},
		}}, "CL", ErrMalformedTestData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := AggregateFromMap(tt.raw, 0, tt.cls); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewAggregateRejectsNonFinite(t *testing.T) {
	data := TestData{FieldTests: FieldTests{SPTN: Num(math.Inf(1))}}
	if _, err := NewAggregate(data, 5, SP); !errors.Is(err, ErrMalformedTestData) {
		t.Fatalf("expected ErrMalformedTestData, got %v", err)
	}
	data = TestData{StrengthTests: StrengthTests{DirectShear: []DirectShear{{NormalStress: math.NaN()}}}}
	if _, err := NewAggregate(data, 5, SP); !errors.Is(err, ErrMalformedTestData) {
		t.Fatalf("expected ErrMalformedTestData for direct shear, got %v", err)
	}
}

func TestBoreholeSampleElevation(t *testing.T) {
	b := Borehole{Elevation: 100}
	s := Sample{DepthTop: 4, DepthBottom: 6}
	if got := b.SampleElevation(s); got != 95 {
		t.Fatalf("SampleElevation = %v, want 95", got)
	}
	st := Stratum{TopElevation: 100, BottomElevation: 90}
	if !st.Contains(95) || st.Contains(89.9) {
		t.Fatal("Contains mismatch")
	}
	below := Stratum{TopElevation: 90, BottomElevation: 80}
	if !st.Contains(100) || st.Contains(90) || !below.Contains(90) {
		t.Fatal("shared boundary should belong to the upper layer only")
	}
}

func TestAggregateFromMapNamesMissingSpecimenField(t *testing.T) {
	raw := map[string]any{"strength_tests": map[string]any{
		"direct_shear": []any{
			map[string]any{"normal_stress": 1000.0, "shear_strength": 700.0},
			map[string]any{"shear_strength": 1300.0},
		},
	}}
	_, err := AggregateFromMap(raw, 5, "SP")
	if !errors.Is(err, ErrMalformedTestData) {
		t.Fatalf("expected ErrMalformedTestData, got %v", err)
	}
	if !strings.Contains(err.Error(), "direct_shear[1] has no normal_stress") {
		t.Fatalf("error should name the record: %v", err)
	}
}
