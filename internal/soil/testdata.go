package soil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrMalformedTestData = errors.New("malformed test data")

type MoistureDensity struct {
	NaturalMoisture *float64 `json:"natural_moisture,omitempty"` // percent
	DryDensity      *float64 `json:"dry_density,omitempty"`      // pcf
	WetDensity      *float64 `json:"wet_density,omitempty"`      // pcf
	Porosity        *float64 `json:"porosity,omitempty"`
}

type FieldTests struct {
	SPTN                  *float64 `json:"spt_n_value,omitempty"`
	FieldMoisture         *float64 `json:"field_moisture,omitempty"`
	PenetrationResistance *float64 `json:"penetration_resistance,omitempty"`
}

type DirectShear struct {
	NormalStress  float64 `json:"normal_stress"`
	ShearStrength float64 `json:"shear_strength"`
}

// UnmarshalJSON requires both readings so a missing one never decodes as 0.
func (d *DirectShear) UnmarshalJSON(b []byte) error {
	var rec struct {
		NormalStress  *float64 `json:"normal_stress"`
		ShearStrength *float64 `json:"shear_strength"`
	}
	if err := strictDecode(b, &rec); err != nil {
		return err
	}
	if rec.NormalStress == nil || rec.ShearStrength == nil {
		return errors.New("direct shear record needs normal_stress and shear_strength")
	}
	*d = DirectShear{NormalStress: *rec.NormalStress, ShearStrength: *rec.ShearStrength}
	return nil
}

// Triaxial is one specimen. Drained tests report FrictionAngle, undrained tests PeakStrength.
type Triaxial struct {
	ConfiningPressure float64  `json:"confining_pressure"`
	PeakStrength      *float64 `json:"peak_strength,omitempty"`
	FrictionAngle     *float64 `json:"friction_angle,omitempty"`
}

func (t *Triaxial) UnmarshalJSON(b []byte) error {
	var rec struct {
		ConfiningPressure *float64 `json:"confining_pressure"`
		PeakStrength      *float64 `json:"peak_strength"`
		FrictionAngle     *float64 `json:"friction_angle"`
	}
	if err := strictDecode(b, &rec); err != nil {
		return err
	}
	if rec.ConfiningPressure == nil {
		return errors.New("triaxial record needs confining_pressure")
	}
	*t = Triaxial{ConfiningPressure: *rec.ConfiningPressure, PeakStrength: rec.PeakStrength, FrictionAngle: rec.FrictionAngle}
	return nil
}

func strictDecode(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type StrengthTests struct {
	UnconfinedCompression *float64      `json:"unconfined_compression,omitempty"`
	Triaxial              []Triaxial    `json:"triaxial_tests,omitempty"`
	DirectShear           []DirectShear `json:"direct_shear,omitempty"`
}

type Gradation struct {
	GravelPercent *float64 `json:"gravel_percent,omitempty"`
	SandPercent   *float64 `json:"sand_percent,omitempty"`
	FinesPercent  *float64 `json:"fines_percent,omitempty"`
	D10           *float64 `json:"d10,omitempty"` // mm
	D30           *float64 `json:"d30,omitempty"`
	D60           *float64 `json:"d60,omitempty"`
	Cu            *float64 `json:"cu,omitempty"`
	Cc            *float64 `json:"cc,omitempty"`
}

// HasBreakdown reports whether gravel, sand and fines percentages are all present.
func (g Gradation) HasBreakdown() bool {
	return g.GravelPercent != nil && g.SandPercent != nil && g.FinesPercent != nil
}

func (g Gradation) Empty() bool {
	return g == Gradation{}
}

type Atterberg struct {
	LiquidLimit     *float64 `json:"liquid_limit,omitempty"`
	PlasticLimit    *float64 `json:"plastic_limit,omitempty"`
	PlasticityIndex *float64 `json:"plasticity_index,omitempty"`
}

func (a Atterberg) Empty() bool {
	return a == Atterberg{}
}

type PermeabilityTests struct {
	Horizontal *float64 `json:"horizontal_permeability,omitempty"` // cm/s
	Vertical   *float64 `json:"vertical_permeability,omitempty"`
	TestMethod string   `json:"test_method,omitempty"`
}

type ConsolidationTests struct {
	PreconsolidationPressure *float64 `json:"preconsolidation_pressure,omitempty"`
	CompressionIndex         *float64 `json:"compression_index,omitempty"`
	RecompressionIndex       *float64 `json:"recompression_index,omitempty"`
	CoefficientConsolidation *float64 `json:"coefficient_consolidation,omitempty"`
}

// TestData is the normalized bag of measurements for one sample.
type TestData struct {
	MoistureDensity MoistureDensity    `json:"moisture_density"`
	FieldTests      FieldTests         `json:"field_tests"`
	StrengthTests   StrengthTests      `json:"strength_tests"`
	Gradation       Gradation          `json:"gradation"`
	Atterberg       Atterberg          `json:"atterberg_limits"`
	Permeability    PermeabilityTests  `json:"permeability_tests"`
	Consolidation   ConsolidationTests `json:"consolidation_tests"`
}

// Aggregate is the calculator input: one sample's tests, depth and classification.
type Aggregate struct {
	Data           TestData
	Depth          float64
	Classification Classification
}

// NewAggregate checks the invariants calculators rely on.
func NewAggregate(data TestData, depth float64, cls Classification) (Aggregate, error) {
	if !cls.Valid() {
		return Aggregate{}, fmt.Errorf("%w: %q", ErrInvalidClassification, string(cls))
	}
	if math.IsNaN(depth) || math.IsInf(depth, 0) {
		return Aggregate{}, fmt.Errorf("%w: depth is not finite", ErrMalformedTestData)
	}
	if err := data.CheckFinite(); err != nil {
		return Aggregate{}, err
	}
	return Aggregate{Data: data, Depth: depth, Classification: cls}, nil
}

// AggregateFromMap decodes the nested category map used by storage and JSON documents.
// Unknown categories or fields, and wrongly typed values, are contract errors.
func AggregateFromMap(raw map[string]any, depth float64, cls string) (Aggregate, error) {
	c, err := ParseClassification(cls)
	if err != nil {
		return Aggregate{}, err
	}
	data, err := DecodeTestData(raw)
	if err != nil {
		return Aggregate{}, err
	}
	return NewAggregate(data, depth, c)
}

func DecodeTestData(raw map[string]any) (TestData, error) {
	var data TestData
	if len(raw) == 0 {
		return data, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return TestData{}, fmt.Errorf("%w: %v", ErrMalformedTestData, err)
	}
	if err := requireSpecimenFields(raw); err != nil {
		return TestData{}, err
	}
	if err := strictDecode(b, &data); err != nil {
		return TestData{}, fmt.Errorf("%w: %v", ErrMalformedTestData, err)
	}
	return data, nil
}

// specimenFields lists the keys every per-specimen record must carry. A missing
// key would otherwise decode as 0 and enter the regression as a real reading.
var specimenFields = map[string][]string{
	"direct_shear":   {"normal_stress", "shear_strength"},
	"triaxial_tests": {"confining_pressure"},
}

func requireSpecimenFields(raw map[string]any) error {
	strength, _ := raw["strength_tests"].(map[string]any)
	for list, keys := range specimenFields {
		records, _ := strength[list].([]any)
		for i, rec := range records {
			fields, _ := rec.(map[string]any)
			for _, k := range keys {
				if fields[k] == nil {
					return fmt.Errorf("%w: %s[%d] has no %s", ErrMalformedTestData, list, i, k)
				}
			}
		}
	}
	return nil
}

// CheckFinite returns ErrMalformedTestData naming a NaN or infinite field.
func (d TestData) CheckFinite() error {
	for name, v := range d.fields() {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%w: %s is not finite", ErrMalformedTestData, name)
		}
	}
	for i, s := range d.StrengthTests.DirectShear {
		if !finite(s.NormalStress) || !finite(s.ShearStrength) {
			return fmt.Errorf("%w: direct_shear[%d] is not finite", ErrMalformedTestData, i)
		}
	}
	for i, t := range d.StrengthTests.Triaxial {
		if !finite(t.ConfiningPressure) ||
			(t.PeakStrength != nil && !finite(*t.PeakStrength)) ||
			(t.FrictionAngle != nil && !finite(*t.FrictionAngle)) {
			return fmt.Errorf("%w: triaxial_tests[%d] is not finite", ErrMalformedTestData, i)
		}
	}
	return nil
}

func (d TestData) fields() map[string]*float64 {
	return map[string]*float64{
		"natural_moisture":          d.MoistureDensity.NaturalMoisture,
		"dry_density":               d.MoistureDensity.DryDensity,
		"wet_density":               d.MoistureDensity.WetDensity,
		"porosity":                  d.MoistureDensity.Porosity,
		"spt_n_value":               d.FieldTests.SPTN,
		"field_moisture":            d.FieldTests.FieldMoisture,
		"penetration_resistance":    d.FieldTests.PenetrationResistance,
		"unconfined_compression":    d.StrengthTests.UnconfinedCompression,
		"gravel_percent":            d.Gradation.GravelPercent,
		"sand_percent":              d.Gradation.SandPercent,
		"fines_percent":             d.Gradation.FinesPercent,
		"d10":                       d.Gradation.D10,
		"d30":                       d.Gradation.D30,
		"d60":                       d.Gradation.D60,
		"cu":                        d.Gradation.Cu,
		"cc":                        d.Gradation.Cc,
		"liquid_limit":              d.Atterberg.LiquidLimit,
		"plastic_limit":             d.Atterberg.PlasticLimit,
		"plasticity_index":          d.Atterberg.PlasticityIndex,
		"horizontal_permeability":   d.Permeability.Horizontal,
		"vertical_permeability":     d.Permeability.Vertical,
		"preconsolidation_pressure": d.Consolidation.PreconsolidationPressure,
		"compression_index":         d.Consolidation.CompressionIndex,
		"recompression_index":       d.Consolidation.RecompressionIndex,
		"coefficient_consolidation": d.Consolidation.CoefficientConsolidation,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Num returns a pointer to v, for building optional readings.
func Num(v float64) *float64 {
	return &v
}
