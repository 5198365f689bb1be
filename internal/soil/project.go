package soil

import (
	"fmt"
	"time"
)

type ParameterSource string

const (
	SourceManual     ParameterSource = "manual"
	SourceCalculated ParameterSource = "calculated"
	SourceEstimated  ParameterSource = "estimated"
)

func (s ParameterSource) Valid() bool {
	switch s {
	case SourceManual, SourceCalculated, SourceEstimated:
		return true
	}
	return false
}

// Design parameter keys stored on a stratum.
const (
	ParamUnitWeight               = "unit_weight"
	ParamFrictionAngle            = "friction_angle"
	ParamCohesion                 = "cohesion"
	ParamModulusElasticity        = "modulus_elasticity"
	ParamPermeabilityHorizontal   = "permeability_horizontal"
	ParamPermeabilityVertical     = "permeability_vertical"
	ParamPreconsolidationPressure = "preconsolidation_pressure"
	ParamCompressionIndex         = "compression_index"
	ParamCoefficientConsolidation = "coefficient_consolidation"
)

var parameterKeys = []string{
	ParamUnitWeight,
	ParamFrictionAngle,
	ParamCohesion,
	ParamModulusElasticity,
	ParamPermeabilityHorizontal,
	ParamPermeabilityVertical,
	ParamPreconsolidationPressure,
	ParamCompressionIndex,
	ParamCoefficientConsolidation,
}

// ParameterKeys lists the design parameter keys in report order.
func ParameterKeys() []string {
	return append([]string(nil), parameterKeys...)
}

func IsParameterKey(name string) bool {
	for _, k := range parameterKeys {
		if k == name {
			return true
		}
	}
	return false
}

type DesignParameter struct {
	Value                 float64         `json:"value"`
	CalculationMethod     string          `json:"calculation_method"`
	Source                ParameterSource `json:"source"`
	Confidence            float64         `json:"confidence"`
	OverrideJustification string          `json:"override_justification,omitempty"`
	OverriddenBy          string          `json:"overridden_by,omitempty"`
}

type DesignParameters map[string]DesignParameter

type SupportingData struct {
	SamplesUsed        []string       `json:"samples_used"`
	CalculationDetails map[string]any `json:"calculation_details"`
	References         []string       `json:"references"`
}

// Stratum is one interpreted layer. TopElevation must exceed BottomElevation.
type Stratum struct {
	ID              string           `json:"strata_id"`
	TopElevation    float64          `json:"top_elevation"`
	BottomElevation float64          `json:"bottom_elevation"`
	SoilType        string           `json:"soil_type"`
	Classification  Classification   `json:"uscs_classification"`
	Parameters      DesignParameters `json:"design_parameters"`
	Supporting      SupportingData   `json:"supporting_data"`
	InterpretedBy   string           `json:"interpreted_by,omitempty"`
	InterpretedAt   *time.Time       `json:"interpretation_date,omitempty"`
	ConfidenceLevel float64          `json:"confidence_level"`
}

func (s Stratum) Thickness() float64 {
	return s.TopElevation - s.BottomElevation
}

// Contains reports whether elevation lies within (bottom, top]. A point on a shared
// boundary belongs to the upper layer only.
func (s Stratum) Contains(elevation float64) bool {
	return elevation <= s.TopElevation && elevation > s.BottomElevation
}

type Sample struct {
	ID             string         `json:"-"`
	SampleID       string         `json:"sample_id"`
	DepthTop       float64        `json:"depth_top"`
	DepthBottom    float64        `json:"depth_bottom"`
	Description    string         `json:"field_description"`
	Classification Classification `json:"uscs_classification,omitempty"`
	Tests          TestData       `json:"laboratory_tests"`
}

func (s Sample) MidDepth() float64 {
	return (s.DepthTop + s.DepthBottom) / 2
}

// Aggregate builds calculator input from the sample's tests.
func (s Sample) Aggregate() (Aggregate, error) {
	agg, err := NewAggregate(s.Tests, s.DepthTop, s.Classification)
	if err != nil {
		return Aggregate{}, fmt.Errorf("sample %s: %w", s.SampleID, err)
	}
	return agg, nil
}

type Borehole struct {
	ID               string     `json:"-"`
	BoreholeID       string     `json:"borehole_id"`
	X                float64    `json:"x"`
	Y                float64    `json:"y"`
	Elevation        float64    `json:"elevation"`
	CoordinateSystem string     `json:"coordinate_system,omitempty"`
	DrillingMethod   string     `json:"drilling_method,omitempty"`
	DrillingDate     *time.Time `json:"drilling_date,omitempty"`
	Contractor       string     `json:"drilling_contractor,omitempty"`
	TotalDepth       *float64   `json:"total_depth,omitempty"`
	GroundwaterDepth *float64   `json:"groundwater_depth,omitempty"`
	Samples          []Sample   `json:"samples"`
}

// SampleElevation converts a sample's mid depth to an elevation.
func (b Borehole) SampleElevation(s Sample) float64 {
	return b.Elevation - s.MidDepth()
}

type Project struct {
	ID               string     `json:"-"`
	Name             string     `json:"project_name"`
	Number           string     `json:"project_number"`
	Client           string     `json:"client,omitempty"`
	Location         string     `json:"location,omitempty"`
	Description      string     `json:"description,omitempty"`
	CoordinateSystem string     `json:"coordinate_system"`
	CreatedAt        time.Time  `json:"date_created"`
	CreatedBy        string     `json:"created_by,omitempty"`
	Version          string     `json:"version"`
	Boreholes        []Borehole `json:"explorations"`
	Strata           []Stratum  `json:"interpreted_strata"`
}

const DefaultCoordinateSystem = "State Plane"
