package soil

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidClassification = errors.New("invalid USCS classification")

// Classification is a USCS soil code.
type Classification string

const (
	GW Classification = "GW"
	GP Classification = "GP"
	GM Classification = "GM"
	GC Classification = "GC"
	SW Classification = "SW"
	SP Classification = "SP"
	SM Classification = "SM"
	SC Classification = "SC"
	ML Classification = "ML"
	CL Classification = "CL"
	OL Classification = "OL"
	MH Classification = "MH"
	CH Classification = "CH"
	OH Classification = "OH"
	PT Classification = "PT"
)

type Group string

const (
	Granular    Group = "granular"
	FineGrained Group = "fine_grained"
	Organic     Group = "organic"
)

type Plasticity string

const (
	PlasticityNone Plasticity = ""
	PlasticityLow  Plasticity = "low"
	PlasticityHigh Plasticity = "high"
)

type classInfo struct {
	description string
	group       Group
	plasticity  Plasticity
	porosity    float64
}

// porosity values are typical estimates used when no measurement exists
var classes = map[Classification]classInfo{
	GW: {"Well-graded gravel", Granular, PlasticityNone, 0.25},
	GP: {"Poorly graded gravel", Granular, PlasticityNone, 0.30},
	GM: {"Silty gravel", Granular, PlasticityNone, 0.30},
	GC: {"Clayey gravel", Granular, PlasticityNone, 0.25},
	SW: {"Well-graded sand", Granular, PlasticityNone, 0.35},
	SP: {"Poorly graded sand", Granular, PlasticityNone, 0.40},
	SM: {"Silty sand", Granular, PlasticityNone, 0.35},
	SC: {"Clayey sand", Granular, PlasticityNone, 0.30},
	ML: {"Inorganic silt", FineGrained, PlasticityLow, 0.45},
	CL: {"Inorganic clay", FineGrained, PlasticityLow, 0.40},
	OL: {"Organic silt/clay", FineGrained, PlasticityLow, 0.55},
	MH: {"Inorganic silt (high plasticity)", FineGrained, PlasticityHigh, 0.50},
	CH: {"Inorganic clay (high plasticity)", FineGrained, PlasticityHigh, 0.45},
	OH: {"Organic clay/silt (high plasticity)", FineGrained, PlasticityHigh, 0.60},
	PT: {"Peat", Organic, PlasticityNone, 0.80},
}

const defaultPorosity = 0.40

// Classifications returns every valid code in USCS chart order.
func Classifications() []Classification {
	return []Classification{GW, GP, GM, GC, SW, SP, SM, SC, ML, CL, OL, MH, CH, OH, PT}
}

func ParseClassification(s string) (Classification, error) {
	c := Classification(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidClassification, s)
	}
	return c, nil
}

func (c Classification) Valid() bool {
	_, ok := classes[c]
	return ok
}

func (c Classification) Description() string {
	return classes[c].description
}

// Group returns "" for codes outside the chart.
func (c Classification) Group() Group {
	return classes[c].group
}

func (c Classification) IsGranular() bool    { return c.Group() == Granular }
func (c Classification) IsFineGrained() bool { return c.Group() == FineGrained }
func (c Classification) IsOrganic() bool     { return c.Group() == Organic }

func (c Classification) Plasticity() Plasticity {
	return classes[c].plasticity
}

// IsCleanSandCandidate reports SW or SP, the codes Hazen's formula is calibrated for.
func (c Classification) IsCleanSandCandidate() bool {
	return c == SW || c == SP
}

// EstimatedPorosity looks up the typical porosity for the code.
func (c Classification) EstimatedPorosity() float64 {
	if info, ok := classes[c]; ok {
		return info.porosity
	}
	return defaultPorosity
}
