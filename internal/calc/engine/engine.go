package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"Strata/internal/calc/candidate"
	"Strata/internal/calc/friction"
	"Strata/internal/calc/modulus"
	"Strata/internal/calc/permeability"
	"Strata/internal/calc/undrained"
	"Strata/internal/calc/unitweight"
	"Strata/internal/logger"
	"Strata/internal/soil"
)

var ErrUnknownParameter = errors.New("unknown parameter")

// Parameter names the engine registers calculators under.
const (
	UnitWeight             = "unit_weight"
	FrictionAngle          = "friction_angle"
	UndrainedShearStrength = "undrained_shear_strength"
	ModulusElasticity      = "modulus_elasticity"
	Permeability           = "permeability"
)

type Engine struct {
	calculators map[string]candidate.Calculator
	log         *slog.Logger
}

func New() *Engine {
	return &Engine{
		calculators: map[string]candidate.Calculator{
			UnitWeight:             unitweight.Calculator{},
			FrictionAngle:          friction.Calculator{},
			UndrainedShearStrength: undrained.Calculator{},
			ModulusElasticity:      modulus.Calculator{},
			Permeability:           permeability.Calculator{},
		},
		log: logger.ForComponent("engine"),
	}
}

// Register adds or replaces the calculator for name.
func (e *Engine) Register(name string, c candidate.Calculator) {
	e.calculators[name] = c
}

// Parameters lists registered names in sorted order.
func (e *Engine) Parameters() []string {
	names := make([]string, 0, len(e.calculators))
	for name := range e.calculators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CalculateAll runs every calculator. Parameters without candidates, and
// calculators that fail, are left out of the map.
func (e *Engine) CalculateAll(agg soil.Aggregate) map[string][]candidate.Result {
	out := make(map[string][]candidate.Result)
	for _, name := range e.Parameters() {
		results, err := e.run(name, e.calculators[name], agg)
		if err != nil {
			e.log.Error("calculator failed", "parameter", name, "error", err)
			continue
		}
		if len(results) > 0 {
			out[name] = results
		}
	}
	return out
}

func (e *Engine) CalculateOne(name string, agg soil.Aggregate) ([]candidate.Result, error) {
	c, ok := e.calculators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	return e.run(name, c, agg)
}

// AvailableMethods returns nil for unknown names.
func (e *Engine) AvailableMethods(name string, agg soil.Aggregate) []candidate.Method {
	c, ok := e.calculators[name]
	if !ok {
		return nil
	}
	return c.AvailableMethods(agg)
}

// Best runs every calculator and arbitrates each parameter's candidates.
func (e *Engine) Best(agg soil.Aggregate) map[string]candidate.Result {
	out := make(map[string]candidate.Result)
	for name, results := range e.CalculateAll(agg) {
		if best := candidate.SelectBest(results); best != nil {
			out[name] = *best
		}
	}
	return out
}

func (e *Engine) run(name string, c candidate.Calculator, agg soil.Aggregate) (results []candidate.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = fmt.Errorf("%s calculator panic: %v", name, r)
		}
	}()
	return c.Calculate(agg), nil
}
