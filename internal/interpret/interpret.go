package interpret

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"Strata/internal/calc/candidate"
	"Strata/internal/calc/engine"
	"Strata/internal/logger"
	"Strata/internal/soil"
)

var (
	ErrNoSamples             = errors.New("no samples within stratum")
	ErrJustificationRequired = errors.New("override justification required")
	ErrUnknownParameter      = errors.New("unknown design parameter")
)

// Engine parameters and the design parameter keys they fill. Permeability is split
// into horizontal and vertical separately.
var parameterKey = map[string]string{
	engine.UnitWeight:             soil.ParamUnitWeight,
	engine.FrictionAngle:          soil.ParamFrictionAngle,
	engine.UndrainedShearStrength: soil.ParamCohesion,
	engine.ModulusElasticity:      soil.ParamModulusElasticity,
}

// laboratory consolidation readings carry over as measured values
const consolidationConfidence = 0.90

type Interpreter struct {
	Engine *engine.Engine
	Now    func() time.Time
	log    *slog.Logger
}

func New(e *engine.Engine) *Interpreter {
	return &Interpreter{Engine: e, Now: time.Now, log: logger.ForComponent("interpret")}
}

type pooled struct {
	results map[string][]candidate.Result
	samples []string
}

// Interpret fills st's design parameters from the samples whose mid-depth elevation
// lies inside the layer. Candidates from every sample are pooled per parameter and
// arbitrated once. Manual parameters already on the layer are kept.
func (in *Interpreter) Interpret(st soil.Stratum, boreholes []soil.Borehole, by string) (soil.Stratum, error) {
	pool := pooled{results: map[string][]candidate.Result{}}
	var consolidation []soil.ConsolidationTests

	for _, b := range boreholes {
		for _, s := range b.Samples {
			if !st.Contains(b.SampleElevation(s)) {
				continue
			}
			if s.Classification == "" {
				s.Classification = st.Classification
			}
			agg, err := s.Aggregate()
			if err != nil {
				in.log.Warn("sample skipped", "borehole", b.BoreholeID, "sample", s.SampleID, "error", err)
				continue
			}
			pool.samples = append(pool.samples, b.BoreholeID+"/"+s.SampleID)
			for name, results := range in.Engine.CalculateAll(agg) {
				pool.results[name] = append(pool.results[name], results...)
			}
			consolidation = append(consolidation, agg.Data.Consolidation)
		}
	}
	if len(pool.samples) == 0 {
		return st, fmt.Errorf("%w: %s (%g to %g)", ErrNoSamples, st.ID, st.TopElevation, st.BottomElevation)
	}

	chosen := map[string]candidate.Result{}
	for name, results := range pool.results {
		if name == engine.Permeability {
			continue
		}
		key, ok := parameterKey[name]
		if !ok {
			continue
		}
		if best := candidate.SelectBest(results); best != nil {
			chosen[key] = *best
		}
	}
	for key, r := range splitPermeability(pool.results[engine.Permeability]) {
		chosen[key] = r
	}

	params := soil.DesignParameters{}
	for key, p := range st.Parameters {
		if p.Source == soil.SourceManual {
			params[key] = p
		}
	}
	details := map[string]any{}
	refs := map[string]bool{}
	for key, r := range chosen {
		details[key] = map[string]any{
			"method":      string(r.Method),
			"candidates":  candidateCount(pool.results, key),
			"source_data": r.SourceData,
			"notes":       r.Notes,
		}
		for _, ref := range r.References {
			refs[ref] = true
		}
		if _, manual := params[key]; manual {
			continue
		}
		params[key] = soil.DesignParameter{
			Value:             r.Value,
			CalculationMethod: string(r.Method),
			Source:            soil.SourceCalculated,
			Confidence:        r.Confidence,
		}
	}
	for key, v := range meanConsolidation(consolidation) {
		if _, manual := params[key]; manual {
			continue
		}
		params[key] = soil.DesignParameter{
			Value:             v,
			CalculationMethod: string(candidate.LaboratoryTest),
			Source:            soil.SourceCalculated,
			Confidence:        consolidationConfidence,
		}
		details[key] = map[string]any{"method": string(candidate.LaboratoryTest), "samples": len(consolidation)}
	}

	st.Parameters = params
	st.Supporting = soil.SupportingData{
		SamplesUsed:        pool.samples,
		CalculationDetails: details,
		References:         sortedKeys(refs),
	}
	st.InterpretedBy = by
	at := in.Now().UTC()
	st.InterpretedAt = &at
	st.ConfidenceLevel = MeanConfidence(params)

	in.log.Info("stratum interpreted", "strata", st.ID, "samples", len(pool.samples), "parameters", len(params))
	return st, nil
}

// splitPermeability assigns the best horizontal and vertical laboratory readings to
// their own keys. A direction without a reading takes the best candidate overall.
func splitPermeability(results []candidate.Result) map[string]candidate.Result {
	out := map[string]candidate.Result{}
	if len(results) == 0 {
		return out
	}
	var horizontal, vertical []candidate.Result
	for _, r := range results {
		if r.Method != candidate.LaboratoryPermeability {
			continue
		}
		if _, ok := r.SourceData["horizontal_permeability"]; ok {
			horizontal = append(horizontal, r)
		}
		if _, ok := r.SourceData["vertical_permeability"]; ok {
			vertical = append(vertical, r)
		}
	}
	overall := candidate.SelectBest(results)
	pick := func(rs []candidate.Result) candidate.Result {
		if best := candidate.SelectBest(rs); best != nil {
			return *best
		}
		return *overall
	}
	out[soil.ParamPermeabilityHorizontal] = pick(horizontal)
	out[soil.ParamPermeabilityVertical] = pick(vertical)
	return out
}

func candidateCount(pool map[string][]candidate.Result, key string) int {
	for name, k := range parameterKey {
		if k == key {
			return len(pool[name])
		}
	}
	if strings.HasPrefix(key, "permeability") {
		return len(pool[engine.Permeability])
	}
	return 0
}

func meanConsolidation(tests []soil.ConsolidationTests) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	add := func(key string, v *float64) {
		if v != nil {
			sums[key] += *v
			counts[key]++
		}
	}
	for _, t := range tests {
		add(soil.ParamPreconsolidationPressure, t.PreconsolidationPressure)
		add(soil.ParamCompressionIndex, t.CompressionIndex)
		add(soil.ParamCoefficientConsolidation, t.CoefficientConsolidation)
	}
	out := make(map[string]float64, len(sums))
	for k, s := range sums {
		out[k] = s / float64(counts[k])
	}
	return out
}

// MeanConfidence averages the confidence of every parameter; 0 for none.
func MeanConfidence(params soil.DesignParameters) float64 {
	if len(params) == 0 {
		return 0
	}
	var sum float64
	for _, p := range params {
		sum += p.Confidence
	}
	return sum / float64(len(params))
}

// Override replaces a design parameter with an engineer's value. The previous
// calculated value is kept in the supporting calculation details.
func Override(st *soil.Stratum, name string, value, confidence float64, justification, engineer string) error {
	if !soil.IsParameterKey(name) {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	if strings.TrimSpace(justification) == "" {
		return ErrJustificationRequired
	}
	if st.Parameters == nil {
		st.Parameters = soil.DesignParameters{}
	}
	if prev, ok := st.Parameters[name]; ok && prev.Source != soil.SourceManual {
		if st.Supporting.CalculationDetails == nil {
			st.Supporting.CalculationDetails = map[string]any{}
		}
		st.Supporting.CalculationDetails[name+"_replaced"] = map[string]any{
			"value":      prev.Value,
			"method":     prev.CalculationMethod,
			"confidence": prev.Confidence,
		}
	}
	st.Parameters[name] = soil.DesignParameter{
		Value:                 value,
		CalculationMethod:     "manual_override",
		Source:                soil.SourceManual,
		Confidence:            confidence,
		OverrideJustification: justification,
		OverriddenBy:          engineer,
	}
	st.ConfidenceLevel = MeanConfidence(st.Parameters)
	return nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
