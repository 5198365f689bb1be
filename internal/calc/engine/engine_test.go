package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Strata/internal/calc/candidate"
	"Strata/internal/soil"

	"github.com/gorilla/mux"
)

type panicking struct{}

func (panicking) Calculate(soil.Aggregate) []candidate.Result { panic("division by zero") }
func (panicking) AvailableMethods(soil.Aggregate) []candidate.Method {
	return []candidate.Method{candidate.FieldVane}
}

func richAggregate() soil.Aggregate {
	return soil.Aggregate{Classification: soil.SP, Depth: 10, Data: soil.TestData{
		MoistureDensity: soil.MoistureDensity{DryDensity: soil.Num(105), NaturalMoisture: soil.Num(15)},
		FieldTests:      soil.FieldTests{SPTN: soil.Num(20)},
		Gradation: soil.Gradation{
			D10: soil.Num(0.2), GravelPercent: soil.Num(5), SandPercent: soil.Num(92), FinesPercent: soil.Num(3), Cu: soil.Num(3),
		},
	}}
}

func TestCalculateAll(t *testing.T) {
	e := New()
	all := e.CalculateAll(richAggregate())
	for _, name := range []string{UnitWeight, FrictionAngle, ModulusElasticity, Permeability} {
		if len(all[name]) == 0 {
			t.Errorf("expected candidates for %s", name)
		}
	}
	if _, ok := all[UndrainedShearStrength]; ok {
		t.Error("undrained shear strength should be absent without strength tests")
	}
}

func TestCalculateAllIsolatesFailures(t *testing.T) {
	e := New()
	e.Register("broken", panicking{})
	all := e.CalculateAll(richAggregate())
	if _, ok := all["broken"]; ok {
		t.Fatal("failing calculator should be omitted")
	}
	if len(all[UnitWeight]) == 0 {
		t.Fatal("other calculators should still run")
	}
	if _, err := e.CalculateOne("broken", richAggregate()); err == nil {
		t.Fatal("CalculateOne should surface the failure")
	}
}

func TestCalculateOneUnknown(t *testing.T) {
	_, err := New().CalculateOne("bearing_capacity", richAggregate())
	if !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("expected ErrUnknownParameter, got %v", err)
	}
}

func TestCalculateOne(t *testing.T) {
	results, err := New().CalculateOne(FrictionAngle, richAggregate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Method != candidate.SPTCorrelation {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestAvailableMethodsUnknownIsEmpty(t *testing.T) {
	if got := New().AvailableMethods("nope", richAggregate()); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
	got := New().AvailableMethods(Permeability, richAggregate())
	if len(got) != 2 {
		t.Fatalf("expected hazen and kozeny-carman, got %v", got)
	}
}

func TestBest(t *testing.T) {
	best := New().Best(richAggregate())
	if best[UnitWeight].Method != candidate.DryUnitWeight {
		t.Errorf("unit weight best = %s", best[UnitWeight].Method)
	}
	if best[Permeability].Method != candidate.HazenFormula {
		t.Errorf("permeability best = %s", best[Permeability].Method)
	}
}

func TestHandlerCalc(t *testing.T) {
	body := `{"uscs_classification":"CL","sample_depth":5,
		"test_data":{"strength_tests":{"unconfined_compression":2000}}}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tools/engine/calc", strings.NewReader(body))
	(&Handler{Engine: New()}).Calc(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Best[UndrainedShearStrength].Value != 1000 {
		t.Fatalf("unexpected best %+v", resp.Best)
	}
}

func TestHandlerRejectsBadClassification(t *testing.T) {
	body, _ := json.Marshal(candidate.Request{Classification: "ZZ"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tools/engine/calc", bytes.NewReader(body))
	(&Handler{Engine: New()}).Calc(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandlerMethods(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/tools/{param}/methods", (&Handler{Engine: New()}).Methods).Methods("POST")
	body := `{"uscs_classification":"SW","test_data":{"field_tests":{"spt_n_value":12}}}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tools/friction_angle/methods", strings.NewReader(body)))
	var methods []candidate.Method
	if err := json.NewDecoder(rec.Body).Decode(&methods); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(methods) != 1 || methods[0] != candidate.SPTCorrelation {
		t.Fatalf("unexpected methods %v", methods)
	}
}

func TestCalculateBatch(t *testing.T) {
	if _, err := New().CalculateBatch(BatchInput{}); err == nil {
		t.Fatal("expected error for empty batch")
	}
	out, err := New().CalculateBatch(BatchInput{Items: []candidate.Request{
		{Classification: "CL", Depth: 5, TestData: map[string]any{
			"strength_tests": map[string]any{"unconfined_compression": 2000.0},
		}},
		{Classification: "ZZ"},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out.Results))
	}
	if out.Results[0].Best[UndrainedShearStrength].Value != 1000 {
		t.Errorf("unexpected first result %+v", out.Results[0])
	}
	if out.Results[1].Error == "" {
		t.Error("bad classification should be reported in place")
	}
}

func TestHandlerBatch(t *testing.T) {
	body := `{"items":[{"uscs_classification":"SP","sample_depth":10,
		"test_data":{"field_tests":{"spt_n_value":20}}}]}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tools/engine/batch", strings.NewReader(body))
	(&Handler{Engine: New()}).Batch(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out BatchResult
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := out.Results[0].Best[FrictionAngle]; !ok {
		t.Fatalf("expected friction angle, got %+v", out.Results[0])
	}
}
