package project

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"Strata/internal/auth"
	"Strata/internal/calc/engine"
	"Strata/internal/export"
	"Strata/internal/interpret"
	"Strata/internal/repo"
	"Strata/internal/soil"
	"Strata/internal/validate"

	"github.com/gorilla/mux"
)

type fixture struct {
	store  *repo.Store
	router *mux.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := repo.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "project.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := &Handler{Repo: store, Interpreter: interpret.New(engine.New()), Exporter: export.NewExporter()}
	r := mux.NewRouter()
	h.Routes(r)
	return &fixture{store: store, router: r}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(auth.WithUser(req.Context(), "u-1", "jdoe"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) project(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/projects", soil.Project{Name: "Harbor Pier", Number: "24-017"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp saveResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	return resp.ID
}

func sandBorehole() soil.Borehole {
	return soil.Borehole{
		BoreholeID: "B-1", X: 1500000, Y: 600000, Elevation: 100,
		Samples: []soil.Sample{{
			SampleID: "S-1", DepthTop: 2, DepthBottom: 4, Classification: soil.SP,
			Tests: soil.TestData{
				MoistureDensity: soil.MoistureDensity{DryDensity: soil.Num(105), NaturalMoisture: soil.Num(12)},
				FieldTests:      soil.FieldTests{SPTN: soil.Num(20)},
			},
		}},
	}
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)
	id := f.project(t)

	rec := f.do(t, http.MethodGet, "/projects/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got projectView
	json.NewDecoder(rec.Body).Decode(&got)
	if got.ID != id || got.Name != "Harbor Pier" || got.CreatedBy != "jdoe" {
		t.Fatalf("unexpected project %+v", got)
	}

	if rec := f.do(t, http.MethodGet, "/projects/missing", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing project status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/projects", soil.Project{Name: "No number"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("incomplete project status = %d", rec.Code)
	}
}

func TestSaveBoreholeReturnsDiagnostics(t *testing.T) {
	f := newFixture(t)
	id := f.project(t)

	b := sandBorehole()
	b.Elevation = 20000
	rec := f.do(t, http.MethodPost, "/projects/"+id+"/boreholes", b)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp saveResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.ID == "" || len(resp.Results) != 1 || resp.Results[0].FieldName != "elevation" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestInterpretOverrideAndExport(t *testing.T) {
	f := newFixture(t)
	id := f.project(t)
	f.do(t, http.MethodPost, "/projects/"+id+"/boreholes", sandBorehole())

	layer := soil.Stratum{TopElevation: 100, BottomElevation: 90, SoilType: "Poorly graded sand", Classification: soil.SP}
	if rec := f.do(t, http.MethodPut, "/projects/"+id+"/strata/L1", layer); rec.Code != http.StatusOK {
		t.Fatalf("put stratum status = %d: %s", rec.Code, rec.Body.String())
	}

	rec := f.do(t, http.MethodPost, "/projects/"+id+"/strata/L1/interpret", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("interpret status = %d: %s", rec.Code, rec.Body.String())
	}
	var interpreted stratumResponse
	json.NewDecoder(rec.Body).Decode(&interpreted)
	if _, ok := interpreted.Stratum.Parameters[soil.ParamFrictionAngle]; !ok {
		t.Fatalf("expected friction angle, got %+v", interpreted.Stratum.Parameters)
	}
	if interpreted.Stratum.InterpretedBy != "jdoe" {
		t.Errorf("interpreted by %q", interpreted.Stratum.InterpretedBy)
	}

	path := "/projects/" + id + "/strata/L1/parameters/" + soil.ParamUnitWeight
	if rec := f.do(t, http.MethodPut, path, OverrideRequest{Value: 118, Confidence: soil.Num(0.9)}); rec.Code != http.StatusBadRequest {
		t.Fatalf("override without justification status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPut, path, map[string]any{"value": 118, "justification": "nearby site data"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("override without confidence status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodPut, path, OverrideRequest{Value: 118, Confidence: soil.Num(0.85), Justification: "nearby site data"})
	if rec.Code != http.StatusOK {
		t.Fatalf("override status = %d: %s", rec.Code, rec.Body.String())
	}

	st, err := f.store.GetStratum(context.Background(), id, "L1")
	if err != nil {
		t.Fatalf("GetStratum: %v", err)
	}
	if p := st.Parameters[soil.ParamUnitWeight]; p.Source != soil.SourceManual || p.OverriddenBy != "jdoe" {
		t.Fatalf("override not stored: %+v", p)
	}

	rec = f.do(t, http.MethodGet, "/projects/"+id+"/export?compress=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", rec.Code, rec.Body.String())
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	var doc export.Document
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if len(doc.InterpretedStrata) != 1 || doc.ProjectMetadata.Number != "24-017" {
		t.Fatalf("unexpected document %+v", doc.ProjectMetadata)
	}

	rec = f.do(t, http.MethodGet, "/projects/"+id+"/parameters/"+soil.ParamUnitWeight+"/export", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "nearby site data") {
		t.Fatalf("parameter set export: %d %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodGet, "/projects/"+id+"/strata/L9/export", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing stratum export status = %d", rec.Code)
	}
}

func TestOverrideKeepsExplicitZeroConfidence(t *testing.T) {
	f := newFixture(t)
	id := f.project(t)
	f.do(t, http.MethodPut, "/projects/"+id+"/strata/L1", soil.Stratum{TopElevation: 100, BottomElevation: 90, Classification: soil.SP})

	path := "/projects/" + id + "/strata/L1/parameters/" + soil.ParamFrictionAngle
	rec := f.do(t, http.MethodPut, path, OverrideRequest{Value: 30, Confidence: soil.Num(0), Justification: "placeholder until shear tests"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp stratumResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if p := resp.Stratum.Parameters[soil.ParamFrictionAngle]; p.Confidence != 0 {
		t.Fatalf("confidence rewritten to %v", p.Confidence)
	}
	if len(resp.Results) != 1 || resp.Results[0].FieldName != soil.ParamFrictionAngle+"_confidence" {
		t.Fatalf("expected low confidence warning, got %+v", resp.Results)
	}
}

func TestInterpretWithoutSamples(t *testing.T) {
	f := newFixture(t)
	id := f.project(t)
	f.do(t, http.MethodPut, "/projects/"+id+"/strata/deep", soil.Stratum{TopElevation: -50, BottomElevation: -80, Classification: soil.CL})
	if rec := f.do(t, http.MethodPost, "/projects/"+id+"/strata/deep/interpret", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestExportRefusedOnErrors(t *testing.T) {
	f := newFixture(t)
	id := f.project(t)
	f.do(t, http.MethodPut, "/projects/"+id+"/strata/A", soil.Stratum{TopElevation: 100, BottomElevation: 80, Classification: soil.SP})
	f.do(t, http.MethodPut, "/projects/"+id+"/strata/B", soil.Stratum{TopElevation: 90, BottomElevation: 70, Classification: soil.CL})

	for _, path := range []string{"/export", "/export.xlsx", "/report"} {
		rec := f.do(t, http.MethodGet, "/projects/"+id+path, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		var resp validate.Response
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp.IsValid || len(resp.Results) == 0 {
			t.Fatalf("%s: unexpected body %+v", path, resp)
		}
	}
}

func TestImportCSV(t *testing.T) {
	f := newFixture(t)
	id := f.project(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "lab.csv")
	fw.Write([]byte("borehole_id,sample_id,depth_top,depth_bottom,uscs_classification,spt_n_value\n" +
		"B-7,S-1,0,2,SM,14\n" +
		"B-7,S-2,5,7,CL,9\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/projects/"+id+"/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	p, err := f.store.GetProject(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if len(p.Boreholes) != 1 || len(p.Boreholes[0].Samples) != 2 {
		t.Fatalf("unexpected boreholes %+v", p.Boreholes)
	}
}
