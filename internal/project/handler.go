package project

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"Strata/internal/auth"
	"Strata/internal/export"
	"Strata/internal/importer"
	"Strata/internal/interpret"
	"Strata/internal/logger"
	"Strata/internal/repo"
	"Strata/internal/soil"
	"Strata/internal/validate"

	"github.com/gorilla/mux"
)

const MaxUploadSize = 10 << 20 // 10MB

type Handler struct {
	Repo        repo.Repository
	Interpreter *interpret.Interpreter
	Exporter    *export.Exporter
}

// Routes mounts the project API on r. Callers wrap r with authentication.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/projects", h.Create).Methods("POST")
	r.HandleFunc("/projects", h.List).Methods("GET")
	r.HandleFunc("/projects/{id}", h.Get).Methods("GET")
	r.HandleFunc("/projects/{id}/boreholes", h.SaveBorehole).Methods("POST")
	r.HandleFunc("/projects/{id}/import", h.Import).Methods("POST")
	r.HandleFunc("/projects/{id}/strata/{strata}", h.SaveStratum).Methods("PUT")
	r.HandleFunc("/projects/{id}/strata/{strata}/interpret", h.Interpret).Methods("POST")
	r.HandleFunc("/projects/{id}/strata/{strata}/parameters/{name}", h.Override).Methods("PUT")
	r.HandleFunc("/projects/{id}/strata/{strata}/export", h.ExportStratum).Methods("GET")
	r.HandleFunc("/projects/{id}/parameters/{name}/export", h.ExportParameterSet).Methods("GET")
	r.HandleFunc("/projects/{id}/export", h.ExportJSON).Methods("GET")
	r.HandleFunc("/projects/{id}/export.xlsx", h.ExportWorkbook).Methods("GET")
	r.HandleFunc("/projects/{id}/report", h.Report).Methods("GET")
}

type projectView struct {
	ID string `json:"id"`
	soil.Project
}

type saveResponse struct {
	ID      string            `json:"id"`
	Results []validate.Result `json:"results"`
}

type stratumResponse struct {
	Stratum soil.Stratum      `json:"stratum"`
	Results []validate.Result `json:"results"`
}

type OverrideRequest struct {
	Value         float64  `json:"value"`
	Confidence    *float64 `json:"confidence"`
	Justification string   `json:"justification"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// fail maps domain errors to status codes.
func fail(w http.ResponseWriter, err error) {
	var verr *export.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, validate.Response{IsValid: false, Results: verr.Results})
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, export.ErrStratumNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, interpret.ErrJustificationRequired), errors.Is(err, interpret.ErrUnknownParameter):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, interpret.ErrNoSamples), errors.Is(err, export.ErrNoStrata),
		errors.Is(err, soil.ErrInvalidClassification), errors.Is(err, soil.ErrMalformedTestData):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		logger.ForComponent("project").Error("request failed", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var p soil.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	p.Boreholes, p.Strata = nil, nil
	p.CreatedBy = auth.Login(r.Context())
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Number) == "" {
		http.Error(w, "Project name and number required", http.StatusBadRequest)
		return
	}
	if err := h.Repo.CreateProject(r.Context(), &p); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saveResponse{ID: p.ID, Results: []validate.Result{}})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Repo.ListProjects(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	out := make([]projectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectView{ID: p.ID, Project: p})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Repo.GetProject(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectView{ID: p.ID, Project: p})
}

// SaveBorehole stores a borehole and any samples sent with it. Diagnostics are
// returned but do not block the save.
func (h *Handler) SaveBorehole(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	var b soil.Borehole
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil || b.BoreholeID == "" {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	p, err := h.Repo.GetProject(r.Context(), projectID)
	if err != nil {
		fail(w, err)
		return
	}
	v := validate.New()
	system := b.CoordinateSystem
	if system == "" {
		system = p.CoordinateSystem
	}
	v.Coordinate(b.X, b.Y, system)
	v.Elevation(b.Elevation)
	for _, s := range b.Samples {
		v.Sample(s)
	}

	if err := h.Repo.SaveBorehole(r.Context(), projectID, &b); err != nil {
		fail(w, err)
		return
	}
	for i := range b.Samples {
		if err := h.Repo.SaveSample(r.Context(), b.ID, &b.Samples[i]); err != nil {
			fail(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, saveResponse{ID: b.ID, Results: v.Results()})
}

// SaveStratum stores layer geometry and classification from the body under the
// {strata} route id.
func (h *Handler) SaveStratum(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var st soil.Stratum
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	st.ID = vars["strata"]
	if _, err := h.Repo.GetProject(r.Context(), vars["id"]); err != nil {
		fail(w, err)
		return
	}
	v := validate.New()
	v.Stratum(st)
	v.StrataGeometry([]soil.Stratum{st})
	if err := h.Repo.SaveStratum(r.Context(), vars["id"], &st); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stratumResponse{Stratum: st, Results: v.Results()})
}

func (h *Handler) Interpret(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	p, err := h.Repo.GetProject(r.Context(), vars["id"])
	if err != nil {
		fail(w, err)
		return
	}
	st, err := h.Repo.GetStratum(r.Context(), p.ID, vars["strata"])
	if err != nil {
		fail(w, err)
		return
	}
	st, err = h.Interpreter.Interpret(st, p.Boreholes, auth.Login(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}
	if err := h.Repo.SaveStratum(r.Context(), p.ID, &st); err != nil {
		fail(w, err)
		return
	}
	v := validate.New()
	v.Stratum(st)
	writeJSON(w, http.StatusOK, stratumResponse{Stratum: st, Results: v.Results()})
}

// Override records a manual design parameter under the logged-in engineer.
func (h *Handler) Override(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.Confidence == nil {
		http.Error(w, "Confidence required", http.StatusBadRequest)
		return
	}
	st, err := h.Repo.GetStratum(r.Context(), vars["id"], vars["strata"])
	if err != nil {
		fail(w, err)
		return
	}
	engineer := auth.Login(r.Context())
	if err := interpret.Override(&st, vars["name"], req.Value, *req.Confidence, req.Justification, engineer); err != nil {
		fail(w, err)
		return
	}
	if err := h.Repo.SaveStratum(r.Context(), vars["id"], &st); err != nil {
		fail(w, err)
		return
	}
	logger.ForComponent("project").Info("parameter overridden",
		"project", vars["id"], "strata", st.ID, "parameter", vars["name"], "engineer", engineer)

	v := validate.New()
	p := st.Parameters[vars["name"]]
	v.DesignParameter(vars["name"], p.Value, p.Source, p.Confidence)
	writeJSON(w, http.StatusOK, stratumResponse{Stratum: st, Results: v.Results()})
}

func (h *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	p, err := h.Repo.GetProject(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, err)
		return
	}
	opts := export.Options{Compress: r.URL.Query().Get("compress") == "1"}
	if _, err := export.Validate(p); err != nil {
		fail(w, err)
		return
	}
	name := p.Number + ".json"
	w.Header().Set("Content-Type", "application/json")
	if opts.Compress {
		name += ".gz"
		w.Header().Set("Content-Type", "application/gzip")
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	if err := h.Exporter.Project(w, p, opts); err != nil {
		logger.ForComponent("project").Error("export failed", "project", p.ID, "error", err)
	}
}

func (h *Handler) ExportStratum(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	p, err := h.Repo.GetProject(r.Context(), vars["id"])
	if err != nil {
		fail(w, err)
		return
	}
	if _, err := h.Repo.GetStratum(r.Context(), p.ID, vars["strata"]); err != nil {
		fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	h.Exporter.Stratum(w, p, vars["strata"])
}

func (h *Handler) ExportParameterSet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !soil.IsParameterKey(vars["name"]) {
		http.Error(w, "Unknown parameter "+vars["name"], http.StatusBadRequest)
		return
	}
	p, err := h.Repo.GetProject(r.Context(), vars["id"])
	if err != nil {
		fail(w, err)
		return
	}
	if len(p.Strata) == 0 {
		fail(w, export.ErrNoStrata)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	h.Exporter.ParameterSet(w, p, vars["name"])
}

func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	p, err := h.Repo.GetProject(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, err)
		return
	}
	if _, err := export.Validate(p); err != nil {
		fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+p.Number+".xlsx\"")
	if err := h.Exporter.Workbook(w, p); err != nil {
		logger.ForComponent("project").Error("workbook export failed", "project", p.ID, "error", err)
	}
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	p, err := h.Repo.GetProject(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, err)
		return
	}
	if _, err := export.Validate(p); err != nil {
		fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"report.pdf\"")
	if err := h.Exporter.Report(w, p, auth.Login(r.Context())); err != nil {
		http.Error(w, "Report generation error", http.StatusInternalServerError)
	}
}

// Import reads an uploaded lab workbook, CSV or project document into the project.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		http.Error(w, "File too big", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var res importer.Result
	name := strings.ToLower(header.Filename)
	switch {
	case strings.HasSuffix(name, ".xlsx"):
		res, err = importer.ReadWorkbook(file)
	case strings.HasSuffix(name, ".csv"):
		res, err = importer.ReadCSV(file, importer.CSVOptions{Charset: r.FormValue("charset")})
	case strings.HasSuffix(name, ".json"), strings.HasSuffix(name, ".json.gz"):
		res, err = importer.ReadDocument(file)
	default:
		http.Error(w, "Unsupported file type "+filepath.Ext(name), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "Invalid file: "+err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := importer.Save(r.Context(), h.Repo, projectID, res); err != nil {
		fail(w, err)
		return
	}
	logger.ForComponent("project").Info("samples imported",
		"project", projectID, "file", header.Filename, "imported", res.Imported, "skipped", len(res.Skipped))
	writeJSON(w, http.StatusOK, res)
}
