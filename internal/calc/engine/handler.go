package engine

import (
	"encoding/json"
	"errors"
	"net/http"

	"Strata/internal/calc/candidate"
	"Strata/internal/soil"

	"github.com/gorilla/mux"
)

type Handler struct {
	Engine *Engine
}

type Response struct {
	Results map[string][]candidate.Result `json:"results"`
	Best    map[string]candidate.Result   `json:"best"`
}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	agg, err := candidate.DecodeRequest(r.Body)
	if err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	all := h.Engine.CalculateAll(agg)
	best := make(map[string]candidate.Result, len(all))
	for name, results := range all {
		best[name] = *candidate.SelectBest(results)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{Results: all, Best: best})
}

// Methods serves the available methods for the {param} route variable.
func (h *Handler) Methods(w http.ResponseWriter, r *http.Request) {
	agg, err := candidate.DecodeRequest(r.Body)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, soil.ErrInvalidClassification) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, "Invalid request payload", status)
		return
	}
	methods := h.Engine.AvailableMethods(mux.Vars(r)["param"], agg)
	if methods == nil {
		methods = []candidate.Method{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(methods)
}
