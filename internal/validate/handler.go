package validate

import (
	"encoding/json"
	"net/http"

	"Strata/internal/soil"
)

type Handler struct{}

type Response struct {
	IsValid bool     `json:"is_valid"`
	Results []Result `json:"results"`
}

func (h *Handler) Sample(w http.ResponseWriter, r *http.Request) {
	var s soil.Sample
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	ok, results := ValidateSample(s)
	writeResponse(w, ok, results)
}

func (h *Handler) Strata(w http.ResponseWriter, r *http.Request) {
	var layers []soil.Stratum
	if err := json.NewDecoder(r.Body).Decode(&layers); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	v := New()
	for _, l := range layers {
		v.Stratum(l)
	}
	v.StrataGeometry(layers)
	writeResponse(w, !v.HasErrors(), v.Results())
}

func writeResponse(w http.ResponseWriter, ok bool, results []Result) {
	if results == nil {
		results = []Result{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{IsValid: ok, Results: results})
}
