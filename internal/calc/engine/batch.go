package engine

import (
	"encoding/json"
	"fmt"
	"net/http"

	"Strata/internal/calc/candidate"
	"Strata/internal/soil"
)

type BatchInput struct {
	Items []candidate.Request `json:"items"`
}

type BatchItem struct {
	Best  map[string]candidate.Result `json:"best,omitempty"`
	Error string                      `json:"error,omitempty"`
}

type BatchResult struct {
	Results []BatchItem `json:"results"`
}

// CalculateBatch runs Best over every item. A malformed item is reported in
// place and does not stop the rest.
func (e *Engine) CalculateBatch(in BatchInput) (BatchResult, error) {
	if len(in.Items) == 0 {
		return BatchResult{}, fmt.Errorf("no items")
	}
	out := BatchResult{Results: make([]BatchItem, 0, len(in.Items))}
	for _, item := range in.Items {
		agg, err := soil.AggregateFromMap(item.TestData, item.Depth, item.Classification)
		if err != nil {
			out.Results = append(out.Results, BatchItem{Error: err.Error()})
			continue
		}
		out.Results = append(out.Results, BatchItem{Best: e.Best(agg)})
	}
	return out, nil
}

func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var in BatchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	out, err := h.Engine.CalculateBatch(in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
