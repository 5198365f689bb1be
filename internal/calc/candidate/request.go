package candidate

import (
	"encoding/json"
	"io"
	"net/http"

	"Strata/internal/soil"
)

// Request is the JSON body accepted by the calculator handlers.
type Request struct {
	Classification string         `json:"uscs_classification"`
	Depth          float64        `json:"sample_depth"`
	TestData       map[string]any `json:"test_data"`
}

type Response struct {
	Results []Result `json:"results"`
	Best    *Result  `json:"best"`
	Methods []Method `json:"available_methods"`
}

func DecodeRequest(body io.Reader) (soil.Aggregate, error) {
	var req Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return soil.Aggregate{}, err
	}
	return soil.AggregateFromMap(req.TestData, req.Depth, req.Classification)
}

// Serve is the shared body of the per-parameter calc handlers.
func Serve(w http.ResponseWriter, r *http.Request, c Calculator) {
	agg, err := DecodeRequest(r.Body)
	if err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	res := c.Calculate(agg)
	if res == nil {
		res = []Result{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{
		Results: res,
		Best:    SelectBest(res),
		Methods: c.AvailableMethods(agg),
	})
}
