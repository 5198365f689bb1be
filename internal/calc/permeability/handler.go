package permeability

import (
	"net/http"

	"Strata/internal/calc/candidate"
)

type Handler struct{}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	candidate.Serve(w, r, Calculator{})
}
