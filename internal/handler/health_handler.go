package handlers

import (
	"net/http"
)

type HomeResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

func HomeHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, HomeResponse{Service: "socialposts", Status: "running"}, http.StatusOK)
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	report := h.HealthService.Check(r.Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}

	writeSuccess(w, report, status)
}
