package handler

import (
	"net/http"
	"time"

	"roomtoken/internal/pkg/resp"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// HandleHealth reports liveness. It is served on both / and /health.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, HealthResponse{
			Status:    "healthy",
			Service:   deps.Config.ServiceName,
			Version:   deps.Config.ServiceVersion,
			Timestamp: deps.now().UTC().Format(time.RFC3339),
		})
	}
}
