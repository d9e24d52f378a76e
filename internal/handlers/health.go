package handlers

import (
	"context"
	"net/http"
	"os"
	"time"
)

const version = "0.2.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Region    string           `json:"region,omitempty"`
	Instance  string           `json:"instance,omitempty"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health handles the health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	// Check backing store
	storeStart := time.Now()
	if err := h.mailbox.Ping(ctx); err != nil {
		checks[h.mailbox.StoreName()] = Check{Status: "fail", Message: "connection failed"}
		allHealthy = false
	} else {
		checks[h.mailbox.StoreName()] = Check{Status: "pass", Latency: time.Since(storeStart).String()}
	}

	if h.broker == nil {
		checks["broker"] = Check{Status: "pass", Message: "not configured"}
	} else {
		checks["broker"] = Check{Status: "pass"}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:    status,
		Version:   version,
		Region:    os.Getenv("FLY_REGION"),
		Instance:  os.Getenv("FLY_ALLOC_ID"),
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	h.JSON(w, statusCode, resp)
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Store   string `json:"store"`
	TTL     int    `json:"ttl_seconds"`
	Cap     int    `json:"max_clients"`
}

// Root handles the service info endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "roomrelay",
		Version: version,
		Store:   h.mailbox.StoreName(),
		TTL:     int(h.mailbox.TTL().Seconds()),
		Cap:     h.mailbox.MaxClients(),
	})
}
