package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/openveil/veilforum/internal/services"
	pkghttp "github.com/openveil/veilforum/pkg/http"
)

// StatsServiceInterface defines the interface for community statistics
type StatsServiceInterface interface {
	Stats(ctx context.Context) (*services.StatsResponse, error)
}

// StatsHandler handles community statistics requests
type StatsHandler struct {
	service StatsServiceInterface
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(service StatsServiceInterface) *StatsHandler {
	return &StatsHandler{service: service}
}

// Stats returns the community statistics
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Stats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
