package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/quantsnap/internal/s0_data/quality"
	"github.com/wonny/quantsnap/pkg/logger"
)

// QualityReader reads stored quality gate snapshots
type QualityReader interface {
	GetLatest(ctx context.Context, universe string) (*quality.Snapshot, error)
}

// DataHandler handles data-related API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	quality QualityReader
	logger  *logger.Logger
}

// NewDataHandler creates a new data handler. quality may be nil (no database).
func NewDataHandler(q QualityReader, log *logger.Logger) *DataHandler {
	return &DataHandler{
		quality: q,
		logger:  log,
	}
}

// GetQuality returns the latest data quality snapshot of a universe
// GET /api/quality/{universe}
func (h *DataHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	universe := mux.Vars(r)["universe"]

	if h.quality == nil {
		respondError(w, http.StatusServiceUnavailable, "Quality snapshots require a database")
		return
	}

	snapshot, err := h.quality.GetLatest(r.Context(), universe)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Ctx(r.Context()).WithError(err).WithUniverse(universe).Error("Failed to get quality snapshot")
			respondError(w, status, "Failed to retrieve quality snapshot")
			return
		}
		respondError(w, status, "No quality snapshot for universe "+universe)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}
