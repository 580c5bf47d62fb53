package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/quantsnap/internal/brain"
	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

// DefaultLimit is the number of rows returned when ?limit is absent
const DefaultLimit = 50

// RankingService is what the ranking endpoints read from
type RankingService interface {
	Universes() []string
	LatestRanking(ctx context.Context, universe string) (*contracts.Ranking, error)
	TickerHistory(ctx context.Context, ticker, universe string, limit int) ([]contracts.TickerRankPoint, error)
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// RankingHandler handles ranking-related API endpoints
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	service    RankingService
	runTimeout time.Duration
	logger     *logger.Logger

	// refresh는 요청 context와 분리된 백그라운드 작업
	background func(fn func())
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(service RankingService, runTimeout time.Duration, log *logger.Logger) *RankingHandler {
	if runTimeout <= 0 {
		runTimeout = 10 * time.Minute
	}
	return &RankingHandler{
		service:    service,
		runTimeout: runTimeout,
		logger:     log,
		background: func(fn func()) { go fn() },
	}
}

// RankingResponse is the body of GET /api/rankings/{universe}
type RankingResponse struct {
	Universe     string                 `json:"universe"`
	RunID        string                 `json:"run_id"`
	Date         string                 `json:"date"`
	CreatedAt    time.Time              `json:"created_at"`
	StrategyHash string                 `json:"strategy_hash,omitempty"`
	Total        int                    `json:"total"`
	Count        int                    `json:"count"`
	Degenerate   []string               `json:"degenerate,omitempty"`
	Rankings     []contracts.RankingRow `json:"rankings"`
}

// GetUniverses lists the rankable universes
// GET /api/universes
func (h *RankingHandler) GetUniverses(w http.ResponseWriter, r *http.Request) {
	universes := h.service.Universes()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"universes": universes,
		"count":     len(universes),
	})
}

// GetRankings returns the latest ranking of a universe
// GET /api/rankings/{universe}?limit=50&factors=true
func (h *RankingHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	universe := mux.Vars(r)["universe"]

	limit, err := queryInt(r, "limit", DefaultLimit, 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	includeFactors, err := queryBool(r, "factors", true)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ranking, err := h.service.LatestRanking(r.Context(), universe)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Ctx(r.Context()).WithError(err).WithUniverse(universe).Error("Failed to get ranking")
			respondError(w, status, "Failed to retrieve ranking")
			return
		}
		respondError(w, status, "No rankings found for universe "+universe)
		return
	}

	top := &contracts.Ranking{Scores: ranking.TopN(limit)}
	rows := top.Rows()
	if !includeFactors {
		for i := range rows {
			rows[i].Factors = nil
		}
	}

	respondJSON(w, http.StatusOK, RankingResponse{
		Universe:     ranking.Universe,
		RunID:        ranking.RunID,
		Date:         ranking.AsOf.Format("2006-01-02"),
		CreatedAt:    ranking.CreatedAt,
		StrategyHash: ranking.StrategyHash,
		Total:        ranking.Len(),
		Count:        len(rows),
		Degenerate:   ranking.Degenerate,
		Rankings:     rows,
	})
}

// Refresh starts a ranking run in the background
// POST /api/refresh/{universe}
func (h *RankingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	universe := mux.Vars(r)["universe"]

	known := false
	for _, u := range h.service.Universes() {
		if u == universe {
			known = true
			break
		}
	}
	if !known {
		respondError(w, http.StatusNotFound, "Unknown universe "+universe)
		return
	}

	// 요청이 끝나도 실행은 계속, request_id는 유지
	detached := context.WithoutCancel(r.Context())
	h.background(func() {
		ctx, cancel := context.WithTimeout(detached, h.runTimeout)
		defer cancel()

		if _, err := h.service.Run(ctx, brain.RunConfig{Universe: universe}); err != nil {
			h.logger.Ctx(ctx).WithError(err).WithUniverse(universe).Error("Background refresh failed")
		}
	})

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"universe":  universe,
		"status":    "refresh_initiated",
		"timestamp": time.Now().UTC(),
	})
}
