package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

// StockHandler serves one ticker's ranking detail
type StockHandler struct {
	service RankingService
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(service RankingService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		service: service,
		logger:  log,
	}
}

// StockResponse is the body of GET /api/stock/{ticker}
type StockResponse struct {
	Ticker   string                      `json:"ticker"`
	Name     string                      `json:"name,omitempty"`
	Universe string                      `json:"universe,omitempty"`
	Latest   *contracts.CompositeScore   `json:"latest,omitempty"`
	Size     int                         `json:"universe_size,omitempty"`
	History  []contracts.TickerRankPoint `json:"history"`
}

// GetStock returns a ticker's latest score and its ranking history
// GET /api/stock/{ticker}?universe=sp500&days=30
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])
	universe := r.URL.Query().Get("universe")

	days, err := queryInt(r, "days", 30, 365)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := StockResponse{Ticker: ticker, Universe: universe}

	if universe != "" {
		ranking, err := h.service.LatestRanking(ctx, universe)
		switch {
		case err == nil:
			if s, ok := ranking.Find(ticker); ok {
				resp.Latest = &s
				resp.Name = s.Name
				resp.Size = ranking.Len()
			}
		case statusFor(err) == http.StatusNotFound:
			// 아직 랭킹 없음: 이력만 반환
		default:
			h.logger.Ctx(ctx).WithError(err).WithUniverse(universe).Error("Failed to get ranking")
			respondError(w, http.StatusInternalServerError, "Failed to retrieve ranking")
			return
		}
	}

	history, err := h.service.TickerHistory(ctx, ticker, universe, days)
	if err != nil {
		h.logger.Ctx(ctx).WithError(err).WithTicker(ticker).Error("Failed to get ticker history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve ranking history")
		return
	}
	if history == nil {
		history = []contracts.TickerRankPoint{}
	}
	resp.History = history

	if resp.Latest == nil && len(history) == 0 {
		respondError(w, http.StatusNotFound, "Stock "+ticker+" not found")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
