package handlers

import (
	"net/http"
	"time"

	"github.com/seedlane/outreach/internal/usecase"
)

type StatsHandler struct {
	statsUC *usecase.PipelineStatsUseCase
}

func NewStatsHandler(statsUC *usecase.PipelineStatsUseCase) *StatsHandler {
	return &StatsHandler{statsUC: statsUC}
}

func (h *StatsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsUC.Execute(r.Context(), time.Now().UTC())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compute stats",
		})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
