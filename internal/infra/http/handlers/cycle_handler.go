package handlers

import (
	"net/http"
	"time"

	"github.com/seedlane/outreach/internal/infra/http/middleware"
	"github.com/seedlane/outreach/internal/usecase"
)

// CycleHandler dispara um ciclo de envio fora da cadência do worker
// (gatilho manual do operador).
type CycleHandler struct {
	runCycle *usecase.RunCycleUseCase
}

func NewCycleHandler(runCycle *usecase.RunCycleUseCase) *CycleHandler {
	return &CycleHandler{runCycle: runCycle}
}

func (h *CycleHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runCycle.Execute(r.Context(), time.Now().UTC())
	if err != nil {
		middleware.RecordCycleRun("error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}

	middleware.RecordCycleRun("ok")
	middleware.RecordCycleOutcome(summary)

	writeJSON(w, http.StatusOK, summary)
}
