package usecase

import (
	"context"
	"time"
)

// PipelineStats is the operator-facing snapshot of the funnel.
type PipelineStats struct {
	New            int `json:"new"`
	Active         int `json:"active"`
	Replied        int `json:"replied"`
	Completed      int `json:"completed"`
	DueForFollowup int `json:"due_for_followup"`
	SentToday      int `json:"sent_today"`
}

type PipelineStatsUseCase struct {
	Leads LeadRepository
}

func NewPipelineStatsUseCase(leads LeadRepository) *PipelineStatsUseCase {
	return &PipelineStatsUseCase{Leads: leads}
}

func (uc *PipelineStatsUseCase) Execute(ctx context.Context, now time.Time) (*PipelineStats, error) {
	stats, err := uc.Leads.PipelineStats(ctx, now)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "falha ao calcular estatísticas: " + err.Error(),
		}
	}
	return stats, nil
}
