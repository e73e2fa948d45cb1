package worker

import (
	"context"
	"log"
	"time"

	"github.com/seedlane/outreach/internal/infra/http/middleware"
	"github.com/seedlane/outreach/internal/usecase"
)

// SummaryNotifier avisa o operador ao fim de cada ciclo.
type SummaryNotifier interface {
	SendCycleSummary(ranAt time.Time, summary *usecase.CycleSummary) error
}

// CycleWorker dispara o orquestrador numa cadência fixa. Um ciclo só
// começa depois do anterior terminar: o loop é sequencial por desenho,
// para nunca haver duas runs sobrepostas disputando os mesmos leads.
type CycleWorker struct {
	runCycle     *usecase.RunCycleUseCase
	notifier     SummaryNotifier
	tickInterval time.Duration
}

func NewCycleWorker(runCycle *usecase.RunCycleUseCase, notifier SummaryNotifier, tickInterval time.Duration) *CycleWorker {
	return &CycleWorker{
		runCycle:     runCycle,
		notifier:     notifier,
		tickInterval: tickInterval,
	}
}

func (w *CycleWorker) Start(ctx context.Context) {
	log.Printf("🕒 Cycle Worker iniciado (intervalo %s)", w.tickInterval)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Cycle Worker encerrado")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *CycleWorker) run(ctx context.Context) {
	now := time.Now().UTC()

	summary, err := w.runCycle.Execute(ctx, now)
	if err != nil {
		log.Printf("❌ Ciclo falhou: %v", err)
		middleware.RecordCycleRun("error")
		return
	}

	middleware.RecordCycleRun("ok")
	middleware.RecordCycleOutcome(summary)

	log.Printf("✅ Ciclo concluído: %d novos, %d follow-ups, %d respostas (enviados hoje: %d)",
		summary.NewSent, summary.FollowupsSent, len(summary.Replied), summary.SentToday)

	if w.notifier != nil && (summary.TotalSent() > 0 || len(summary.Replied) > 0) {
		if err := w.notifier.SendCycleSummary(now, summary); err != nil {
			log.Printf("⚠️ Falha ao enviar resumo do ciclo: %v", err)
		}
	}
}
