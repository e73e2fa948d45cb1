package usecase

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/seedlane/outreach/internal/config"
	"github.com/seedlane/outreach/internal/entity"
	"github.com/seedlane/outreach/internal/infra/queue"
)

// defaultCallTimeout caps each external call (reply check, generation,
// dispatch). A timeout is isolated like any other per-lead failure.
const defaultCallTimeout = 60 * time.Second

type CycleSummary struct {
	Replied           []string `json:"replied"`
	NewSent           int      `json:"new_sent"`
	FollowupsSent     int      `json:"followups_sent"`
	DailyLimitReached bool     `json:"daily_limit_reached"`
	SentToday         int      `json:"sent_today"`
}

func (s *CycleSummary) TotalSent() int {
	return s.NewSent + s.FollowupsSent
}

// RunCycleUseCase is the top-level orchestrator: one Execute call is one
// cycle over the whole pipeline. Leads are processed strictly in
// sequence; per-lead failures are logged and skipped so a single bad
// address never blocks the day's run.
type RunCycleUseCase struct {
	Leads     LeadRepository
	Mailer    Mailer
	Composer  Composer
	Enricher  Enricher
	Templates TemplateRenderer
	Events    EventPublisher
	Settings  config.Settings

	// CallTimeout overrides defaultCallTimeout when positive.
	CallTimeout time.Duration

	// delayFn applies the inter-send jitter. Replaced in tests so no
	// test ever sleeps.
	delayFn func(ctx context.Context, d time.Duration)
}

func NewRunCycleUseCase(
	leads LeadRepository,
	mailer Mailer,
	composer Composer,
	enricher Enricher,
	templates TemplateRenderer,
	events EventPublisher,
	settings config.Settings,
) *RunCycleUseCase {
	return &RunCycleUseCase{
		Leads:     leads,
		Mailer:    mailer,
		Composer:  composer,
		Enricher:  enricher,
		Templates: templates,
		Events:    events,
		Settings:  settings,
		delayFn:   sleepWithContext,
	}
}

// Execute runs one complete cycle:
//
//  1. Reply sweep over all active leads (runs even when the quota is gone)
//  2. Daily quota check
//  3. First emails for new leads, in import order
//  4. Follow-ups for due leads, in due-time order
//
// Only Lead Store access failures abort the cycle; everything else is
// per-lead and retried on the next invocation.
func (uc *RunCycleUseCase) Execute(ctx context.Context, now time.Time) (*CycleSummary, error) {
	summary := &CycleSummary{Replied: []string{}}

	// 1. Reply sweep
	if err := uc.sweepReplies(ctx, now, summary); err != nil {
		return nil, err
	}

	// 2. Quota
	sentToday, err := uc.Leads.CountSentToday(ctx, now)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "falha ao contar envios de hoje: " + err.Error(),
		}
	}
	summary.SentToday = sentToday

	remaining := uc.Settings.Sending.DailyLimit - sentToday
	if remaining <= 0 {
		log.Printf("🚦 Limite diário atingido (%d/%d), nenhum envio neste ciclo",
			sentToday, uc.Settings.Sending.DailyLimit)
		summary.DailyLimitReached = true
		return summary, nil
	}

	// 3. New leads
	newLeads, err := uc.Leads.ListByStatus(ctx, entity.StatusNew)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "falha ao listar leads novos: " + err.Error(),
		}
	}

	for _, lead := range newLeads {
		if remaining <= 0 {
			summary.DailyLimitReached = true
			break
		}

		if Decide(lead, now) != ActionSendFirst {
			continue
		}

		if err := uc.processNewLead(ctx, lead, now); err != nil {
			log.Printf("❌ Falha ao processar lead novo %s: %v", lead.Email, err)
			continue
		}

		summary.NewSent++
		summary.SentToday++
		remaining--
		uc.jitter(ctx, remaining)
	}

	// 4. Follow-ups
	dueLeads, err := uc.Leads.ListDueFollowups(ctx, now)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "falha ao listar follow-ups devidos: " + err.Error(),
		}
	}

	for _, lead := range dueLeads {
		if remaining <= 0 {
			summary.DailyLimitReached = true
			break
		}

		// The due query and the policy agree on eligibility; the policy
		// wins when the snapshot says otherwise (e.g. schedule wiped).
		if action := Decide(lead, now); action != ActionSendFollowup && action != ActionComplete {
			continue
		}

		sent, err := uc.processFollowup(ctx, lead, now)
		if err != nil {
			log.Printf("❌ Falha no follow-up de %s: %v", lead.Email, err)
			continue
		}
		if !sent {
			continue
		}

		summary.FollowupsSent++
		summary.SentToday++
		remaining--
		uc.jitter(ctx, remaining)
	}

	return summary, nil
}

// sweepReplies checks every active lead's thread for a reply. The
// heuristic is count-based: strictly more messages in the thread than
// steps we sent means the counterpart wrote back. It is deliberately not
// direction-aware, to keep parity with the thread-length contract.
func (uc *RunCycleUseCase) sweepReplies(ctx context.Context, now time.Time, summary *CycleSummary) error {
	active, err := uc.Leads.ListByStatus(ctx, entity.StatusActive)
	if err != nil {
		return &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "falha ao listar leads ativos: " + err.Error(),
		}
	}

	for _, lead := range active {
		if lead.ThreadID == "" {
			continue
		}

		callCtx, cancel := uc.callContext(ctx)
		messages, err := uc.Mailer.ListThread(callCtx, lead.ThreadID)
		cancel()
		if err != nil {
			// Transport failure on one thread must not abort the sweep.
			log.Printf("⚠️ Erro ao checar respostas de %s: %v", lead.Email, err)
			continue
		}

		if len(messages) <= lead.CurrentStep {
			continue
		}

		marked, err := uc.Leads.MarkReplied(ctx, lead.ID, now)
		if err != nil {
			log.Printf("⚠️ Erro ao marcar resposta de %s: %v", lead.Email, err)
			continue
		}
		if !marked {
			// Already terminal; re-detection is a no-op.
			continue
		}

		log.Printf("💬 Resposta detectada: %s", lead.Email)
		summary.Replied = append(summary.Replied, lead.Email)
		uc.publishEvent(ctx, queue.EventLeadReplied, lead, lead.CurrentStep)
	}

	return nil
}

// processNewLead enriches, composes and dispatches email 1, then records
// the transition new → active in a single store write.
func (uc *RunCycleUseCase) processNewLead(ctx context.Context, lead *entity.Lead, now time.Time) error {
	log.Printf("📧 Processando lead novo: %s", lead.Email)

	// Enrichment is best-effort: no posts is reduced personalization,
	// never a failed send.
	var posts []string
	if uc.Enricher != nil {
		callCtx, cancel := uc.callContext(ctx)
		fetched, err := uc.Enricher.Enrich(callCtx, lead)
		cancel()
		if err != nil {
			log.Printf("⚠️ Enriquecimento falhou para %s: %v", lead.Email, err)
		} else {
			posts = fetched
			if err := uc.Leads.UpdateEnrichment(ctx, lead.ID, posts, true, now); err != nil {
				log.Printf("⚠️ Erro ao salvar enriquecimento de %s: %v", lead.Email, err)
			}
		}
	}

	subject, body := uc.composeFirstEmail(ctx, lead, posts)

	callCtx, cancel := uc.callContext(ctx)
	threadID, messageID, err := uc.Mailer.SendNew(callCtx, lead.Email, subject, body)
	cancel()
	if err != nil {
		// Lead stays new; the next cycle retries.
		return fmt.Errorf("envio do email 1 falhou: %w", err)
	}

	send := SendRecord{
		Step:       1,
		Subject:    subject,
		Body:       body,
		ThreadID:   threadID,
		MessageID:  messageID,
		SentAt:     now,
		NextSendAt: NextSendAt(1, now, uc.Settings),
	}
	if err := uc.Leads.RecordSend(ctx, lead, send); err != nil {
		return fmt.Errorf("envio saiu mas a transição não persistiu: %w", err)
	}

	log.Printf("✅ Email 1 enviado para %s (thread %s)", lead.Email, threadID)
	uc.publishEvent(ctx, queue.EventEmailSent, lead, 1)
	return nil
}

// composeFirstEmail asks the generation collaborator for the
// personalized first email and falls back to the static template when it
// fails. Composition never aborts a send.
func (uc *RunCycleUseCase) composeFirstEmail(ctx context.Context, lead *entity.Lead, posts []string) (string, string) {
	if uc.Composer != nil {
		callCtx, cancel := uc.callContext(ctx)
		subject, body, err := uc.Composer.GenerateFirstEmail(callCtx, lead, posts)
		cancel()
		if err == nil {
			return subject, body
		}
		log.Printf("⚠️ Geração falhou para %s, usando fallback: %v", lead.Email, err)
	}
	return uc.fallbackFirstEmail(lead)
}

const fallbackSubject = "cold email but make it honest"
const fallbackOpener = "I'd make a clever joke about your LinkedIn but honestly " +
	"I'm just here to talk shop. No fake rapport, just a pitch."

func (uc *RunCycleUseCase) fallbackFirstEmail(lead *entity.Lead) (string, string) {
	company := lead.Company
	if company == "" {
		company = "your company"
	}

	body, err := uc.Templates.Render("email_1.md", map[string]string{
		"generated_subject":     fallbackSubject,
		"generated_joke_opener": fallbackOpener,
		"first_name":            lead.FirstName,
		"last_name":             lead.LastName,
		"company":               company,
	})
	if err != nil {
		// Last resort: a bare but valid email beats no send at all.
		return fallbackSubject, fallbackOpener
	}

	return ExtractSubject(body, fallbackSubject)
}

// processFollowup renders and dispatches the next step as a threaded
// reply. Returns false when the lead was closed without a send.
func (uc *RunCycleUseCase) processFollowup(ctx context.Context, lead *entity.Lead, now time.Time) (bool, error) {
	nextStep := lead.CurrentStep + 1

	if nextStep > entity.FinalStep {
		// The due query excludes step 3, so landing here means the
		// sequence is already finished; just close it.
		log.Printf("🏁 Sequência completa para %s", lead.Email)
		if err := uc.Leads.MarkCompleted(ctx, lead.ID, now); err != nil {
			return false, err
		}
		uc.publishEvent(ctx, queue.EventLeadCompleted, lead, lead.CurrentStep)
		return false, nil
	}

	if lead.ThreadID == "" || lead.LastMessageID == "" {
		// Programming-level invariant violation: active lead without a
		// thread. Leave it untouched.
		return false, fmt.Errorf("lead ativo sem thread (step %d)", lead.CurrentStep)
	}

	log.Printf("📨 Enviando follow-up %d para %s", nextStep, lead.Email)

	templateName := fmt.Sprintf("followup_%d.md", nextStep-1)
	rendered, err := uc.Templates.Render(templateName, map[string]string{
		"first_name":       lead.FirstName,
		"original_subject": lead.FirstSubject,
	})
	if err != nil {
		return false, fmt.Errorf("template %s: %w", templateName, err)
	}

	subject, body := ExtractSubject(rendered, "re: "+lead.FirstSubject)

	callCtx, cancel := uc.callContext(ctx)
	threadID, messageID, err := uc.Mailer.SendReply(callCtx, lead.Email, subject, body, lead.ThreadID, lead.LastMessageID)
	cancel()
	if err != nil {
		return false, fmt.Errorf("envio do follow-up falhou: %w", err)
	}

	send := SendRecord{
		Step:       nextStep,
		Subject:    subject,
		Body:       body,
		ThreadID:   threadID,
		MessageID:  messageID,
		SentAt:     now,
		NextSendAt: NextSendAt(nextStep, now, uc.Settings),
	}
	if err := uc.Leads.RecordSend(ctx, lead, send); err != nil {
		return false, fmt.Errorf("envio saiu mas a transição não persistiu: %w", err)
	}

	log.Printf("✅ Email %d enviado para %s", nextStep, lead.Email)
	uc.publishEvent(ctx, queue.EventEmailSent, lead, nextStep)
	if nextStep == entity.FinalStep {
		uc.publishEvent(ctx, queue.EventLeadCompleted, lead, nextStep)
	}

	return true, nil
}

// jitter sleeps a random duration inside [min, max] between sends so the
// transport never sees a burst. Skipped after the last allowed send and
// whenever the window is zero.
func (uc *RunCycleUseCase) jitter(ctx context.Context, remaining int) {
	if remaining <= 0 || uc.delayFn == nil {
		return
	}

	min := uc.Settings.MinDelay()
	max := uc.Settings.MaxDelay()
	if max <= 0 {
		return
	}

	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	uc.delayFn(ctx, d)
}

func (uc *RunCycleUseCase) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := uc.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (uc *RunCycleUseCase) publishEvent(ctx context.Context, eventType string, lead *entity.Lead, step int) {
	if uc.Events == nil {
		return
	}

	err := uc.Events.PublishLeadEvent(ctx, queue.LeadEvent{
		Type:   eventType,
		LeadID: lead.ID,
		Email:  lead.Email,
		Step:   step,
	})
	if err != nil {
		// Events are advisory; a broker hiccup never blocks the cycle.
		log.Printf("⚠️ Falha ao publicar evento %s de %s: %v", eventType, lead.Email, err)
	}
}

// ExtractSubject pulls a leading "Subject:" line out of a rendered
// template body, falling back to the provided subject.
func ExtractSubject(rendered, fallback string) (string, string) {
	body := strings.TrimSpace(rendered)
	lines := strings.SplitN(body, "\n", 2)

	if len(lines) > 0 && strings.HasPrefix(strings.ToLower(lines[0]), "subject:") {
		subject := strings.TrimSpace(lines[0][len("subject:"):])
		rest := ""
		if len(lines) == 2 {
			rest = strings.TrimSpace(lines[1])
		}
		return subject, rest
	}

	return fallback, body
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
