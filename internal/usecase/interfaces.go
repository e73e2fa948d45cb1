package usecase

import (
	"context"
	"time"

	"github.com/seedlane/outreach/internal/entity"
	"github.com/seedlane/outreach/internal/infra/integration/gmail"
	"github.com/seedlane/outreach/internal/infra/queue"
)

// LeadRepository is the single source of truth for scheduling decisions.
// Every query that depends on "today" takes now explicitly so tests can
// simulate elapsed time.
type LeadRepository interface {
	Create(ctx context.Context, lead *entity.Lead) error
	FindByEmail(ctx context.Context, email string) (*entity.Lead, error)
	FindByID(ctx context.Context, id string) (*entity.Lead, error)

	// ListByStatus returns leads in stable import order.
	ListByStatus(ctx context.Context, status string) ([]*entity.Lead, error)

	// ListDueFollowups returns active leads with next_send_at <= now and
	// current_step < 3, ordered by next_send_at.
	ListDueFollowups(ctx context.Context, now time.Time) ([]*entity.Lead, error)

	// MarkReplied transitions an active lead to replied. Returns false
	// when the lead was not active anymore (already replied/completed),
	// which callers treat as a no-op.
	MarkReplied(ctx context.Context, leadID string, now time.Time) (bool, error)

	// MarkCompleted closes the sequence and clears next_send_at.
	MarkCompleted(ctx context.Context, leadID string, now time.Time) error

	// RecordSend applies the post-send state transition and appends the
	// audit row in one transaction. The write is guarded by the lead's
	// current (status, current_step) so an overlapping run fails with
	// entity.ErrLeadConflict instead of double-sending.
	RecordSend(ctx context.Context, lead *entity.Lead, send SendRecord) error

	UpdateEnrichment(ctx context.Context, leadID string, posts []string, ok bool, now time.Time) error

	CountSentToday(ctx context.Context, now time.Time) (int, error)

	PipelineStats(ctx context.Context, now time.Time) (*PipelineStats, error)
}

// SendRecord carries the outcome of one dispatch into the store.
type SendRecord struct {
	Step       int
	Subject    string
	Body       string
	ThreadID   string
	MessageID  string
	SentAt     time.Time
	NextSendAt *time.Time
}

// Mailer is the message dispatch port. Backed by the Gmail integration
// client in production.
type Mailer interface {
	SendNew(ctx context.Context, to, subject, body string) (threadID, messageID string, err error)
	SendReply(ctx context.Context, to, subject, body, threadID, lastMessageID string) (newThreadID, messageID string, err error)
	ListThread(ctx context.Context, threadID string) ([]gmail.ThreadMessage, error)
}

// Composer generates the first personalized email. Errors never abort a
// send: the orchestrator falls back to the static template.
type Composer interface {
	GenerateFirstEmail(ctx context.Context, lead *entity.Lead, posts []string) (subject, body string, err error)
}

// Enricher fetches recent LinkedIn posts for a lead. Missing data
// degrades to an empty slice, not an error.
type Enricher interface {
	Enrich(ctx context.Context, lead *entity.Lead) ([]string, error)
}

// TemplateRenderer renders named templates with a closed variable map.
// Unresolved placeholders render as empty strings.
type TemplateRenderer interface {
	Render(name string, vars map[string]string) (string, error)
}

// EventPublisher emits lead lifecycle events for downstream consumers.
type EventPublisher interface {
	PublishLeadEvent(ctx context.Context, event queue.LeadEvent) error
}
