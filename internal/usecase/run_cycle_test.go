package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/seedlane/outreach/internal/config"
	"github.com/seedlane/outreach/internal/entity"
	"github.com/seedlane/outreach/internal/infra/integration/gmail"
	"github.com/seedlane/outreach/internal/infra/queue"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListByStatus(ctx context.Context, status string) ([]*entity.Lead, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListDueFollowups(ctx context.Context, now time.Time) ([]*entity.Lead, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) MarkReplied(ctx context.Context, leadID string, now time.Time) (bool, error) {
	args := m.Called(ctx, leadID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadRepository) MarkCompleted(ctx context.Context, leadID string, now time.Time) error {
	args := m.Called(ctx, leadID, now)
	return args.Error(0)
}

func (m *MockLeadRepository) RecordSend(ctx context.Context, lead *entity.Lead, send SendRecord) error {
	args := m.Called(ctx, lead, send)
	return args.Error(0)
}

func (m *MockLeadRepository) UpdateEnrichment(ctx context.Context, leadID string, posts []string, ok bool, now time.Time) error {
	args := m.Called(ctx, leadID, posts, ok, now)
	return args.Error(0)
}

func (m *MockLeadRepository) CountSentToday(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockLeadRepository) PipelineStats(ctx context.Context, now time.Time) (*PipelineStats, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PipelineStats), args.Error(1)
}

// MockMailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendNew(ctx context.Context, to, subject, body string) (string, string, error) {
	args := m.Called(ctx, to, subject, body)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockMailer) SendReply(ctx context.Context, to, subject, body, threadID, lastMessageID string) (string, string, error) {
	args := m.Called(ctx, to, subject, body, threadID, lastMessageID)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockMailer) ListThread(ctx context.Context, threadID string) ([]gmail.ThreadMessage, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gmail.ThreadMessage), args.Error(1)
}

// MockComposer
type MockComposer struct {
	mock.Mock
}

func (m *MockComposer) GenerateFirstEmail(ctx context.Context, lead *entity.Lead, posts []string) (string, string, error) {
	args := m.Called(ctx, lead, posts)
	return args.String(0), args.String(1), args.Error(2)
}

// MockEnricher
type MockEnricher struct {
	mock.Mock
}

func (m *MockEnricher) Enrich(ctx context.Context, lead *entity.Lead) ([]string, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockTemplateStore
type MockTemplateStore struct {
	mock.Mock
}

func (m *MockTemplateStore) Render(name string, vars map[string]string) (string, error) {
	args := m.Called(name, vars)
	return args.String(0), args.Error(1)
}

// MockEventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishLeadEvent(ctx context.Context, event queue.LeadEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func cycleSettings() config.Settings {
	s := config.Default()
	s.Sending.DailyLimit = 50
	s.Sending.MinDelaySeconds = 0
	s.Sending.MaxDelaySeconds = 0 // sem jitter nos testes
	return s
}

func newTestCycle(repo *MockLeadRepository, mailer *MockMailer, composer *MockComposer,
	enricher *MockEnricher, store *MockTemplateStore) *RunCycleUseCase {
	uc := NewRunCycleUseCase(repo, mailer, composer, enricher, store, nil, cycleSettings())
	uc.delayFn = func(ctx context.Context, d time.Duration) {
		panic("jitter não deveria rodar nos testes")
	}
	return uc
}

func activeLead(email string, step int, nextSendAt *time.Time) *entity.Lead {
	return &entity.Lead{
		ID:            "lead-" + email,
		Email:         email,
		FirstName:     "Sarah",
		Status:        entity.StatusActive,
		CurrentStep:   step,
		ThreadID:      "thread-" + email,
		LastMessageID: "msg-" + email,
		FirstSubject:  "your linkedin is suspiciously clean",
		NextSendAt:    nextSendAt,
	}
}

func TestReplySweepMarksReplied(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	mailer := new(MockMailer)

	lead := activeLead("sarah@glossybrand.com", 1, nil)

	repo.On("ListByStatus", ctx, entity.StatusActive).Return([]*entity.Lead{lead}, nil)
	// 2 mensagens na thread > 1 enviada = resposta
	mailer.On("ListThread", mock.Anything, lead.ThreadID).
		Return([]gmail.ThreadMessage{{ID: "m1"}, {ID: "m2"}}, nil)
	repo.On("MarkReplied", ctx, lead.ID, now).Return(true, nil)
	repo.On("CountSentToday", ctx, now).Return(0, nil)
	repo.On("ListByStatus", ctx, entity.StatusNew).Return([]*entity.Lead{}, nil)
	repo.On("ListDueFollowups", ctx, now).Return([]*entity.Lead{}, nil)

	uc := newTestCycle(repo, mailer, new(MockComposer), new(MockEnricher), new(MockTemplateStore))

	summary, err := uc.Execute(ctx, now)

	assert.NoError(t, err)
	assert.Equal(t, []string{"sarah@glossybrand.com"}, summary.Replied)
	repo.AssertCalled(t, "MarkReplied", ctx, lead.ID, now)
}

func TestReplySweepIsIdempotentForAlreadyReplied(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	mailer := new(MockMailer)

	lead := activeLead("dup@x.com", 1, nil)

	repo.On("ListByStatus", ctx, entity.StatusActive).Return([]*entity.Lead{lead}, nil)
	mailer.On("ListThread", mock.Anything, lead.ThreadID).
		Return([]gmail.ThreadMessage{{ID: "m1"}, {ID: "m2"}}, nil)
	// Outra run já marcou: a transição guardada não afeta linhas.
	repo.On("MarkReplied", ctx, lead.ID, now).Return(false, nil)
	repo.On("CountSentToday", ctx, now).Return(0, nil)
	repo.On("ListByStatus", ctx, entity.StatusNew).Return([]*entity.Lead{}, nil)
	repo.On("ListDueFollowups", ctx, now).Return([]*entity.Lead{}, nil)

	uc := newTestCycle(repo, mailer, new(MockComposer), new(MockEnricher), new(MockTemplateStore))

	summary, err := uc.Execute(ctx, now)

	assert.NoError(t, err)
	assert.Empty(t, summary.Replied)
}

func TestReplySweepTransportErrorIsIsolated(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	mailer := new(MockMailer)

	broken := activeLead("broken@x.com", 1, nil)
	fine := activeLead("fine@x.com", 1, nil)

	repo.On("ListByStatus", ctx, entity.StatusActive).Return([]*entity.Lead{broken, fine}, nil)
	mailer.On("ListThread", mock.Anything, broken.ThreadID).
		Return(nil, errors.New("timeout"))
	mailer.On("ListThread", mock.Anything, fine.ThreadID).
		Return([]gmail.ThreadMessage{{ID: "m1"}, {ID: "m2"}}, nil)
	repo.On("MarkReplied", ctx, fine.ID, now).Return(true, nil)
	repo.On("CountSentToday", ctx, now).Return(0, nil)
	repo.On("ListByStatus", ctx, entity.StatusNew).Return([]*entity.Lead{}, nil)
	repo.On("ListDueFollowups", ctx, now).Return([]*entity.Lead{}, nil)

	uc := newTestCycle(repo, mailer, new(MockComposer), new(MockEnricher), new(MockTemplateStore))

	summary, err := uc.Execute(ctx, now)

	assert.NoError(t, err)
	assert.Equal(t, []string{"fine@x.com"}, summary.Replied)
	repo.AssertNotCalled(t, "MarkReplied", ctx, broken.ID, now)
}

func TestQuotaExhaustedStopsSendsButSweepStillRuns(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	mailer := new(MockMailer)

	lead := activeLead("replied@x.com", 1, nil)

	repo.On("ListByStatus", ctx, entity.StatusActive).Return([]*entity.Lead{lead}, nil)
	mailer.On("ListThread", mock.Anything, lead.ThreadID).
		Return([]gmail.ThreadMessage{{ID: "m1"}, {ID: "m2"}}, nil)
	repo.On("MarkReplied", ctx, lead.ID, now).Return(true, nil)
	repo.On("CountSentToday", ctx, now).Return(50, nil) // limite = 50

	uc := newTestCycle(repo, mailer, new(MockComposer), new(MockEnricher), new(MockTemplateStore))

	summary, err := uc.Execute(ctx, now)

	assert.NoError(t, err)
	assert.True(t, summary.DailyLimitReached)
	assert.Equal(t, 50, summary.SentToday)
	assert.Equal(t, []string{"replied@x.com"}, summary.Replied)
	// Nenhuma listagem de candidatos a envio deve acontecer.
	repo.AssertNotCalled(t, "ListByStatus", ctx, entity.StatusNew)
	repo.AssertNotCalled(t, "ListDueFollowups", ctx, now)
}

func TestNewLeadDispatchTransitionsToActive(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	mailer := new(MockMailer)
	composer := new(MockComposer)
	enricher := new(MockEnricher)

	lead := &entity.Lead{
		ID:        "lead-1",
		Email:     "a@x.com",
		FirstName: "Ana",
		Status:    entity.StatusNew,
	}

	repo.On("ListByStatus", ctx, entity.StatusActive).Return([]*entity.Lead{}, nil)
	repo.On("CountSentToday", ctx, now).Return(0, nil)
	repo.On("ListByStatus", ctx, entity.StatusNew).Return([]*entity.Lead{lead}, nil)
	repo.On("ListDueFollowups", ctx, now).Return([]*entity.Lead{}, nil)

	enricher.On("Enrich", mock.Anything, lead).Return([]string{"post sobre marketing"}, nil)
	repo.On("UpdateEnrichment", ctx, lead.ID, []string{"post sobre marketing"}, true, now).Return(nil)
	composer.On("GenerateFirstEmail", mock.Anything, lead, []string{"post sobre marketing"}).
		Return("lowercase subject", "personalized body", nil)
	mailer.On("SendNew", mock.Anything, "a@x.com", "lowercase subject", "personalized body").
		Return("thread-1", "msg-1", nil)

	expectedNext := now.Add(3 * 24 * time.Hour)
	repo.On("RecordSend", ctx, lead, mock.MatchedBy(func(send SendRecord) bool {
		return send.Step == 1 &&
			send.ThreadID == "thread-1" &&
			send.MessageID == "msg-1" &&
			send.Subject == "lowercase subject" &&
			send.NextSendAt != nil && send.NextSendAt.Equal(expectedNext)
	})).Return(nil)

	uc := newTestCycle(repo, mailer, composer, enricher, new(MockTemplateStore))

	summary, err := uc.Execute(ctx, now)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.NewSent)
	assert.Equal(t, 1, summary.SentToday)
	assert.False(t, summary.DailyLimitReached)
}

func TestNewLeadComposerFailureFallsBackToTemplate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	mailer := new(MockMailer)
	composer := new(MockComposer)
	enricher := new(MockEnricher)
	store := new(MockTemplateStore)

	lead := &entity.Lead{ID: "lead-1", Email: "a@x.com", FirstName: "Ana", Status: entity.StatusNew}

	repo.On("ListByStatus", ctx, entity.StatusActive).Return([]*entity.Lead{}, nil)
	repo.On("CountSentToday", ctx, now).Return(0, nil)
	repo.On("ListByStatus", ctx, entity.StatusNew).Return([]*entity.Lead{lead}, nil)
	repo.On("ListDueFollowups", ctx, now).Return([]*entity.Lead{}, nil)

	enricher.On("Enrich", mock.Anything, lead).Return(nil, errors.New("scraper fora do ar"))
	composer.On("GenerateFirstEmail", mock.Anything, lead, []string(nil)).
		Return("", "", errors.New("api indisponível"))
	store.On("Render", "email_1.md", mock.Anything).
		Return("Subject: cold email but make it honest\n\nfallback body", nil)
	mailer.On("SendNew", mock.Anything, "a@x.com", "cold email but make it honest", "fallback body").
		Return("thread-1", "msg-1", nil)
	repo.On("RecordSend", ctx, lead, mock.Anything).Return(nil)

	uc := newTestCycle(repo, mailer, composer, enricher, store)

	summary, err := uc.Execute(ctx, now)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.NewSent)
	mailer.AssertExpectations(t)
}

func TestNewLeadDispatchFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	mailer := new(MockMailer)
	composer := new(MockComposer)
	enricher := new(MockEnricher)

	bad := &entity.Lead{ID: "lead-bad", Email: "bad@x.com", FirstName: "B", Status: entity.StatusNew}
	good := &entity.Lead{ID: "lead-good", Email: "good@x.com", FirstName: "G", Status: entity.StatusNew}

	repo.On("ListByStatus", ctx, entity.StatusActive).Return([]*entity.Lead{}, nil)
	repo.On("CountSentToday", ctx, now).Return(0, nil)
	repo.On("ListByStatus", ctx, entity.StatusNew).Return([]*entity.Lead{bad, good}, nil)
	repo.On("ListDueFollowups", ctx, now).Return([]*entity.Lead{}, nil)

	enricher.On("Enrich", mock.Anything, mock.Anything).Return([]string{}, nil)
	repo.On("UpdateEnrichment", ctx, mock.Anything, []string{}, true, now).Return(nil)
	composer.On("GenerateFirstEmail", mock.Anything, mock.Anything, []string{}).
		Return("subject", "body", nil)

	mailer.On("SendNew", mock.Anything, "bad@x.com", "subject", "body").
		Return("", "", errors.New("550 rejected"))
	mailer.On("SendNew", mock.Anything, "good@x.com", "subject", "body").
		Return("thread-2", "msg-2", nil)
	repo.On("RecordSend", ctx, good, mock.Anything).Return(nil)

	uc := newTestCycle(repo, mailer, composer, enricher, new(MockTemplateStore))

	summary, err := uc.Execute(ctx, now)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.NewSent)
	// O lead com falha fica em new: nenhuma transição gravada.
	repo.AssertNotCalled(t, "RecordSend", ctx, bad, mock.Anything)
}

// Propriedade: total de envios numa run <= limite - enviados_no_início,
// não importa quantos candidatos existam.
func TestQuotaMonotonicity(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	mailer := new(MockMailer)
	composer := new(MockComposer)
	enricher := new(MockEnricher)

	leads := []*entity.Lead{
		{ID: "l1", Email: "l1@x.com", FirstName: "A", Status: entity.StatusNew},
		{ID: "l2", Email: "l2@x.com", FirstName: "B", Status: entity.StatusNew},
		{ID: "l3", Email: "l3@x.com", FirstName: "C", Status: entity.StatusNew},
	}

	repo.On("ListByStatus", ctx, entity.StatusActive).Return([]*entity.Lead{}, nil)
	repo.On("CountSentToday", ctx, now).Return(4, nil) // limite 5, resta 1
	repo.On("ListByStatus", ctx, entity.StatusNew).Return(leads, nil)
	repo.On("ListDueFollowups", ctx, now).Return([]*entity.Lead{}, nil)

	enricher.On("Enrich", mock.Anything, mock.Anything).Return([]string{}, nil)
	repo.On("UpdateEnrichment", ctx, mock.Anything, []string{}, true, now).Return(nil)
	composer.On("GenerateFirstEmail", mock.Anything, mock.Anything, []string{}).
		Return("s", "b", nil)
	mailer.On("SendNew", mock.Anything, mock.Anything, "s", "b").
		Return("t", "m", nil)
	repo.On("RecordSend", ctx, mock.Anything, mock.Anything).Return(nil)

	uc := newTestCycle(repo, mailer, composer, enricher, new(MockTemplateStore))
	uc.Settings.Sending.DailyLimit = 5

	summary, err := uc.Execute(ctx, now)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.NewSent)
	assert.True(t, summary.DailyLimitReached)
	mailer.AssertNumberOfCalls(t, "SendNew", 1)
}

func TestFollowupAdvancesStepAndReschedules(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	mailer := new(MockMailer)
	store := new(MockTemplateStore)

	due := now.Add(-time.Minute)
	lead := activeLead("due@x.com", 1, &due)

	repo.On("ListByStatus", ctx, entity.StatusActive).Return([]*entity.Lead{lead}, nil)
	mailer.On("ListThread", mock.Anything, lead.ThreadID).
		Return([]gmail.ThreadMessage{{ID: "m1"}}, nil) // sem resposta
	repo.On("CountSentToday", ctx, now).Return(0, nil)
	repo.On("ListByStatus", ctx, entity.StatusNew).Return([]*entity.Lead{}, nil)
	repo.On("ListDueFollowups", ctx, now).Return([]*entity.Lead{lead}, nil)

	store.On("Render", "followup_1.md", map[string]string{
		"first_name":       "Sarah",
		"original_subject": "your linkedin is suspiciously clean",
	}).Return("bump body", nil)

	mailer.On("SendReply", mock.Anything, "due@x.com",
		"re: your linkedin is suspiciously clean", "bump body",
		lead.ThreadID, lead.LastMessageID).
		Return(lead.ThreadID, "msg-2", nil)

	expectedNext := now.Add(4 * 24 * time.Hour)
	repo.On("RecordSend", ctx, lead, mock.MatchedBy(func(send SendRecord) bool {
		return send.Step == 2 &&
			send.NextSendAt != nil && send.NextSendAt.Equal(expectedNext)
	})).Return(nil)

	uc := newTestCycle(repo, mailer, new(MockComposer), new(MockEnricher), store)

	summary, err := uc.Execute(ctx, now)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.FollowupsSent)
}

func TestFinalFollowupClosesSequence(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	mailer := new(MockMailer)
	store := new(MockTemplateStore)

	due := now.Add(-time.Hour)
	lead := activeLead("last@x.com", 2, &due)

	repo.On("ListByStatus", ctx, entity.StatusActive).Return([]*entity.Lead{}, nil)
	repo.On("CountSentToday", ctx, now).Return(0, nil)
	repo.On("ListByStatus", ctx, entity.StatusNew).Return([]*entity.Lead{}, nil)
	repo.On("ListDueFollowups", ctx, now).Return([]*entity.Lead{lead}, nil)

	store.On("Render", "followup_2.md", mock.Anything).
		Return("Subject: re: custom\n\nclosing body", nil)
	mailer.On("SendReply", mock.Anything, "last@x.com", "re: custom", "closing body",
		lead.ThreadID, lead.LastMessageID).
		Return(lead.ThreadID, "msg-3", nil)

	// Passo final: status vira completed e next_send_at zera.
	repo.On("RecordSend", ctx, lead, mock.MatchedBy(func(send SendRecord) bool {
		return send.Step == entity.FinalStep && send.NextSendAt == nil
	})).Return(nil)

	uc := newTestCycle(repo, mailer, new(MockComposer), new(MockEnricher), store)

	summary, err := uc.Execute(ctx, now)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.FollowupsSent)
	repo.AssertExpectations(t)
}

func TestFollowupWithoutThreadIsSkipped(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	repo := new(MockLeadRepository)
	mailer := new(MockMailer)

	due := now.Add(-time.Hour)
	lead := activeLead("corrupt@x.com", 1, &due)
	lead.ThreadID = ""

	repo.On("ListByStatus", ctx, entity.StatusActive).Return([]*entity.Lead{}, nil)
	repo.On("CountSentToday", ctx, now).Return(0, nil)
	repo.On("ListByStatus", ctx, entity.StatusNew).Return([]*entity.Lead{}, nil)
	repo.On("ListDueFollowups", ctx, now).Return([]*entity.Lead{lead}, nil)

	uc := newTestCycle(repo, mailer, new(MockComposer), new(MockEnricher), new(MockTemplateStore))

	summary, err := uc.Execute(ctx, now)

	assert.NoError(t, err)
	assert.Equal(t, 0, summary.FollowupsSent)
	mailer.AssertNotCalled(t, "SendReply", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything)
}

func TestExtractSubject(t *testing.T) {
	subject, body := ExtractSubject("Subject: hello there\n\nactual body", "fallback")
	assert.Equal(t, "hello there", subject)
	assert.Equal(t, "actual body", body)

	subject, body = ExtractSubject("no subject line here", "re: original")
	assert.Equal(t, "re: original", subject)
	assert.Equal(t, "no subject line here", body)
}
