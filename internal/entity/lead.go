package entity

import (
	"time"
)

// Lead lifecycle statuses. A lead enters as NEW, becomes ACTIVE on the
// first send and ends in REPLIED or COMPLETED. Terminal statuses are
// never left.
const (
	StatusNew       = "new"
	StatusActive    = "active"
	StatusReplied   = "replied"
	StatusCompleted = "completed"
)

// FinalStep is the last email of the sequence. CurrentStep counts how
// many emails have gone out (0 = none yet).
const FinalStep = 3

type Lead struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name,omitempty"`
	Company     string `json:"company,omitempty"`
	Title       string `json:"title,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`

	// Enrichment cache
	LinkedInPosts      []string   `json:"linkedin_posts,omitempty"`
	EnrichedAt         *time.Time `json:"enriched_at,omitempty"`
	EnrichmentAttempts int        `json:"enrichment_attempts"`

	// Sequence state
	Status      string `json:"status"`
	CurrentStep int    `json:"current_step"`

	// Gmail threading
	ThreadID      string `json:"thread_id,omitempty"`
	LastMessageID string `json:"last_message_id,omitempty"`

	// Timing
	ImportedAt time.Time  `json:"imported_at"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`
	NextSendAt *time.Time `json:"next_send_at,omitempty"`
	RepliedAt  *time.Time `json:"replied_at,omitempty"`

	// First generated email, kept so follow-ups can thread on it
	// ("re: <original subject>").
	FirstSubject string `json:"first_subject,omitempty"`
	FirstBody    string `json:"first_body,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the lead can never be contacted again.
func (l *Lead) Terminal() bool {
	return l.Status == StatusReplied || l.Status == StatusCompleted
}
