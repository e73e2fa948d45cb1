package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seedlane/outreach/internal/entity"
	"github.com/seedlane/outreach/internal/infra/queue"
)

type ImportLeadInput struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name,omitempty"`
	Company     string `json:"company,omitempty"`
	Title       string `json:"title,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

type ImportLeadOutput struct {
	ID      string `json:"id,omitempty"`
	Email   string `json:"email"`
	Skipped bool   `json:"skipped"`
}

// ImportLeadUseCase creates one NEW lead per unique email. Re-importing
// an existing email is reported as skipped, never as a failure.
type ImportLeadUseCase struct {
	Leads  LeadRepository
	Events EventPublisher
}

func NewImportLeadUseCase(leads LeadRepository, events EventPublisher) *ImportLeadUseCase {
	return &ImportLeadUseCase{Leads: leads, Events: events}
}

func (uc *ImportLeadUseCase) Execute(ctx context.Context, input ImportLeadInput) (*ImportLeadOutput, error) {
	validationErrors := ValidateImportLeadInput(input)
	if len(validationErrors) > 0 {
		errMsg := "validation failed: "
		for _, e := range validationErrors {
			errMsg += e.Field + " (" + e.Message + "), "
		}
		return nil, &DomainError{
			Code:    "VALIDATION_ERROR",
			Message: errMsg,
		}
	}

	now := time.Now().UTC()
	lead := &entity.Lead{
		ID:          uuid.New().String(),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Company:     strings.TrimSpace(input.Company),
		Title:       strings.TrimSpace(input.Title),
		LinkedInURL: strings.TrimSpace(input.LinkedInURL),
		Status:      entity.StatusNew,
		CurrentStep: 0,
		ImportedAt:  now,
		UpdatedAt:   now,
	}

	if err := uc.Leads.Create(ctx, lead); err != nil {
		if errors.Is(err, entity.ErrDuplicateLead) {
			log.Printf("↩️ Lead já importado: %s", lead.Email)
			return &ImportLeadOutput{Email: lead.Email, Skipped: true}, nil
		}
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "falha ao criar lead: " + err.Error(),
		}
	}

	log.Printf("🆕 Lead importado: %s", lead.Email)

	if uc.Events != nil {
		err := uc.Events.PublishLeadEvent(ctx, queue.LeadEvent{
			Type:   queue.EventLeadImported,
			LeadID: lead.ID,
			Email:  lead.Email,
		})
		if err != nil {
			log.Printf("⚠️ Falha ao publicar evento de import de %s: %v", lead.Email, err)
		}
	}

	return &ImportLeadOutput{ID: lead.ID, Email: lead.Email}, nil
}
