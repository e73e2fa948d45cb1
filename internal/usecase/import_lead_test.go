package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/seedlane/outreach/internal/entity"
)

func TestImportLeadCreatesNewLead(t *testing.T) {
	ctx := context.Background()
	repo := new(MockLeadRepository)

	repo.On("Create", ctx, mock.MatchedBy(func(lead *entity.Lead) bool {
		return lead.Email == "sarah@glossybrand.com" &&
			lead.FirstName == "Sarah" &&
			lead.Status == entity.StatusNew &&
			lead.CurrentStep == 0 &&
			lead.ID != ""
	})).Return(nil)

	uc := NewImportLeadUseCase(repo, nil)

	output, err := uc.Execute(ctx, ImportLeadInput{
		Email:     "  Sarah@GlossyBrand.com ",
		FirstName: "Sarah",
		Company:   "Glossy Brand Inc",
	})

	assert.NoError(t, err)
	assert.False(t, output.Skipped)
	assert.Equal(t, "sarah@glossybrand.com", output.Email)
	assert.NotEmpty(t, output.ID)
	repo.AssertExpectations(t)
}

func TestImportLeadDuplicateIsSkippedNotFailed(t *testing.T) {
	ctx := context.Background()
	repo := new(MockLeadRepository)

	repo.On("Create", ctx, mock.Anything).Return(entity.ErrDuplicateLead)

	uc := NewImportLeadUseCase(repo, nil)

	output, err := uc.Execute(ctx, ImportLeadInput{
		Email:     "sarah@glossybrand.com",
		FirstName: "Sarah",
	})

	assert.NoError(t, err)
	assert.True(t, output.Skipped)
	assert.Empty(t, output.ID)
}

func TestImportLeadDatabaseErrorIsTechnical(t *testing.T) {
	ctx := context.Background()
	repo := new(MockLeadRepository)

	repo.On("Create", ctx, mock.Anything).Return(errors.New("connection refused"))

	uc := NewImportLeadUseCase(repo, nil)

	output, err := uc.Execute(ctx, ImportLeadInput{
		Email:     "sarah@glossybrand.com",
		FirstName: "Sarah",
	})

	assert.Nil(t, output)
	var techErr *TechnicalError
	assert.ErrorAs(t, err, &techErr)
	assert.Equal(t, "DATABASE_ERROR", techErr.Code)
}

func TestImportLeadValidation(t *testing.T) {
	tests := []struct {
		name  string
		input ImportLeadInput
		field string
	}{
		{
			name:  "email obrigatório",
			input: ImportLeadInput{FirstName: "Sarah"},
			field: "email",
		},
		{
			name:  "email inválido",
			input: ImportLeadInput{Email: "not-an-email", FirstName: "Sarah"},
			field: "email",
		},
		{
			name:  "first_name obrigatório",
			input: ImportLeadInput{Email: "a@b.com"},
			field: "first_name",
		},
		{
			name: "linkedin_url fora do domínio",
			input: ImportLeadInput{
				Email:       "a@b.com",
				FirstName:   "Sarah",
				LinkedInURL: "https://twitter.com/sarah",
			},
			field: "linkedin_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateImportLeadInput(tt.input)
			assert.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "esperava erro no campo %s", tt.field)
		})
	}
}

func TestImportLeadValidInputPassesValidation(t *testing.T) {
	errs := ValidateImportLeadInput(ImportLeadInput{
		Email:       "sarah@glossybrand.com",
		FirstName:   "Sarah",
		LastName:    "Kim",
		Company:     "Glossy Brand Inc",
		Title:       "Head of Growth",
		LinkedInURL: "https://www.linkedin.com/in/sarahkim",
	})
	assert.Empty(t, errs)
}

func TestImportLeadInvalidInputRejectedBeforeStore(t *testing.T) {
	ctx := context.Background()
	repo := new(MockLeadRepository)

	uc := NewImportLeadUseCase(repo, nil)

	output, err := uc.Execute(ctx, ImportLeadInput{Email: "broken"})

	assert.Nil(t, output)
	var domainErr *DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	repo.AssertNotCalled(t, "Create", ctx, mock.Anything)
}
