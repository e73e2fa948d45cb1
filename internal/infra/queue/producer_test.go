package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLeadEventPayloadKeys - consumidores externos dependem destas chaves
func TestLeadEventPayloadKeys(t *testing.T) {
	body, err := json.Marshal(LeadEvent{
		Type:   EventEmailSent,
		LeadID: "lead-123",
		Email:  "sarah@glossybrand.com",
		Step:   2,
	})
	assert.NoError(t, err)

	var data map[string]interface{}
	json.Unmarshal(body, &data)

	assert.Equal(t, "email.sent", data["type"])
	assert.Equal(t, "lead-123", data["lead_id"])
	assert.Equal(t, "sarah@glossybrand.com", data["email"])
	assert.Equal(t, float64(2), data["step"])
}

// TestLeadEventStepOmittedWhenZero - eventos de import não carregam step
func TestLeadEventStepOmittedWhenZero(t *testing.T) {
	body, _ := json.Marshal(LeadEvent{
		Type:   EventLeadImported,
		LeadID: "lead-123",
		Email:  "sarah@glossybrand.com",
	})

	var data map[string]interface{}
	json.Unmarshal(body, &data)

	assert.NotContains(t, data, "step")
}

func TestLeadImportPayloadRoundTrip(t *testing.T) {
	payload := LeadImportPayload{
		Email:     "sarah@glossybrand.com",
		FirstName: "Sarah",
		Company:   "Glossy Brand Inc",
	}

	body, err := json.Marshal(payload)
	assert.NoError(t, err)

	var received LeadImportPayload
	err = json.Unmarshal(body, &received)
	assert.NoError(t, err)
	assert.Equal(t, payload, received)
}
