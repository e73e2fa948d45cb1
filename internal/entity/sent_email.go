package entity

import "time"

// SentEmail is the append-only audit record of one outbound send.
// Rows are never updated; the daily quota is counted from this table.
type SentEmail struct {
	ID        int64     `json:"id"`
	LeadID    string    `json:"lead_id"`
	Step      int       `json:"step"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
}
