package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Tipos de evento publicados em q.lead-events.
const (
	EventLeadImported  = "lead.imported"
	EventEmailSent     = "email.sent"
	EventLeadReplied   = "lead.replied"
	EventLeadCompleted = "lead.completed"
)

// LeadEvent é o payload publicado a cada transição de ciclo de vida.
type LeadEvent struct {
	Type   string `json:"type"`
	LeadID string `json:"lead_id"`
	Email  string `json:"email"`
	Step   int    `json:"step,omitempty"`
}

type Producer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *Producer {
	return &Producer{
		Conn: conn,
		Ch:   ch,
	}
}

func (p *Producer) PublishLeadEvent(ctx context.Context, event LeadEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("erro ao converter evento: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		EventsKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}

	return nil
}
