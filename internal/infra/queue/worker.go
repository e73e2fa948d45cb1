package queue

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LeadImportPayload chega em q.lead-imports vindo de pipelines de
// descoberta externos (discovery agent, CRM export, etc).
type LeadImportPayload struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name,omitempty"`
	Company     string `json:"company,omitempty"`
	Title       string `json:"title,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// LeadImporter define o contrato que o worker usa para ingerir leads.
// Implementado em cima do use case de import; duplicatas não são erro.
type LeadImporter interface {
	Import(ctx context.Context, payload LeadImportPayload) error
}

type Worker struct {
	Channel  *amqp.Channel
	Importer LeadImporter
}

func NewWorker(ch *amqp.Channel, importer LeadImporter) *Worker {
	return &Worker{
		Channel:  ch,
		Importer: importer,
	}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName, // fila
		"",        // consumer
		false,     // auto-ack (manual é mais seguro)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		log.Fatalf("❌ Falha ao registrar consumidor RabbitMQ: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var payload LeadImportPayload
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				log.Printf("❌ [WORKER] JSON inválido: %s", err)
				// Mensagem podre (malformada). Rejeita sem requeue; a DLQ segura.
				d.Nack(false, false)
				continue
			}

			log.Printf("📥 [WORKER] Import recebido: %s", payload.Email)

			if err := w.Importer.Import(context.Background(), payload); err != nil {
				log.Printf("❌ [WORKER] Erro ao importar %s: %s", payload.Email, err)
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
	}()

	log.Printf(" [*] Worker de imports aguardando na fila '%s'", queueName)
	<-forever
}
