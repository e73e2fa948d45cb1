package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.outreach"
	DLXName      = "ex.outreach.dlx"

	// Eventos de ciclo de vida (fan-out para consumidores externos:
	// CRM, analytics, etc).
	EventsQueueName = "q.lead-events"
	EventsKey       = "k.lead-event"

	// Ingestão de leads via fila (caminho alternativo ao import HTTP).
	ImportsQueueName = "q.lead-imports"
	ImportsDLQName   = "q.lead-imports.dlq"
	ImportsKey       = "k.lead-import"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(user, pass, host, port string) (*RabbitMQ, error) {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)

	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir canal: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		return nil, err
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func setupTopology(ch *amqp.Channel) error {
	// DLX primeiro: imports malformados caem aqui em vez de travar a fila.
	err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil)
	if err != nil {
		return err
	}

	_, err = ch.QueueDeclare(ImportsDLQName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	err = ch.QueueBind(ImportsDLQName, ImportsKey, DLXName, false, nil)
	if err != nil {
		return err
	}

	err = ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil)
	if err != nil {
		return err
	}

	_, err = ch.QueueDeclare(EventsQueueName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	err = ch.QueueBind(EventsQueueName, EventsKey, ExchangeName, false, nil)
	if err != nil {
		return err
	}

	importArgs := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": ImportsKey,
	}

	_, err = ch.QueueDeclare(ImportsQueueName, true, false, false, false, importArgs)
	if err != nil {
		return err
	}

	return ch.QueueBind(ImportsQueueName, ImportsKey, ExchangeName, false, nil)
}
