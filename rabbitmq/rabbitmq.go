package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// exchangeName is the topic exchange carrying event lifecycle messages
// (event.created, event.updated, event.deleted).
const exchangeName = "events"

type Producer struct {
	// Rabbitmq DSN
	connStr string

	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewProducer(connStr string) *Producer {
	return &Producer{
		connStr: connStr,
	}
}

func (p *Producer) Open() (err error) {
	// ensure a DSN is set before attempting to connect.
	if p.connStr == "" {
		return fmt.Errorf("connection string required")
	}

	if p.conn, err = amqp.Dial(p.connStr); err != nil {
		return err
	}

	if p.channel, err = p.conn.Channel(); err != nil {
		return err
	}

	// Declare the exchange up front so publishes never race consumers
	// binding their queues.
	if err = p.channel.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	return nil
}

func (p *Producer) Close() {
	p.channel.Close()
	p.conn.Close()
}

func (p *Producer) Publish(routingKey string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return p.channel.Publish(
		exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        jsonData,
		})
}
