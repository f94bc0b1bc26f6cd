// Package events publishes directory changes to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"phonebook/internal/directory/models"
	"phonebook/internal/platform/kafka/producer"
)

// EventContactAdded is the event type header value for new contacts.
const EventContactAdded = "contact.added"

// ContactAddedEvent is the wire payload. The phone number is withheld; the
// stream only announces that a name became searchable.
type ContactAddedEvent struct {
	ID        int64     `json:"id"`
	LastName  string    `json:"last_name"`
	FirstName string    `json:"first_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Producer is the subset of the Kafka producer used here.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaPublisher writes contact events to one topic keyed by contact id, so
// every event for a contact lands on the same partition.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

// NewKafkaPublisher returns a publisher writing to topic.
func NewKafkaPublisher(p Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

// ContactAdded publishes a contact.added event.
func (p *KafkaPublisher) ContactAdded(ctx context.Context, contact *models.Contact) error {
	payload, err := json.Marshal(ContactAddedEvent{
		ID:        contact.ID,
		LastName:  contact.LastName,
		FirstName: contact.FirstName,
		CreatedAt: contact.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal contact event: %w", err)
	}

	err = p.producer.Produce(ctx, &producer.Message{
		Topic: p.topic,
		Key:   []byte(strconv.FormatInt(contact.ID, 10)),
		Value: payload,
		Headers: map[string]string{
			"event_type": EventContactAdded,
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", EventContactAdded, err)
	}
	return nil
}

// NoopPublisher discards events. Used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) ContactAdded(context.Context, *models.Contact) error { return nil }
