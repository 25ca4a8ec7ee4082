// Package messaging publica los movimientos confirmados del kardex en Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	dominv "github.com/jhoicas/kardex-api/internal/domain/inventory"
)

var _ inventory.MovementPublisher = (*KafkaPublisher)(nil)

// MessageWriter subconjunto de *kafka.Writer que usa el publicador.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MovementEvent payload JSON de cada movimiento.
type MovementEvent struct {
	ID           string    `json:"id"`
	Seq          int64     `json:"seq"`
	ItemID       string    `json:"item_id"`
	LocationID   string    `json:"location_id"`
	Type         string    `json:"type"`
	Quantity     string    `json:"quantity"`
	BalanceAfter string    `json:"balance_after"`
	RefKind      string    `json:"reference_kind,omitempty"`
	RefID        string    `json:"reference_id,omitempty"`
	Comment      string    `json:"comment,omitempty"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewMovementEvent convierte un movimiento al evento publicado.
func NewMovementEvent(m *entity.Movement) MovementEvent {
	ev := MovementEvent{
		ID:           m.ID,
		Seq:          m.Seq,
		ItemID:       m.ItemID,
		LocationID:   m.LocationID,
		Type:         string(m.Type),
		Quantity:     m.Quantity.StringFixed(dominv.Scale),
		BalanceAfter: m.BalanceAfter.StringFixed(dominv.Scale),
		Comment:      m.Comment,
		UserID:       m.UserID,
		CreatedAt:    m.CreatedAt,
	}
	if m.Reference != nil {
		ev.RefKind = string(m.Reference.Kind)
		ev.RefID = m.Reference.ExternalID
	}
	return ev
}

// KafkaPublisher implementa inventory.MovementPublisher con segmentio/kafka-go.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaWriter construye el writer del tópico. La llave es item:ubicación y el balanceo por hash
// mantiene el orden de cada par dentro de su partición.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		RequiredAcks: kafka.RequireAll,
	}
}

// NewKafkaPublisher construye el publicador sobre un writer.
func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish envía un mensaje por movimiento en un solo lote.
func (p *KafkaPublisher) Publish(ctx context.Context, movements ...*entity.Movement) error {
	msgs := make([]kafka.Message, 0, len(movements))
	for _, m := range movements {
		payload, err := json.Marshal(NewMovementEvent(m))
		if err != nil {
			return fmt.Errorf("serializar movimiento %s: %w", m.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(m.ItemID + ":" + m.LocationID),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "movement_type", Value: []byte(m.Type)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: publicar %d movimientos: %w", len(msgs), err)
	}
	return nil
}

// Close libera el writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
