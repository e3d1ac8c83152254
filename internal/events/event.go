// Package events publishes domain events either to a transactional outbox
// table or to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const TopicRequestCreated = "request.created"

type Event struct {
	Topic   string
	OrgID   snowflake.ID
	Payload any
}

// Envelope is the serialized form of an Event.
type Envelope struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	OrgID      string          `json:"org_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type Publisher interface {
	// Publish records evt. db is the caller's transaction; publishers that
	// write to the database must use it so the event commits with the caller.
	Publish(ctx context.Context, db *gorm.DB, evt Event) error
}

func encode(id snowflake.ID, now time.Time, evt Event) (Envelope, []byte, error) {
	data, err := json.Marshal(evt.Payload)
	if err != nil {
		return Envelope{}, nil, err
	}
	env := Envelope{
		ID:         id.String(),
		Topic:      evt.Topic,
		OrgID:      evt.OrgID.String(),
		OccurredAt: now,
		Data:       data,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, nil, err
	}
	return env, raw, nil
}
