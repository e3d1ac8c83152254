package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrMissingTopic = errors.New("event topic is required")

type OutboxEvent struct {
	ID          snowflake.ID   `gorm:"primaryKey"`
	OrgID       snowflake.ID   `gorm:"not null;index"`
	Topic       string         `gorm:"type:text;not null;index"`
	Payload     datatypes.JSON `gorm:"not null"`
	Published   bool           `gorm:"not null;index"`
	CreatedAt   time.Time      `gorm:"not null"`
	PublishedAt *time.Time
}

func (OutboxEvent) TableName() string { return "outbox_events" }

type OutboxPublisher struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutboxPublisher(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) *OutboxPublisher {
	return &OutboxPublisher{db: db, genID: genID, clock: clk}
}

func (p *OutboxPublisher) Publish(ctx context.Context, db *gorm.DB, evt Event) error {
	if strings.TrimSpace(evt.Topic) == "" {
		return ErrMissingTopic
	}
	if db == nil {
		db = p.db
	}

	now := p.clock.Now()
	id := p.genID.Generate()
	_, raw, err := encode(id, now, evt)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Create(&OutboxEvent{
		ID:        id,
		OrgID:     evt.OrgID,
		Topic:     evt.Topic,
		Payload:   datatypes.JSON(raw),
		CreatedAt: now,
	}).Error
}

// Pending returns unpublished events, oldest first.
func (p *OutboxPublisher) Pending(ctx context.Context, limit int) ([]OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []OutboxEvent
	err := p.db.WithContext(ctx).
		Where("published = ?", false).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (p *OutboxPublisher) MarkPublished(ctx context.Context, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	now := p.clock.Now()
	return p.db.WithContext(ctx).
		Model(&OutboxEvent{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"published": true, "published_at": now}).Error
}
