package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	dbpkg "github.com/smallbiznis/partnerdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newOutbox(t *testing.T) (*OutboxPublisher, *gorm.DB) {
	t.Helper()
	db, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&OutboxEvent{}))
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	return NewOutboxPublisher(db, node, clock.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))), db
}

func TestOutboxPublishAndMark(t *testing.T) {
	pub, db := newOutbox(t)
	ctx := context.Background()

	err := pub.Publish(ctx, db, Event{
		Topic:   TopicRequestCreated,
		OrgID:   snowflake.ID(5),
		Payload: map[string]string{"request_id": "9"},
	})
	require.NoError(t, err)

	pending, err := pub.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, TopicRequestCreated, pending[0].Topic)

	var env Envelope
	require.NoError(t, json.Unmarshal(pending[0].Payload, &env))
	assert.Equal(t, "5", env.OrgID)
	assert.JSONEq(t, `{"request_id":"9"}`, string(env.Data))

	require.NoError(t, pub.MarkPublished(ctx, []snowflake.ID{pending[0].ID}))
	pending, err = pub.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxPublishRollsBackWithTransaction(t *testing.T) {
	pub, db := newOutbox(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := pub.Publish(ctx, tx, Event{Topic: TopicRequestCreated, OrgID: 1}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int64
	require.NoError(t, db.Model(&OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOutboxRequiresTopic(t *testing.T) {
	pub, db := newOutbox(t)
	assert.ErrorIs(t, pub.Publish(context.Background(), db, Event{}), ErrMissingTopic)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "partnerdesk.request.created", subject("partnerdesk", TopicRequestCreated))
	assert.Equal(t, "partnerdesk.request.created", subject(" partnerdesk. ", TopicRequestCreated))
	assert.Equal(t, TopicRequestCreated, subject("", TopicRequestCreated))
}

func TestNATSPublisherConnectFailure(t *testing.T) {
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	_, err = NewNATSPublisher("nats://127.0.0.1:1", "partnerdesk", node, clock.SystemClock{})
	assert.Error(t, err)

	var nilPub *NATSPublisher
	assert.Error(t, nilPub.Publish(context.Background(), nil, Event{Topic: "x"}))
	nilPub.Close()
}
