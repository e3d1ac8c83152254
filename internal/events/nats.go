package events

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/nats-io/nats.go"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"gorm.io/gorm"
)

// NATSPublisher publishes events to JetStream subjects "<prefix>.<topic>".
type NATSPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	prefix string
	genID  *snowflake.Node
	clock  clock.Clock
}

func NewNATSPublisher(url, prefix string, genID *snowflake.Node, clk clock.Clock, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &NATSPublisher{
		conn:   nc,
		js:     js,
		prefix: prefix,
		genID:  genID,
		clock:  clk,
	}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, _ *gorm.DB, evt Event) error {
	if p == nil || p.js == nil {
		return errors.New("nil nats publisher")
	}
	if strings.TrimSpace(evt.Topic) == "" {
		return ErrMissingTopic
	}

	env, raw, err := encode(p.genID.Generate(), p.clock.Now(), evt)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(subject(p.prefix, evt.Topic), raw, nats.Context(ctx), nats.MsgId(env.ID))
	return err
}

func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

func subject(prefix, topic string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return topic
	}
	return prefix + "." + topic
}
