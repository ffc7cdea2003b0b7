// internal/events/publisher.go
//
// Lifecycle events on Kafka.
//
// Context
// -------
// Publisher is an extension Observer.  Every committed transition becomes
// one JSON record on `kafka.topic` (default "registry.lifecycle"), keyed
// by the registry key so a consumer sees one registration's history in
// order on a single partition.
//
// Production is asynchronous: Produce returns immediately and the promise
// logs and counts the outcome.  Close flushes what is buffered.
//
// Payload
// -------
//   {"type":"registration.activated","action":"activate","key":"…",
//    "product":"…","status":"active","priorStatus":"pending",
//    "source":"API","at":"2025-06-15T12:00:00Z","registration":{…public…}}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/metrics"
	"github.com/yanizio/swregistry/internal/registry"
)

// DefaultTopic is used when kafka.topic is empty.
const DefaultTopic = "registry.lifecycle"

// Event is the record value.
type Event struct {
	Type         string         `json:"type"`
	Action       string         `json:"action"`
	Key          string         `json:"key"`
	Product      string         `json:"product"`
	Status       string         `json:"status"`
	PriorStatus  string         `json:"priorStatus,omitempty"`
	Source       string         `json:"source"`
	At           time.Time      `json:"at"`
	Registration map[string]any `json:"registration"`
}

// producer is the slice of *kgo.Client the publisher needs.
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// Publisher produces lifecycle events.
type Publisher struct {
	client producer
	topic  string
}

// New connects to cfg.Brokers.  It returns (nil, nil) when no brokers are
// configured.
func New(cfg config.Kafka) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(50*time.Millisecond),
		kgo.RecordRetries(5),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Publisher{client: cl, topic: topic}, nil
}

// Name implements extension.Extension.
func (p *Publisher) Name() string { return "events" }

// OnAfterTransition implements extension.Observer.
func (p *Publisher) OnAfterTransition(ctx context.Context, t *registry.Transition) {
	r := t.Registration
	if r == nil || t.Settings == nil {
		return
	}
	value, err := json.Marshal(NewEvent(t))
	if err != nil {
		p.done(r.Key, err)
		return
	}
	rec := &kgo.Record{Topic: p.topic, Key: []byte(r.Key), Value: value}
	p.client.Produce(context.WithoutCancel(ctx), rec, func(rec *kgo.Record, err error) {
		p.done(string(rec.Key), err)
	})
}

// NewEvent builds the event for t.
func NewEvent(t *registry.Transition) Event {
	r := t.Registration
	resp := registry.BuildResponse(&registry.Result{
		Action:       t.Action,
		Context:      t.Context,
		Registration: r,
		Settings:     t.Settings,
		Request:      t.Request,
	}, nil)

	source := t.Request.Source
	if source == "" {
		source = registry.SourceAPI
	}
	return Event{
		Type:         "registration." + t.Context,
		Action:       string(t.Action),
		Key:          r.Key,
		Product:      r.Product,
		Status:       string(r.Status),
		PriorStatus:  string(r.PriorStatus),
		Source:       source,
		At:           t.At.UTC(),
		Registration: resp.Registration,
	}
}

func (p *Publisher) done(key string, err error) {
	if err != nil {
		metrics.Notifications.WithLabelValues("event", "failed").Inc()
		zap.S().Warnw("lifecycle event failed", "topic", p.topic, "key", key, "err", err)
		return
	}
	metrics.Notifications.WithLabelValues("event", "sent").Inc()
}

// Close flushes buffered records, then closes the client.
func (p *Publisher) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("kafka flush: %w", err)
	}
	return nil
}
