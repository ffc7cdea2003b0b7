package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/dates"
	"github.com/yanizio/swregistry/internal/registry"
)

type fakeProducer struct {
	records []*kgo.Record
	fail    error
	flushed bool
	closed  bool
}

func (f *fakeProducer) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.records = append(f.records, r)
	promise(r, f.fail)
}

func (f *fakeProducer) Flush(context.Context) error {
	f.flushed = true
	return nil
}

func (f *fakeProducer) Close() { f.closed = true }

func transition(t *testing.T) *registry.Transition {
	t.Helper()
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	cfg := &config.Config{Registrar: config.Registrar{
		Timezone: "UTC", Status: "pending", License: "L3", Term: "30 days", Fullterm: "1 year",
		PendingTime: "hourly", RefreshTime: "daily",
	}}
	s, err := registry.NewSettings(cfg, nil, nil, now)
	require.NoError(t, err)
	return &registry.Transition{
		Action:  registry.ActionDeactivate,
		Context: "deactivated",
		Registration: &registry.Registration{
			Key: "k-1", Product: "acme_pro", Status: registry.Terminated, PriorStatus: registry.Active,
			Effective: dates.NewDay(2025, time.January, 1), Expires: dates.NewDay(2026, time.January, 1),
			Payamount: "99.00",
		},
		Settings: s,
		At:       now,
	}
}

func TestNewWithoutBrokers(t *testing.T) {
	p, err := New(config.Kafka{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPublish(t *testing.T) {
	f := &fakeProducer{}
	p := &Publisher{client: f, topic: DefaultTopic}

	p.OnAfterTransition(context.Background(), transition(t))
	require.Len(t, f.records, 1)

	rec := f.records[0]
	assert.Equal(t, DefaultTopic, rec.Topic)
	assert.Equal(t, "k-1", string(rec.Key))

	var ev Event
	require.NoError(t, json.Unmarshal(rec.Value, &ev))
	assert.Equal(t, "registration.deactivated", ev.Type)
	assert.Equal(t, "deactivate", ev.Action)
	assert.Equal(t, "terminated", ev.Status)
	assert.Equal(t, "active", ev.PriorStatus)
	assert.Equal(t, registry.SourceAPI, ev.Source)
	assert.NotContains(t, ev.Registration, "registry_payamount")
	assert.Equal(t, false, ev.Registration["registry_valid"])

	require.NoError(t, p.Close(context.Background()))
	assert.True(t, f.flushed)
	assert.True(t, f.closed)
}

func TestPublishFailureIsContained(t *testing.T) {
	f := &fakeProducer{fail: errors.New("broker down")}
	p := &Publisher{client: f, topic: "t"}
	assert.NotPanics(t, func() { p.OnAfterTransition(context.Background(), transition(t)) })
	assert.Len(t, f.records, 1)
}
