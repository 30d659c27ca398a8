// Package events is a small pub/sub bus used to push upload progress to
// connected admin clients. Backed by valkey pub/sub when configured, so
// events reach clients connected to any server instance; otherwise events
// are dispatched in process.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"server/config"
	"server/internal/database"
	"server/internal/logger"

	"github.com/valkey-io/valkey-go"
)

// ChannelVoterUpload carries upload completion events for admin clients.
const ChannelVoterUpload = "voter_upload"

type Event struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Channel        string         `json:"channel,omitempty"`
	OrganizationID string         `json:"organizationId,omitempty"`
	ElectionID     string         `json:"electionId,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

type EventBus struct {
	client database.CacheClient
	log    logger.Logger

	mu       sync.RWMutex
	handlers map[string][]func(Event)

	cancel context.CancelFunc
	ctx    context.Context
}

func New(client database.CacheClient, config config.Config) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBus{
		client:   client,
		log:      logger.New("events"),
		handlers: make(map[string][]func(Event)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (b *EventBus) Publish(channel string, event Event) error {
	log := b.log.Function("Publish")

	if b.client == nil {
		b.dispatch(channel, event)
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "channel", channel)
	}

	if err := b.client.Do(b.ctx,
		b.client.B().Publish().Channel(channel).Message(string(payload)).Build()).Error(); err != nil {
		return log.Err("failed to publish event", err, "channel", channel)
	}

	return nil
}

// Subscribe registers a handler for a channel. Handlers run on the bus
// goroutine and must not block.
func (b *EventBus) Subscribe(channel string, handler func(Event)) {
	b.mu.Lock()
	registered := len(b.handlers[channel]) > 0
	b.handlers[channel] = append(b.handlers[channel], handler)
	b.mu.Unlock()

	if b.client == nil || registered {
		return
	}

	go b.receive(channel)
}

func (b *EventBus) receive(channel string) {
	log := b.log.Function("receive")

	err := b.client.Receive(b.ctx,
		b.client.B().Subscribe().Channel(channel).Build(),
		func(msg valkey.PubSubMessage) {
			var event Event
			if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
				log.Er("failed to unmarshal event", err, "channel", channel)
				return
			}
			b.dispatch(channel, event)
		})
	if err != nil && b.ctx.Err() == nil {
		log.Er("event subscription ended", err, "channel", channel)
	}
}

func (b *EventBus) dispatch(channel string, event Event) {
	b.mu.RLock()
	handlers := b.handlers[channel]
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (b *EventBus) Close() error {
	b.cancel()
	return nil
}
