package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"relay-chat/pkg/logger"
)

const changesChannel = "relay:changes"

// envelope is the wire form of a change event on the redis channel. Origin
// carries the publishing node's id; redis echoes published messages back to
// every subscriber, so ingest drops envelopes the node itself sent.
type envelope struct {
	Origin     string          `json:"origin"`
	Collection string          `json:"collection"`
	Op         Op              `json:"op"`
	ID         string          `json:"id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// Decoder turns a serialized document back into its typed form.
type Decoder func(data []byte) (Doc, error)

// RedisBridge fans committed changes out to sibling nodes over redis
// Pub/Sub and ingests theirs into the local bus, so subscriptions on any
// node converge on the same log.
type RedisBridge struct {
	nodeID   string
	client   *goredis.Client
	bus      Bus
	decoders map[string]Decoder
	pubsub   *goredis.PubSub
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewRedisBridge(client *goredis.Client, bus Bus) *RedisBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBridge{
		nodeID:   uuid.New().String(),
		client:   client,
		bus:      bus,
		decoders: make(map[string]Decoder),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterDecoder installs the typed decoder for one collection. Events for
// collections without a decoder are dropped on ingest.
func (b *RedisBridge) RegisterDecoder(collection string, d Decoder) {
	b.decoders[collection] = d
}

// Start wires the bridge both ways: local commits are forwarded to redis,
// and the subscriber loop ingests remote ones.
func (b *RedisBridge) Start() error {
	b.bus.Subscribe(b.forward)
	b.pubsub = b.client.Subscribe(b.ctx, changesChannel)
	go b.listen()
	return nil
}

func (b *RedisBridge) Stop() {
	b.cancel()
	if b.pubsub != nil {
		_ = b.pubsub.Close()
	}
}

func (b *RedisBridge) forward(ev ChangeEvent) {
	if ev.Remote {
		return
	}
	env := envelope{Origin: b.nodeID, Collection: ev.Collection, Op: ev.Op, ID: ev.ID}
	if ev.Before != nil {
		env.Before, _ = json.Marshal(ev.Before)
	}
	if ev.After != nil {
		env.After, _ = json.Marshal(ev.After)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := b.client.Publish(b.ctx, changesChannel, data).Err(); err != nil {
		logger.GetGlobalLogger().Errorf("redis bridge publish: %s", err.Error())
	}
}

func (b *RedisBridge) listen() {
	ch := b.pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			b.ingest(env)
		}
	}
}

func (b *RedisBridge) ingest(env envelope) {
	if env.Origin == b.nodeID {
		return
	}
	decode, ok := b.decoders[env.Collection]
	if !ok {
		return
	}
	ev := ChangeEvent{Collection: env.Collection, Op: env.Op, ID: env.ID, Remote: true}
	if len(env.Before) > 0 {
		doc, err := decode(env.Before)
		if err != nil {
			return
		}
		ev.Before = doc
	}
	if len(env.After) > 0 {
		doc, err := decode(env.After)
		if err != nil {
			return
		}
		ev.After = doc
	}
	b.bus.Publish(ev)
}
