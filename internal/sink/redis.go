// Package sink ships simulation output to places other than the terminal:
// a Redis channel while a run is live, and JSON / TOML / SQLite files afterwards.
package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/internal/core/logger"
	"github.com/f9-o/inspiral/pkg/errs"
)

// DefaultChannel is the Redis channel frames are published on.
const DefaultChannel = "inspiral.frame"

// Message kinds published on the channel.
const (
	KindFrame = "frame"
	KindDone  = "done"
)

// Message is the JSON payload published for every frame and once at the end of a run.
type Message struct {
	Kind  string        `json:"kind"`
	RunID string        `json:"run_id"`
	Frame *v1.Frame     `json:"frame,omitempty"`
	Run   *v1.RunRecord `json:"run,omitempty"`
}

// Publisher is the subset of *redis.Client the RedisPublisher needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes frames to a Redis channel so remote viewers can
// render the binary. It implements render.FrameObserver and render.RunObserver.
type RedisPublisher struct {
	client  Publisher
	closer  func() error
	channel string
	runID   string
}

// DialRedis connects to addr, pings it, and returns a publisher for runID.
func DialRedis(ctx context.Context, addr, channel, runID string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errs.Wrap(err, errs.ErrSinkRedis, "sink.redis.ping").
			WithResource(addr).
			WithAdvice("start redis or set redis.enabled: false")
	}
	p := NewRedisPublisher(client, channel, runID)
	p.closer = client.Close
	return p, nil
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client Publisher, channel, runID string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel, runID: runID}
}

func (p *RedisPublisher) ObserveFrame(ctx context.Context, f v1.Frame) error {
	return p.publish(ctx, Message{Kind: KindFrame, RunID: p.runID, Frame: &f})
}

func (p *RedisPublisher) RunFinished(ctx context.Context, rec v1.RunRecord) error {
	return p.publish(ctx, Message{Kind: KindDone, RunID: p.runID, Run: &rec})
}

func (p *RedisPublisher) publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errs.Wrap(err, errs.ErrInternal, "sink.redis.marshal")
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return errs.Wrap(err, errs.ErrSinkRedis, "sink.redis.publish").WithResource(p.channel)
	}
	return nil
}

// Close releases the connection when the publisher dialed it.
func (p *RedisPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// ─────────────────────────────────────────────────────────────────────────────
// Subscriber
// ─────────────────────────────────────────────────────────────────────────────

// Watch subscribes to channel on addr and calls fn for every message until ctx
// ends or fn returns an error. Payloads that are not Messages are logged and skipped.
func Watch(ctx context.Context, addr, channel string, log *logger.Logger, fn func(Message) error) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	// the first reply confirms the subscription, or reports why it failed
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errs.Wrap(err, errs.ErrSinkRedis, "sink.redis.subscribe").
			WithResource(addr).
			WithAdvice("start redis or check redis.addr")
	}
	log.Info("redis.subscribed", "addr", addr, "channel", channel)
	return consume(ctx, sub.Channel(), log, fn)
}

func consume(ctx context.Context, ch <-chan *redis.Message, log *logger.Logger, fn func(Message) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil || msg.Kind == "" {
				log.Warn("redis.skip", "channel", raw.Channel, "err", err)
				continue
			}
			if err := fn(msg); err != nil {
				return err
			}
		}
	}
}
