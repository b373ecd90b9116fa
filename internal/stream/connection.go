package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/richardliu001/event-stream-service/internal/model"
	"go.uber.org/zap"
)

// Querier is the slice of the repository a connection needs.
type Querier interface {
	EventsSince(ctx context.Context, after time.Time) ([]model.Event, error)
}

// Options tunes one connection's polling loop. Zero values fall back to the
// production cadence (1s poll, heartbeat at 30s wall-clock multiples).
type Options struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	Now               func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.HeartbeatInterval < time.Second {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// controlMessage is the non-domain frame type ("connected", "heartbeat").
type controlMessage struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// Connection is one open SSE session. It holds no state shared with other
// connections; the event log is its only input.
type Connection struct {
	events Querier
	owner  *uint64
	w      io.Writer
	flush  func()
	log    *zap.SugaredLogger
	opts   Options

	lastChecked time.Time
}

// NewConnection wires a session for one client. owner may be nil for
// anonymous consumers, which receive every event unfiltered.
func NewConnection(events Querier, owner *uint64, w io.Writer, flush func(), logger *zap.SugaredLogger, opts Options) *Connection {
	if flush == nil {
		flush = func() {}
	}
	return &Connection{
		events: events,
		owner:  owner,
		w:      w,
		flush:  flush,
		log:    logger,
		opts:   opts.withDefaults(),
	}
}

// Run drives the connection until the context is cancelled (client gone or
// server shutdown) or a failure makes the loop unable to continue. A query
// failure is connection-fatal: the SSE client auto-reconnects with a fresh
// watermark.
func (c *Connection) Run(ctx context.Context) error {
	now := c.opts.Now()
	if err := c.writeControl("connected", now); err != nil {
		return err
	}
	c.lastChecked = now

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.tick(ctx); err != nil {
				return err
			}
		}
	}
}

// tick is one polling iteration: drain new events, advance the watermark,
// then heartbeat if due.
func (c *Connection) tick(ctx context.Context) error {
	now := c.opts.Now()

	evts, err := c.events.EventsSince(ctx, c.lastChecked)
	if err != nil {
		c.log.Errorf("stream poll: %v", err)
		return err
	}
	// Watermark advances to the check time, not the newest event, so a row
	// landing inside the same second may be delayed one tick but is never
	// skipped. A row the query returned with a timestamp past the check time
	// (landed during query latency, or stamped by a clock ahead of ours)
	// still moves the watermark: it has been seen and must not be re-emitted.
	watermark := now
	for _, evt := range evts {
		if evt.OccurredAt.After(watermark) {
			watermark = evt.OccurredAt
		}
		if c.suppressed(evt) {
			continue
		}
		if err := c.writeEvent(evt); err != nil {
			return err
		}
	}
	c.lastChecked = watermark

	if c.heartbeatDue(now) {
		if err := c.writeControl("heartbeat", now); err != nil {
			return err
		}
	}
	return nil
}

// suppressed reports whether the event originated from the connection's own
// actor. The originating tab already saw the result of its write in the
// synchronous response; re-delivering it would duplicate UI updates.
func (c *Connection) suppressed(evt model.Event) bool {
	return c.owner != nil && evt.ActorID != nil && *evt.ActorID == *c.owner
}

// heartbeatDue is true on wall-clock seconds that are exact multiples of the
// heartbeat interval, independent of domain events.
func (c *Connection) heartbeatDue(now time.Time) bool {
	return now.Unix()%int64(c.opts.HeartbeatInterval/time.Second) == 0
}

func (c *Connection) writeEvent(evt model.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		c.log.Errorf("stream encode event id=%d: %v", evt.ID, err)
		return err
	}
	return c.writeData(body)
}

func (c *Connection) writeControl(msgType string, now time.Time) error {
	body, err := json.Marshal(controlMessage{Type: msgType, Timestamp: now.UTC().Format(time.RFC3339)})
	if err != nil {
		return err
	}
	return c.writeData(body)
}

func (c *Connection) writeData(body []byte) error {
	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", body); err != nil {
		return err
	}
	c.flush()
	return nil
}
