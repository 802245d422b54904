// Package broadcast serializes mutations per event and fans the resulting
// messages out to that event's subscribers.
//
// Every event gets its own mailbox and dispatcher goroutine. Mutations for
// the same event execute one at a time in submission order, and the
// messages they produce are delivered to subscribers in that same order.
// Events never share a dispatcher, so a busy event cannot stall another.
package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rxnight/tally/pkg/logger"
	"github.com/rxnight/tally/pkg/metrics"
)

// Default hub configuration constants.
const (
	defaultMailboxSize     = 256
	defaultSendTimeout     = 2 * time.Second
	defaultMaxSendFailures = 3
)

// Mutation runs on an event's dispatcher goroutine. It performs the state
// change and returns the message to publish, or nil when nothing should
// be broadcast. The caller blocks until the mutation has run, so any
// values it captures are visible once Do returns.
type Mutation func(ctx context.Context) (*Message, error)

type result struct {
	msg *Message
	err error
}

type job struct {
	ctx   context.Context
	fn    Mutation
	reply chan result
}

// channel holds the mailbox and subscriber registry for a single event.
type channel struct {
	eventID string
	mailbox chan job

	mu     sync.RWMutex
	closed bool
	subs   map[string]*subscription
}

type subscription struct {
	sub      Subscriber
	failures int
}

// submit tries a non-blocking send into the mailbox.
func (c *channel) submit(j job) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}

	select {
	case c.mailbox <- j:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *channel) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.mailbox)
}

// snapshot copies the current subscribers so delivery never holds the lock.
func (c *channel) snapshot() []*subscription {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*subscription, 0, len(c.subs))
	for _, s := range c.subs {
		out = append(out, s)
	}
	return out
}

func (c *channel) resetFailures(subID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.subs[subID]; ok {
		s.failures = 0
	}
}

// recordFailure increments and returns the consecutive failure count.
func (c *channel) recordFailure(subID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.subs[subID]
	if !ok {
		return 0
	}
	s.failures++
	return s.failures
}

func (c *channel) remove(subID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, subID)
	return len(c.subs)
}

// Hub owns the per-event channels and their dispatcher goroutines.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]*channel
	closed   bool
	wg       sync.WaitGroup

	mailboxSize     int
	sendTimeout     time.Duration
	maxSendFailures int

	logger logger.Logger
}

// NewHub creates a hub with configuration options.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		channels:        make(map[string]*channel),
		mailboxSize:     defaultMailboxSize,
		sendTimeout:     defaultSendTimeout,
		maxSendFailures: defaultMaxSendFailures,
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = logger.Get().Named("broadcast")
	}

	metrics.UpdateMailboxCapacity(h.mailboxSize)
	metrics.UpdateChannelCount(0)

	return h
}

// Do submits a mutation for the given event and blocks until it has run.
// Mutations for the same event are applied strictly in submission order.
// Returns ErrBackpressure without running the mutation when the event's
// mailbox is full.
func (h *Hub) Do(ctx context.Context, eventID string, fn Mutation) error {
	start := time.Now()

	ch, err := h.channel(eventID)
	if err != nil {
		return err
	}

	j := job{ctx: ctx, fn: fn, reply: make(chan result, 1)}
	if err := ch.submit(j); err != nil {
		metrics.RecordErrorByComponent("broadcast", "backpressure")
		return fmt.Errorf("%w: event %s", err, eventID)
	}
	metrics.UpdateMailboxDepth(eventID, len(ch.mailbox))

	select {
	case res := <-j.reply:
		metrics.RecordMutationLatency(float64(time.Since(start).Milliseconds()))
		return res.err
	case <-ctx.Done():
		// The mutation still runs; the caller just stops waiting for it.
		return ctx.Err()
	}
}

// Subscribe registers a subscriber on an event's channel, creating the
// channel if it does not exist yet.
func (h *Hub) Subscribe(eventID string, sub Subscriber) error {
	ch, err := h.channel(eventID)
	if err != nil {
		return err
	}

	ch.mu.Lock()
	ch.subs[sub.ID()] = &subscription{sub: sub}
	n := len(ch.subs)
	ch.mu.Unlock()

	metrics.UpdateSubscriberCount(eventID, n)
	return nil
}

// Unsubscribe removes a subscriber from an event's channel.
// Unknown event or subscriber IDs are ignored.
func (h *Hub) Unsubscribe(eventID, subID string) {
	h.mu.RLock()
	ch := h.channels[eventID]
	h.mu.RUnlock()
	if ch == nil {
		return
	}

	n := ch.remove(subID)
	metrics.UpdateSubscriberCount(eventID, n)
}

// SubscriberCount returns the number of subscribers on an event's channel.
func (h *Hub) SubscriberCount(eventID string) int {
	h.mu.RLock()
	ch := h.channels[eventID]
	h.mu.RUnlock()
	if ch == nil {
		return 0
	}

	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return len(ch.subs)
}

// ChannelCount returns the number of live event channels.
func (h *Hub) ChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// DropChannel tears down an event's channel, typically after the event
// itself has been deleted. Pending mutations are still applied before the
// dispatcher exits.
func (h *Hub) DropChannel(eventID string) {
	h.mu.Lock()
	ch := h.channels[eventID]
	delete(h.channels, eventID)
	n := len(h.channels)
	h.mu.Unlock()
	if ch == nil {
		return
	}

	ch.close()
	metrics.DropChannelGauges(eventID)
	metrics.UpdateChannelCount(n)
}

// Close shuts down all channels and waits for their dispatchers to drain.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	chans := make([]*channel, 0, len(h.channels))
	for _, ch := range h.channels {
		chans = append(chans, ch)
	}
	h.mu.Unlock()

	for _, ch := range chans {
		ch.close()
	}
	h.wg.Wait()
	return nil
}

// channel returns the event's channel, creating it and starting its
// dispatcher on first use.
func (h *Hub) channel(eventID string) (*channel, error) {
	h.mu.RLock()
	ch, ok := h.channels[eventID]
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return ch, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	if ch, ok = h.channels[eventID]; ok {
		return ch, nil
	}

	ch = &channel{
		eventID: eventID,
		mailbox: make(chan job, h.mailboxSize),
		subs:    make(map[string]*subscription),
	}
	h.channels[eventID] = ch
	metrics.UpdateChannelCount(len(h.channels))

	h.wg.Add(1)
	go h.dispatch(ch)

	return ch, nil
}

// dispatch is the single goroutine that applies mutations and delivers
// messages for one event.
func (h *Hub) dispatch(ch *channel) {
	defer h.wg.Done()

	for j := range ch.mailbox {
		msg, err := j.fn(j.ctx)
		j.reply <- result{msg: msg, err: err}

		if err != nil || msg == nil {
			continue
		}
		metrics.RecordMutationApplied(string(msg.Kind))
		h.deliver(ch, *msg)
		metrics.UpdateMailboxDepth(ch.eventID, len(ch.mailbox))
	}
}

// deliver sends a message to every subscriber, evicting any that keep
// failing.
func (h *Hub) deliver(ch *channel, msg Message) {
	metrics.RecordBroadcastPublished()

	for _, entry := range ch.snapshot() {
		sendCtx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
		err := entry.sub.Send(sendCtx, msg)
		cancel()

		if err == nil {
			metrics.RecordBroadcastDelivery()
			ch.resetFailures(entry.sub.ID())
			continue
		}

		metrics.RecordBroadcastDeliveryFailure()
		failures := ch.recordFailure(entry.sub.ID())
		h.logger.Warn(context.Background(), "delivery failed",
			logger.String("eventID", ch.eventID),
			logger.String("subscriberID", entry.sub.ID()),
			logger.Int("consecutiveFailures", failures),
			logger.Error(err),
		)

		if failures >= h.maxSendFailures {
			n := ch.remove(entry.sub.ID())
			metrics.RecordSubscriberEvicted()
			metrics.UpdateSubscriberCount(ch.eventID, n)
			h.logger.Warn(context.Background(), "subscriber evicted",
				logger.String("eventID", ch.eventID),
				logger.String("subscriberID", entry.sub.ID()),
			)
		}
	}
}
