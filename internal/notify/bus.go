// Package notify delivers change notifications for data URIs.
//
// Observers subscribe to a URI. A change to that URI reaches subscribers of
// the URI itself, subscribers of an ancestor that asked for descendants,
// and subscribers of any descendant. Changes are hints to re-query: a slow
// subscriber loses changes rather than blocking the writer.
package notify

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Op is the kind of mutation behind a change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one notification.
type Change struct {
	ID  uuid.UUID `json:"id"`
	URI string    `json:"uri"`
	Op  Op        `json:"op"`
	At  time.Time `json:"at"`
}

// Sink receives every change, regardless of URI. Send must not block.
type Sink interface {
	Send(Change)
}

// Bus fans changes out to subscriptions and sinks.
type Bus struct {
	mu    sync.RWMutex
	subs  map[*Subscription]struct{}
	sinks []Sink

	now     func() time.Time
	newID   func() uuid.UUID
	log     *slog.Logger
	metrics *Metrics
	dropped atomic.Int64
}

// Option configures a Bus.
type Option func(*Bus)

// WithClock sets the time source for Change.At.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// WithIDs replaces the UUIDv7 generator.
func WithIDs(next func() uuid.UUID) Option {
	return func(b *Bus) { b.newID = next }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.log = l }
}

// WithMetrics counts dropped changes in m.
func WithMetrics(m *Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// NewBus returns an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:  make(map[*Subscription]struct{}),
		now:   time.Now,
		newID: newV7,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func newV7() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// Subscription receives changes on C until Close.
type Subscription struct {
	C <-chan Change

	ch          chan Change
	bus         *Bus
	uri         string
	descendants bool
	once        sync.Once
}

// Subscribe registers interest in uri. When descendants is true, changes
// below uri are delivered too. buffer is the channel capacity; a full
// channel drops changes.
func (b *Bus) Subscribe(uri string, descendants bool, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Change, buffer)
	s := &Subscription{
		C:           ch,
		ch:          ch,
		bus:         b,
		uri:         trimURI(uri),
		descendants: descendants,
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Close unregisters the subscription and closes C. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		close(s.ch)
		s.bus.mu.Unlock()
	})
}

// AddSink registers a sink for every future change.
func (b *Bus) AddSink(sink Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

// Notify publishes a change to uri and returns it.
func (b *Bus) Notify(uri string, op Op) Change {
	c := Change{
		ID:  b.newID(),
		URI: trimURI(uri),
		Op:  op,
		At:  b.now(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs {
		if !s.matches(c.URI) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			b.dropped.Add(1)
			if b.metrics != nil {
				b.metrics.Dropped.Inc()
			}
			b.log.Debug("dropped change for slow subscriber", "uri", c.URI, "subscription", s.uri)
		}
	}
	for _, sink := range b.sinks {
		sink.Send(c)
	}
	return c
}

// Dropped returns how many deliveries were skipped for full subscriptions.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

func (s *Subscription) matches(uri string) bool {
	switch {
	case uri == s.uri:
		return true
	case s.descendants && isBelow(uri, s.uri):
		return true
	default:
		return isBelow(s.uri, uri)
	}
}

// isBelow reports whether child is a strict descendant of parent.
func isBelow(child, parent string) bool {
	return strings.HasPrefix(child, parent+"/")
}

func trimURI(uri string) string {
	return strings.TrimRight(uri, "/")
}
