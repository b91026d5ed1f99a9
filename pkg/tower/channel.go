package tower

import (
	"encoding/json"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a channel.
type State int

const (
	// StateCreated is a registered channel that has never been dispatched.
	StateCreated State = iota

	// StateHasLatest is a channel holding a latest payload. Channels never
	// leave this state.
	StateHasLatest
)

func (s State) String() string {
	if s == StateHasLatest {
		return "has-latest"
	}
	return "created"
}

// Subscription is the handle returned by Subscribe. Pass it back to
// Unsubscribe to remove exactly that subscription. The zero value matches
// no subscription.
type Subscription struct {
	channel string
	id      uint64
}

// ID returns the subscription's process-unique identifier.
func (s Subscription) ID() uint64 {
	return s.id
}

// Channel returns the name of the channel the subscription belongs to.
func (s Subscription) Channel() string {
	return s.channel
}

// Valid reports whether the handle was produced by Subscribe.
func (s Subscription) Valid() bool {
	return s.id != 0
}

type subscriber[T any] struct {
	sub Subscription
	fn  func(T)

	// seen is the sequence of the newest payload handed to fn. Shared by
	// every copy of the subscriber.
	seen *atomic.Uint64
}

// Channel is a named communication line carrying payloads of type T.
//
// Subscribers are invoked synchronously, in subscription order, on the
// goroutine that calls Dispatch. The latest payload is memorized and
// replayed to every new subscriber.
type Channel[T any] struct {
	name     string
	registry *Registry

	// mu protects every field below.
	mu sync.RWMutex

	subs          []subscriber[T]
	latest        T
	hasLatest     bool
	dispatches    uint64
	logLevel      LogLevel
	originalLevel LogLevel
}

// Name returns the channel's name.
func (c *Channel[T]) Name() string {
	return c.name
}

// Subscribe appends fn to the channel's subscribers and returns its handle.
//
// If the channel already holds a latest payload, fn receives it before
// Subscribe returns. The replay is not logged since the payload was logged
// when it was dispatched. Subscribing the same function twice creates two
// independent subscriptions. A nil fn is ignored and yields the zero handle.
func (c *Channel[T]) Subscribe(fn func(T)) Subscription {
	if fn == nil {
		return Subscription{}
	}

	s := subscriber[T]{
		sub:  Subscription{channel: c.name, id: nextSubscriptionID()},
		fn:   fn,
		seen: new(atomic.Uint64),
	}

	c.mu.Lock()
	c.subs = append(c.subs, s)
	count := len(c.subs)
	latest, replay, seq := c.latest, c.hasLatest, c.dispatches
	c.mu.Unlock()

	c.registry.subscribersChanged(c.name, count)

	if replay {
		c.deliver(s, latest, seq, true)
	}
	return s.sub
}

// Unsubscribe removes the subscription identified by sub and reports
// whether it was found. Unknown handles and handles from other channels are
// ignored.
func (c *Channel[T]) Unsubscribe(sub Subscription) bool {
	if !sub.Valid() || sub.channel != c.name {
		return false
	}

	c.mu.Lock()
	removed := false
	for i, existing := range c.subs {
		if existing.sub.id == sub.id {
			// Keep subscription order for later dispatches. In-flight
			// dispatches iterate their own copy.
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			removed = true
			break
		}
	}
	count := len(c.subs)
	c.mu.Unlock()

	if removed {
		c.registry.subscribersChanged(c.name, count)
	}
	return removed
}

// Dispatch records payload as the latest value and delivers it to every
// current subscriber in subscription order before returning.
//
// The subscriber set is captured when Dispatch starts: subscribers added or
// removed while the payload is being delivered only see later dispatches.
// A subscriber that panics is recovered and reported to the registry's
// fault handler; delivery continues with the next subscriber.
//
// A subscriber never receives a payload older than one it has already
// received. When dispatches race, a subscriber that was handed the newer
// payload first skips the older one, so it always ends on Latest.
func (c *Channel[T]) Dispatch(payload T) {
	c.dispatch(payload)
}

// dispatch implements Dispatch and returns the payload's sequence number.
func (c *Channel[T]) dispatch(payload T) uint64 {
	start := time.Now()

	c.mu.Lock()
	c.latest = payload
	c.hasLatest = true
	c.dispatches++
	seq := c.dispatches
	subs := make([]subscriber[T], len(c.subs))
	copy(subs, c.subs)
	level := c.logLevel
	c.mu.Unlock()

	for _, s := range subs {
		c.deliver(s, payload, seq, false)
	}

	c.registry.logDispatch(c.name, level, payload)
	c.registry.dispatched(c.name, len(subs), start, time.Since(start))
	return seq
}

// deliver invokes a single subscriber, recovering any panic. Payloads
// whose sequence is not newer than the last one the subscriber saw are
// dropped.
func (c *Channel[T]) deliver(s subscriber[T], payload T, seq uint64, replay bool) {
	for {
		last := s.seen.Load()
		if seq <= last {
			return
		}
		if s.seen.CompareAndSwap(last, seq) {
			break
		}
	}

	defer func() {
		if v := recover(); v != nil {
			c.registry.fault(&SubscriberFault{
				Channel:      c.name,
				Subscription: s.sub,
				Replay:       replay,
				Value:        v,
				Stack:        debug.Stack(),
			})
		}
	}()
	s.fn(payload)
}

// Latest returns the most recently dispatched payload. ok is false if the
// channel has never been dispatched, which distinguishes "no payload yet"
// from a dispatched zero value.
func (c *Channel[T]) Latest() (payload T, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.hasLatest
}

// State returns the channel's lifecycle state.
func (c *Channel[T]) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.hasLatest {
		return StateHasLatest
	}
	return StateCreated
}

// LogLevel returns the channel's current verbosity.
func (c *Channel[T]) LogLevel() LogLevel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logLevel
}

// SetLogLevel changes the channel's current verbosity. The original level
// is unaffected.
func (c *Channel[T]) SetLogLevel(level LogLevel) {
	c.mu.Lock()
	c.logLevel = level
	c.mu.Unlock()
}

// OriginalLogLevel returns the verbosity the channel was created with.
func (c *Channel[T]) OriginalLogLevel() LogLevel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.originalLevel
}

// SubscriberCount returns the number of current subscriptions.
func (c *Channel[T]) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// PayloadType returns the channel's payload type.
func (c *Channel[T]) PayloadType() reflect.Type {
	return reflect.TypeFor[T]()
}

// Info returns a point-in-time description of the channel.
func (c *Channel[T]) Info() ChannelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ChannelInfo{
		Name:             c.name,
		PayloadType:      c.PayloadType().String(),
		LogLevel:         c.logLevel,
		OriginalLogLevel: c.originalLevel,
		Subscribers:      len(c.subs),
		HasLatest:        c.hasLatest,
		Dispatches:       c.dispatches,
	}
}

// LatestAny is Latest with the payload boxed in an interface.
func (c *Channel[T]) LatestAny() (any, bool) {
	payload, ok := c.Latest()
	if !ok {
		return nil, false
	}
	return payload, true
}

// DispatchJSON decodes data into the channel's payload type and dispatches
// it, returning the dispatch's sequence number (the channel's dispatch count
// right after it). Nothing is dispatched if decoding fails.
func (c *Channel[T]) DispatchJSON(data []byte) (uint64, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, fmt.Errorf("tower: decode %s payload for channel %q: %w", c.PayloadType(), c.name, err)
	}
	return c.dispatch(payload), nil
}

// SubscribeAny subscribes a type-erased callback.
func (c *Channel[T]) SubscribeAny(fn func(any)) Subscription {
	if fn == nil {
		return Subscription{}
	}
	return c.Subscribe(func(payload T) { fn(payload) })
}

// ChannelInfo describes a channel for diagnostics and transports.
type ChannelInfo struct {
	Name             string   `json:"name"`
	PayloadType      string   `json:"payloadType"`
	LogLevel         LogLevel `json:"logLevel"`
	OriginalLogLevel LogLevel `json:"originalLogLevel"`
	Subscribers      int      `json:"subscribers"`
	HasLatest        bool     `json:"hasLatest"`
	Dispatches       uint64   `json:"dispatches"`
}

// AnyChannel is the type-erased view of a Channel, used by code that only
// knows a channel by name, such as network transports.
type AnyChannel interface {
	Name() string
	PayloadType() reflect.Type
	Info() ChannelInfo
	State() State
	LatestAny() (any, bool)
	DispatchJSON(data []byte) (uint64, error)
	SubscribeAny(fn func(any)) Subscription
	Unsubscribe(sub Subscription) bool
	LogLevel() LogLevel
	SetLogLevel(level LogLevel)
	OriginalLogLevel() LogLevel
	SubscriberCount() int
}

var _ AnyChannel = (*Channel[any])(nil)
