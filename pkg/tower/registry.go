package tower

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"
)

// controlNames are the registry's own control-plane operation names. They
// can never be used as channel names.
var controlNames = []string{
	"addSignal",
	"getOrCreate",
	"setLogLevel",
	"resetLogLevels",
}

// Registry is a namespace of channels. Channels are created on first request
// and never removed.
type Registry struct {
	logger    *slog.Logger
	onFault   func(*SubscriberFault)
	observers []Observer
	reserved  map[string]struct{}

	// mu protects channels and originalLevels.
	mu             sync.Mutex
	channels       map[string]AnyChannel
	originalLevels map[string]LogLevel
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		reserved:       make(map[string]struct{}, len(controlNames)),
		channels:       make(map[string]AnyChannel),
		originalLevels: make(map[string]LogLevel),
	}
	for _, n := range controlNames {
		r.reserved[n] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry. Every call returns the same
// instance. It logs through slog.Default().
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}

// Get returns the channel registered under name, creating it if needed.
//
// Requests for an existing channel return the same instance and ignore
// opts: the first registration decides the channel's settings. Get fails
// with ErrInvalidName for an empty name, ErrReservedName for a control-plane
// name and ErrTypeMismatch when the channel exists with another payload
// type. A failed call never registers anything.
func Get[T any](r *Registry, name string, opts ...ChannelOption) (*Channel[T], error) {
	if name == "" {
		return nil, &NameError{Err: ErrInvalidName}
	}
	if r.IsReserved(name) {
		return nil, &NameError{Name: name, Err: ErrReservedName}
	}

	r.mu.Lock()
	if existing, ok := r.channels[name]; ok {
		r.mu.Unlock()
		ch, ok := existing.(*Channel[T])
		if !ok {
			return nil, &NameError{
				Name:   name,
				Err:    ErrTypeMismatch,
				Detail: fmt.Sprintf("registered as %s, requested as %s", existing.PayloadType(), reflect.TypeFor[T]()),
			}
		}
		return ch, nil
	}

	o := applyChannelOptions(opts)
	ch := &Channel[T]{
		name:          name,
		registry:      r,
		logLevel:      o.level,
		originalLevel: o.level,
	}
	r.channels[name] = ch
	r.originalLevels[name] = o.level
	r.mu.Unlock()

	for _, obs := range r.observers {
		obs.ChannelCreated(name, o.level)
	}
	return ch, nil
}

// MustGet is like Get but panics on error. It is intended for package-level
// channel declarations.
func MustGet[T any](r *Registry, name string, opts ...ChannelOption) *Channel[T] {
	ch, err := Get[T](r, name, opts...)
	if err != nil {
		panic(err)
	}
	return ch
}

// IsReserved reports whether name can not be used as a channel name.
func (r *Registry) IsReserved(name string) bool {
	_, ok := r.reserved[name]
	return ok
}

// Lookup returns an existing channel without creating it.
func (r *Registry) Lookup(name string) (AnyChannel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// Channels describes every registered channel, sorted by name.
func (r *Registry) Channels() []ChannelInfo {
	all := r.snapshot()
	infos := make([]ChannelInfo, 0, len(all))
	for _, ch := range all {
		infos = append(infos, ch.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// SetLogLevel sets the verbosity of every channel. ResetLevel restores each
// channel to the level it was created with instead.
func (r *Registry) SetLogLevel(level LogLevel) {
	if level == ResetLevel {
		r.ResetLogLevels()
		return
	}
	for _, ch := range r.snapshot() {
		ch.SetLogLevel(level)
	}
}

// ResetLogLevels restores every channel to the level it was created with.
func (r *Registry) ResetLogLevels() {
	r.mu.Lock()
	levels := make(map[string]LogLevel, len(r.originalLevels))
	for name, level := range r.originalLevels {
		levels[name] = level
	}
	r.mu.Unlock()

	for _, ch := range r.snapshot() {
		ch.SetLogLevel(levels[ch.Name()])
	}
}

// snapshot copies the channel set so callers can work without the lock.
func (r *Registry) snapshot() []AnyChannel {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]AnyChannel, 0, len(r.channels))
	for _, ch := range r.channels {
		all = append(all, ch)
	}
	return all
}

func (r *Registry) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

func (r *Registry) logDispatch(name string, level LogLevel, payload any) {
	switch {
	case level >= LevelPayload:
		r.log().Info("channel dispatched", "channel", name, "payload", payload)
	case level == LevelDispatch:
		r.log().Info("channel dispatched", "channel", name)
	}
}

func (r *Registry) dispatched(name string, subscribers int, start time.Time, elapsed time.Duration) {
	for _, obs := range r.observers {
		obs.Dispatched(name, subscribers, start, elapsed)
	}
}

func (r *Registry) subscribersChanged(name string, count int) {
	for _, obs := range r.observers {
		obs.SubscribersChanged(name, count)
	}
}

func (r *Registry) fault(f *SubscriberFault) {
	if r.onFault != nil {
		r.onFault(f)
	} else {
		r.log().Error("subscriber panic",
			"channel", f.Channel,
			"subscription", f.Subscription.ID(),
			"replay", f.Replay,
			"panic", f.Value,
			"stack", string(f.Stack))
	}
	for _, obs := range r.observers {
		obs.SubscriberFaulted(f)
	}
}
