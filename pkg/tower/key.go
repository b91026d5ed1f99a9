package tower

// Key declares a channel by name and payload type. Declaring channels as
// package-level keys keeps every call site in agreement about the payload
// shape and gives one place to read the expected payload of each name.
//
//	var WindowFocus = tower.NewKey[bool]("windowFocusChanged", tower.WithLogLevel(2))
//
//	WindowFocus.Must(r).Subscribe(func(focused bool) { ... })
type Key[T any] struct {
	name string
	opts []ChannelOption
}

// NewKey declares a channel. The options apply when the key creates the
// channel in a registry.
func NewKey[T any](name string, opts ...ChannelOption) Key[T] {
	return Key[T]{name: name, opts: opts}
}

// Name returns the channel name.
func (k Key[T]) Name() string {
	return k.name
}

// In returns the key's channel in r, creating it if needed.
func (k Key[T]) In(r *Registry) (*Channel[T], error) {
	return Get[T](r, k.name, k.opts...)
}

// Must is like In but panics on error.
func (k Key[T]) Must(r *Registry) *Channel[T] {
	return MustGet[T](r, k.name, k.opts...)
}

// Default returns the key's channel in the process-wide registry.
func (k Key[T]) Default() *Channel[T] {
	return k.Must(Default())
}
