package tower

import "log/slog"

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for dispatch records and subscriber
// faults. If unset, slog.Default() is used at the time of each record.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithFaultHandler sets the function that receives recovered subscriber
// panics. The default handler logs the fault at error level.
//
// The handler runs on the dispatching goroutine and must not panic.
func WithFaultHandler(fn func(*SubscriberFault)) Option {
	return func(r *Registry) {
		r.onFault = fn
	}
}

// WithObserver adds observers notified of channel activity.
func WithObserver(observers ...Observer) Option {
	return func(r *Registry) {
		for _, o := range observers {
			if o != nil {
				r.observers = append(r.observers, o)
			}
		}
	}
}

// WithReservedNames reserves additional channel names on top of the
// registry's own control-plane names.
func WithReservedNames(names ...string) Option {
	return func(r *Registry) {
		for _, n := range names {
			r.reserved[n] = struct{}{}
		}
	}
}

// ChannelOption configures a channel at creation time. Options passed when
// requesting an existing channel are ignored.
type ChannelOption func(*channelOptions)

type channelOptions struct {
	level LogLevel
}

// WithLogLevel sets the channel's verbosity. The value also becomes the
// channel's original level, restored by Registry.ResetLogLevels.
func WithLogLevel(level LogLevel) ChannelOption {
	return func(o *channelOptions) {
		o.level = level
	}
}

func applyChannelOptions(opts []ChannelOption) channelOptions {
	var options channelOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}
