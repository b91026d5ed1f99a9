package tower

import "time"

// Observer receives notifications about channel activity. It is the hook
// used by metrics and tracing adapters.
//
// Observer methods are called synchronously on the goroutine performing the
// operation, never while a channel or registry lock is held. They should
// return quickly.
type Observer interface {
	// ChannelCreated is called once per channel, after it is registered.
	ChannelCreated(name string, level LogLevel)

	// Dispatched is called after a dispatch has been delivered to all of
	// the channel's subscribers.
	Dispatched(name string, subscribers int, start time.Time, elapsed time.Duration)

	// SubscribersChanged is called after a subscribe or unsubscribe with
	// the channel's new subscriber count.
	SubscribersChanged(name string, count int)

	// SubscriberFaulted is called for every recovered subscriber panic.
	SubscriberFaulted(fault *SubscriberFault)
}
