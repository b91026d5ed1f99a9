package tower

import "sync/atomic"

// subscriptionIDCounter is the source of subscription IDs for every channel
// in the process, so a handle can never match a subscription it did not
// create, even on another channel.
var subscriptionIDCounter uint64

func nextSubscriptionID() uint64 {
	return atomic.AddUint64(&subscriptionIDCounter, 1)
}
