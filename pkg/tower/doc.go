// Package tower provides the signal tower: an in-process publish/subscribe
// registry of named channels that stands in for a full state store.
//
// Channels are created lazily the first time their name is requested and
// live for the lifetime of the registry. Every channel memorizes its latest
// payload, so a subscriber that joins late immediately receives the most
// recent value without waiting for the next dispatch.
//
// # Core Types
//
// Registry maps names to channels and owns the logging control plane:
//
//	r := tower.New(tower.WithLogger(logger))
//	msgs, err := tower.Get[string](r, "terminalMsgReceived", tower.WithLogLevel(tower.LevelPayload))
//
// Channel[T] is a single typed line:
//
//	sub := msgs.Subscribe(func(msg string) { fmt.Println(msg) })
//	msgs.Dispatch("hello")     // delivered synchronously to every subscriber
//	msgs.Unsubscribe(sub)
//	latest, ok := msgs.Latest() // ok is false until the first dispatch
//
// Key[T] declares a channel's name and payload type once so call sites
// cannot disagree about the payload shape:
//
//	var TerminalMsg = tower.NewKey[string]("terminalMsgReceived", tower.WithLogLevel(2))
//
//	TerminalMsg.Must(r).Dispatch("ready")
//
// # Process-wide Namespace
//
// Default returns a process-wide registry so distant call sites can share
// channels without passing the registry around. Tests should construct
// their own registry with New instead.
//
// # Logging Policy
//
// Each channel has a verbosity: 0 is silent, 1 logs every dispatch, 2 also
// logs the payload. Registry.SetLogLevel overrides every channel at once and
// Registry.ResetLogLevels restores each channel to the level it was created
// with.
//
// # Thread Safety
//
// Channels and the registry are safe for concurrent use. Dispatch never holds
// a lock while running subscribers, so a subscriber may dispatch, subscribe
// or unsubscribe re-entrantly; such changes only affect later dispatches.
package tower
