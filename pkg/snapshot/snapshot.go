// Package snapshot captures the state of a tower registry for diagnostics.
//
// A snapshot lists every channel with its settings, subscriber count and
// latest payload. Snapshots are write-only: they can be archived to S3 but
// are never loaded back into a registry.
//
//	snap := snapshot.Take(r)
//	archiver := snapshot.NewS3Archiver(snapshot.NewS3Client("us-east-1", ""), "diag", "tower")
//	location, err := archiver.Archive(ctx, snap)
package snapshot

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/signaltower/pkg/tower"
)

// Snapshot is a point-in-time view of a registry.
type Snapshot struct {
	ID       string            `json:"id"`
	TakenAt  time.Time         `json:"takenAt"`
	Channels []ChannelSnapshot `json:"channels"`
}

// ChannelSnapshot describes one channel. Latest is omitted while the
// channel has never been dispatched. LatestError is set instead of Latest
// when the payload can not be encoded as JSON.
type ChannelSnapshot struct {
	tower.ChannelInfo
	Latest      json.RawMessage `json:"latest,omitempty"`
	LatestError string          `json:"latestError,omitempty"`
}

// Take captures r. Channels are listed by name. Each channel is read
// independently, so a dispatch running concurrently may be reflected in
// some channels and not others.
func Take(r *tower.Registry) Snapshot {
	infos := r.Channels()
	snap := Snapshot{
		ID:       uuid.NewString(),
		TakenAt:  time.Now().UTC(),
		Channels: make([]ChannelSnapshot, 0, len(infos)),
	}

	for _, info := range infos {
		cs := ChannelSnapshot{ChannelInfo: info}
		if ch, ok := r.Lookup(info.Name); ok {
			cs = Describe(ch)
		}
		snap.Channels = append(snap.Channels, cs)
	}
	return snap
}

// Describe captures a single channel.
func Describe(ch tower.AnyChannel) ChannelSnapshot {
	cs := ChannelSnapshot{ChannelInfo: ch.Info()}
	payload, ok := ch.LatestAny()
	if !ok {
		return cs
	}
	data, err := json.Marshal(payload)
	if err != nil {
		cs.LatestError = err.Error()
		return cs
	}
	cs.Latest = data
	return cs
}

// Channel returns the named channel's entry.
func (s Snapshot) Channel(name string) (ChannelSnapshot, bool) {
	for _, cs := range s.Channels {
		if cs.Name == name {
			return cs, true
		}
	}
	return ChannelSnapshot{}, false
}
