package tower

import "strconv"

// LogLevel controls how much a channel logs on each dispatch.
type LogLevel int

const (
	// LevelSilent emits nothing.
	LevelSilent LogLevel = 0

	// LevelDispatch logs the channel name on every dispatch.
	LevelDispatch LogLevel = 1

	// LevelPayload logs the channel name and the dispatched payload.
	LevelPayload LogLevel = 2

	// ResetLevel passed to Registry.SetLogLevel restores every channel to
	// the level it was created with.
	ResetLevel LogLevel = -1
)

// String returns a readable name for the level.
func (l LogLevel) String() string {
	switch {
	case l == ResetLevel:
		return "reset"
	case l <= LevelSilent:
		return "silent"
	case l == LevelDispatch:
		return "dispatch"
	case l == LevelPayload:
		return "payload"
	default:
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
}

// ParseLogLevel parses a level given either as a number or as one of
// "silent", "dispatch", "payload" or "reset".
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "silent":
		return LevelSilent, nil
	case "dispatch":
		return LevelDispatch, nil
	case "payload":
		return LevelPayload, nil
	case "reset":
		return ResetLevel, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return LevelSilent, &LevelError{Input: s, Err: err}
	}
	return LogLevel(n), nil
}
