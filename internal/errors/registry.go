package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://signaltower.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Channel Errors (T001-T019)
	// ============================================

	"T001": {
		Category: CategoryChannel,
		Message:  "Channel name is required",
		Detail:   "Channels are looked up and created by name; an empty name can not identify a channel.",
		DocURL:   docBase + "T001",
	},
	"T002": {
		Category: CategoryChannel,
		Message:  "Channel name is reserved",
		Detail:   "The name collides with one of the registry's control-plane operations and can not be used for a channel.",
		DocURL:   docBase + "T002",
	},
	"T003": {
		Category: CategoryChannel,
		Message:  "Channel payload type mismatch",
		Detail:   "The channel already exists with a different payload type. A channel keeps the type it was first created with.",
		DocURL:   docBase + "T003",
	},
	"T004": {
		Category: CategoryDispatch,
		Message:  "Subscriber panicked",
		Detail:   "A subscriber panicked while receiving a payload. The panic was recovered and the remaining subscribers were still notified.",
		DocURL:   docBase + "T004",
	},
	"T005": {
		Category: CategoryChannel,
		Message:  "Unknown channel",
		Detail:   "No channel with this name is registered on the server.",
		DocURL:   docBase + "T005",
	},
	"T006": {
		Category: CategoryChannel,
		Message:  "Invalid log level",
		Detail:   "Log levels are integers: 0 is silent, 1 logs dispatches, 2 also logs payloads, -1 resets.",
		DocURL:   docBase + "T006",
	},
	"T010": {
		Category: CategoryDispatch,
		Message:  "Invalid payload",
		Detail:   "The payload could not be decoded into the channel's payload type.",
		DocURL:   docBase + "T010",
	},

	// ============================================
	// Configuration Errors (T120-T149)
	// ============================================

	"T120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "tower.json could not be read or parsed.",
		DocURL:   docBase + "T120",
	},
	"T121": {
		Category: CategoryConfig,
		Message:  "Invalid environment configuration",
		Detail:   "A TOWER_* environment variable could not be parsed.",
		DocURL:   docBase + "T121",
	},
	"T122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or not recognized.",
		DocURL:   docBase + "T122",
	},
	"T141": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No tower.json was found.",
		DocURL:   docBase + "T141",
	},
	"T142": {
		Category: CategoryConfig,
		Message:  "App data could not be loaded",
		Detail:   "The app data document configured for startup could not be read or parsed.",
		DocURL:   docBase + "T142",
	},

	// ============================================
	// Snapshot Errors (T150-T159)
	// ============================================

	"T150": {
		Category: CategorySnapshot,
		Message:  "Snapshot archive failed",
		Detail:   "The snapshot could not be uploaded to the configured bucket.",
		DocURL:   docBase + "T150",
	},
	"T151": {
		Category: CategorySnapshot,
		Message:  "Snapshot archiving is not configured",
		Detail:   "Set snapshot.bucket in tower.json or TOWER_SNAPSHOT_BUCKET to enable archiving.",
		DocURL:   docBase + "T151",
	},

	// ============================================
	// Transport Errors (T160-T169)
	// ============================================

	"T160": {
		Category: CategoryTransport,
		Message:  "Server request failed",
		Detail:   "The tower server could not be reached or returned an error.",
		DocURL:   docBase + "T160",
	},

	// ============================================
	// CLI Errors (T170-T179)
	// ============================================

	"T170": {
		Category: CategoryCLI,
		Message:  "Command failed",
		DocURL:   docBase + "T170",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
