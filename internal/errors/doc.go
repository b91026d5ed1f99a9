// Package errors provides structured, actionable error messages for the
// tower CLI and configuration loader.
//
// Every error carries a code (e.g., "T002") that maps to a category, a short
// message, a longer explanation and a documentation link. Errors from the
// public tower package are translated with FromTower so the CLI can print
// them with a hint.
//
// # Error Categories
//
//   - channel: channel naming and payload type errors
//   - dispatch: subscriber faults and payload decoding
//   - config: tower.json and environment problems
//   - transport: HTTP requests against a running tower server
//   - snapshot: diagnostic snapshot archiving
//
// # Usage
//
//	err := errors.New("T141").
//	    WithDetail("No tower.json found in /srv/app").
//	    WithSuggestion("Run 'tower serve --config path/to/tower.json'")
//
//	errors.PrintError(err)
//	// ERROR T141: Configuration file not found
//	//
//	//   No tower.json found in /srv/app
//	//
//	//   Hint: Run 'tower serve --config path/to/tower.json'
//	//
//	//   Learn more: https://signaltower.dev/docs/errors/T141
package errors
