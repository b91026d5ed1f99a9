// Package channels declares the channels every tower process registers on
// startup and the producer that feeds the app data channel.
package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/vango-dev/signaltower/internal/errors"
	"github.com/vango-dev/signaltower/pkg/tower"
)

// AppData is the application data document published on startup.
type AppData map[string]any

// Declared channels. Each is created with payload logging enabled.
var (
	// AppDataReceived carries the app data document once it is loaded.
	AppDataReceived = tower.NewKey[AppData]("appDataReceived", tower.WithLogLevel(tower.LevelPayload))

	// TerminalMsgReceived carries lines typed into a terminal.
	TerminalMsgReceived = tower.NewKey[string]("terminalMsgReceived", tower.WithLogLevel(tower.LevelPayload))

	// WindowFocusChanged carries whether the window holds focus.
	WindowFocusChanged = tower.NewKey[bool]("windowFocusChanged", tower.WithLogLevel(tower.LevelPayload))
)

// Names returns the names of the built-in channels, sorted.
func Names() []string {
	names := []string{
		AppDataReceived.Name(),
		TerminalMsgReceived.Name(),
		WindowFocusChanged.Name(),
	}
	sort.Strings(names)
	return names
}

// Declare registers the built-in channels in r. levels maps channel names
// to log levels: entries for built-in channels replace their default
// level, and any other entry declares an extra channel carrying raw JSON.
func Declare(r *tower.Registry, levels map[string]int) error {
	if _, err := declare(r, AppDataReceived, levels); err != nil {
		return err
	}
	if _, err := declare(r, TerminalMsgReceived, levels); err != nil {
		return err
	}
	if _, err := declare(r, WindowFocusChanged, levels); err != nil {
		return err
	}

	extra := make([]string, 0, len(levels))
	for name := range levels {
		switch name {
		case AppDataReceived.Name(), TerminalMsgReceived.Name(), WindowFocusChanged.Name():
		default:
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	for _, name := range extra {
		key := tower.NewKey[json.RawMessage](name, tower.WithLogLevel(tower.LogLevel(levels[name])))
		if _, err := key.In(r); err != nil {
			return errors.FromTower(err)
		}
	}
	return nil
}

func declare[T any](r *tower.Registry, key tower.Key[T], levels map[string]int) (*tower.Channel[T], error) {
	var (
		ch  *tower.Channel[T]
		err error
	)
	if level, ok := levels[key.Name()]; ok {
		ch, err = tower.Get[T](r, key.Name(), tower.WithLogLevel(tower.LogLevel(level)))
	} else {
		ch, err = key.In(r)
	}
	if err != nil {
		return nil, errors.FromTower(err)
	}
	return ch, nil
}

// LoadAppData reads the app data document from source, which is either a
// file path or an http(s) URL.
func LoadAppData(ctx context.Context, source string) (AppData, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, errors.New("T142").Wrap(err).
			WithDetail("Could not read app data from " + source)
	}

	var doc AppData
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("T142").Wrap(err).
			WithDetail("App data in " + source + " is not a JSON object")
	}
	if doc == nil {
		return nil, errors.New("T142").
			WithDetail("App data in " + source + " is not a JSON object")
	}
	return doc, nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// PublishAppData dispatches doc on the app data channel of r.
func PublishAppData(r *tower.Registry, doc AppData) error {
	ch, err := AppDataReceived.In(r)
	if err != nil {
		return errors.FromTower(err)
	}
	ch.Dispatch(doc)
	return nil
}
