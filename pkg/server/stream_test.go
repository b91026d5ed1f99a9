package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/signaltower/pkg/tower"
)

func dialStream(t *testing.T, baseURL, channel string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/channels/" + channel + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial failed (status %d): %v", status, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("invalid frame %s: %v", data, err)
	}
	return frame
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamReplaysAndStreams(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	msg := tower.MustGet[string](srv.Registry(), "msg")
	msg.Dispatch("before")

	conn := dialStream(t, ts.URL, "msg")

	frame := readFrame(t, conn)
	if frame["channel"] != "msg" || frame["payload"] != "before" {
		t.Errorf("expected replayed frame, got %v", frame)
	}

	msg.Dispatch("after")
	frame = readFrame(t, conn)
	if frame["payload"] != "after" {
		t.Errorf("expected streamed frame, got %v", frame)
	}
}

func TestStreamNoReplayBeforeDispatch(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	focus := tower.MustGet[bool](srv.Registry(), "focus")

	conn := dialStream(t, ts.URL, "focus")
	waitFor(t, func() bool { return focus.SubscriberCount() == 1 })

	focus.Dispatch(false)
	frame := readFrame(t, conn)
	if frame["payload"] != false {
		t.Errorf("expected first frame to be the dispatch, got %v", frame)
	}
}

func TestStreamUnsubscribesOnDisconnect(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	msg := tower.MustGet[string](srv.Registry(), "msg")

	conn := dialStream(t, ts.URL, "msg")
	waitFor(t, func() bool { return msg.SubscriberCount() == 1 && srv.ActiveStreams() == 1 })

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	waitFor(t, func() bool { return msg.SubscriberCount() == 0 && srv.ActiveStreams() == 0 })
}

func TestStreamUnknownChannel(t *testing.T) {
	_, ts := newTestServer(t, nil)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/channels/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %v", resp)
	}
}

func TestStreamRejectsCrossOrigin(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	tower.MustGet[string](srv.Registry(), "msg")

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/channels/msg/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("expected cross-origin upgrade to be rejected")
	}
}

func TestStreamShutdownClosesStreams(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	msg := tower.MustGet[string](srv.Registry(), "msg")

	conn := dialStream(t, ts.URL, "msg")
	waitFor(t, func() bool { return srv.ActiveStreams() == 1 })

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
	waitFor(t, func() bool { return msg.SubscriberCount() == 0 })
}

func TestStreamDropsWhenQueueFull(t *testing.T) {
	st := newStream(nil, "msg", 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	st.enqueue("one")
	st.enqueue("two")
	st.enqueue("three")

	if got := st.dropped.Load(); got != 2 {
		t.Errorf("expected 2 dropped frames, got %d", got)
	}
	if len(st.send) != 1 {
		t.Fatalf("expected 1 queued frame, got %d", len(st.send))
	}
	if data := <-st.send; string(data) != `{"channel":"msg","payload":"one"}` {
		t.Errorf("unexpected frame %s", data)
	}

	st.close()
	st.enqueue("four")
	if len(st.send) != 0 {
		t.Error("closed stream should not queue frames")
	}
}

func TestStreamSkipsUnencodablePayload(t *testing.T) {
	st := newStream(nil, "fn", 1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	st.enqueue(func() {})
	if len(st.send) != 0 || st.dropped.Load() != 0 {
		t.Error("unencodable payloads are skipped, not queued or counted as dropped")
	}
}
