// Package server exposes a tower registry over HTTP and WebSocket for
// inspection and remote dispatch.
//
// # Routes
//
//	GET    /channels                 list every channel
//	GET    /channels/{name}          one channel with its latest payload
//	POST   /channels/{name}/dispatch dispatch the JSON request body
//	GET    /channels/{name}/ws       stream payloads over a WebSocket
//	PUT    /log-level                set every channel's log level
//	DELETE /log-level                restore the original log levels
//	GET    /snapshot                 capture a snapshot
//	POST   /snapshot                 capture and archive a snapshot
//	GET    /metrics                  Prometheus metrics, when configured
//	GET    /healthz                  liveness
//
// # Streaming
//
// A WebSocket client subscribes to a single channel. It receives the
// channel's latest payload right away, then every later dispatch, as JSON
// text frames:
//
//	{"channel":"terminalMsgReceived","payload":"hello"}
//
// Each connection owns a bounded queue. A client that reads too slowly loses
// frames instead of stalling the dispatching goroutine.
//
// # Example Usage
//
//	srv := server.New(&server.Config{
//	    Address:  ":7070",
//	    Registry: r,
//	    Logger:   logger,
//	})
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := srv.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The handler can also be mounted in an existing router:
//
//	r := chi.NewRouter()
//	r.Mount("/tower", srv.Handler())
package server
