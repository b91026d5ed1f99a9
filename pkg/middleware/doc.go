// Package middleware provides observability adapters for the signal tower.
//
// Both adapters implement tower.Observer and are attached when the registry
// is built:
//
//	r := tower.New(
//	    tower.WithObserver(
//	        middleware.Prometheus(middleware.WithNamespace("myapp")),
//	        middleware.OpenTelemetry(middleware.WithTracerName("myapp")),
//	    ),
//	)
//
// # Prometheus Metrics
//
// The Prometheus observer collects:
//   - tower_channels_created_total: Channels registered
//   - tower_dispatches_total: Dispatches by channel
//   - tower_dispatch_duration_seconds: Fan-out duration by channel
//   - tower_subscribers: Current subscriber count by channel
//   - tower_subscriber_faults_total: Recovered subscriber panics by channel
//
// Expose them with promhttp:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
// The OpenTelemetry observer records one span per dispatch and one error
// span per subscriber fault. It uses the global tracer provider unless
// WithTracerProvider is given.
package middleware
