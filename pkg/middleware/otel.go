package middleware

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/signaltower/pkg/tower"
)

// Default tracer name for tower spans.
const defaultTracerName = "signaltower"

// OTelConfig configures the OpenTelemetry observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "signaltower").
	TracerName string

	// TracerProvider supplies the tracer. If nil, the global provider is
	// used.
	TracerProvider trace.TracerProvider

	// Filter determines which channels are traced.
	// If nil, all channels are traced.
	Filter func(channel string) bool
}

// OTelOption configures the OpenTelemetry observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithChannelFilter sets a filter selecting the channels to trace.
func WithChannelFilter(filter func(channel string) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// Tracing is a tower.Observer that records OpenTelemetry spans.
type Tracing struct {
	tracer trace.Tracer
	filter func(string) bool
}

// OpenTelemetry creates an observer that records a span for every dispatch.
//
// Dispatch spans are named "tower.dispatch <channel>" and carry the channel
// name and subscriber count. Their timestamps match the fan-out window.
// Subscriber panics are recorded as separate spans with an error status.
func OpenTelemetry(opts ...OTelOption) *Tracing {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	provider := config.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	return &Tracing{
		tracer: provider.Tracer(config.TracerName),
		filter: config.Filter,
	}
}

func (t *Tracing) traced(channel string) bool {
	return t.filter == nil || t.filter(channel)
}

// ChannelCreated implements tower.Observer.
func (t *Tracing) ChannelCreated(string, tower.LogLevel) {}

// SubscribersChanged implements tower.Observer.
func (t *Tracing) SubscribersChanged(string, int) {}

// Dispatched implements tower.Observer.
func (t *Tracing) Dispatched(name string, subscribers int, start time.Time, elapsed time.Duration) {
	if !t.traced(name) {
		return
	}
	_, span := t.tracer.Start(context.Background(), "tower.dispatch "+name,
		trace.WithTimestamp(start),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("tower.channel", name),
			attribute.Int("tower.subscribers", subscribers),
		),
	)
	span.End(trace.WithTimestamp(start.Add(elapsed)))
}

// SubscriberFaulted implements tower.Observer.
func (t *Tracing) SubscriberFaulted(fault *tower.SubscriberFault) {
	if !t.traced(fault.Channel) {
		return
	}
	_, span := t.tracer.Start(context.Background(), "tower.subscriber_fault "+fault.Channel,
		trace.WithAttributes(
			attribute.String("tower.channel", fault.Channel),
			attribute.Int64("tower.subscription", int64(fault.Subscription.ID())),
			attribute.Bool("tower.replay", fault.Replay),
		),
	)
	span.RecordError(fault)
	span.SetStatus(codes.Error, fmt.Sprint(fault.Value))
	span.End()
}

var _ tower.Observer = (*Tracing)(nil)
