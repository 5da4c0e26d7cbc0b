package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Log attribute keys.
const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"

	// AttrChart names the chart a record belongs to.
	AttrChart = "chart"
	// AttrTool names the MCP tool a record belongs to.
	AttrTool = "tool"
)

type scopeKey struct{}

// WithScope returns ctx carrying attrs that a TracingHandler adds to every
// record logged with it. Scopes nest: inner attrs follow outer ones.
func WithScope(ctx context.Context, attrs ...slog.Attr) context.Context {
	outer := scopeAttrs(ctx)

	merged := make([]slog.Attr, 0, len(outer)+len(attrs))
	merged = append(merged, outer...)
	merged = append(merged, attrs...)

	return context.WithValue(ctx, scopeKey{}, merged)
}

// ChartScope scopes ctx to one chart.
func ChartScope(ctx context.Context, slug string) context.Context {
	return WithScope(ctx, slog.String(AttrChart, slug))
}

// ToolScope scopes ctx to one MCP tool call.
func ToolScope(ctx context.Context, tool string) context.Context {
	return WithScope(ctx, slog.String(AttrTool, tool))
}

func scopeAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	attrs, _ := ctx.Value(scopeKey{}).([]slog.Attr)

	return attrs
}

// TracingHandler is an [slog.Handler] that stamps records with the context
// scope set by WithScope and with the ids of the active span. Service
// attributes are attached once at construction.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner with service metadata for the given run mode.
func NewTracingHandler(inner slog.Handler, service, env string, mode AppMode) *TracingHandler {
	attrs := make([]slog.Attr, 0, 3)
	attrs = append(attrs, slog.String(attrService, service), slog.String(attrMode, string(mode)))

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds scope and span attributes, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(scopeAttrs(ctx)...)

	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			record.AddAttrs(slog.String(attrTraceID, sc.TraceID().String()), slog.String(attrSpanID, sc.SpanID().String()))
		}
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs keeps the wrapper around the derived handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup keeps the wrapper around the derived handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
