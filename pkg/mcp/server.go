// Package mcp implements a Model Context Protocol server exposing series
// alignment, stacking and rendering as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/stackline/pkg/observability"
	"github.com/Sumatoshi-tech/stackline/pkg/plotpage"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
	"github.com/Sumatoshi-tech/stackline/pkg/version"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "stackline"

	// toolCount is the expected number of registered tools.
	toolCount = 3
)

// Defaults are the options tools fall back to when a call omits them.
type Defaults struct {
	Fill     series.FillPolicy
	MaxSteps int
	Schema   bool
	Strict   bool
	Theme    plotpage.Theme
	Kind     plotpage.Kind
	Title    string
}

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.REDMetrics

	// SeriesMetrics optionally records per-call transform sizes.
	SeriesMetrics *observability.SeriesMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer

	// Memo caches align+stack results across calls. Nil creates a default one.
	Memo *series.Memo

	Defaults Defaults
}

// Server wraps the MCP SDK server with stackline tool registrations.
type Server struct {
	inner    *mcpsdk.Server
	mu       sync.RWMutex
	tools    []string
	metrics  *observability.REDMetrics
	tracer   trace.Tracer
	logger   *slog.Logger
	handlers *handlers
}

// NewServer creates a new MCP server with all stackline tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}

	logger := slog.Default()
	if deps.Logger != nil {
		opts.Logger = deps.Logger
		logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	srv := &Server{
		inner:    inner,
		tools:    make([]string, 0, toolCount),
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
		logger:   logger,
		handlers: newHandlers(deps),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all stackline MCP tools to the server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameAlign,
		Description: alignToolDescription,
	}, withMetrics(s.metrics, ToolNameAlign, withTracing(s.tracer, ToolNameAlign,
		withLogging(s.logger, ToolNameAlign, s.handlers.align))))
	s.trackTool(ToolNameAlign)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameStack,
		Description: stackToolDescription,
	}, withMetrics(s.metrics, ToolNameStack, withTracing(s.tracer, ToolNameStack,
		withLogging(s.logger, ToolNameStack, s.handlers.stack))))
	s.trackTool(ToolNameStack)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameRender,
		Description: renderToolDescription,
	}, withMetrics(s.metrics, ToolNameRender, withTracing(s.tracer, ToolNameRender,
		withLogging(s.logger, ToolNameRender, s.handlers.render))))
	s.trackTool(ToolNameRender)
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withLogging scopes the call context to the tool and logs each call's
// outcome. Tool failures are reported to the client as IsError results, so
// they are logged at warn level rather than returned.
func withLogging[Input any](
	logger *slog.Logger,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx = observability.ToolScope(ctx, toolName)
		start := time.Now()

		result, output, err := handler(ctx, req, input)

		switch {
		case err != nil:
			logger.ErrorContext(ctx, "tool call failed", "error", err)
		case result != nil && result.IsError:
			logger.WarnContext(ctx, "tool call rejected", "error", resultText(result))
		default:
			logger.DebugContext(ctx, "tool call", "duration", time.Since(start))
		}

		return result, output, err
	}
}

func resultText(result *mcpsdk.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			return tc.Text
		}
	}

	return ""
}

// withMetrics wraps an MCP tool handler to record RED metrics per invocation.
func withMetrics[Input any](
	metrics *observability.REDMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		decInflight := metrics.TrackInflight(ctx, mcpSpanPrefix+toolName)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, mcpSpanPrefix+toolName, status, time.Since(start))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// Tool description constants.
const (
	alignToolDescription = "Align chart series onto a shared position domain. " +
		"Positions missing from a series are filled with zero-valued points. " +
		"Accepts an inline chart document (json, yaml or csv)."

	stackToolDescription = "Align chart series and compute stacking offsets: each point's offset " +
		"is the sum of the values of the series before it at that position."

	renderToolDescription = "Render chart series as a stacked area or bar chart and return a " +
		"self-contained HTML page."
)
