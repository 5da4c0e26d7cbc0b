package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/stackline/pkg/plotpage"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
	"github.com/Sumatoshi-tech/stackline/pkg/seriesio"
)

// Tool name constants.
const (
	ToolNameAlign  = "series_align"
	ToolNameStack  = "series_stack"
	ToolNameRender = "series_render"
)

// MaxDocumentBytes is the maximum allowed size for an inline chart document (4 MB).
const MaxDocumentBytes = 4 << 20

// Sentinel errors for tool input validation.
var (
	// ErrEmptyDocument indicates the document parameter is empty.
	ErrEmptyDocument = errors.New("document parameter is required and must not be empty")
	// ErrDocumentTooLarge indicates the document exceeds MaxDocumentBytes.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size")
	// ErrInvalidFill indicates an unknown fill policy.
	ErrInvalidFill = errors.New("fill must be zero or missing")
	// ErrDomainTooLarge indicates a uniform domain above the configured step limit.
	ErrDomainTooLarge = errors.New("uniform domain exceeds max steps")
)

// Input types (auto-generate JSON schemas via struct tags).

// ChartInput carries an inline chart document and alignment overrides.
type ChartInput struct {
	Document       string `json:"document"                  jsonschema:"chart document with title and series[].points[]"`
	Fill           string `json:"fill,omitempty"            jsonschema:"synthesized point policy: zero (default) or missing"`
	Format         string `json:"format,omitempty"          jsonschema:"document format: json (default) yaml or csv"`
	UniformSpacing *bool  `json:"uniform_spacing,omitempty" jsonschema:"fill every unit step between min and max position (overrides the document)"`
}

// StackInput is the input schema for the series_stack tool.
type StackInput struct {
	Document       string `json:"document"                  jsonschema:"chart document with title and series[].points[]"`
	Fill           string `json:"fill,omitempty"            jsonschema:"synthesized point policy: zero (default) or missing"`
	Format         string `json:"format,omitempty"          jsonschema:"document format: json (default) yaml or csv"`
	UniformSpacing *bool  `json:"uniform_spacing,omitempty" jsonschema:"fill every unit step between min and max position (overrides the document)"`
	Prealigned     bool   `json:"prealigned,omitempty"      jsonschema:"series are already aligned; fail instead of aligning"`
}

func (in StackInput) chart() ChartInput {
	return ChartInput{Document: in.Document, Fill: in.Fill, Format: in.Format, UniformSpacing: in.UniformSpacing}
}

// RenderInput is the input schema for the series_render tool.
type RenderInput struct {
	Document       string `json:"document"                  jsonschema:"chart document with title and series[].points[]"`
	Fill           string `json:"fill,omitempty"            jsonschema:"synthesized point policy: zero (default) or missing"`
	Format         string `json:"format,omitempty"          jsonschema:"document format: json (default) yaml or csv"`
	UniformSpacing *bool  `json:"uniform_spacing,omitempty" jsonschema:"fill every unit step between min and max position (overrides the document)"`
	Kind           string `json:"kind,omitempty"            jsonschema:"chart kind: area (default) or bar"`
	Theme          string `json:"theme,omitempty"           jsonschema:"page theme: dark or light"`
	Title          string `json:"title,omitempty"           jsonschema:"page title (defaults to the document title)"`
}

func (in RenderInput) chart() ChartInput {
	return ChartInput{Document: in.Document, Fill: in.Fill, Format: in.Format, UniformSpacing: in.UniformSpacing}
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// RenderOutput is the structured payload of series_render.
type RenderOutput struct {
	HTML      string `json:"html"`
	Series    int    `json:"series"`
	Positions int    `json:"positions"`
}

type handlers struct {
	deps ServerDeps
	memo *series.Memo
}

func newHandlers(deps ServerDeps) *handlers {
	memo := deps.Memo
	if memo == nil {
		memo = series.NewMemo(series.DefaultMemoEntries)
	}

	if deps.Defaults.Fill == "" {
		deps.Defaults.Fill = series.FillZero
	}

	return &handlers{deps: deps, memo: memo}
}

func (h *handlers) align(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input ChartInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	chart, opts, err := h.load(input)
	if err != nil {
		return errorResult(err)
	}

	raw := chart.Series
	chart.Series = series.Align(raw, opts)
	h.record(ctx, raw, chart.Series)

	return jsonResult(chart)
}

func (h *handlers) stack(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input StackInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	chart, opts, err := h.load(input.chart())
	if err != nil {
		return errorResult(err)
	}

	raw := chart.Series

	if input.Prealigned {
		chart.Series, err = series.StackStrict(raw)
		if err != nil {
			return errorResult(err)
		}
	} else {
		chart.Series = h.memo.AlignAndStack(raw, opts)
	}

	h.record(ctx, raw, chart.Series)

	return jsonResult(chart)
}

func (h *handlers) render(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input RenderInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	chart, opts, err := h.load(input.chart())
	if err != nil {
		return errorResult(err)
	}

	kind := h.deps.Defaults.Kind
	if input.Kind != "" {
		kind, err = plotpage.ParseKind(input.Kind)
		if err != nil {
			return errorResult(err)
		}
	}

	theme := h.deps.Defaults.Theme
	if input.Theme != "" {
		theme, err = plotpage.ParseTheme(input.Theme)
		if err != nil {
			return errorResult(fmt.Errorf("%w: %q", err, input.Theme))
		}
	}

	if theme == "" {
		theme = plotpage.ThemeDark
	}

	title := firstNonEmpty(input.Title, chart.Title, h.deps.Defaults.Title)
	stacked := h.memo.AlignAndStack(chart.Series, opts)
	h.record(ctx, chart.Series, stacked)

	cfg := plotpage.DefaultChartConfig()
	cfg.Theme = theme

	chartView, err := plotpage.Stacked(cfg, kind, stacked)
	if err != nil {
		return errorResult(err)
	}

	page := plotpage.NewPage(title, "").WithTheme(theme)
	page.Add(plotpage.Section{Title: title, Chart: chartView})

	var buf bytes.Buffer

	err = page.Render(&buf)
	if err != nil {
		return errorResult(err)
	}

	out := RenderOutput{HTML: buf.String(), Series: len(stacked), Positions: len(plotpage.PositionLabels(stacked))}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: out.HTML},
		},
	}, ToolOutput{Data: out}, nil
}

// load decodes and normalizes the inline document and resolves the align
// options from the input, the document and the server defaults.
func (h *handlers) load(input ChartInput) (*seriesio.Chart, series.AlignOptions, error) {
	err := validateDocument(input.Document)
	if err != nil {
		return nil, series.AlignOptions{}, err
	}

	format := seriesio.FormatJSON
	if input.Format != "" {
		format, err = seriesio.ParseFormat(input.Format)
		if err != nil {
			return nil, series.AlignOptions{}, err
		}
	}

	chart, err := seriesio.Parse([]byte(input.Document), format, h.deps.Defaults.Schema)
	if err != nil {
		return nil, series.AlignOptions{}, err
	}

	err = chart.Normalize(h.deps.Defaults.Strict)
	if err != nil {
		return nil, series.AlignOptions{}, err
	}

	fill := h.deps.Defaults.Fill
	if input.Fill != "" {
		parsed, ok := series.ParseFillPolicy(input.Fill)
		if !ok {
			return nil, series.AlignOptions{}, fmt.Errorf("%w: %q", ErrInvalidFill, input.Fill)
		}

		fill = parsed
	}

	if input.UniformSpacing != nil {
		chart.UniformSpacing = *input.UniformSpacing
	}

	opts := chart.AlignOptions(fill)

	if opts.EnforceUniformSpacing && h.deps.Defaults.MaxSteps > 0 {
		if steps := series.UniformSteps(chart.Series); steps > h.deps.Defaults.MaxSteps {
			return nil, series.AlignOptions{}, fmt.Errorf("%w: %d > %d", ErrDomainTooLarge, steps, h.deps.Defaults.MaxSteps)
		}
	}

	return chart, opts, nil
}

func (h *handlers) record(ctx context.Context, raw, out []series.Series) {
	if h.deps.SeriesMetrics == nil {
		return
	}

	positions := 0
	if len(out) > 0 {
		positions = len(out[0].Points)
	}

	h.deps.SeriesMetrics.RecordTransform(ctx, len(out), positions, max(countPoints(out)-countPoints(raw), 0))
}

func countPoints(in []series.Series) int {
	n := 0
	for _, s := range in {
		n += len(s.Points)
	}

	return n
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateDocument checks common document input constraints.
func validateDocument(doc string) error {
	if doc == "" {
		return ErrEmptyDocument
	}

	if len(doc) > MaxDocumentBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrDocumentTooLarge, len(doc), MaxDocumentBytes)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
