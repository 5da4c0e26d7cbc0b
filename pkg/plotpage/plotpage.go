// Package plotpage renders stacked series as go-echarts charts embedded in a
// self-contained HTML page.
package plotpage

import (
	"fmt"
	"html/template"
	"io"
	"strings"
)

const styleTagLen = 8 // len("</style>")

// Style defines chart dimensions and grid margins.
type Style struct {
	Width      string
	Height     string
	GridLeft   string
	GridRight  string
	GridTop    string
	GridBottom string
}

// DefaultStyle returns the default chart style.
func DefaultStyle() Style {
	return Style{
		Width:      "100%",
		Height:     "500px",
		GridLeft:   "5%",
		GridRight:  "5%",
		GridTop:    "20%",
		GridBottom: "15%",
	}
}

// Stat is a labelled figure shown in the page summary strip.
type Stat struct {
	Label string
	Value string
}

// Section represents a chart section within a page.
type Section struct {
	Title    string
	Subtitle string
	Chart    Renderable
}

// Page represents a complete visualization page.
type Page struct {
	Title       string
	Description string
	Theme       Theme
	Stats       []Stat
	Sections    []Section
}

// NewPage creates a new visualization page.
func NewPage(title, description string) *Page {
	return &Page{
		Title:       title,
		Description: description,
		Theme:       ThemeDark,
	}
}

// WithTheme sets the theme for the page.
func (p *Page) WithTheme(theme Theme) *Page {
	p.Theme = theme

	return p
}

// AddStat appends a summary figure.
func (p *Page) AddStat(label, value string) {
	p.Stats = append(p.Stats, Stat{Label: label, Value: value})
}

// Add appends sections to the page.
func (p *Page) Add(sections ...Section) {
	p.Sections = append(p.Sections, sections...)
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	return HTMLRenderer{}.Render(w, p)
}

// Renderable is anything that writes itself as HTML, such as a go-echarts
// chart.
type Renderable interface {
	Render(w io.Writer) error
}

// HTMLRenderer turns a Page into a standalone HTML document.
type HTMLRenderer struct {
	ExtraCSS string
}

// Render writes page to w.
func (r HTMLRenderer) Render(w io.Writer, page *Page) error {
	var body strings.Builder

	for _, section := range page.Sections {
		chart, err := renderChart(section.Chart)
		if err != nil {
			return fmt.Errorf("render section %q: %w", section.Title, err)
		}

		fragment, err := renderTemplate("section.html", sectionData{
			Title:    section.Title,
			Subtitle: section.Subtitle,
			Chart:    template.HTML(chart), //nolint:gosec // go-echarts output.
		})
		if err != nil {
			return fmt.Errorf("render section %q: %w", section.Title, err)
		}

		body.WriteString(string(fragment))
	}

	doc, err := renderTemplate("page.html", pageData{
		Title:       page.Title,
		Description: page.Description,
		Dark:        page.Theme == ThemeDark,
		Theme:       GetThemeConfig(page.Theme),
		ExtraCSS:    template.CSS(r.ExtraCSS), //nolint:gosec // caller-supplied stylesheet.
		Stats:       page.Stats,
		Content:     template.HTML(body.String()), //nolint:gosec // rendered by our templates.
	})
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, string(doc))
	if err != nil {
		return fmt.Errorf("write page: %w", err)
	}

	return nil
}

// ChartWrapper renders a chart as a bare fragment, without the surrounding
// go-echarts page.
type ChartWrapper struct {
	chart Renderable
}

// WrapChart wraps chart as a fragment renderer.
func WrapChart(chart Renderable) *ChartWrapper {
	return &ChartWrapper{chart: chart}
}

// Render writes the chart div and its init script.
func (cw *ChartWrapper) Render(w io.Writer) error {
	fragment, err := renderChart(cw.chart)
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, fragment)
	if err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	return nil
}

// renderChart renders chart and strips it down to its fragment. A nil
// chart renders as nothing.
func renderChart(chart Renderable) (string, error) {
	if chart == nil {
		return "", nil
	}

	var sb strings.Builder

	err := chart.Render(&sb)
	if err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}

	return extractChartContent(sb.String()), nil
}

// extractChartContent cuts the chart div and its init script out of a full
// go-echarts page. Fragments pass through unchanged.
func extractChartContent(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	if start == -1 {
		return html
	}

	end := strings.Index(html, `</body>`)
	if end == -1 {
		return html
	}

	content := html[start:end]
	content = strings.ReplaceAll(content, `class="container"`, `class="echart-box"`)

	return removeStyleTags(content)
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, `<style>`)
		if i == -1 {
			return content
		}

		j := strings.Index(content[i:], `</style>`)
		if j == -1 {
			return content
		}

		content = content[:i] + content[i+j+styleTagLen:]
	}
}
