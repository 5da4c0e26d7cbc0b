package plotpage

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageTemplates holds page.html and section.html. The files are embedded, so
// a parse failure is a build defect.
var pageTemplates = template.Must(template.New("plotpage").ParseFS(templateFS, "templates/*.html"))

func renderTemplate(name string, data any) (template.HTML, error) {
	var sb strings.Builder

	err := pageTemplates.ExecuteTemplate(&sb, name, data)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}

	return template.HTML(sb.String()), nil //nolint:gosec // output of html/template.
}

// pageData feeds page.html.
type pageData struct {
	Title       string
	Description string
	Dark        bool
	Theme       ThemeConfig
	ExtraCSS    template.CSS
	Stats       []Stat
	Content     template.HTML
}

// sectionData feeds section.html.
type sectionData struct {
	Title    string
	Subtitle string
	Chart    template.HTML
}
