package plotpage

import "errors"

// ErrUnknownTheme is returned by ParseTheme for unsupported names.
var ErrUnknownTheme = errors.New("unknown theme")

// Theme represents a color theme for rendered pages.
type Theme string

const (
	// ThemeLight is the light color theme.
	ThemeLight Theme = "light"
	// ThemeDark is the dark color theme.
	ThemeDark Theme = "dark"
)

// ParseTheme maps a configured theme name to a Theme.
func ParseTheme(name string) (Theme, error) {
	switch Theme(name) {
	case ThemeLight, ThemeDark:
		return Theme(name), nil
	default:
		return "", ErrUnknownTheme
	}
}

// ThemeConfig holds the colors used by the page template and charts.
type ThemeConfig struct {
	Background    string
	Surface       string
	Border        string
	TextPrimary   string
	TextMuted     string
	Accent        string
	ChartGrid     string
	ChartAxis     string
	ChartText     string
	ChartTextMute string
	// Palette colors series that carry no color of their own, by index.
	Palette []string
}

// GetThemeConfig returns the configuration for a given theme. Unknown
// themes fall back to light.
func GetThemeConfig(theme Theme) ThemeConfig {
	if theme == ThemeDark {
		return darkTheme
	}

	return lightTheme
}

// SeriesColor picks the color for the idx-th series: its own color when
// set, otherwise the theme palette entry.
func (tc ThemeConfig) SeriesColor(own string, idx int) string {
	if own != "" {
		return own
	}

	return tc.Palette[idx%len(tc.Palette)]
}

var lightTheme = ThemeConfig{
	Background:    "#fafaf9", // stone-50.
	Surface:       "#ffffff",
	Border:        "#e7e5e4", // stone-200.
	TextPrimary:   "#1c1917", // stone-900.
	TextMuted:     "#78716c", // stone-500.
	Accent:        "#a16207", // amber-700.
	ChartGrid:     "#e7e5e4",
	ChartAxis:     "#a8a29e", // stone-400.
	ChartText:     "#44403c", // stone-700.
	ChartTextMute: "#78716c",
	Palette: []string{
		"#a16207", "#0369a1", "#4d7c0f", "#7c3aed", "#be185d",
		"#0891b2", "#c2410c", "#4338ca", "#15803d", "#b91c1c",
	},
}

var darkTheme = ThemeConfig{
	Background:    "#0c0a09", // stone-950.
	Surface:       "#1c1917", // stone-900.
	Border:        "#44403c", // stone-700.
	TextPrimary:   "#fafaf9",
	TextMuted:     "#a8a29e",
	Accent:        "#d97706", // amber-600.
	ChartGrid:     "#44403c",
	ChartAxis:     "#57534e", // stone-600.
	ChartText:     "#d6d3d1", // stone-300.
	ChartTextMute: "#a8a29e",
	Palette: []string{
		"#fbbf24", "#38bdf8", "#a3e635", "#a78bfa", "#f472b6",
		"#22d3ee", "#fb923c", "#818cf8", "#4ade80", "#f87171",
	},
}
