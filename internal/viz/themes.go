package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the palette shared by report tables, plots and SVG export.
// Traces colours successive series.
type Theme struct {
	Name       string
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Traces     []lipgloss.Color
}

var (
	ThemeScope = Theme{
		Name:       "scope",
		Primary:    "#ff00ff",
		Secondary:  "#00ffff",
		Accent:     "#ffff00",
		Background: "#0a0a0a",
		Text:       "#ffffff",
		Muted:      "#666688",
		Success:    "#00ff88",
		Warning:    "#ffaa00",
		Error:      "#ff4444",
		Traces:     []lipgloss.Color{"#00ffff", "#ffff00", "#ff00ff", "#00ff88"},
	}

	ThemePhosphor = Theme{
		Name:       "phosphor",
		Primary:    "#00ff00",
		Secondary:  "#88ff88",
		Accent:     "#ccffcc",
		Background: "#001100",
		Text:       "#00ff00",
		Muted:      "#005500",
		Success:    "#88ff88",
		Warning:    "#ffff00",
		Error:      "#ff0000",
		Traces:     []lipgloss.Color{"#00ff00", "#88ff88", "#00aa44"},
	}

	ThemePaper = Theme{
		Name:       "paper",
		Primary:    "#1f3a93",
		Secondary:  "#0066cc",
		Accent:     "#cc3300",
		Background: "#ffffff",
		Text:       "#111111",
		Muted:      "#888888",
		Success:    "#007733",
		Warning:    "#aa6600",
		Error:      "#cc0000",
		Traces:     []lipgloss.Color{"#0066cc", "#cc3300", "#007733", "#6a3d9a"},
	}

	CurrentTheme = ThemeScope

	Themes = []Theme{ThemeScope, ThemePhosphor, ThemePaper}
)

// GetTheme falls back to the scope theme for unknown names.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeScope
}

// SetTheme changes the current theme and rebuilds the shared styles.
func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
	applyTheme(CurrentTheme)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
