package display

import "charm.land/lipgloss/v2"

// Catppuccin Mocha palette, kept as hex strings so chroma can parse them too.
const (
	colorText     = "#cdd6f4"
	colorSubtext  = "#a6adc8"
	colorBlue     = "#89b4fa"
	colorSky      = "#89dceb"
	colorRed      = "#f38ba8"
	colorGreen    = "#a6e3a1"
	colorYellow   = "#f9e2af"
	colorMauve    = "#cba6f7"
	colorSurface0 = "#313244"
)

var (
	styleTitle    = lipgloss.NewStyle().Bold(true)
	styleMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSubtext))
	styleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)).Bold(true)
	styleWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)).Bold(true)
	styleError    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)).Bold(true)
	stylePrompt   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSky)).Bold(true)
	styleCommand  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSky))
	styleReady    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen))
	styleNotFound = lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed))
)

// panel draws content in a bordered box with a bold title line.
func panel(title, content, accent string, border lipgloss.Border, width int) string {
	heading := styleTitle.Foreground(lipgloss.Color(accent)).Render(title)
	body := heading
	if content != "" {
		body += "\n\n" + content
	}
	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(lipgloss.Color(accent)).
		Padding(0, 1).
		Width(width).
		Render(body)
}
