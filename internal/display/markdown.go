package display

import (
	"strings"

	"charm.land/glamour/v2"
	"charm.land/lipgloss/v2"
)

// maxMarkdownWidth caps rendered markdown for readability.
const maxMarkdownWidth = 120

// renderMarkdown renders content with glamour. Falls back to plain wrapping
// when the renderer cannot be built or fails.
func renderMarkdown(content string, width int, noColor bool) string {
	if width > maxMarkdownWidth {
		width = maxMarkdownWidth
	}

	style := "dark"
	if noColor {
		style = "notty"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return wrapText(content, width)
	}

	rendered, err := r.Render(content)
	if err != nil {
		return wrapText(content, width)
	}

	// Glamour pads with blank lines on both ends.
	return strings.Trim(rendered, "\n")
}

func wrapText(content string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(content)
}
