package display

import (
	"bytes"
	"fmt"
	"strings"

	chroma "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/aymanbagabas/go-udiff"
)

// ProposalDiff returns the unified diff between the proposals of two
// consecutive rounds, or "" when they are identical.
func ProposalDiff(prevIndex int, prev string, nextIndex int, next string) string {
	if prev == next {
		return ""
	}
	return udiff.Unified(
		fmt.Sprintf("round-%d", prevIndex),
		fmt.Sprintf("round-%d", nextIndex),
		ensureNewline(prev),
		ensureNewline(next),
	)
}

// ensureNewline avoids the "no newline at end of file" marker on every diff.
func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// highlightDiff colors a unified diff with chroma's diff lexer. The output
// uses true color ANSI codes; the colorprofile writer downsamples it.
func highlightDiff(diff string) string {
	lexer := lexers.Get("diff")
	if lexer == nil {
		return diff
	}

	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Get("terminal256")
	}
	if formatter == nil {
		return diff
	}

	baseStyle := styles.Get("monokai")
	if baseStyle == nil {
		baseStyle = styles.Fallback
	}

	// Match token backgrounds to the panel surface.
	bg := chroma.MustParseColour(colorSurface0)
	style, err := baseStyle.Builder().Transform(func(entry chroma.StyleEntry) chroma.StyleEntry {
		entry.Background = bg
		return entry
	}).Build()
	if err != nil {
		style = baseStyle
	}

	iterator, err := lexer.Tokenise(nil, diff)
	if err != nil {
		return diff
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return diff
	}
	return strings.TrimRight(buf.String(), "\n")
}
