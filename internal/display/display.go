// Package display renders negotiation sessions and the interactive shell to a
// terminal using lipgloss panels and glamour markdown.
package display

import (
	"fmt"
	"io"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/mark3labs/dualai/internal/consensus"
	"github.com/mark3labs/dualai/internal/logger"
	"github.com/mark3labs/dualai/internal/negotiation"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 100

// Options configures a Display.
type Options struct {
	Width    int  // Panel width (default: DefaultWidth)
	NoColor  bool // Strip colors, keeping text attributes
	ShowDiff bool // Print a diff between the proposals of successive rounds
}

// Display writes session progress to a terminal. It implements
// negotiation.Observer and is not safe for concurrent use.
type Display struct {
	out      *colorprofile.Writer
	width    int
	noColor  bool
	showDiff bool

	// Per-session state, reset when a session enters STRUCTURING.
	limit        int
	prevIndex    int
	prevProposal string

	activity *activity
}

var _ negotiation.Observer = (*Display)(nil)

// New creates a Display writing to w. The color profile is detected from w
// and the environment.
func New(w io.Writer, opts Options) *Display {
	out := colorprofile.NewWriter(w, os.Environ())
	if opts.NoColor && out.Profile != colorprofile.NoTTY {
		out.Profile = colorprofile.Ascii
	}
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	return &Display{
		out:      out,
		width:    width,
		noColor:  opts.NoColor || out.Profile == colorprofile.NoTTY,
		showDiff: opts.ShowDiff,
	}
}

// Print writes s followed by a newline.
func (d *Display) Print(s string) {
	_, _ = fmt.Fprintln(d.out, s)
}

// Printf writes a formatted line.
func (d *Display) Printf(format string, args ...any) {
	d.Print(fmt.Sprintf(format, args...))
}

// Info writes a muted line.
func (d *Display) Info(format string, args ...any) {
	d.Print(styleMuted.Render(fmt.Sprintf(format, args...)))
}

// Warn writes a highlighted warning line.
func (d *Display) Warn(format string, args ...any) {
	d.Print(styleWarning.Render(fmt.Sprintf(format, args...)))
}

// Error writes "Erreur: <err>" in red.
func (d *Display) Error(err error) {
	d.Print(styleError.Render("Erreur:") + " " + err.Error())
}

// Success writes a green line.
func (d *Display) Success(format string, args ...any) {
	d.Print(styleSuccess.Render(fmt.Sprintf(format, args...)))
}

// Prompt writes the numbered shell prompt without a trailing newline.
func (d *Display) Prompt(n int) {
	_, _ = fmt.Fprint(d.out, stylePrompt.Render(fmt.Sprintf("#%02d ›", n))+" ")
}

// Ask writes a question label and leaves the cursor on the same line.
func (d *Display) Ask(label string) {
	_, _ = fmt.Fprint(d.out, "\n"+stylePrompt.Render(label)+": ")
}

// Clear erases the screen and moves the cursor home.
func (d *Display) Clear() {
	if d.noColor {
		return
	}
	_, _ = fmt.Fprint(d.out, "\x1b[2J\x1b[H")
}

// Markdown renders content as markdown at the panel width.
func (d *Display) Markdown(content string) string {
	return renderMarkdown(content, d.width-4, d.noColor)
}

// StateChanged resets per-session state and reports exhausted rounds.
func (d *Display) StateChanged(from, to negotiation.State) {
	logger.Debug("Display: %s -> %s", from, to)
	d.stopSpinner()
	switch to {
	case negotiation.StateStructuring:
		d.limit = 0
		d.prevIndex = 0
		d.prevProposal = ""
		d.startSpinner("🔄 Claude structure votre demande...")
	case negotiation.StateRoundsExhausted:
		d.Print("")
		d.Warn("⚠️  Consensus non atteint après %d rounds", d.limit)
		d.Print("")
	}
}

// StructuringFallback warns that the raw request is used as is.
func (d *Display) StructuringFallback(err error) {
	d.stopSpinner()
	d.Warn("⚠️  Structuration impossible (%v), utilisation de la demande brute", err)
}

// Structured shows the structured request panel.
func (d *Display) Structured(text string) {
	d.stopSpinner()
	d.Print(panel("Demande structurée", text, colorSky, lipgloss.RoundedBorder(), d.width))
	d.Print("")
	d.Warn("💭 Débat en cours entre les IA...")
	d.Print("")
}

// RoundStarted announces a round.
func (d *Display) RoundStarted(index, limit int) {
	d.stopSpinner()
	d.limit = limit
	d.startSpinner(fmt.Sprintf("Round %d/%d: Claude propose...", index, limit))
}

// Proposal shows the proposer's panel, preceded by a diff against the
// previous round when enabled.
func (d *Display) Proposal(index int, text string) {
	d.stopSpinner()
	if d.showDiff && d.prevProposal != "" {
		if diff := ProposalDiff(d.prevIndex, d.prevProposal, index, text); diff != "" {
			if !d.noColor {
				diff = highlightDiff(diff)
			}
			d.Print(panel(fmt.Sprintf("Évolution Round %d → %d", d.prevIndex, index), diff, colorMauve, lipgloss.NormalBorder(), d.width))
		}
	}
	d.prevIndex = index
	d.prevProposal = text

	d.Print(panel(fmt.Sprintf("Claude - Round %d", index), text, colorSky, lipgloss.RoundedBorder(), d.width))
	d.startSpinner(fmt.Sprintf("Round %d: Gemini analyse...", index))
}

// Response shows the reviewer's panel.
func (d *Display) Response(index int, text string) {
	d.stopSpinner()
	d.Print(panel(fmt.Sprintf("Gemini - Round %d", index), text, colorRed, lipgloss.RoundedBorder(), d.width))
}

// ConsensusChecked announces agreement.
func (d *Display) ConsensusChecked(index int, analysis consensus.Analysis) {
	d.stopSpinner()
	if !analysis.Agreed {
		if len(analysis.Objections) > 0 {
			logger.Debug("Round %d objections: %v", index, analysis.Objections)
		}
		return
	}
	d.Print("")
	d.Success("✅ Consensus atteint !")
	d.Print("")
}

// Implementing announces the implementation phase.
func (d *Display) Implementing(impl negotiation.Implementer) {
	d.stopSpinner()
	d.Print("")
	d.Success("🚀 %s implémente la solution...", impl.DisplayName())
	d.Print("")
	if !d.noColor {
		d.startSpinner(impl.DisplayName() + " travaille...")
	}
}

// Finished shows the artifact of a DONE session or the error of a FAILED one.
func (d *Display) Finished(rec negotiation.Record) {
	d.stopSpinner()
	switch rec.State {
	case negotiation.StateDone:
		title := fmt.Sprintf("Solution implémentée par %s", rec.Implementer.DisplayName())
		d.Print(panel(title, d.Markdown(rec.Artifact), colorGreen, lipgloss.DoubleBorder(), d.width))
	case negotiation.StateFailed:
		d.Print("")
		d.Print(styleError.Render("Erreur lors du traitement:") + " " + rec.Err)
	}
}
