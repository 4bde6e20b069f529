package display

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/mark3labs/dualai/internal/agent"
	"github.com/mark3labs/dualai/internal/negotiation"
)

// historyRequestWidth bounds the request column of the history table.
const historyRequestWidth = 50

// HistoryEntry is one completed session of the interactive shell.
type HistoryEntry struct {
	Request     string
	Implementer negotiation.Implementer
	Consensus   bool
	RoundsUsed  int
}

// SessionRow is one persisted session in the sessions table.
type SessionRow struct {
	ID          string
	Request     string
	State       negotiation.State
	Consensus   bool
	RoundsUsed  int
	Implementer negotiation.Implementer
	StartedAt   time.Time
}

func newTable(headers ...string) *table.Table {
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue))
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(accent).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return s.Bold(true).Foreground(lipgloss.Color(colorMauve))
			case col == 0:
				return s.Foreground(lipgloss.Color(colorSky))
			}
			return s.Foreground(lipgloss.Color(colorText))
		})
}

func yesNo(b bool) string {
	if b {
		return "Oui"
	}
	return "Non"
}

// truncate cuts s to width cells and appends "..." when it was longer.
func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "") + "..."
}

// Header shows tool availability and the working directory.
func (d *Display) Header(version string, claudeReady, geminiReady bool, cwd string) {
	status := func(ready bool) string {
		if ready {
			return styleReady.Render("✓ Ready")
		}
		return styleNotFound.Render("✗ Not found")
	}
	content := fmt.Sprintf("🤖 Claude: %s    🤖 Gemini: %s    📁 %s", status(claudeReady), status(geminiReady), cwd)
	d.Print(panel("Dual AI Orchestrator "+version, content, colorBlue, lipgloss.DoubleBorder(), d.width))
	d.Print("")
}

// Welcome shows the logo and the usage instructions.
func (d *Display) Welcome() {
	d.Print(renderLogo())
	d.Print("")
}

// Instructions shows the welcome panel listing shell commands.
func (d *Display) Instructions() {
	lines := []string{
		styleTitle.Render("Bienvenue dans Dual AI Orchestrator !"),
		"",
		"• Tapez votre demande pour lancer une collaboration IA",
		"• " + styleCommand.Render("help") + " pour afficher l'aide",
		"• " + styleCommand.Render("exit") + " pour quitter",
		"• " + styleCommand.Render("clear") + " pour effacer l'écran",
	}
	d.Print(panel("Instructions", strings.Join(lines, "\n"), colorSky, lipgloss.RoundedBorder(), d.width))
	d.Print("")
}

// Help lists the shell commands.
func (d *Display) Help() {
	t := newTable("Commande", "Description").
		Row("help, h, ?", "Affiche cette aide").
		Row("exit, quit, q", "Quitte l'application").
		Row("clear", "Efface l'écran").
		Row("history", "Affiche l'historique de la session").
		Row("[texte]", "Envoie une demande aux IA")
	d.Print(styleTitle.Render("Commandes disponibles"))
	d.Print(t.String())
	d.Print("")
}

// History lists the sessions completed in the shell.
func (d *Display) History(entries []HistoryEntry) {
	if len(entries) == 0 {
		d.Warn("Aucun historique pour cette session")
		return
	}
	t := newTable("#", "Demande", "Implémenté par", "Consensus")
	for i, e := range entries {
		t.Row(
			fmt.Sprint(i+1),
			truncate(e.Request, historyRequestWidth),
			e.Implementer.DisplayName(),
			fmt.Sprintf("%s (%d rounds)", yesNo(e.Consensus), e.RoundsUsed),
		)
	}
	d.Print(styleTitle.Render("Historique de session"))
	d.Print(t.String())
	d.Print("")
}

// Choices shows the implementer options offered after the round loop.
func (d *Display) Choices() {
	t := newTable("Option", "IA", "Description").
		Row("1", "Claude", "IA d'Anthropic - Excellence en code propre").
		Row("2", "Gemini", "IA de Google - Innovation et performance")
	d.Print(styleTitle.Render("Quelle IA doit implémenter la solution ?"))
	d.Print(t.String())
}

// Goodbye thanks the user and shows how many sessions completed.
func (d *Display) Goodbye(completed int) {
	content := fmt.Sprintf("Sessions complétées: %d\nÀ bientôt ! 👋", completed)
	d.Print("")
	d.Print(panel("Merci d'avoir utilisé Dual AI Orchestrator !", content, colorSky, lipgloss.DoubleBorder(), d.width))
	d.Print("")
}

// Cancelled reports an interrupted command.
func (d *Display) Cancelled() {
	d.Print("")
	d.Warn("Commande annulée")
}

// Saved reports where a solution file was written.
func (d *Display) Saved(path string) {
	d.Info("💾 Solution sauvegardée: %s", path)
}

// Changes lists the work dir files written during a session.
func (d *Display) Changes(paths []string) {
	if len(paths) == 0 {
		return
	}
	d.Info("📝 Fichiers modifiés (%d):", len(paths))
	for _, p := range paths {
		d.Print("   " + p)
	}
}

// Sessions lists persisted sessions, newest first.
func (d *Display) Sessions(rows []SessionRow) {
	if len(rows) == 0 {
		d.Warn("Aucune session enregistrée")
		return
	}
	t := newTable("ID", "Date", "Demande", "État", "Consensus", "Implémenté par")
	for _, r := range rows {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		impl := "-"
		if r.Implementer != "" {
			impl = r.Implementer.DisplayName()
		}
		t.Row(
			id,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Request, historyRequestWidth),
			string(r.State),
			fmt.Sprintf("%s (%d rounds)", yesNo(r.Consensus), r.RoundsUsed),
			impl,
		)
	}
	d.Print(t.String())
}

// Record replays a persisted session: request, rounds and outcome.
func (d *Display) Record(rec negotiation.Record) {
	meta := []string{
		"Session: " + rec.ID,
		"Date: " + rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
		"État: " + string(rec.State),
		fmt.Sprintf("Consensus: %s (%d/%d rounds)", yesNo(rec.Consensus), rec.RoundsUsed, rec.RoundLimit),
	}
	if rec.Implementer != "" {
		meta = append(meta, "Implémenté par: "+rec.Implementer.DisplayName())
	}
	if rec.Err != "" {
		meta = append(meta, styleError.Render("Erreur: ")+rec.Err)
	}
	d.Print(panel("Demande", rec.Request+"\n\n"+styleMuted.Render(strings.Join(meta, "\n")), colorBlue, lipgloss.DoubleBorder(), d.width))

	if rec.StructuredRequest != "" {
		title := "Demande structurée"
		if rec.StructuringFallback {
			title += " (repli)"
		}
		d.Print(panel(title, rec.StructuredRequest, colorSky, lipgloss.RoundedBorder(), d.width))
	}
	for _, r := range rec.Rounds {
		d.Print(panel(fmt.Sprintf("Claude - Round %d", r.Index), r.Proposal, colorSky, lipgloss.RoundedBorder(), d.width))
		d.Print(panel(fmt.Sprintf("Gemini - Round %d", r.Index), r.Response, colorRed, lipgloss.RoundedBorder(), d.width))
	}
	if rec.Artifact != "" {
		title := fmt.Sprintf("Solution implémentée par %s", rec.Implementer.DisplayName())
		d.Print(panel(title, d.Markdown(rec.Artifact), colorGreen, lipgloss.DoubleBorder(), d.width))
	}
}

// Tools lists external tool availability for the doctor command.
func (d *Display) Tools(statuses []agent.Status) {
	t := newTable("Outil", "Commande", "Statut", "Version")
	for _, s := range statuses {
		status := styleReady.Render("✓ Ready")
		switch {
		case !s.Enabled:
			status = styleMuted.Render("désactivé")
		case !s.Available:
			status = styleNotFound.Render("✗ Not found")
		}
		version := s.Version
		if version == "" {
			version = "-"
		}
		t.Row(s.Name, s.Command, status, truncate(version, 40))
	}
	d.Print(t.String())
}
