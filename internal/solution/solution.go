// Package solution writes implementation artifacts to markdown files.
package solution

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/mark3labs/dualai/internal/logger"
	"github.com/mark3labs/dualai/internal/negotiation"
)

// maxSlugLen bounds the request-derived part of a file name.
const maxSlugLen = 40

// Solution is the content of one saved file.
type Solution struct {
	Request     string
	Artifact    string
	Implementer negotiation.Implementer
	Consensus   bool
	RoundsUsed  int
	SessionID   string
	Time        time.Time
}

// FromResult builds a Solution from a finished session.
func FromResult(request string, res *negotiation.Result) Solution {
	ended := res.Record.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	return Solution{
		Request:     request,
		Artifact:    res.Artifact,
		Implementer: res.Implementer,
		Consensus:   res.Consensus,
		RoundsUsed:  res.RoundsUsed,
		SessionID:   res.Record.ID,
		Time:        ended,
	}
}

// FileName returns solution_<YYYYMMDD_HHMMSS>_<implementer>[_<slug>].md.
func (s Solution) FileName() string {
	name := fmt.Sprintf("solution_%s_%s", s.Time.Format("20060102_150405"), s.Implementer)
	if sl := requestSlug(s.Request); sl != "" {
		name += "_" + sl
	}
	return name + ".md"
}

func requestSlug(request string) string {
	sl := slug.Make(request)
	if len(sl) > maxSlugLen {
		sl = strings.TrimRight(sl[:maxSlugLen], "-")
	}
	return sl
}

// Markdown renders the file content.
func (s Solution) Markdown() string {
	consensus := "Non"
	if s.Consensus {
		consensus = "Oui"
	}

	var sb strings.Builder
	sb.WriteString("# Solution Dual AI\n\n")
	fmt.Fprintf(&sb, "**Date**: %s\n", s.Time.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "**Implémenté par**: %s\n", s.Implementer.DisplayName())
	fmt.Fprintf(&sb, "**Consensus**: %s (%d rounds)\n", consensus, s.RoundsUsed)
	if s.SessionID != "" {
		fmt.Fprintf(&sb, "**Session**: %s\n", s.SessionID)
	}
	fmt.Fprintf(&sb, "\n## Demande\n\n%s\n\n", s.Request)
	fmt.Fprintf(&sb, "## Solution\n\n%s\n", s.Artifact)
	return sb.String()
}

// Save writes s into dir, creating it if needed, and returns the file path.
// A leading "~/" in dir is expanded to the home directory.
func Save(dir string, s Solution) (string, error) {
	dir, err := ExpandHome(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create solutions directory: %w", err)
	}

	path := filepath.Join(dir, s.FileName())
	if err := os.WriteFile(path, []byte(s.Markdown()), 0644); err != nil {
		return "", fmt.Errorf("failed to write solution: %w", err)
	}

	logger.Info("Solution saved: %s", path)
	return path, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
