package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/dualai/internal/logger"
)

// Variables holds the data to be injected into template placeholders.
type Variables struct {
	Request     string // Raw user request
	Structured  string // Structured request
	Context     string // Round context or final debate summary
	Proposal    string // Latest proposal under review
	Proposer    string // Display name of the proposing tool
	Reviewer    string // Display name of the reviewing tool
	Implementer string // Display name of the implementing tool
	Extra       string // Extra context (e.g. pre-session hook output)
}

// Render replaces {{variable}} placeholders in template with actual values.
// Supports the following variables:
// - {{request}} - Raw user request
// - {{structured}} - Structured request
// - {{context}} - Round context or final debate summary
// - {{proposal}} - Proposal under review
// - {{proposer}}, {{reviewer}}, {{implementer}} - Tool display names
// - {{extra}} - Extra context (empty if none)
//
// Unknown placeholders are left as is.
func Render(template string, vars Variables) string {
	replacements := []string{
		"{{request}}", vars.Request,
		"{{structured}}", vars.Structured,
		"{{context}}", vars.Context,
		"{{proposal}}", vars.Proposal,
		"{{proposer}}", vars.Proposer,
		"{{reviewer}}", vars.Reviewer,
		"{{implementer}}", vars.Implementer,
		"{{extra}}", vars.Extra,
	}
	// A single Replacer pass so values containing placeholders are not expanded.
	return strings.NewReplacer(replacements...).Replace(template)
}

// LoadFromFile loads a template from a file.
// If the file doesn't exist or can't be read, returns an error.
func LoadFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template file %s: %w", path, err)
	}
	return string(data), nil
}

// Set is the group of templates used by one session.
type Set struct {
	Structure string
	Propose   string
	Review    string
	Implement string
}

// Defaults returns the embedded templates.
func Defaults() Set {
	return Set{
		Structure: StructureTemplate,
		Propose:   ProposeTemplate,
		Review:    ReviewTemplate,
		Implement: ImplementTemplate,
	}
}

// File names looked up by LoadSet.
const (
	StructureFile = "structure.md"
	ProposeFile   = "propose.md"
	ReviewFile    = "review.md"
	ImplementFile = "implement.md"
)

// LoadSet returns the embedded templates with any of them overridden by a
// file of the same role in dir. An empty dir returns the defaults.
// Missing files fall back to the default; unreadable files are an error.
func LoadSet(dir string) (Set, error) {
	set := Defaults()
	if dir == "" {
		return set, nil
	}

	overrides := []struct {
		file   string
		target *string
	}{
		{StructureFile, &set.Structure},
		{ProposeFile, &set.Propose},
		{ReviewFile, &set.Review},
		{ImplementFile, &set.Implement},
	}

	for _, o := range overrides {
		path := filepath.Join(dir, o.file)
		content, err := LoadFromFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Set{}, err
		}
		if strings.TrimSpace(content) == "" {
			logger.Warn("Ignoring empty template override: %s", path)
			continue
		}
		logger.Debug("Using custom template: %s", path)
		*o.target = content
	}

	return set, nil
}
