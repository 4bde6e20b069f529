// Package state persists interactive shell preferences between runs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/dualai/internal/logger"
	"github.com/mark3labs/dualai/internal/negotiation"
)

// FileName is the state file inside the data directory.
const FileName = "shell-state.json"

// ShellState holds preferences that carry across shell runs.
type ShellState struct {
	// LastImplementer is offered as the default answer of the implementer choice.
	LastImplementer negotiation.Implementer `json:"last_implementer,omitempty"`
	// SessionsCompleted counts sessions finished in any shell run.
	SessionsCompleted int `json:"sessions_completed"`
}

// Load reads the shell state from dataDir.
// Returns an empty state if the file doesn't exist or on error.
func Load(dataDir string) *ShellState {
	path := filepath.Join(dataDir, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read shell state file: %v", err)
		}
		return &ShellState{}
	}

	var st ShellState
	if err := json.Unmarshal(data, &st); err != nil {
		logger.Warn("Failed to parse shell state JSON: %v", err)
		return &ShellState{}
	}

	// Drop values written by other versions.
	if _, err := negotiation.ParseImplementer(string(st.LastImplementer)); err != nil {
		st.LastImplementer = ""
	}
	return &st
}

// Save writes the shell state to dataDir, creating it if needed.
func Save(dataDir string, st *ShellState) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, FileName)

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling shell state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing shell state file: %w", err)
	}

	logger.Debug("Shell state saved to %s", path)
	return nil
}
