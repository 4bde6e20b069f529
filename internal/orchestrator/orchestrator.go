// Package orchestrator wires configuration, external tools, templates, hooks,
// metrics and the session store around a negotiation.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mark3labs/dualai/internal/agent"
	"github.com/mark3labs/dualai/internal/config"
	ierr "github.com/mark3labs/dualai/internal/errors"
	"github.com/mark3labs/dualai/internal/hooks"
	"github.com/mark3labs/dualai/internal/logger"
	"github.com/mark3labs/dualai/internal/metrics"
	"github.com/mark3labs/dualai/internal/nats"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/mark3labs/dualai/internal/session"
	"github.com/mark3labs/dualai/internal/solution"
	"github.com/mark3labs/dualai/internal/template"
	"github.com/mark3labs/dualai/internal/workspace"
)

// Config holds configuration for the orchestrator.
type Config struct {
	Settings *config.Config   // Validated by New
	WorkDir  string           // Working directory for tools and hooks (default: current)
	Persist  bool             // Record sessions in the embedded NATS store
	Metrics  *metrics.Metrics // Default: metrics.Default()
}

// RunOptions are per-session overrides of the configuration.
type RunOptions struct {
	Rounds      int                     // 0 means the configured limit
	Implementer negotiation.Implementer // Empty means the configured one, else Claude
	Chooser     negotiation.Chooser     // Asked for the implementer when set
	Observer    negotiation.Observer
	NoSave      bool // Skip the solution file even with auto_save
}

// Outcome is a finished session plus where its solution was saved.
type Outcome struct {
	Result   *negotiation.Result
	Solution string   // Empty when saving is off or failed
	Changed  []string // Work dir files written during the session, when tracked
}

// Orchestrator runs sessions against the configured tools.
type Orchestrator struct {
	cfg       Config
	settings  *config.Config
	claude    *agent.Tool
	gemini    *agent.Tool
	metrics   *metrics.Metrics
	templates template.Set
	hooks     *hooks.Config
	conn      *nats.Conn     // nil until Start, or when not persisting
	store     *session.Store // nil until Start, or when not persisting
	stopped   bool
}

// New validates the configuration and prepares tools, templates and hooks.
// Nothing is started until Start is called.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Settings == nil {
		return nil, fmt.Errorf("orchestrator: settings are required")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	if cfg.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.WorkDir = wd
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Default()
	}

	templates, err := template.LoadSet(cfg.Settings.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	hooksCfg, err := hooks.LoadConfig(cfg.WorkDir)
	if err != nil {
		// Hooks are optional; a broken file only disables them.
		logger.Warn("Hooks disabled: %v", err)
		hooksCfg = nil
	}

	s := cfg.Settings
	return &Orchestrator{
		cfg:       cfg,
		settings:  s,
		claude:    NewTool("claude", s.Tools.Claude, s.Debug, cfg.WorkDir),
		gemini:    NewTool("gemini", s.Tools.Gemini, s.Debug, cfg.WorkDir),
		metrics:   cfg.Metrics,
		templates: templates,
		hooks:     hooksCfg,
	}, nil
}

// NewTool builds an external tool from its configuration.
func NewTool(name string, tc config.ToolConfig, debug bool, workDir string) *agent.Tool {
	return agent.NewTool(agent.ToolConfig{
		Name:    name,
		Command: tc.Command,
		Args:    tc.Args,
		Timeout: tc.TimeoutDuration(),
		Enabled: tc.Enabled,
		Debug:   debug,
		WorkDir: workDir,
	})
}

// Start opens the session store when persistence is enabled.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.cfg.Persist {
		logger.Debug("Persistence disabled, sessions are not recorded")
		return nil
	}

	conn, err := nats.Open(ctx, filepath.Join(o.abs(o.settings.DataDir), "nats"))
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	o.conn = conn
	o.store = session.NewStore(conn.JS, conn.Stream)
	return nil
}

// Stop releases the session store. Safe to call more than once.
func (o *Orchestrator) Stop() error {
	if o.stopped {
		return nil
	}
	o.stopped = true

	var errs ierr.MultiError
	if o.conn != nil {
		errs.Append(o.conn.Close())
	}
	return errs.ErrorOrNil()
}

// Claude returns the proposer tool.
func (o *Orchestrator) Claude() *agent.Tool { return o.claude }

// Gemini returns the reviewer tool.
func (o *Orchestrator) Gemini() *agent.Tool { return o.gemini }

// Store returns the session store, nil when not persisting.
func (o *Orchestrator) Store() *session.Store { return o.store }

// Run executes one session: pre-session hooks, negotiation, solution file,
// post-session hooks.
func (o *Orchestrator) Run(ctx context.Context, request string, opts RunOptions) (*Outcome, error) {
	id := uuid.NewString()
	extra, err := o.preSession(ctx, id)
	if err != nil {
		return nil, err
	}

	rounds := opts.Rounds
	if rounds == 0 {
		rounds = o.settings.Rounds
	}
	impl := opts.Implementer
	if impl == "" && o.settings.Implementer != "" {
		impl, err = negotiation.ParseImplementer(o.settings.Implementer)
		if err != nil {
			return nil, err
		}
	}

	ncfg := negotiation.Config{
		ID:               id,
		Claude:           o.metrics.Instrument(o.claude),
		Gemini:           o.metrics.Instrument(o.gemini),
		Rounds:           rounds,
		ImplementTimeout: o.settings.ImplementTimeoutDuration(),
		Implementer:      impl,
		Templates:        &o.templates,
		Extra:            extra,
		Chooser:          opts.Chooser,
		Observer:         negotiation.Observers(opts.Observer, o.metrics),
	}
	if o.store != nil {
		ncfg.Recorder = o.store
	}

	n, err := negotiation.New(ncfg)
	if err != nil {
		return nil, err
	}

	watcher := o.watch()
	res, err := n.Run(ctx, request)
	var changed []string
	if watcher != nil {
		if stopErr := watcher.Stop(); stopErr != nil {
			logger.Warn("Failed to stop file watcher: %v", stopErr)
		}
		changed = watcher.Changed()
	}
	if err != nil {
		return nil, err
	}

	out := &Outcome{Result: res, Changed: changed}
	if o.settings.AutoSave && !opts.NoSave {
		path, err := solution.Save(o.settings.SolutionsDir, solution.FromResult(request, res))
		if err != nil {
			logger.Warn("Failed to save solution: %v", err)
		} else {
			out.Solution = path
		}
	}

	if err := o.postSession(ctx, res, out.Solution); err != nil {
		return out, err
	}
	return out, nil
}

// watch starts recording work dir changes, or returns nil when tracking is
// off or the watcher cannot start.
func (o *Orchestrator) watch() *workspace.Watcher {
	if !o.settings.TrackChanges {
		return nil
	}
	exclude := []string{o.abs(o.settings.DataDir)}
	if dir, err := solution.ExpandHome(o.settings.SolutionsDir); err == nil {
		exclude = append(exclude, o.abs(dir))
	}
	w, err := workspace.New(o.cfg.WorkDir, exclude...)
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		logger.Warn("File change tracking disabled: %v", err)
		return nil
	}
	return w
}

// abs resolves p against the work dir.
func (o *Orchestrator) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.cfg.WorkDir, p)
}

// preSession runs pre_session hooks for session id and returns their piped
// output.
func (o *Orchestrator) preSession(ctx context.Context, id string) (string, error) {
	if o.hooks == nil || len(o.hooks.Hooks.PreSession) == 0 {
		return "", nil
	}
	return hooks.ExecuteAllPiped(ctx, o.hooks.Hooks.PreSession, o.cfg.WorkDir, hooks.Variables{Session: id})
}

// postSession runs post_session hooks for a DONE session.
func (o *Orchestrator) postSession(ctx context.Context, res *negotiation.Result, solutionPath string) error {
	if o.hooks == nil || len(o.hooks.Hooks.PostSession) == 0 {
		return nil
	}
	return hooks.ExecuteAll(ctx, o.hooks.Hooks.PostSession, o.cfg.WorkDir, hooks.Variables{
		Session:     res.Record.ID,
		Implementer: string(res.Implementer),
		Solution:    solutionPath,
		Consensus:   res.Consensus,
	})
}
