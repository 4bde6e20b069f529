package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/dualai/internal/config"
	"github.com/mark3labs/dualai/internal/metrics"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script acting as a fake AI tool.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

// testConfig returns a config whose tools are fake scripts, plus the work
// directory they run in.
func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	work := t.TempDir()

	bin := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(work, ".dualai")
	cfg.SolutionsDir = filepath.Join(work, "solutions")
	cfg.Tools.Claude.Command = writeScript(t, bin, "claude", "cat >> '"+filepath.Join(work, "prompts.txt")+"'\necho 'Proposition de Claude'")
	cfg.Tools.Gemini.Command = writeScript(t, bin, "gemini", "cat > /dev/null\necho \"D'accord, c'est parfait\"")
	return cfg, work
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, work string, persist bool) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Settings: cfg,
		WorkDir:  work,
		Persist:  persist,
		Metrics:  metrics.New(nil),
	})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))
	t.Cleanup(func() { _ = o.Stop() })
	return o
}

func TestRun(t *testing.T) {
	cfg, work := testConfig(t)
	o := newTestOrchestrator(t, cfg, work, false)

	out, err := o.Run(context.Background(), "Écris un tri rapide", RunOptions{})
	require.NoError(t, err)

	res := out.Result
	assert.True(t, res.Consensus)
	assert.Equal(t, 1, res.RoundsUsed)
	assert.Equal(t, negotiation.Claude, res.Implementer)
	assert.Equal(t, "Proposition de Claude", res.Artifact)

	require.NotEmpty(t, out.Solution)
	assert.True(t, strings.HasPrefix(out.Solution, filepath.Join(work, "solutions", "solution_")))
	content, err := os.ReadFile(out.Solution)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Écris un tri rapide")
}

func TestRunOptions(t *testing.T) {
	cfg, work := testConfig(t)
	cfg.Implementer = "claude"
	o := newTestOrchestrator(t, cfg, work, false)

	out, err := o.Run(context.Background(), "req", RunOptions{Implementer: negotiation.Gemini, NoSave: true})
	require.NoError(t, err)
	assert.Equal(t, negotiation.Gemini, out.Result.Implementer)
	assert.Empty(t, out.Solution)
}

func TestRunAutoSaveOff(t *testing.T) {
	cfg, work := testConfig(t)
	cfg.AutoSave = false
	o := newTestOrchestrator(t, cfg, work, false)

	out, err := o.Run(context.Background(), "req", RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, out.Solution)
	assert.NoDirExists(t, filepath.Join(work, "solutions"))
}

func TestRunHooks(t *testing.T) {
	cfg, work := testConfig(t)
	hooksYAML := `version: 1
hooks:
  pre_session:
    - command: "echo contexte-projet"
      pipe_output: true
  post_session:
    - command: "echo {{session}} {{implementer}} {{consensus}} > post.txt"
`
	require.NoError(t, os.WriteFile(filepath.Join(work, ".dualai.hooks.yml"), []byte(hooksYAML), 0644))
	o := newTestOrchestrator(t, cfg, work, false)

	out, err := o.Run(context.Background(), "req", RunOptions{NoSave: true})
	require.NoError(t, err)

	prompts, err := os.ReadFile(filepath.Join(work, "prompts.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(prompts), "contexte-projet")

	post, err := os.ReadFile(filepath.Join(work, "post.txt"))
	require.NoError(t, err)
	assert.Equal(t, out.Result.Record.ID+" claude true", strings.TrimSpace(string(post)))
}

func TestRunPreSessionHookSeesSessionID(t *testing.T) {
	cfg, work := testConfig(t)
	hooksYAML := `version: 1
hooks:
  pre_session:
    - command: "echo session-{{session}}"
      pipe_output: true
`
	require.NoError(t, os.WriteFile(filepath.Join(work, ".dualai.hooks.yml"), []byte(hooksYAML), 0644))
	o := newTestOrchestrator(t, cfg, work, false)

	out, err := o.Run(context.Background(), "req", RunOptions{NoSave: true})
	require.NoError(t, err)
	require.NotEmpty(t, out.Result.Record.ID)

	prompts, err := os.ReadFile(filepath.Join(work, "prompts.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(prompts), "session-"+out.Result.Record.ID)
}

func TestRunBrokenHooksFileIsIgnored(t *testing.T) {
	cfg, work := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(work, ".dualai.hooks.yml"), []byte("hooks: [oops"), 0644))
	o := newTestOrchestrator(t, cfg, work, false)

	_, err := o.Run(context.Background(), "req", RunOptions{NoSave: true})
	require.NoError(t, err)
}

func TestPersist(t *testing.T) {
	cfg, work := testConfig(t)
	o := newTestOrchestrator(t, cfg, work, true)
	require.NotNil(t, o.Store())

	ctx := context.Background()
	out, err := o.Run(ctx, "req", RunOptions{NoSave: true})
	require.NoError(t, err)

	rec, err := o.Store().LoadRecord(ctx, out.Result.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, negotiation.StateDone, rec.State)
	assert.Equal(t, "req", rec.Request)
}

func TestPersistRelativeDataDir(t *testing.T) {
	cfg, work := testConfig(t)
	cfg.DataDir = ".dualai"
	o := newTestOrchestrator(t, cfg, work, true)
	require.NotNil(t, o.Store())
	assert.DirExists(t, filepath.Join(work, ".dualai", "nats"))
}

func TestWithoutPersistence(t *testing.T) {
	cfg, work := testConfig(t)
	o := newTestOrchestrator(t, cfg, work, false)
	assert.Nil(t, o.Store())
	assert.NoDirExists(t, filepath.Join(work, ".dualai", "nats"))
}

func TestStopIsIdempotent(t *testing.T) {
	cfg, work := testConfig(t)
	o, err := New(Config{Settings: cfg, WorkDir: work, Persist: true, Metrics: metrics.New(nil)})
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))

	assert.NoError(t, o.Stop())
	assert.NoError(t, o.Stop())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg, work := testConfig(t)
	cfg.Rounds = 0

	_, err := New(Config{Settings: cfg, WorkDir: work})
	assert.Error(t, err)

	_, err = New(Config{WorkDir: work})
	assert.Error(t, err)
}

func TestTools(t *testing.T) {
	cfg, work := testConfig(t)
	cfg.Tools.Gemini.Enabled = false
	o := newTestOrchestrator(t, cfg, work, false)

	assert.True(t, o.Claude().Available())
	assert.False(t, o.Gemini().Available())
}

func TestRunTracksChanges(t *testing.T) {
	cfg, work := testConfig(t)
	o := newTestOrchestrator(t, cfg, work, true)

	out, err := o.Run(context.Background(), "req", RunOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, out.Solution)

	// The fake claude writes prompts.txt in the work dir on every call.
	assert.Contains(t, out.Changed, "prompts.txt")
	for _, p := range out.Changed {
		assert.False(t, strings.HasPrefix(p, "solutions/"), "solution dir should be excluded: %s", p)
		assert.False(t, strings.HasPrefix(p, ".dualai/"), "data dir should be excluded: %s", p)
	}
}

func TestRunWithoutChangeTracking(t *testing.T) {
	cfg, work := testConfig(t)
	cfg.TrackChanges = false
	o := newTestOrchestrator(t, cfg, work, false)

	out, err := o.Run(context.Background(), "req", RunOptions{NoSave: true})
	require.NoError(t, err)
	assert.Nil(t, out.Changed)
}
