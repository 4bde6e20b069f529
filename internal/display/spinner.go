package display

import (
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/mark3labs/dualai/internal/logger"
)

// spinnerStopTimeout bounds how long stopSpinner waits for the program to
// restore the terminal.
const spinnerStopTimeout = 2 * time.Second

// spinnerModel is an inline program showing a spinner next to a label. It
// renders nothing once quitting so the line is cleared on exit.
type spinnerModel struct {
	spinner  spinner.Model
	label    string
	quitting bool
}

type stopSpinnerMsg struct{}

func newSpinnerModel(label string) *spinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(colorSky))),
	)
	return &spinnerModel{spinner: s, label: label}
}

func (m *spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stopSpinnerMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *spinnerModel) View() tea.View {
	var view tea.View
	if m.quitting {
		view.Content = lipgloss.NewLayer("")
		return view
	}
	view.Content = lipgloss.NewLayer(m.spinner.View() + " " + styleMuted.Render(m.label))
	return view
}

// activity is a running spinner program.
type activity struct {
	program *tea.Program
	done    chan struct{}
}

// startSpinner shows label while a tool call is in flight. Without a
// terminal the label is printed once as a static line.
func (d *Display) startSpinner(label string) {
	d.stopSpinner()
	if d.noColor {
		d.Info("%s", label)
		return
	}

	a := &activity{
		program: tea.NewProgram(newSpinnerModel(label), tea.WithInput(nil), tea.WithOutput(d.out.Forward)),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(a.done)
		if _, err := a.program.Run(); err != nil {
			logger.Debug("Spinner error: %v", err)
		}
	}()
	d.activity = a
}

// stopSpinner ends the running spinner, if any, and waits for the program
// to release the terminal. It is safe to call when nothing runs.
func (d *Display) stopSpinner() {
	a := d.activity
	if a == nil {
		return
	}
	d.activity = nil
	a.program.Send(stopSpinnerMsg{})
	select {
	case <-a.done:
	case <-time.After(spinnerStopTimeout):
		logger.Warn("Spinner shutdown timed out after %s", spinnerStopTimeout)
		a.program.Kill()
	}
}

// Stop ends any spinner still running, e.g. when a session is abandoned
// between two observer callbacks.
func (d *Display) Stop() {
	d.stopSpinner()
}
