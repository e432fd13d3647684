// Package spinner shows a countdown while the poll loop sleeps.
package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/Cloudsky01/gh-ci-status/internal/poll"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Sleeper implements poll.Sleeper. On a terminal it animates a spinner with
// the time left; anywhere else it sleeps silently.
type Sleeper struct {
	out     io.Writer
	message string
	tty     bool
}

func New(out io.Writer, message string) *Sleeper {
	return &Sleeper{out: out, message: message, tty: IsTerminal(out)}
}

// IsTerminal reports whether w is a terminal file
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	if !s.tty || d <= 0 {
		return poll.RealSleeper{}.Sleep(ctx, d)
	}

	p := tea.NewProgram(
		newModel(s.message, d, time.Now),
		tea.WithOutput(s.out),
		tea.WithInput(nil),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("spinner: %w", err)
	}
	return nil
}

type doneMsg struct{}

type model struct {
	spinner  spinner.Model
	message  string
	total    time.Duration
	deadline time.Time
	now      func() time.Time
	done     bool
}

func newModel(message string, d time.Duration, now func() time.Time) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return model{
		spinner:  s,
		message:  message,
		total:    d,
		deadline: now().Add(d),
		now:      now,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.Tick(m.total, func(time.Time) tea.Msg {
		return doneMsg{}
	}))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		return ""
	}
	left := m.deadline.Sub(m.now()).Round(time.Second)
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), messageStyle.Render(fmt.Sprintf("%s (next check in %v)", m.message, left)))
}
