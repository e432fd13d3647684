// Package render writes the human-readable report to a terminal or any io.Writer.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/Cloudsky01/gh-ci-status/internal/classify"
	"github.com/Cloudsky01/gh-ci-status/internal/logger"
	"github.com/Cloudsky01/gh-ci-status/pkg/models"
)

const divider = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

type styles struct {
	header  lipgloss.Style
	info    lipgloss.Style
	warn    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	running lipgloss.Style
	muted   lipgloss.Style
	divider lipgloss.Style
	label   lipgloss.Style
}

// Renderer is the output sink for the report. Colors follow the terminal
// capabilities of out unless disabled.
type Renderer struct {
	out    io.Writer
	styles styles
}

func New(out io.Writer, noColor bool) *Renderer {
	r := lipgloss.NewRenderer(out)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Renderer{
		out: out,
		styles: styles{
			header:  r.NewStyle().Foreground(lipgloss.Color("99")).Bold(true),
			info:    r.NewStyle().Foreground(lipgloss.Color("245")),
			warn:    r.NewStyle().Foreground(lipgloss.Color("214")),
			success: r.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
			failure: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
			running: r.NewStyle().Foreground(lipgloss.Color("220")),
			muted:   r.NewStyle().Foreground(lipgloss.Color("240")),
			divider: r.NewStyle().Foreground(lipgloss.Color("240")),
			label:   r.NewStyle().Foreground(lipgloss.Color("212")),
		},
	}
}

func (r *Renderer) Header(repo, commit string) {
	fmt.Fprintln(r.out, r.styles.header.Render(fmt.Sprintf("CI status for %s @ %s", repo, ShortSHA(commit))))
}

// Summary writes one line per run in the order given.
func (r *Renderer) Summary(runs []models.Run) {
	for _, run := range runs {
		fmt.Fprintln(r.out, r.SummaryLine(run))
	}
}

func (r *Renderer) SummaryLine(run models.Run) string {
	state := classify.Classify(run.Status, run.Conclusion)
	style := r.stateStyle(state)
	return fmt.Sprintf("  %s %s %s %s %s",
		style.Render(stateIcon(state)),
		style.Render(fmt.Sprintf("%-9s", state)),
		run.WorkflowName,
		r.styles.muted.Render("("+run.Event+")"),
		r.styles.info.Render(classify.FormatDuration(run.StartedAt, run.UpdatedAt)),
	)
}

func (r *Renderer) Info(msg string) {
	fmt.Fprintln(r.out, r.styles.info.Render(msg))
}

func (r *Renderer) Warning(msg string) {
	fmt.Fprintln(r.out, r.styles.warn.Render(logger.WarnPrefix+msg))
}

func (r *Renderer) Success(msg string) {
	fmt.Fprintln(r.out, r.styles.success.Render("✓ "+msg))
}

func (r *Renderer) Error(msg string) {
	fmt.Fprintln(r.out, r.styles.failure.Render("✗ "+msg))
}

func (r *Renderer) Blank() {
	fmt.Fprintln(r.out)
}

// LogBlock frames a job log. The text is written verbatim, never styled.
func (r *Renderer) LogBlock(workflow, job, event, text string) {
	line := r.styles.divider.Render(divider)

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, line)
	fmt.Fprintln(r.out, r.styles.label.Render("Workflow: ")+workflow)
	fmt.Fprintln(r.out, r.styles.label.Render("Job:      ")+job)
	fmt.Fprintln(r.out, r.styles.label.Render("Event:    ")+event)
	fmt.Fprintln(r.out, line)
	io.WriteString(r.out, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(r.out)
	}
	fmt.Fprintln(r.out, line)
}

// Outcome writes the closing banner.
func (r *Renderer) Outcome(failed, total int) {
	r.Blank()
	if failed > 0 {
		r.Error(fmt.Sprintf("%d of %d workflow run(s) failed", failed, total))
		return
	}
	r.Success(fmt.Sprintf("No failed workflow runs (%d checked)", total))
}

func (r *Renderer) stateStyle(state classify.DisplayState) lipgloss.Style {
	switch state {
	case classify.Success:
		return r.styles.success
	case classify.Failure:
		return r.styles.failure
	case classify.Running, classify.Queued:
		return r.styles.running
	default:
		return r.styles.muted
	}
}

func stateIcon(state classify.DisplayState) string {
	switch state {
	case classify.Success:
		return "✓"
	case classify.Failure:
		return "✗"
	case classify.Running:
		return "●"
	case classify.Queued:
		return "○"
	case classify.Cancelled:
		return "⊘"
	case classify.Skipped:
		return "↷"
	default:
		return "?"
	}
}

func ShortSHA(sha string) string {
	if len(sha) >= 7 {
		return sha[:7]
	}
	return sha
}
