// Package tui renders a live progress view of a treadwell run.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kixxauth/treadwell"
)

var (
	labelStyleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStyleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	labelStyleDefault = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	detailTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	titleStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
)

// ErrInterrupted is returned by Run when the user quits before the run
// settles.
var ErrInterrupted = errors.New("interrupted")

type taskStatus int

const (
	statusRunning taskStatus = iota
	statusDone
	statusFailed
)

type taskLine struct {
	name     string
	status   taskStatus
	started  time.Time
	finished time.Time
	err      error
}

type eventMsg treadwell.Event

type feedClosedMsg struct{}

type runDoneMsg struct {
	err error
}

// Model is the bubbletea model of a run in progress.
type Model struct {
	title   string
	feed    *Feed
	outcome *treadwell.Outcome
	ctx     context.Context

	spinner spinner.Model
	order   []string
	tasks   map[string]*taskLine
	started time.Time
	elapsed time.Duration

	finished    bool
	interrupted bool
	err         error
}

// New returns a model that follows feed until outcome settles.
func New(ctx context.Context, title string, feed *Feed, outcome *treadwell.Outcome) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = labelStyleRunning
	return &Model{
		title:   title,
		feed:    feed,
		outcome: outcome,
		ctx:     ctx,
		spinner: s,
		tasks:   map[string]*taskLine{},
		started: time.Now(),
	}
}

// Err is the run error once the model has finished.
func (m *Model) Err() error {
	return m.err
}

// Interrupted reports whether the user quit before the run settled.
func (m *Model) Interrupted() bool {
	return m.interrupted
}

// Init starts the spinner and the event and outcome watchers.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent(), m.waitForOutcome())
}

func (m *Model) waitForEvent() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	ch := m.feed.Events()
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return eventMsg(event)
	}
}

func (m *Model) waitForOutcome() tea.Cmd {
	if m.outcome == nil {
		return nil
	}
	outcome, ctx := m.outcome, m.ctx
	return func() tea.Msg {
		_, err := outcome.Wait(ctx)
		return runDoneMsg{err: err}
	}
}

// Update handles a message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.apply(treadwell.Event(msg))
		return m, m.waitForEvent()
	case feedClosedMsg:
		return m, nil
	case runDoneMsg:
		m.drain()
		m.finished = true
		m.err = msg.err
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) apply(event treadwell.Event) {
	line, ok := m.tasks[event.Key]
	if !ok {
		line = &taskLine{name: event.Key}
		m.tasks[event.Key] = line
		m.order = append(m.order, event.Key)
	}
	switch event.Type {
	case treadwell.EventStart:
		line.status = statusRunning
		line.started = event.Time
	case treadwell.EventEnd:
		line.status = statusDone
		line.finished = event.Time
	case treadwell.EventError:
		line.status = statusFailed
		line.finished = event.Time
		line.err = event.Err
	}
}

// drain applies events still buffered when the run settles.
func (m *Model) drain() {
	if m.feed == nil {
		return
	}
	for {
		select {
		case event, ok := <-m.feed.Events():
			if !ok {
				return
			}
			m.apply(event)
		default:
			return
		}
	}
}

// View renders the task list.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	for _, name := range m.order {
		b.WriteString(m.renderLine(m.tasks[name]))
		b.WriteString("\n")
	}
	if len(m.order) == 0 {
		b.WriteString(detailTextStyle.Render("waiting for tasks..."))
		b.WriteString("\n")
	}
	if m.finished {
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(labelStyleFailed.Render("run failed"))
		} else {
			b.WriteString(labelStyleDone.Render("run complete"))
		}
		b.WriteString(detailTextStyle.Render(fmt.Sprintf(" in %s", formatDuration(m.elapsed))))
		b.WriteString("\n")
	} else if !m.interrupted {
		b.WriteString("\n")
		b.WriteString(detailTextStyle.Render("q to quit"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderLine(line *taskLine) string {
	var label string
	switch line.status {
	case statusDone:
		label = labelStyleDone.Render("done  ")
	case statusFailed:
		label = labelStyleFailed.Render("failed")
	default:
		label = m.spinner.View() + labelStyleRunning.Render(" run")
	}
	text := fmt.Sprintf("%s %s", label, labelStyleDefault.Render(line.name))
	if !line.finished.IsZero() && !line.started.IsZero() {
		text += detailTextStyle.Render(" " + formatDuration(line.finished.Sub(line.started)))
	}
	if line.err != nil {
		text += "\n    " + detailTextStyle.Render(line.err.Error())
	}
	return text
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}

// Run shows the progress view until outcome settles and returns the run
// error. Closing the feed is left to the caller.
func Run(ctx context.Context, title string, feed *Feed, outcome *treadwell.Outcome, opts ...tea.ProgramOption) error {
	model := New(ctx, title, feed, outcome)
	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return err
	}
	m, ok := final.(*Model)
	if !ok {
		return nil
	}
	if m.Interrupted() {
		return ErrInterrupted
	}
	return m.Err()
}
