package view

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/payrecon/internal/queue"
)

type DeadLetterStore interface {
	DeadLetters(ctx context.Context, limit int) ([]*queue.Job, error)
	Replay(ctx context.Context, id string) (*queue.Job, error)
	Stats(ctx context.Context) (queue.Stats, error)
}

type deadLetterState int

const (
	deadLetterBrowse deadLetterState = iota
	deadLetterConfirm
)

const deadLetterLimit = 200

// DeadLetterModel lists jobs that exhausted their retries or were rejected
// outright, and replays the selected one after confirmation.
type DeadLetterModel struct {
	CommonModel
	store DeadLetterStore

	state deadLetterState
	table table.Model
	jobs  []*queue.Job
	stats queue.Stats
	form  *huh.Form

	loading bool
	err     error
	status  string
}

func NewDeadLetterModel(store DeadLetterStore) DeadLetterModel {
	return DeadLetterModel{
		store: store,
		table: newTable([]table.Column{
			{Title: "Dead Since", Width: 17},
			{Title: "Gateway", Width: 10},
			{Title: "Event", Width: 24},
			{Title: "Type", Width: 20},
			{Title: "Kind", Width: 24},
			{Title: "Tries", Width: 5},
			{Title: "Error", Width: 50},
		}),
		loading: true,
	}
}

func (m DeadLetterModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DeadLetterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDeadLettersMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.jobs = msg.jobs
		m.stats = msg.stats
		m.refreshTable()

		return m, nil

	case replayMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Replay failed: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Replayed %s", msg.job.Event.ExternalEventID)
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == deadLetterConfirm {
		return m.updateConfirm(msg)
	}

	return m.updateBrowse(msg)
}

func (m DeadLetterModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "enter":
			job := m.selected()
			if job == nil {
				return m, nil
			}

			m.form = huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Key("replay").
						Title(fmt.Sprintf("Replay %s?", job.Event.ExternalEventID)).
						Description(job.LastError).
						Affirmative("Replay").
						Negative("Cancel"),
				),
			).WithWidth(60).WithShowHelp(false)

			m.state = deadLetterConfirm
			m.table.Blur()

			return m, m.form.Init()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m DeadLetterModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m.closeForm(), nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	confirmed := m.form.GetBool("replay")
	job := m.selected()
	m = m.closeForm()

	if !confirmed || job == nil {
		return m, nil
	}

	return m, m.replayCmd(job.ID)
}

func (m DeadLetterModel) closeForm() DeadLetterModel {
	m.state = deadLetterBrowse
	m.form = nil
	m.table.Focus()

	return m
}

func (m DeadLetterModel) selected() *queue.Job {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.jobs) {
		return nil
	}

	return m.jobs[idx]
}

func (m DeadLetterModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading dead letters...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v\n\n(r to retry, Esc to back)", m.err))
	}

	header := fmt.Sprintf("Pending: %s | Processing: %s | Delayed: %s | Dead: %s",
		activeStyle(fmt.Sprint(m.stats.Pending)),
		activeStyle(fmt.Sprint(m.stats.Processing)),
		activeStyle(fmt.Sprint(m.stats.Delayed)),
		activeStyle(fmt.Sprint(m.stats.Dead)),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
		lipgloss.NewStyle().Faint(true).Render("Enter: replay | r: refresh | Esc: back"),
	)

	if m.state == deadLetterConfirm && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(64).
			Render(m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *DeadLetterModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.jobs))

	for _, j := range m.jobs {
		deadAt := j.UpdatedAt
		if j.DeadAt != nil {
			deadAt = *j.DeadAt
		}

		rows = append(rows, table.Row{
			FormatTime(deadAt),
			j.Event.Gateway,
			truncate(j.Event.ExternalEventID, 24),
			truncate(string(j.Event.Type), 20),
			string(j.ErrorKind),
			fmt.Sprintf("%d/%d", j.Attempts, j.MaxAttempts),
			truncate(j.LastError, 50),
		})
	}

	m.table.SetRows(rows)
}

type loadDeadLettersMsg struct {
	jobs  []*queue.Job
	stats queue.Stats
	err   error
}

func (m DeadLetterModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		jobs, err := m.store.DeadLetters(ctx, deadLetterLimit)
		if err != nil {
			return loadDeadLettersMsg{err: err}
		}

		stats, err := m.store.Stats(ctx)

		return loadDeadLettersMsg{jobs: jobs, stats: stats, err: err}
	}
}

type replayMsg struct {
	job *queue.Job
	err error
}

func (m DeadLetterModel) replayCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		job, err := m.store.Replay(ctx, id)

		return replayMsg{job: job, err: err}
	}
}
