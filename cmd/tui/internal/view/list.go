package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

var eventStatusFilters = []*ledger.EventStatus{
	nil,
	new(ledger.EventFailed),
	new(ledger.EventApplied),
	new(ledger.EventReceived),
}

var payoutStatusFilters = []*ledger.PayoutStatus{
	nil,
	new(ledger.PayoutProcessing),
	new(ledger.PayoutPaid),
	new(ledger.PayoutFailed),
}

func filterLabel[T ~string](s *T) string {
	if s == nil {
		return "All"
	}

	return string(*s)
}

// EventListModel browses recorded webhook events, newest first.
type EventListModel struct {
	CommonModel
	ledgerService *ledger.Service

	table  table.Model
	events []*ledger.WebhookEvent

	statusFilterIdx int

	loading bool
	err     error
}

func NewEventListModel(svc *ledger.Service) EventListModel {
	return EventListModel{
		ledgerService: svc,
		table: newTable([]table.Column{
			{Title: "Received", Width: 17},
			{Title: "Gateway", Width: 10},
			{Title: "Event", Width: 24},
			{Title: "Type", Width: 20},
			{Title: "Status", Width: 9},
			{Title: "Tries", Width: 5},
			{Title: "Last Error", Width: 50},
		}),
		loading: true,
	}
}

func (m EventListModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m EventListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadEventsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.events = msg.events
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(eventStatusFilters)
			m.loading = true

			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m EventListModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading events...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := fmt.Sprintf("Filter: [s] Status: %s", activeStyle(filterLabel(eventStatusFilters[m.statusFilterIdx])))

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
		lipgloss.NewStyle().Faint(true).Render("s: status filter | r: refresh | Esc: back"),
	))
}

func (m *EventListModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.events))

	for _, ev := range m.events {
		rows = append(rows, table.Row{
			FormatTime(ev.ReceivedAt),
			ev.Gateway,
			truncate(ev.ExternalEventID, 24),
			truncate(ev.EventType, 20),
			string(ev.Status),
			fmt.Sprint(ev.Attempts),
			truncate(ev.LastError, 50),
		})
	}

	m.table.SetRows(rows)
}

type loadEventsMsg struct {
	events []*ledger.WebhookEvent
	err    error
}

func (m EventListModel) loadCmd() tea.Cmd {
	filter := ledger.EventFilter{Status: eventStatusFilters[m.statusFilterIdx]}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		events, err := m.ledgerService.ListWebhookEvents(ctx, filter)

		return loadEventsMsg{events: events, err: err}
	}
}

// PayoutListModel browses trainer payouts.
type PayoutListModel struct {
	CommonModel
	ledgerService *ledger.Service

	table   table.Model
	payouts []*ledger.Payout

	statusFilterIdx int

	loading bool
	err     error
}

func NewPayoutListModel(svc *ledger.Service) PayoutListModel {
	return PayoutListModel{
		ledgerService: svc,
		table: newTable([]table.Column{
			{Title: "Created", Width: 17},
			{Title: "Trainer", Width: 36},
			{Title: "Net", Width: 16},
			{Title: "Fee", Width: 16},
			{Title: "Status", Width: 11},
		}),
		loading: true,
	}
}

func (m PayoutListModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m PayoutListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadPayoutsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.payouts = msg.payouts

		rows := make([]table.Row, 0, len(m.payouts))
		for _, p := range m.payouts {
			rows = append(rows, table.Row{
				FormatTime(p.CreatedAt),
				p.TrainerID.String(),
				FormatAmount(p.Amount, p.Currency),
				FormatAmount(p.FeeAmount, p.Currency),
				string(p.Status),
			})
		}

		m.table.SetRows(rows)

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(payoutStatusFilters)
			m.loading = true

			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m PayoutListModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading payouts...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := fmt.Sprintf("Filter: [s] Status: %s", activeStyle(filterLabel(payoutStatusFilters[m.statusFilterIdx])))

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
		lipgloss.NewStyle().Faint(true).Render("s: status filter | r: refresh | Esc: back"),
	))
}

type loadPayoutsMsg struct {
	payouts []*ledger.Payout
	err     error
}

func (m PayoutListModel) loadCmd() tea.Cmd {
	filter := ledger.PayoutFilter{Status: payoutStatusFilters[m.statusFilterIdx]}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		payouts, err := m.ledgerService.ListPayouts(ctx, filter)

		return loadPayoutsMsg{payouts: payouts, err: err}
	}
}
