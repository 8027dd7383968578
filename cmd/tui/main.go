package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/payrecon/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/payrecon/internal/config"
	"github.com/MrJamesThe3rd/payrecon/internal/database"
	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/payrecon/internal/ledger/store"
	"github.com/MrJamesThe3rd/payrecon/internal/queue"
)

type model struct {
	ledgerService *ledger.Service
	jobs          *queue.Queue

	currentView View

	deadLetterView view.DeadLetterModel
	eventView      view.EventListModel
	payoutView     view.PayoutListModel
	invoiceView    view.InvoiceModel
}

type View int

const (
	ViewMenu        View = 0
	ViewDeadLetters View = 1
	ViewEvents      View = 2
	ViewPayouts     View = 3
	ViewInvoice     View = 4
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.ConnectionString(), database.DefaultPool)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	rdb, err := queue.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	ledgerSvc := ledger.NewService(ledgerStore.New(db, cfg.DB.LockTimeout))
	jobs := queue.New(rdb, queue.Options{Prefix: cfg.Queue.Prefix, MaxAttempts: cfg.Queue.MaxAttempts}, slog.Default())

	return model{
		ledgerService: ledgerSvc,
		jobs:          jobs,
		currentView:   ViewMenu,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewDeadLetters
				m.deadLetterView = view.NewDeadLetterModel(m.jobs)

				return m, m.deadLetterView.Init()
			case "2":
				m.currentView = ViewEvents
				m.eventView = view.NewEventListModel(m.ledgerService)

				return m, m.eventView.Init()
			case "3":
				m.currentView = ViewPayouts
				m.payoutView = view.NewPayoutListModel(m.ledgerService)

				return m, m.payoutView.Init()
			case "4":
				m.currentView = ViewInvoice
				m.invoiceView = view.NewInvoiceModel(m.ledgerService)

				return m, m.invoiceView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewDeadLetters:
		var newModel tea.Model
		newModel, cmd = m.deadLetterView.Update(msg)
		m.deadLetterView = newModel.(view.DeadLetterModel)
	case ViewEvents:
		var newModel tea.Model
		newModel, cmd = m.eventView.Update(msg)
		m.eventView = newModel.(view.EventListModel)
	case ViewPayouts:
		var newModel tea.Model
		newModel, cmd = m.payoutView.Update(msg)
		m.payoutView = newModel.(view.PayoutListModel)
	case ViewInvoice:
		var newModel tea.Model
		newModel, cmd = m.invoiceView.Update(msg)
		m.invoiceView = newModel.(view.InvoiceModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Payrecon Console\n\n" +
				"1. Dead Letters\n" +
				"2. Webhook Events\n" +
				"3. Payouts\n" +
				"4. Invoice Lookup\n\n" +
				"q. Quit",
		)
	case ViewDeadLetters:
		return m.deadLetterView.View()
	case ViewEvents:
		return m.eventView.View()
	case ViewPayouts:
		return m.payoutView.View()
	case ViewInvoice:
		return m.invoiceView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
