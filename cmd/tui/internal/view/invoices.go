package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/payrecon/internal/ledger"
)

// InvoiceModel looks up one invoice and shows every transaction opened
// against it.
type InvoiceModel struct {
	CommonModel
	ledgerService *ledger.Service

	idInput textinput.Model
	detail  *ledger.InvoiceDetail

	loading bool
	status  string
}

func NewInvoiceModel(svc *ledger.Service) InvoiceModel {
	ti := textinput.New()
	ti.Placeholder = "invoice id"
	ti.Width = 40
	ti.Focus()

	return InvoiceModel{
		ledgerService: svc,
		idInput:       ti,
	}
}

func (m InvoiceModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m InvoiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "enter":
			id, err := uuid.Parse(strings.TrimSpace(m.idInput.Value()))
			if err != nil {
				m.status = "Not a valid invoice id"
				return m, nil
			}

			m.loading = true

			return m, m.loadCmd(id)
		}

	case loadInvoiceMsg:
		m.loading = false
		if msg.err != nil {
			m.detail = nil
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.detail = msg.detail
		m.status = ""
	}

	m.idInput, cmd = m.idInput.Update(msg)

	return m, cmd
}

func (m InvoiceModel) View() string {
	var b strings.Builder

	b.WriteString("Invoice Lookup\n\n")
	b.WriteString(m.idInput.View())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString("Loading...")
	case m.status != "":
		b.WriteString(m.status)
	case m.detail != nil:
		b.WriteString(renderInvoice(m.detail))
	}

	b.WriteString("\n\n(Enter to look up, Esc to back)")

	return lipgloss.NewStyle().Padding(2).Render(b.String())
}

func renderInvoice(d *ledger.InvoiceDetail) string {
	inv := d.Invoice

	var b strings.Builder

	fmt.Fprintf(&b, "Status:     %s\n", activeStyle(string(inv.Status)))
	fmt.Fprintf(&b, "Total:      %s\n", FormatAmount(inv.TotalAmount, inv.Currency))
	fmt.Fprintf(&b, "Commission: %s\n", inv.CommissionRate.String())
	fmt.Fprintf(&b, "Trainer:    %s\n", inv.TrainerID)
	fmt.Fprintf(&b, "Created:    %s\n", FormatTime(inv.CreatedAt))

	if inv.PaidTransactionID != nil {
		fmt.Fprintf(&b, "Paid by:    %s\n", *inv.PaidTransactionID)
	}

	if len(d.Transactions) == 0 {
		b.WriteString("\nNo transactions.")
		return b.String()
	}

	b.WriteString("\nTransactions:\n")

	for _, t := range d.Transactions {
		fmt.Fprintf(&b, "  %-10s %-28s %-10s %s\n",
			t.Gateway, truncate(t.ExternalTransactionID, 28), t.Status, FormatAmount(t.Amount, t.Currency))
	}

	return b.String()
}

type loadInvoiceMsg struct {
	detail *ledger.InvoiceDetail
	err    error
}

func (m InvoiceModel) loadCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		detail, err := m.ledgerService.GetInvoice(ctx, id)

		return loadInvoiceMsg{detail: detail, err: err}
	}
}
