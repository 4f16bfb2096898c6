package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/settlement"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFilePick importState = iota
	importStateImporting
	importStateResult
)

// SettlementModel imports a partner settlement file and shows the per-row
// outcome.
type SettlementModel struct {
	CommonModel
	settlements Settlements

	state      importState
	filePicker filepicker.Model
	results    list.Model
	report     *settlement.Report

	status string
	err    error
}

func NewSettlementModel(settlements Settlements) SettlementModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return SettlementModel{
		settlements: settlements,
		filePicker:  fp,
	}
}

func (m SettlementModel) Title() string { return "Import Settlement" }

func (m SettlementModel) ShortHelp() string {
	return "Esc: back | Enter: select"
}

func (m SettlementModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m SettlementModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

	case settlementResultMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.report = msg.report
		m.status = fmt.Sprintf("%s (%s): %d applied, %d duplicate, %d failed",
			msg.report.Profile, msg.report.Encoding,
			msg.report.Applied, msg.report.Duplicates, msg.report.Failed,
		)

		items := make([]list.Item, len(msg.report.Results))
		for i, r := range msg.report.Results {
			items[i] = resultItem{result: r}
		}

		m.results = list.New(items, resultDelegate{}, 100, 20)
		m.results.Title = "Settlement Rows"
		m.results.SetShowStatusBar(false)
		m.results.SetFilteringEnabled(false)
		m.results.SetShowHelp(false)

		return m, nil
	}

	switch m.state {
	case importStateResult:
		if m.report == nil {
			return m, nil
		}

		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)

		return m, cmd
	case importStateImporting:
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m SettlementModel) handleEsc() (tea.Model, tea.Cmd) {
	if m.state == importStateResult {
		m.state = importStateFilePick
		m.report = nil
		m.err = nil
		m.status = ""

		return m, nil
	}

	return m, Back
}

func (m SettlementModel) View() string {
	switch m.state {
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select settlement file:\n\n%s", m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m SettlementModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.status) +
				"\n\n(Esc to go back)",
		)
	}

	return style.Render(
		lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status) +
			"\n\n" + m.results.View() +
			"\n\n(Esc to go back)",
	)
}

// Messages

type settlementResultMsg struct {
	report *settlement.Report
	err    error
}

func (m SettlementModel) importCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return settlementResultMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		report, err := m.settlements.Import(ctx, f)

		return settlementResultMsg{report: report, err: err}
	}
}

// Result list item

type resultItem struct {
	result settlement.Result
}

func (i resultItem) Title() string       { return "" }
func (i resultItem) Description() string { return "" }
func (i resultItem) FilterValue() string { return "" }

// Result list delegate

type resultDelegate struct{}

func (d resultDelegate) Height() int                             { return 2 }
func (d resultDelegate) Spacing() int                            { return 0 }
func (d resultDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d resultDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(resultItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	r := item.result
	color := lipgloss.Color("46")

	switch r.Status {
	case settlement.StatusDuplicate:
		color = lipgloss.Color("214")
	case settlement.StatusFailed:
		color = lipgloss.Color("196")
	}

	line1 := fmt.Sprintf("%srow %-4d %s  %s  %s",
		cursor,
		r.Row.Num,
		lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%-9s", r.Status)),
		r.Row.LineID.String()[:8],
		r.Row.Reference,
	)

	currency := creditline.Currency(r.Row.Currency)

	detail := "amount " + FormatAmount(r.Row.Amount, currency)
	if r.Overpayment > 0 {
		detail += ", overpaid " + FormatAmount(r.Overpayment, currency)
	}
	if r.Error != "" {
		detail = r.Error
	}

	fmt.Fprintf(w, "%s\n      %s\n", line1, detail)
}
