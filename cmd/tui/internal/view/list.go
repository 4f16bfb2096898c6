package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
)

type listState int

const (
	listStateBrowse listState = iota
	listStateSearch
	listStateSuspend
)

var statusFilters = []*creditline.Status{
	nil,
	new(creditline.StatusActive),
	new(creditline.StatusSuspended),
	new(creditline.StatusPendingApproval),
	new(creditline.StatusCancelled),
}

// ListModel looks up a customer's lines and suspends or reactivates them.
type ListModel struct {
	CommonModel
	lines CreditLines

	state  listState
	table  table.Model
	search textinput.Model
	form   *huh.Form
	rows   []creditline.Summary
	stats  creditline.Stats

	statusFilterIdx int
	filter          creditline.ListFilter

	// Form bindings live on the heap so copies of the model share them.
	reason *string

	loading bool
	err     error
	status  string
}

func NewListModel(lines CreditLines) ListModel {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "User", Width: 16},
		{Title: "Partner", Width: 11},
		{Title: "Status", Width: 17},
		{Title: "Limit", Width: 16},
		{Title: "Available", Width: 16},
		{Title: "Owed", Width: 16},
		{Title: "Expires", Width: 11},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	search := textinput.New()
	search.Placeholder = "user id"
	search.Prompt = "User: "
	search.CharLimit = 128
	search.Width = 30

	return ListModel{
		lines:   lines,
		table:   t,
		search:  search,
		reason:  new(string),
		loading: true,
	}
}

func (m ListModel) Title() string { return "Credit Lines" }
func (m ListModel) ShortHelp() string {
	switch m.state {
	case listStateSearch:
		return "Enter: search | Esc: cancel"
	case listStateSuspend:
		return "Navigate form | Esc: cancel"
	}
	return "Esc: back | /: user | s: status filter | p: suspend | a: reactivate | r: refresh"
}

func (m ListModel) Init() tea.Cmd {
	return m.loadLinesCmd()
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadListMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.rows = msg.res.Lines
		m.stats = msg.res.Stats
		m.refreshTable()
		return m, nil

	case lineActionMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Line %s is now %s", shortID(msg.line), msg.line.Status)
		}
		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()
		return m, m.loadLinesCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case listStateBrowse:
		return m.updateBrowse(msg)
	case listStateSearch:
		return m.updateSearch(msg)
	case listStateSuspend:
		return m.updateSuspend(msg)
	}

	return m, nil
}

func (m ListModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadLinesCmd()
		case "/":
			m.state = listStateSearch
			m.table.Blur()
			return m, m.search.Focus()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(statusFilters)
			m.filter.Status = statusFilters[m.statusFilterIdx]
			return m, m.loadLinesCmd()
		case "p":
			return m.enterSuspendMode()
		case "a":
			line := m.selected()
			if line == nil {
				return m, nil
			}
			return m, m.reactivateCmd(line)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ListModel) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			m.state = listStateBrowse
			m.search.Blur()
			m.table.Focus()
			return m, nil
		case tea.KeyEnter:
			m.filter.UserID = strings.TrimSpace(m.search.Value())
			m.state = listStateBrowse
			m.search.Blur()
			m.table.Focus()
			return m, m.loadLinesCmd()
		}
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m ListModel) enterSuspendMode() (tea.Model, tea.Cmd) {
	if m.selected() == nil {
		return m, nil
	}

	*m.reason = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("reason").
				Title("Suspend reason").
				Value(m.reason).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("reason cannot be empty")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStateSuspend
	m.table.Blur()
	return m, m.form.Init()
}

func (m ListModel) updateSuspend(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = listStateBrowse
			m.form = nil
			m.table.Focus()
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.suspendCmd(m.selected(), strings.TrimSpace(*m.reason))
}

func (m ListModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading credit lines...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	statusLabel := "All"
	if st := statusFilters[m.statusFilterIdx]; st != nil {
		statusLabel = string(*st)
	}

	userLabel := "All"
	if m.filter.UserID != "" {
		userLabel = m.filter.UserID
	}

	header := fmt.Sprintf(
		"Filter: [/] User: %s | [s] Status: %s\nLines: %d (%d active)",
		activeStyle(userLabel),
		activeStyle(statusLabel),
		m.stats.TotalLines,
		m.stats.ActiveLines,
	)

	if m.state == listStateSearch {
		header = m.search.View() + "\n" + header
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == listStateSuspend && m.form != nil {
		userID := ""
		if line := m.selected(); line != nil {
			userID = line.UserID
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(
				fmt.Sprintf("Suspend Line\n\nUser: %s\n\n%s", userID, m.form.View()),
			)

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func (m ListModel) selected() *creditline.CreditLine {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		return nil
	}

	return m.rows[idx].Line
}

func (m *ListModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.rows))
	for _, sum := range m.rows {
		l := sum.Line
		rows = append(rows, table.Row{
			shortID(l),
			l.UserID,
			string(l.Partner),
			string(l.Status),
			FormatAmount(l.MaxAmount, l.Currency),
			FormatAmount(sum.AvailableAmount, l.Currency),
			FormatAmount(sum.OutstandingBalance, l.Currency),
			FormatDate(l.ExpiresAt),
		})
	}
	m.table.SetRows(rows)
}

// Messages

type loadListMsg struct {
	res *creditline.ListResult
	err error
}

func (m ListModel) loadLinesCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		res, err := m.lines.List(ctx, filter)
		return loadListMsg{res: res, err: err}
	}
}

type lineActionMsg struct {
	line *creditline.CreditLine
	err  error
}

func (m ListModel) suspendCmd(line *creditline.CreditLine, reason string) tea.Cmd {
	if line == nil {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		updated, err := m.lines.Suspend(ctx, line.ID, reason)
		return lineActionMsg{line: updated, err: err}
	}
}

func (m ListModel) reactivateCmd(line *creditline.CreditLine) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		updated, err := m.lines.Reactivate(ctx, line.ID)
		return lineActionMsg{line: updated, err: err}
	}
}
