package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
)

type reviewAction string

const (
	actionApprove reviewAction = "approve"
	actionCancel  reviewAction = "cancel"
	actionSkip    reviewAction = "skip"
)

type reviewInput struct {
	action   reviewAction
	reviewer string
}

// ReviewModel walks the queue of lines waiting for manual approval.
type ReviewModel struct {
	CommonModel
	lines CreditLines

	queue   []creditline.Summary
	current *creditline.Summary
	form    *huh.Form

	// Form bindings live on the heap so copies of the model share them.
	input *reviewInput

	status   string
	loading  bool
	total    int
	reviewed int
}

func NewReviewModel(lines CreditLines, reviewer string) ReviewModel {
	return ReviewModel{
		lines:   lines,
		input:   &reviewInput{reviewer: reviewer},
		loading: true,
		status:  "Loading review queue...",
	}
}

func (m ReviewModel) Title() string { return "Review Queue" }

func (m ReviewModel) ShortHelp() string {
	return "Enter: confirm | Esc: back"
}

func (m ReviewModel) Init() tea.Cmd {
	return m.loadQueueCmd()
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadQueueMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error loading queue: %v", msg.err)
			return m, nil
		}

		m.queue = msg.lines
		m.total = len(m.queue)

		return m, m.next()

	case reviewResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Line %s: %s", shortID(msg.line), msg.line.Status)
			m.reviewed++
		}

		return m, m.next()

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}
	}

	if m.form == nil {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.decideCmd()
}

func (m *ReviewModel) next() tea.Cmd {
	if len(m.queue) == 0 {
		m.current = nil
		m.form = nil
		m.status = fmt.Sprintf("Queue empty. Processed %d of %d.", m.reviewed, m.total)

		return nil
	}

	m.current = &m.queue[0]
	m.queue = m.queue[1:]
	m.input.action = actionApprove
	m.form = m.buildForm()

	return m.form.Init()
}

func (m *ReviewModel) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[reviewAction]().
				Title("Decision").
				Options(
					huh.NewOption("Approve", actionApprove),
					huh.NewOption("Cancel application", actionCancel),
					huh.NewOption("Skip", actionSkip),
				).
				Value(&m.input.action),

			huh.NewInput().
				Title("Reviewer").
				Value(&m.input.reviewer).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("reviewer cannot be empty")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)
}

func (m ReviewModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	}

	if m.current == nil || m.form == nil {
		return lipgloss.NewStyle().Padding(2).Render(m.status + "\n\n(Esc to back)")
	}

	line := m.current.Line
	snap := line.ApprovalSnapshot

	info := fmt.Sprintf(
		"Reviewing %d/%d\n\n"+
			"Line:      %s\n"+
			"User:      %s (%s)\n"+
			"Limit:     %s at %s over %d days\n"+
			"Score:     %d\n"+
			"Income:    %s\n"+
			"DTI:       %s\n"+
			"Policy:    %s\n"+
			"Purpose:   %s\n"+
			"Created:   %s",
		m.total-len(m.queue), m.total,
		line.ID,
		line.UserID, line.Partner,
		FormatAmount(line.MaxAmount, line.Currency), FormatPct(line.InterestRate), line.PaymentTermDays,
		snap.CreditScore,
		FormatAmount(snap.MonthlyIncome, line.Currency),
		FormatPct(snap.DebtToIncomeRatio),
		snap.PolicyVersion,
		snap.Purpose,
		FormatDate(&line.CreatedAt),
	)

	if len(snap.Conditions) > 0 {
		info += "\nConditions: " + strings.Join(snap.Conditions, ", ")
	}

	panel := lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(48).
		Render(m.form.View())

	content := lipgloss.JoinHorizontal(lipgloss.Top, info, "  ", panel)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func shortID(line *creditline.CreditLine) string {
	return line.ID.String()[:8]
}

// Messages

type loadQueueMsg struct {
	lines []creditline.Summary
	err   error
}

func (m ReviewModel) loadQueueCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		res, err := m.lines.List(ctx, creditline.ListFilter{Status: new(creditline.StatusPendingApproval)})
		if err != nil {
			return loadQueueMsg{err: err}
		}

		return loadQueueMsg{lines: res.Lines}
	}
}

type reviewResultMsg struct {
	line *creditline.CreditLine
	err  error
}

func (m ReviewModel) decideCmd() tea.Cmd {
	line := m.current.Line
	action := m.input.action
	reviewer := strings.TrimSpace(m.input.reviewer)

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		var (
			updated *creditline.CreditLine
			err     error
		)

		switch action {
		case actionApprove:
			updated, err = m.lines.Approve(ctx, line.ID, reviewer)
		case actionCancel:
			updated, err = m.lines.Cancel(ctx, line.ID)
		default:
			updated = line
		}

		return reviewResultMsg{line: updated, err: err}
	}
}
