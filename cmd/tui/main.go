package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/bnpl/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/bnpl/internal/config"
	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/creditline/store"
	"github.com/MrJamesThe3rd/bnpl/internal/database"
	"github.com/MrJamesThe3rd/bnpl/internal/keylock"
	"github.com/MrJamesThe3rd/bnpl/internal/settlement"
	"github.com/MrJamesThe3rd/bnpl/internal/underwriting"
)

type model struct {
	lines       view.CreditLines
	settlements view.Settlements
	reviewer    string

	currentView View

	reviewView     view.ReviewModel
	listView       view.ListModel
	settlementView view.SettlementModel
}

type View int

const (
	ViewMenu       View = 0
	ViewReview     View = 1
	ViewList       View = 2
	ViewSettlement View = 3
)

func initialModel() model {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString(), cfg.DB.MaxConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	engine, err := underwriting.NewEngine(underwriting.DefaultPolicy(), underwriting.NoReview{})
	if err != nil {
		slog.Error("failed to build underwriting engine", "error", err)
		os.Exit(1)
	}

	svc := creditline.NewService(store.New(db), engine, keylock.New(),
		creditline.WithRetry(cfg.Ledger.RetryAttempts, cfg.Ledger.RetryInterval),
		creditline.WithLockTimeout(cfg.Ledger.LockTimeout),
	)
	settlementSvc := settlement.NewService(svc)

	reviewer := os.Getenv("USER")

	return model{
		lines:          svc,
		settlements:    settlementSvc,
		reviewer:       reviewer,
		currentView:    ViewMenu,
		reviewView:     view.NewReviewModel(svc, reviewer),
		listView:       view.NewListModel(svc),
		settlementView: view.NewSettlementModel(settlementSvc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewReview
				m.reviewView = view.NewReviewModel(m.lines, m.reviewer)

				return m, m.reviewView.Init()
			case "2":
				m.currentView = ViewList
				m.listView = view.NewListModel(m.lines)

				return m, m.listView.Init()
			case "3":
				m.currentView = ViewSettlement
				m.settlementView = view.NewSettlementModel(m.settlements)

				return m, m.settlementView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewReview:
		var newModel tea.Model
		newModel, cmd = m.reviewView.Update(msg)
		m.reviewView = newModel.(view.ReviewModel)
	case ViewList:
		var newModel tea.Model
		newModel, cmd = m.listView.Update(msg)
		m.listView = newModel.(view.ListModel)
	case ViewSettlement:
		var newModel tea.Model
		newModel, cmd = m.settlementView.Update(msg)
		m.settlementView = newModel.(view.SettlementModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"BNPL Operator Console\n\n" +
				"1. Review Pending Lines\n" +
				"2. Look Up Credit Lines\n" +
				"3. Import Settlement File\n\n" +
				"q. Quit",
		)
	case ViewReview:
		return m.reviewView.View()
	case ViewList:
		return m.listView.View()
	case ViewSettlement:
		return m.settlementView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
