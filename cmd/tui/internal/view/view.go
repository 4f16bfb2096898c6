package view

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/settlement"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

// CreditLines is the part of the credit line service the console drives.
type CreditLines interface {
	List(ctx context.Context, filter creditline.ListFilter) (*creditline.ListResult, error)
	Approve(ctx context.Context, id uuid.UUID, reviewer string) (*creditline.CreditLine, error)
	Suspend(ctx context.Context, id uuid.UUID, reason string) (*creditline.CreditLine, error)
	Reactivate(ctx context.Context, id uuid.UUID) (*creditline.CreditLine, error)
	Cancel(ctx context.Context, id uuid.UUID) (*creditline.CreditLine, error)
}

type Settlements interface {
	Import(ctx context.Context, r io.Reader) (*settlement.Report, error)
}

// CommonModel is embedded by all views.
type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}
