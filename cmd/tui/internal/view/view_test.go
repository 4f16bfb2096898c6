package view

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
)

type call struct {
	op  string
	id  uuid.UUID
	arg string
}

type fakeLines struct {
	mu      sync.Mutex
	lines   []creditline.Summary
	filters []creditline.ListFilter
	calls   []call
}

func (f *fakeLines) List(_ context.Context, filter creditline.ListFilter) (*creditline.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.filters = append(f.filters, filter)

	return &creditline.ListResult{Lines: f.lines, Stats: creditline.Stats{TotalLines: len(f.lines)}}, nil
}

func (f *fakeLines) record(op string, id uuid.UUID, arg string, status creditline.Status) (*creditline.CreditLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call{op: op, id: id, arg: arg})

	return &creditline.CreditLine{ID: id, Status: status}, nil
}

func (f *fakeLines) Approve(_ context.Context, id uuid.UUID, reviewer string) (*creditline.CreditLine, error) {
	return f.record("approve", id, reviewer, creditline.StatusActive)
}

func (f *fakeLines) Suspend(_ context.Context, id uuid.UUID, reason string) (*creditline.CreditLine, error) {
	return f.record("suspend", id, reason, creditline.StatusSuspended)
}

func (f *fakeLines) Reactivate(_ context.Context, id uuid.UUID) (*creditline.CreditLine, error) {
	return f.record("reactivate", id, "", creditline.StatusActive)
}

func (f *fakeLines) Cancel(_ context.Context, id uuid.UUID) (*creditline.CreditLine, error) {
	return f.record("cancel", id, "", creditline.StatusCancelled)
}

func pendingLine() creditline.Summary {
	return creditline.Summary{Line: &creditline.CreditLine{
		ID:       uuid.New(),
		UserID:   "user-1",
		Partner:  creditline.PartnerKueski,
		Currency: creditline.CurrencyMXN,
		Status:   creditline.StatusPendingApproval,
	}}
}

func TestReviewModel_WalksQueue(t *testing.T) {
	first, second := pendingLine(), pendingLine()
	fake := &fakeLines{lines: []creditline.Summary{first, second}}

	m := NewReviewModel(fake, "ops")

	updated, _ := m.Update(m.Init()())
	m = updated.(ReviewModel)

	require.Len(t, fake.filters, 1)
	assert.Equal(t, creditline.StatusPendingApproval, *fake.filters[0].Status)
	require.NotNil(t, m.current)
	assert.Equal(t, first.Line.ID, m.current.Line.ID)
	assert.Equal(t, 2, m.total)
	assert.Contains(t, m.View(), "Reviewing 1/2")

	updated, _ = m.Update(m.decideCmd()())
	m = updated.(ReviewModel)

	require.NotNil(t, m.current)
	assert.Equal(t, second.Line.ID, m.current.Line.ID)

	m.input.action = actionCancel

	updated, _ = m.Update(m.decideCmd()())
	m = updated.(ReviewModel)

	assert.Nil(t, m.current)
	assert.Equal(t, "Queue empty. Processed 2 of 2.", m.status)
	assert.Equal(t, []call{
		{op: "approve", id: first.Line.ID, arg: "ops"},
		{op: "cancel", id: second.Line.ID},
	}, fake.calls)
}

func TestReviewModel_SkipLeavesLineAlone(t *testing.T) {
	fake := &fakeLines{lines: []creditline.Summary{pendingLine()}}

	m := NewReviewModel(fake, "ops")

	updated, _ := m.Update(m.Init()())
	m = updated.(ReviewModel)
	m.input.action = actionSkip

	updated, _ = m.Update(m.decideCmd()())
	m = updated.(ReviewModel)

	assert.Empty(t, fake.calls)
	assert.Nil(t, m.current)
}

func TestListModel_FiltersAndActions(t *testing.T) {
	line := pendingLine()
	line.Line.Status = creditline.StatusSuspended
	fake := &fakeLines{lines: []creditline.Summary{line}}

	m := NewListModel(fake)

	updated, _ := m.Update(m.Init()())
	m = updated.(ListModel)
	require.Len(t, m.rows, 1)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	m = updated.(ListModel)
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, fake.filters, 2)
	assert.Nil(t, fake.filters[0].Status)
	assert.Equal(t, creditline.StatusActive, *fake.filters[1].Status)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	require.NotNil(t, cmd)

	msg, ok := cmd().(lineActionMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	assert.Equal(t, creditline.StatusActive, msg.line.Status)
	assert.Equal(t, []call{{op: "reactivate", id: line.Line.ID}}, fake.calls)
}
