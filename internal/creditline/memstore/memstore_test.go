package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/creditline/memstore"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func line(userID string, partner creditline.Partner, status creditline.Status, createdAt time.Time) *creditline.CreditLine {
	return &creditline.CreditLine{
		ID:        uuid.New(),
		UserID:    userID,
		Partner:   partner,
		Currency:  creditline.CurrencyMXN,
		MaxAmount: 10_000_00,
		Status:    status,
		Version:   1,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	l := line("u1", creditline.PartnerKueski, creditline.StatusActive, t0)
	require.NoError(t, s.Create(ctx, l))

	got, err := s.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l, got)

	got.UsedAmount = 5_00

	again, err := s.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Zero(t, again.UsedAmount)

	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, creditline.ErrNotFound)
}

func TestStore_OneOpenLinePerPartner(t *testing.T) {
	type testCase struct {
		name     string
		existing creditline.Status
		partner  creditline.Partner
		wantErr  error
	}

	tests := []testCase{
		{
			name:     "active line blocks",
			existing: creditline.StatusActive,
			partner:  creditline.PartnerKueski,
			wantErr:  creditline.ErrDuplicateActiveLine,
		},
		{
			name:     "pending line blocks",
			existing: creditline.StatusPendingApproval,
			partner:  creditline.PartnerKueski,
			wantErr:  creditline.ErrDuplicateActiveLine,
		},
		{
			name:     "suspended line does not block",
			existing: creditline.StatusSuspended,
			partner:  creditline.PartnerKueski,
		},
		{
			name:     "other partner does not block",
			existing: creditline.StatusActive,
			partner:  creditline.PartnerKonfio,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := memstore.New()

			require.NoError(t, s.Create(ctx, line("u1", creditline.PartnerKueski, tt.existing, t0)))

			err := s.Create(ctx, line("u1", tt.partner, creditline.StatusActive, t0))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestStore_UpdateChecksVersion(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	l := line("u1", creditline.PartnerInternal, creditline.StatusActive, t0)
	require.NoError(t, s.Create(ctx, l))

	first, err := s.Get(ctx, l.ID)
	require.NoError(t, err)

	second, err := s.Get(ctx, l.ID)
	require.NoError(t, err)

	first.UsedAmount = 1_000_00
	first.Version++
	require.NoError(t, s.Update(ctx, first, 1))

	second.UsedAmount = 2_000_00
	second.Version++
	assert.ErrorIs(t, s.Update(ctx, second, 1), creditline.ErrConcurrentModification)

	stored, err := s.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_00), stored.UsedAmount)
	assert.Equal(t, int64(2), stored.Version)
}

func TestStore_ReactivationRespectsOpenLine(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	old := line("u1", creditline.PartnerInternal, creditline.StatusSuspended, t0)
	require.NoError(t, s.Create(ctx, old))
	require.NoError(t, s.Create(ctx, line("u1", creditline.PartnerInternal, creditline.StatusActive, t0)))

	old.Status = creditline.StatusActive
	old.Version++
	assert.ErrorIs(t, s.Update(ctx, old, 1), creditline.ErrDuplicateActiveLine)
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	a := line("u1", creditline.PartnerInternal, creditline.StatusActive, t0)
	b := line("u1", creditline.PartnerKueski, creditline.StatusCancelled, t0.Add(time.Hour))
	c := line("u2", creditline.PartnerInternal, creditline.StatusActive, t0)

	for _, l := range []*creditline.CreditLine{a, b, c} {
		require.NoError(t, s.Create(ctx, l))
	}

	active := creditline.StatusActive
	kueski := creditline.PartnerKueski

	type testCase struct {
		name    string
		filter  creditline.ListFilter
		wantIDs []uuid.UUID
	}

	tests := []testCase{
		{
			name:    "by user, newest first",
			filter:  creditline.ListFilter{UserID: "u1"},
			wantIDs: []uuid.UUID{b.ID, a.ID},
		},
		{
			name:    "by status",
			filter:  creditline.ListFilter{UserID: "u1", Status: &active},
			wantIDs: []uuid.UUID{a.ID},
		},
		{
			name:    "by partner",
			filter:  creditline.ListFilter{Partner: &kueski},
			wantIDs: []uuid.UUID{b.ID},
		},
		{
			name:   "no match",
			filter: creditline.ListFilter{UserID: "nobody"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filter)
			require.NoError(t, err)

			var ids []uuid.UUID
			for _, l := range got {
				ids = append(ids, l.ID)
			}

			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestStore_ListSweepCandidates(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	active := line("u1", creditline.PartnerInternal, creditline.StatusActive, t0)
	suspendedWithDebt := line("u2", creditline.PartnerInternal, creditline.StatusSuspended, t0)
	suspendedWithDebt.PaymentHistory = []creditline.Installment{
		{ID: uuid.New(), Amount: 100_00, Principal: 90_00, Status: creditline.InstallmentPending},
	}
	cancelled := line("u3", creditline.PartnerInternal, creditline.StatusCancelled, t0)

	for _, l := range []*creditline.CreditLine{active, suspendedWithDebt, cancelled} {
		require.NoError(t, s.Create(ctx, l))
	}

	ids, err := s.ListSweepCandidates(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{active.ID, suspendedWithDebt.ID}, ids)
}
