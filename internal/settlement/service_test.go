package settlement_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/creditline/memstore"
	"github.com/MrJamesThe3rd/bnpl/internal/keylock"
	"github.com/MrJamesThe3rd/bnpl/internal/settlement"
	"github.com/MrJamesThe3rd/bnpl/internal/underwriting"
)

func paid(applied, overpayment int64) *creditline.PaymentResult {
	return &creditline.PaymentResult{
		Line: &creditline.CreditLine{},
		Outcome: creditline.PaymentOutcome{
			Payment:     creditline.Payment{Amount: applied + overpayment, Applied: applied, Overpayment: overpayment},
			Overpayment: overpayment,
		},
	}
}

func TestService_Import(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payments := settlement.NewMockPaymentApplier(ctrl)

	a := uuid.MustParse(lineA)
	b := uuid.MustParse(lineB)

	gomock.InOrder(
		payments.EXPECT().ApplyPayment(gomock.Any(), a, int64(1_000_00), creditline.CurrencyMXN, "r1").Return(paid(900_00, 100_00), nil),
		payments.EXPECT().ApplyPayment(gomock.Any(), a, int64(50_00), creditline.CurrencyMXN, "r1").
			Return(nil, fmt.Errorf("apply: %w", creditline.ErrDuplicatePayment)),
		payments.EXPECT().ApplyPayment(gomock.Any(), b, int64(20_00), creditline.CurrencyMXN, "r2").Return(nil, creditline.ErrNotFound),
		payments.EXPECT().ApplyPayment(gomock.Any(), b, int64(30_00), creditline.CurrencyMXN, "r3").Return(paid(30_00, 0), nil),
	)

	content := "credit_line_id,amount,reference\n" +
		lineA + ",1000.00,r1\n" +
		lineA + ",50.00,r1\n" +
		lineB + ",20.00,r2\n" +
		lineB + ",30.00,r3\n"

	report, err := settlement.NewService(payments).Import(context.Background(), strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "internal", report.Profile)
	assert.Equal(t, 2, report.Applied)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, int64(930_00), report.TotalApplied)
	assert.Equal(t, int64(100_00), report.TotalOverpayment)

	require.Len(t, report.Results, 4)

	statuses := make([]settlement.Status, 0, len(report.Results))
	for _, r := range report.Results {
		statuses = append(statuses, r.Status)
	}

	assert.Equal(t, []settlement.Status{
		settlement.StatusApplied,
		settlement.StatusDuplicate,
		settlement.StatusFailed,
		settlement.StatusApplied,
	}, statuses)
	assert.Equal(t, int64(100_00), report.Results[0].Overpayment)
	assert.NotEmpty(t, report.Results[2].Error)
}

func TestService_Import_UnreadableFileAppliesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payments := settlement.NewMockPaymentApplier(ctrl)

	content := "credit_line_id,amount,reference\n" +
		lineA + ",10.00,r1\n" +
		lineB + ",ten,r2\n"

	_, err := settlement.NewService(payments).Import(context.Background(), strings.NewReader(content))
	assert.Error(t, err)
}

func TestService_Apply_StopsOnCancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payments := settlement.NewMockPaymentApplier(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := settlement.NewService(payments).Apply(ctx, []settlement.Row{{LineID: uuid.New(), Amount: 1, Reference: "r"}})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestService_Import_RejectsForeignCurrency(t *testing.T) {
	ctx := context.Background()

	engine, err := underwriting.NewEngine(underwriting.DefaultPolicy(), underwriting.NoReview{})
	require.NoError(t, err)

	lines := creditline.NewService(memstore.New(), engine, keylock.New())

	res, err := lines.RequestCreditLine(ctx, creditline.RequestParams{
		UserID:   "user-1",
		Partner:  creditline.PartnerInternal,
		Currency: creditline.CurrencyMXN,
		Amount:   20_000_00,
		TermDays: 30,
		Applicant: underwriting.ApplicantSnapshot{
			CreditScore:      720,
			KYCCompleted:     true,
			AccountAgeMonths: 6,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Line)

	id := res.Line.ID

	_, err = lines.DrawCredit(ctx, id, 5_000_00)
	require.NoError(t, err)

	content := "credit_line_id,amount,reference,currency\n" +
		id.String() + ",100.00,r1,USD\n" +
		id.String() + ",100.00,r2,MXN\n"

	report, err := settlement.NewService(lines).Import(ctx, strings.NewReader(content))
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, settlement.StatusFailed, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Error, creditline.ErrCurrencyMismatch.Error())
	assert.Equal(t, settlement.StatusApplied, report.Results[1].Status)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, int64(100_00), report.TotalApplied)

	got, err := lines.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Line.Payments, 1)
	assert.Equal(t, "r2", got.Line.Payments[0].TransactionRef)
}
