package underwriting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/bnpl/internal/underwriting"
)

func goodApplicant() underwriting.ApplicantSnapshot {
	return underwriting.ApplicantSnapshot{
		CreditScore:      720,
		KYCCompleted:     true,
		WalletBalance:    0,
		AccountAgeMonths: 6,
	}
}

func goodRequest() underwriting.RequestDetails {
	return underwriting.RequestDetails{
		Currency:      "MXN",
		Amount:        20_000_00,
		TermDays:      30,
		MonthlyIncome: 0,
	}
}

func newEngine(t *testing.T, policy underwriting.Policy, gate underwriting.RiskGate) *underwriting.Engine {
	t.Helper()

	e, err := underwriting.NewEngine(policy, gate)
	require.NoError(t, err)

	return e
}

func TestEngine_Gates(t *testing.T) {
	type testCase struct {
		name       string
		applicant  func(a *underwriting.ApplicantSnapshot)
		request    func(r *underwriting.RequestDetails)
		wantReason underwriting.Reason
	}

	tests := []testCase{
		{
			name:       "KYC incomplete",
			applicant:  func(a *underwriting.ApplicantSnapshot) { a.KYCCompleted = false },
			wantReason: underwriting.ReasonKYCIncomplete,
		},
		{
			name: "KYC is checked before score",
			applicant: func(a *underwriting.ApplicantSnapshot) {
				a.KYCCompleted = false
				a.CreditScore = 400
			},
			wantReason: underwriting.ReasonKYCIncomplete,
		},
		{
			name:       "Amount below minimum",
			request:    func(r *underwriting.RequestDetails) { r.Amount = 999_99 },
			wantReason: underwriting.ReasonAmountTooLow,
		},
		{
			name:       "Amount above maximum",
			request:    func(r *underwriting.RequestDetails) { r.Amount = 100_000_01 },
			wantReason: underwriting.ReasonAmountTooHigh,
		},
		{
			name:       "Existing active line",
			request:    func(r *underwriting.RequestDetails) { r.ExistingActiveLine = true },
			wantReason: underwriting.ReasonActiveLineExists,
		},
		{
			name:       "Account too new",
			applicant:  func(a *underwriting.ApplicantSnapshot) { a.AccountAgeMonths = 0 },
			wantReason: underwriting.ReasonAccountTooNew,
		},
		{
			name: "Debt to income over 30%",
			request: func(r *underwriting.RequestDetails) {
				r.Amount = 50_000_00
				r.TermDays = 120
				r.MonthlyIncome = 5_000_00
			},
			wantReason: underwriting.ReasonHighDebtToIncome,
		},
		{
			name: "Debt to income a hair over 30% is not rounded away",
			request: func(r *underwriting.RequestDetails) {
				r.Amount = 1_000_00
				r.TermDays = 60
				r.MonthlyIncome = 99_99
			},
			wantReason: underwriting.ReasonHighDebtToIncome,
		},
		{
			name:       "Low credit score",
			applicant:  func(a *underwriting.ApplicantSnapshot) { a.CreditScore = 590 },
			wantReason: underwriting.ReasonLowCreditScore,
		},
	}

	engine := newEngine(t, underwriting.DefaultPolicy(), nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applicant := goodApplicant()
			if tt.applicant != nil {
				tt.applicant(&applicant)
			}

			req := goodRequest()
			if tt.request != nil {
				tt.request(&req)
			}

			got, err := engine.Evaluate(context.Background(), applicant, req)
			require.NoError(t, err)

			assert.False(t, got.Approved)
			assert.Equal(t, tt.wantReason, got.RejectionReason)
			assert.Zero(t, got.ApprovedAmount)
			assert.False(t, got.HasTerms())
		})
	}
}

func TestEngine_HighDebtToIncomeReportsRatio(t *testing.T) {
	engine := newEngine(t, underwriting.DefaultPolicy(), nil)

	req := goodRequest()
	req.Amount = 50_000_00
	req.TermDays = 120
	req.MonthlyIncome = 5_000_00

	got, err := engine.Evaluate(context.Background(), goodApplicant(), req)
	require.NoError(t, err)

	// 1.5% of 50,000 for 4 months is 3,000 against 5,000 of income.
	assert.Equal(t, underwriting.ReasonHighDebtToIncome, got.RejectionReason)
	assert.InDelta(t, 60.0, got.DebtToIncomeRatio, 0.001)
}

func TestEngine_ApprovedScenario(t *testing.T) {
	engine := newEngine(t, underwriting.DefaultPolicy(), underwriting.NoReview{})

	applicant := underwriting.ApplicantSnapshot{
		CreditScore:      780,
		KYCCompleted:     true,
		WalletBalance:    15_000_00,
		AccountAgeMonths: 18,
	}
	req := underwriting.RequestDetails{
		Currency:      "MXN",
		Amount:        40_000_00,
		TermDays:      90,
		MonthlyIncome: 20_000_00,
	}

	got, err := engine.Evaluate(context.Background(), applicant, req)
	require.NoError(t, err)

	assert.True(t, got.Approved)
	assert.Empty(t, got.RejectionReason)
	assert.InDelta(t, 6.5, got.InterestRate, 0.0001)
	// 40,000 × 1.2 × 1.1 = 52,800, rounded down to the nearest thousand.
	assert.Equal(t, int64(52_000_00), got.ApprovedAmount)
	assert.LessOrEqual(t, got.ApprovedAmount, int64(100_000_00))
	assert.Equal(t, 90, got.TermDays)
	assert.Equal(t, int64(1_752_145), got.MonthlyPayment)
	assert.Equal(t, int64(5_256_435), got.TotalCost)
	assert.InDelta(t, 4.40, got.APR, 0.001)
	assert.InDelta(t, 9.0, got.DebtToIncomeRatio, 0.001)
	assert.Equal(t, underwriting.Fees{OriginationFee: 1_040_00, LateFee: 300_00}, got.Fees)
	assert.Equal(t, "2024.1", got.PolicyVersion)
	assert.NotEmpty(t, got.Conditions)

	again, err := engine.Evaluate(context.Background(), applicant, req)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestEngine_ScoreTiers(t *testing.T) {
	type testCase struct {
		name       string
		score      int
		amount     int64
		wantRate   float64
		wantAmount int64
	}

	tests := []testCase{
		{name: "Excellent", score: 760, amount: 90_000_00, wantRate: 8, wantAmount: 90_000_00},
		{name: "Good is capped at 75k", score: 710, amount: 90_000_00, wantRate: 12, wantAmount: 75_000_00},
		{name: "Fair is capped at 50k", score: 660, amount: 60_000_00, wantRate: 18, wantAmount: 50_000_00},
		{name: "Low is capped at 25k", score: 610, amount: 30_000_00, wantRate: 25, wantAmount: 25_000_00},
		{name: "Rounded down to thousands", score: 760, amount: 12_345_67, wantRate: 8, wantAmount: 12_000_00},
	}

	engine := newEngine(t, underwriting.DefaultPolicy(), nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applicant := goodApplicant()
			applicant.CreditScore = tt.score

			req := goodRequest()
			req.Amount = tt.amount

			got, err := engine.Evaluate(context.Background(), applicant, req)
			require.NoError(t, err)

			assert.True(t, got.Approved)
			assert.InDelta(t, tt.wantRate, got.InterestRate, 0.0001)
			assert.Equal(t, tt.wantAmount, got.ApprovedAmount)
		})
	}
}

func TestEngine_AdjustedAmountIsClamped(t *testing.T) {
	engine := newEngine(t, underwriting.DefaultPolicy(), nil)

	applicant := underwriting.ApplicantSnapshot{
		CreditScore:      800,
		KYCCompleted:     true,
		WalletBalance:    50_000_00,
		AccountAgeMonths: 24,
	}
	req := goodRequest()
	req.Amount = 100_000_00

	got, err := engine.Evaluate(context.Background(), applicant, req)
	require.NoError(t, err)

	assert.True(t, got.Approved)
	assert.Equal(t, int64(100_000_00), got.ApprovedAmount)
}

func TestEngine_AmortizedEstimator(t *testing.T) {
	policy := underwriting.DefaultPolicy()
	policy.DTIEstimator = underwriting.EstimatorAmortized

	engine := newEngine(t, policy, nil)

	applicant := underwriting.ApplicantSnapshot{
		CreditScore:      780,
		KYCCompleted:     true,
		WalletBalance:    15_000_00,
		AccountAgeMonths: 18,
	}
	req := underwriting.RequestDetails{
		Amount:        40_000_00,
		TermDays:      90,
		MonthlyIncome: 20_000_00,
	}

	got, err := engine.Evaluate(context.Background(), applicant, req)
	require.NoError(t, err)

	// The annuity payment on 40,000 at 8% over 3 months is 13,511.50.
	assert.False(t, got.Approved)
	assert.Equal(t, underwriting.ReasonHighDebtToIncome, got.RejectionReason)
	assert.InDelta(t, 67.56, got.DebtToIncomeRatio, 0.001)
}

func TestEngine_ManualReview(t *testing.T) {
	var seen underwriting.Decision

	gate := underwriting.GateFunc(func(_ context.Context, _ underwriting.ApplicantSnapshot, _ underwriting.RequestDetails, d underwriting.Decision) bool {
		seen = d
		return true
	})

	engine := newEngine(t, underwriting.DefaultPolicy(), gate)

	got, err := engine.Evaluate(context.Background(), goodApplicant(), goodRequest())
	require.NoError(t, err)

	assert.False(t, got.Approved)
	assert.Equal(t, underwriting.ReasonManualReviewRequired, got.RejectionReason)
	assert.True(t, got.NeedsManualReview())
	assert.True(t, got.HasTerms())
	assert.Equal(t, int64(20_000_00), got.ApprovedAmount)
	assert.True(t, seen.Approved, "gate sees the approved terms")
}

func TestEngine_InvalidTerm(t *testing.T) {
	engine := newEngine(t, underwriting.DefaultPolicy(), nil)

	req := goodRequest()
	req.TermDays = 0

	_, err := engine.Evaluate(context.Background(), goodApplicant(), req)
	assert.ErrorIs(t, err, underwriting.ErrInvalidRequest)
}

func TestSampledReview(t *testing.T) {
	never := underwriting.NewSampledReview(0, 42)
	always := underwriting.NewSampledReview(1, 42)

	for range 100 {
		assert.False(t, never.RequiresManualReview(context.Background(), goodApplicant(), goodRequest(), underwriting.Decision{}))
		assert.True(t, always.RequiresManualReview(context.Background(), goodApplicant(), goodRequest(), underwriting.Decision{}))
	}
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, underwriting.DefaultPolicy().Validate())

	unordered := underwriting.DefaultPolicy()
	unordered.Tiers[0], unordered.Tiers[1] = unordered.Tiers[1], unordered.Tiers[0]
	assert.Error(t, unordered.Validate())

	badEstimator := underwriting.DefaultPolicy()
	badEstimator.DTIEstimator = "formula"
	assert.Error(t, badEstimator.Validate())

	badRange := underwriting.DefaultPolicy()
	badRange.MaxAmount = 0
	assert.Error(t, badRange.Validate())

	_, err := underwriting.NewEngine(badRange, nil)
	assert.Error(t, err)
}

func TestRouter_Evaluate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fallback := underwriting.NewMockProvider(ctrl)
	kueski := underwriting.NewMockProvider(ctrl)

	router := underwriting.NewRouter(fallback).Route("kueski", kueski)

	kueskiReq := goodRequest()
	kueskiReq.Partner = "kueski"

	internalReq := goodRequest()
	internalReq.Partner = "internal"

	kueski.EXPECT().
		Evaluate(gomock.Any(), gomock.Any(), kueskiReq).
		Return(underwriting.Decision{Approved: true, DecidedBy: "kueski"}, nil)
	fallback.EXPECT().
		Evaluate(gomock.Any(), gomock.Any(), internalReq).
		Return(underwriting.Decision{Approved: true, DecidedBy: "engine"}, nil)

	got, err := router.Evaluate(context.Background(), goodApplicant(), kueskiReq)
	require.NoError(t, err)
	assert.Equal(t, "kueski", got.DecidedBy)

	got, err = router.Evaluate(context.Background(), goodApplicant(), internalReq)
	require.NoError(t, err)
	assert.Equal(t, "engine", got.DecidedBy)
}
