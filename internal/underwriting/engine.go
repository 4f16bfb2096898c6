package underwriting

import (
	"context"
	"fmt"

	"github.com/MrJamesThe3rd/bnpl/internal/money"
)

// Engine is the local decision provider. Gates run in a fixed order and the
// first failing gate decides the rejection reason.
type Engine struct {
	policy Policy
	gate   RiskGate
	name   string
}

// NewEngine builds an engine for the given policy. A nil gate never routes
// applications to manual review.
func NewEngine(policy Policy, gate RiskGate) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	if gate == nil {
		gate = NoReview{}
	}

	return &Engine{policy: policy, gate: gate, name: "engine"}, nil
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) Evaluate(ctx context.Context, applicant ApplicantSnapshot, req RequestDetails) (Decision, error) {
	if req.TermDays <= 0 {
		return Decision{}, fmt.Errorf("%w: term must be positive, got %d days", ErrInvalidRequest, req.TermDays)
	}

	p := e.policy

	if !applicant.KYCCompleted {
		return e.reject(ReasonKYCIncomplete, 0), nil
	}

	if req.Amount < p.MinAmount {
		return e.reject(ReasonAmountTooLow, 0), nil
	}

	if req.Amount > p.MaxAmount {
		return e.reject(ReasonAmountTooHigh, 0), nil
	}

	if req.ExistingActiveLine {
		return e.reject(ReasonActiveLineExists, 0), nil
	}

	if applicant.AccountAgeMonths < p.MinAccountAgeMonths {
		return e.reject(ReasonAccountTooNew, 0), nil
	}

	tier := p.tierFor(applicant.CreditScore)

	var dti float64

	if req.MonthlyIncome > 0 {
		estimate, err := p.estimateMonthlyObligation(req.Amount, tier.BaseRate, req.TermDays)
		if err != nil {
			return Decision{}, fmt.Errorf("estimating monthly obligation: %w", err)
		}

		dti = money.Ratio(estimate, req.MonthlyIncome)
		if money.ExceedsPercent(estimate, req.MonthlyIncome, p.MaxDebtToIncome) {
			return e.reject(ReasonHighDebtToIncome, dti), nil
		}
	}

	if applicant.CreditScore < p.MinCreditScore {
		return e.reject(ReasonLowCreditScore, dti), nil
	}

	d, err := e.terms(applicant, req, tier)
	if err != nil {
		return Decision{}, err
	}

	d.DebtToIncomeRatio = dti

	if e.gate.RequiresManualReview(ctx, applicant, req, d) {
		d.Approved = false
		d.RejectionReason = ReasonManualReviewRequired
	}

	return d, nil
}

func (e *Engine) terms(applicant ApplicantSnapshot, req RequestDetails, tier Tier) (Decision, error) {
	p := e.policy

	rate := tier.BaseRate
	amount := min(req.Amount, tier.MaxAmount)

	if applicant.WalletBalance > p.WalletThreshold {
		rate += p.WalletBonus.RateDelta
		amount = money.Scale(amount, p.WalletBonus.AmountFactor)
	}

	if applicant.AccountAgeMonths > p.TenureMonths {
		rate += p.TenureBonus.RateDelta
		amount = money.Scale(amount, p.TenureBonus.AmountFactor)
	}

	amount = max(min(amount, p.MaxAmount), p.MinAmount)
	amount = money.RoundDown(amount, p.AmountIncrement)
	rate = max(rate, 0)

	months := money.TermMonths(req.TermDays)

	monthly, err := money.MonthlyPayment(amount, rate, months)
	if err != nil {
		return Decision{}, fmt.Errorf("computing monthly payment: %w", err)
	}

	total := money.TotalCost(monthly, months)

	apr, err := money.APR(total, amount, req.TermDays)
	if err != nil {
		return Decision{}, fmt.Errorf("computing APR: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "MXN"
	}

	return Decision{
		Approved:       true,
		ApprovedAmount: amount,
		InterestRate:   rate,
		TermDays:       req.TermDays,
		MonthlyPayment: monthly,
		TotalCost:      total,
		APR:            apr,
		Fees: Fees{
			OriginationFee: money.Percent(amount, p.OriginationFeePct),
			LateFee:        p.LateFee,
			PrepaymentFee:  p.PrepaymentFee,
		},
		Conditions: []string{
			"Revolving credit line",
			"Minimum monthly payment: " + money.Format(monthly, currency),
			"No prepayment penalty",
			"Interest charged only on the amount used",
			"Renewal subject to re-evaluation",
		},
		PolicyVersion: p.Version,
		DecidedBy:     e.name,
	}, nil
}

func (e *Engine) reject(reason Reason, dti float64) Decision {
	return Decision{
		Approved:          false,
		RejectionReason:   reason,
		DebtToIncomeRatio: dti,
		PolicyVersion:     e.policy.Version,
		DecidedBy:         e.name,
	}
}
