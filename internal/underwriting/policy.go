package underwriting

import (
	"fmt"

	"github.com/MrJamesThe3rd/bnpl/internal/money"
)

// Estimator selects how the monthly obligation used by the debt-to-income gate
// is estimated.
type Estimator string

const (
	// EstimatorFlatRate charges a flat monthly rate on the requested amount
	// for every month of the term.
	EstimatorFlatRate Estimator = "flat_rate"
	// EstimatorAmortized uses the annuity payment at the applicant's tier rate.
	EstimatorAmortized Estimator = "amortized"
)

// Tier maps a minimum credit score to a base annual rate and an amount cap.
type Tier struct {
	MinScore  int
	BaseRate  float64
	MaxAmount int64
}

// Adjustment lowers the rate and scales the approved amount for applicants
// past a threshold.
type Adjustment struct {
	RateDelta    float64
	AmountFactor float64
}

// Policy is the full set of underwriting parameters. It is passed to the
// engine at construction so tests and partners can vary it independently.
type Policy struct {
	Version string

	MinAmount       int64
	MaxAmount       int64
	AmountIncrement int64

	MinAccountAgeMonths int
	MinCreditScore      int
	MaxDebtToIncome     float64

	DTIEstimator       Estimator
	FlatMonthlyRatePct float64

	// Tiers must be ordered by MinScore, highest first. The last tier is the
	// catch-all for scores that pass the minimum.
	Tiers []Tier

	WalletThreshold int64
	WalletBonus     Adjustment
	TenureMonths    int
	TenureBonus     Adjustment

	OriginationFeePct float64
	LateFee           int64
	PrepaymentFee     int64
}

// DefaultPolicy returns the policy for MXN-denominated lines.
func DefaultPolicy() Policy {
	return Policy{
		Version: "2024.1",

		MinAmount:       1_000_00,
		MaxAmount:       100_000_00,
		AmountIncrement: 1_000_00,

		MinAccountAgeMonths: 1,
		MinCreditScore:      600,
		MaxDebtToIncome:     30,

		DTIEstimator:       EstimatorFlatRate,
		FlatMonthlyRatePct: 1.5,

		Tiers: []Tier{
			{MinScore: 750, BaseRate: 8, MaxAmount: 100_000_00},
			{MinScore: 700, BaseRate: 12, MaxAmount: 75_000_00},
			{MinScore: 650, BaseRate: 18, MaxAmount: 50_000_00},
			{MinScore: 0, BaseRate: 25, MaxAmount: 25_000_00},
		},

		WalletThreshold: 10_000_00,
		WalletBonus:     Adjustment{RateDelta: -1, AmountFactor: 1.2},
		TenureMonths:    12,
		TenureBonus:     Adjustment{RateDelta: -0.5, AmountFactor: 1.1},

		OriginationFeePct: 2,
		LateFee:           300_00,
		PrepaymentFee:     0,
	}
}

// Validate checks the policy is internally consistent.
func (p Policy) Validate() error {
	if p.MinAmount <= 0 || p.MaxAmount < p.MinAmount {
		return fmt.Errorf("policy %s: invalid amount range [%d, %d]", p.Version, p.MinAmount, p.MaxAmount)
	}

	if len(p.Tiers) == 0 {
		return fmt.Errorf("policy %s: no score tiers", p.Version)
	}

	for i := 1; i < len(p.Tiers); i++ {
		if p.Tiers[i].MinScore >= p.Tiers[i-1].MinScore {
			return fmt.Errorf("policy %s: tiers must be ordered by descending score", p.Version)
		}
	}

	switch p.DTIEstimator {
	case EstimatorFlatRate, EstimatorAmortized:
	default:
		return fmt.Errorf("policy %s: unknown DTI estimator %q", p.Version, p.DTIEstimator)
	}

	return nil
}

func (p Policy) tierFor(score int) Tier {
	for _, t := range p.Tiers {
		if score >= t.MinScore {
			return t
		}
	}

	return p.Tiers[len(p.Tiers)-1]
}

// estimateMonthlyObligation returns the monthly payment the DTI gate compares
// against declared income.
func (p Policy) estimateMonthlyObligation(amount int64, baseRate float64, termDays int) (int64, error) {
	switch p.DTIEstimator {
	case EstimatorAmortized:
		return money.MonthlyPayment(amount, baseRate, money.TermMonths(termDays))
	default:
		perMonth := money.Percent(amount, p.FlatMonthlyRatePct)
		return money.Proportion(perMonth, int64(termDays), money.DaysPerMonth), nil
	}
}
