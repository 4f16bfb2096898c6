// Package underwriting turns an applicant profile and a requested amount into
// a credit decision. It is stateless: nothing here touches a credit line.
package underwriting

import (
	"context"
	"errors"
)

// Reason identifies why an application was not approved.
type Reason string

const (
	ReasonKYCIncomplete        Reason = "kyc_incomplete"
	ReasonAmountTooLow         Reason = "amount_too_low"
	ReasonAmountTooHigh        Reason = "amount_too_high"
	ReasonActiveLineExists     Reason = "active_line_exists"
	ReasonAccountTooNew        Reason = "account_too_new"
	ReasonHighDebtToIncome     Reason = "high_debt_to_income"
	ReasonLowCreditScore       Reason = "low_credit_score"
	ReasonManualReviewRequired Reason = "manual_review_required"
)

var ErrInvalidRequest = errors.New("invalid underwriting request")

// ApplicantSnapshot is the applicant profile as seen at request time.
type ApplicantSnapshot struct {
	CreditScore      int
	KYCCompleted     bool
	WalletBalance    int64 // minor units
	AccountAgeMonths int
}

// RequestDetails describes the credit being asked for. Amounts are minor units.
type RequestDetails struct {
	Partner            string
	Currency           string
	Amount             int64
	TermDays           int
	MonthlyIncome      int64
	Purpose            string
	ExistingActiveLine bool
}

// Fees charged on an approved line, in minor units.
type Fees struct {
	OriginationFee int64
	LateFee        int64
	PrepaymentFee  int64
}

// Decision is the outcome of underwriting. A rejection is a Decision with
// Approved == false and a RejectionReason, not an error.
//
// When RejectionReason is ReasonManualReviewRequired the terms are still
// populated so the line can be opened pending a reviewer.
type Decision struct {
	Approved          bool
	ApprovedAmount    int64
	InterestRate      float64
	TermDays          int
	MonthlyPayment    int64
	TotalCost         int64
	APR               float64
	Fees              Fees
	Conditions        []string
	DebtToIncomeRatio float64
	RejectionReason   Reason
	PolicyVersion     string
	DecidedBy         string
}

// NeedsManualReview reports whether the application passed every automatic
// gate but was routed to a human reviewer.
func (d Decision) NeedsManualReview() bool {
	return !d.Approved && d.RejectionReason == ReasonManualReviewRequired
}

// HasTerms reports whether the decision carries terms a line can be opened with.
func (d Decision) HasTerms() bool {
	return d.Approved || d.NeedsManualReview()
}

//go:generate mockgen -source=underwriting.go -destination=provider_mock.go -package=underwriting
type Provider interface {
	Evaluate(ctx context.Context, applicant ApplicantSnapshot, req RequestDetails) (Decision, error)
}
