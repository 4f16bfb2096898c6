// Package partnerapi is a decision provider backed by a partner's HTTP
// underwriting API.
package partnerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/bnpl/internal/underwriting"
)

const decisionsPath = "/v1/credit-decisions"

// Client implements underwriting.Provider against a remote partner.
type Client struct {
	baseURL  string
	apiToken string
	partner  string
	client   *http.Client
}

// NewClient creates a client for the partner API rooted at baseURL.
func NewClient(baseURL, apiToken, partner string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		partner:  partner,
		client:   &http.Client{Timeout: timeout},
	}
}

type decisionRequest struct {
	Applicant struct {
		CreditScore      int   `json:"credit_score"`
		KYCCompleted     bool  `json:"kyc_completed"`
		WalletBalance    int64 `json:"wallet_balance"`
		AccountAgeMonths int   `json:"account_age_months"`
	} `json:"applicant"`
	Request struct {
		Currency      string `json:"currency"`
		Amount        int64  `json:"amount"`
		TermDays      int    `json:"term_days"`
		MonthlyIncome int64  `json:"monthly_income"`
		Purpose       string `json:"purpose,omitempty"`
	} `json:"request"`
}

type decisionResponse struct {
	Approved          bool     `json:"approved"`
	ApprovedAmount    int64    `json:"approved_amount"`
	InterestRate      float64  `json:"interest_rate"`
	TermDays          int      `json:"term_days"`
	MonthlyPayment    int64    `json:"monthly_payment"`
	TotalCost         int64    `json:"total_cost"`
	APR               float64  `json:"apr"`
	Conditions        []string `json:"conditions"`
	DebtToIncomeRatio float64  `json:"debt_to_income_ratio"`
	RejectionReason   string   `json:"rejection_reason"`
	PolicyVersion     string   `json:"policy_version"`
	Fees              struct {
		OriginationFee int64 `json:"origination_fee"`
		LateFee        int64 `json:"late_fee"`
		PrepaymentFee  int64 `json:"prepayment_fee"`
	} `json:"fees"`
}

func (c *Client) Evaluate(ctx context.Context, applicant underwriting.ApplicantSnapshot, req underwriting.RequestDetails) (underwriting.Decision, error) {
	var body decisionRequest
	body.Applicant.CreditScore = applicant.CreditScore
	body.Applicant.KYCCompleted = applicant.KYCCompleted
	body.Applicant.WalletBalance = applicant.WalletBalance
	body.Applicant.AccountAgeMonths = applicant.AccountAgeMonths
	body.Request.Currency = req.Currency
	body.Request.Amount = req.Amount
	body.Request.TermDays = req.TermDays
	body.Request.MonthlyIncome = req.MonthlyIncome
	body.Request.Purpose = req.Purpose

	payload, err := json.Marshal(body)
	if err != nil {
		return underwriting.Decision{}, fmt.Errorf("encoding decision request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+decisionsPath, bytes.NewReader(payload))
	if err != nil {
		return underwriting.Decision{}, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	if c.apiToken != "" {
		httpReq.Header.Set("Authorization", "Token "+c.apiToken)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return underwriting.Decision{}, fmt.Errorf("calling %s decision api: %w", c.partner, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return underwriting.Decision{}, fmt.Errorf("%s decision api returned %d: %s", c.partner, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out decisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return underwriting.Decision{}, fmt.Errorf("decoding decision response: %w", err)
	}

	return underwriting.Decision{
		Approved:          out.Approved,
		ApprovedAmount:    out.ApprovedAmount,
		InterestRate:      out.InterestRate,
		TermDays:          out.TermDays,
		MonthlyPayment:    out.MonthlyPayment,
		TotalCost:         out.TotalCost,
		APR:               out.APR,
		Conditions:        out.Conditions,
		DebtToIncomeRatio: out.DebtToIncomeRatio,
		RejectionReason:   underwriting.Reason(out.RejectionReason),
		PolicyVersion:     out.PolicyVersion,
		DecidedBy:         c.partner,
		Fees: underwriting.Fees{
			OriginationFee: out.Fees.OriginationFee,
			LateFee:        out.Fees.LateFee,
			PrepaymentFee:  out.Fees.PrepaymentFee,
		},
	}, nil
}
