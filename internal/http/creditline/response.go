package creditline

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/underwriting"
)

type installmentResponse struct {
	ID             uuid.UUID                    `json:"id"`
	Amount         int64                        `json:"amount"`
	Principal      int64                        `json:"principal"`
	CreatedAt      time.Time                    `json:"created_at"`
	DueDate        time.Time                    `json:"due_date"`
	Status         creditline.InstallmentStatus `json:"status"`
	TransactionRef string                       `json:"transaction_ref,omitempty"`
	PaidAt         *time.Time                   `json:"paid_at,omitempty"`
}

type paymentResponse struct {
	ID             uuid.UUID `json:"id"`
	Amount         int64     `json:"amount"`
	Applied        int64     `json:"applied"`
	Overpayment    int64     `json:"overpayment"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
}

type snapshotResponse struct {
	CreditScore       int      `json:"credit_score"`
	MonthlyIncome     int64    `json:"monthly_income"`
	DebtToIncomeRatio float64  `json:"debt_to_income_ratio"`
	ApprovedBy        string   `json:"approved_by,omitempty"`
	Conditions        []string `json:"conditions"`
	PolicyVersion     string   `json:"policy_version"`
	Purpose           string   `json:"purpose,omitempty"`
}

type feesResponse struct {
	OriginationFee int64 `json:"origination_fee"`
	LateFee        int64 `json:"late_fee"`
	PrepaymentFee  int64 `json:"prepayment_fee"`
}

type lineResponse struct {
	ID                 uuid.UUID             `json:"id"`
	UserID             string                `json:"user_id"`
	Partner            creditline.Partner    `json:"partner"`
	Currency           creditline.Currency   `json:"currency"`
	MaxAmount          int64                 `json:"max_amount"`
	UsedAmount         int64                 `json:"used_amount"`
	AvailableAmount    int64                 `json:"available_amount"`
	UtilizationRate    float64               `json:"utilization_rate"`
	OutstandingBalance int64                 `json:"outstanding_balance"`
	Status             creditline.Status     `json:"status"`
	InterestRate       float64               `json:"interest_rate"`
	PaymentTermDays    int                   `json:"payment_term_days"`
	ApprovedAt         *time.Time            `json:"approved_at,omitempty"`
	ExpiresAt          *time.Time            `json:"expires_at,omitempty"`
	LastUsedAt         *time.Time            `json:"last_used_at,omitempty"`
	IsExpired          bool                  `json:"is_expired"`
	DaysUntilExpiry    *int                  `json:"days_until_expiry,omitempty"`
	ApprovalSnapshot   snapshotResponse      `json:"approval_snapshot"`
	ReviewedBy         string                `json:"reviewed_by,omitempty"`
	SuspendReason      string                `json:"suspend_reason,omitempty"`
	Installments       []installmentResponse `json:"installments"`
	Payments           []paymentResponse     `json:"payments"`
	Fees               feesResponse          `json:"fees"`
	Version            int64                 `json:"version"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

type decisionResponse struct {
	Approved          bool                `json:"approved"`
	ApprovedAmount    int64               `json:"approved_amount,omitempty"`
	InterestRate      float64             `json:"interest_rate,omitempty"`
	TermDays          int                 `json:"term_days,omitempty"`
	MonthlyPayment    int64               `json:"monthly_payment,omitempty"`
	TotalCost         int64               `json:"total_cost,omitempty"`
	APR               float64             `json:"apr,omitempty"`
	Fees              *feesResponse       `json:"fees,omitempty"`
	Conditions        []string            `json:"conditions,omitempty"`
	DebtToIncomeRatio float64             `json:"debt_to_income_ratio"`
	RejectionReason   underwriting.Reason `json:"rejection_reason,omitempty"`
	PolicyVersion     string              `json:"policy_version,omitempty"`
	DecidedBy         string              `json:"decided_by,omitempty"`
}

type requestResponse struct {
	Approved        bool                `json:"approved"`
	RejectionReason underwriting.Reason `json:"rejection_reason,omitempty"`
	Decision        decisionResponse    `json:"decision"`
	CreditLine      *lineResponse       `json:"credit_line,omitempty"`
}

type statsResponse struct {
	TotalCreditLines     int   `json:"total_credit_lines"`
	ActiveCreditLines    int   `json:"active_credit_lines"`
	TotalMaxAmount       int64 `json:"total_max_amount"`
	TotalUsedAmount      int64 `json:"total_used_amount"`
	TotalAvailableAmount int64 `json:"total_available_amount"`
}

type listResponse struct {
	CreditLines []lineResponse `json:"credit_lines"`
	Stats       statsResponse  `json:"stats"`
}

type drawResponse struct {
	CreditLine  lineResponse        `json:"credit_line"`
	Installment installmentResponse `json:"installment"`
}

type paymentResultResponse struct {
	CreditLine          lineResponse    `json:"credit_line"`
	Payment             paymentResponse `json:"payment"`
	Overpayment         int64           `json:"overpayment"`
	SettledInstallments []uuid.UUID     `json:"settled_installments"`
}

func toInstallment(inst creditline.Installment) installmentResponse {
	return installmentResponse{
		ID:             inst.ID,
		Amount:         inst.Amount,
		Principal:      inst.Principal,
		CreatedAt:      inst.CreatedAt,
		DueDate:        inst.DueDate,
		Status:         inst.Status,
		TransactionRef: inst.TransactionRef,
		PaidAt:         inst.PaidAt,
	}
}

func toPayment(p creditline.Payment) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		Amount:         p.Amount,
		Applied:        p.Applied,
		Overpayment:    p.Overpayment,
		TransactionRef: p.TransactionRef,
		ReceivedAt:     p.ReceivedAt,
	}
}

func toLine(s creditline.Summary) lineResponse {
	l := s.Line

	resp := lineResponse{
		ID:                 l.ID,
		UserID:             l.UserID,
		Partner:            l.Partner,
		Currency:           l.Currency,
		MaxAmount:          l.MaxAmount,
		UsedAmount:         l.UsedAmount,
		AvailableAmount:    s.AvailableAmount,
		UtilizationRate:    s.UtilizationRate,
		OutstandingBalance: s.OutstandingBalance,
		Status:             l.Status,
		InterestRate:       l.InterestRate,
		PaymentTermDays:    l.PaymentTermDays,
		ApprovedAt:         l.ApprovedAt,
		ExpiresAt:          l.ExpiresAt,
		LastUsedAt:         l.LastUsedAt,
		IsExpired:          s.IsExpired,
		DaysUntilExpiry:    s.DaysUntilExpiry,
		ApprovalSnapshot: snapshotResponse{
			CreditScore:       l.ApprovalSnapshot.CreditScore,
			MonthlyIncome:     l.ApprovalSnapshot.MonthlyIncome,
			DebtToIncomeRatio: l.ApprovalSnapshot.DebtToIncomeRatio,
			ApprovedBy:        l.ApprovalSnapshot.ApprovedBy,
			Conditions:        l.ApprovalSnapshot.Conditions,
			PolicyVersion:     l.ApprovalSnapshot.PolicyVersion,
			Purpose:           l.ApprovalSnapshot.Purpose,
		},
		ReviewedBy:    l.ReviewedBy,
		SuspendReason: l.SuspendReason,
		Installments:  make([]installmentResponse, 0, len(l.PaymentHistory)),
		Payments:      make([]paymentResponse, 0, len(l.Payments)),
		Fees: feesResponse{
			OriginationFee: l.Fees.OriginationFee,
			LateFee:        l.Fees.LateFee,
			PrepaymentFee:  l.Fees.PrepaymentFee,
		},
		Version:   l.Version,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}

	for _, inst := range l.PaymentHistory {
		resp.Installments = append(resp.Installments, toInstallment(inst))
	}

	for _, p := range l.Payments {
		resp.Payments = append(resp.Payments, toPayment(p))
	}

	return resp
}

func toDecision(d underwriting.Decision) decisionResponse {
	resp := decisionResponse{
		Approved:          d.Approved,
		DebtToIncomeRatio: d.DebtToIncomeRatio,
		RejectionReason:   d.RejectionReason,
		PolicyVersion:     d.PolicyVersion,
		DecidedBy:         d.DecidedBy,
	}

	if d.HasTerms() {
		resp.ApprovedAmount = d.ApprovedAmount
		resp.InterestRate = d.InterestRate
		resp.TermDays = d.TermDays
		resp.MonthlyPayment = d.MonthlyPayment
		resp.TotalCost = d.TotalCost
		resp.APR = d.APR
		resp.Conditions = d.Conditions
		resp.Fees = &feesResponse{
			OriginationFee: d.Fees.OriginationFee,
			LateFee:        d.Fees.LateFee,
			PrepaymentFee:  d.Fees.PrepaymentFee,
		}
	}

	return resp
}
