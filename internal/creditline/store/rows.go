package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
)

// JSONB column layouts. They are decoupled from the domain structs so the
// stored format only changes on purpose.

type installmentDoc struct {
	ID             uuid.UUID  `json:"id"`
	Amount         int64      `json:"amount"`
	Principal      int64      `json:"principal"`
	CreatedAt      time.Time  `json:"created_at"`
	DueDate        time.Time  `json:"due_date"`
	Status         string     `json:"status"`
	TransactionRef string     `json:"transaction_ref,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
}

type paymentDoc struct {
	ID             uuid.UUID `json:"id"`
	Amount         int64     `json:"amount"`
	Applied        int64     `json:"applied"`
	Overpayment    int64     `json:"overpayment"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
}

type snapshotDoc struct {
	CreditScore       int      `json:"credit_score"`
	MonthlyIncome     int64    `json:"monthly_income"`
	DebtToIncomeRatio float64  `json:"debt_to_income_ratio"`
	ApprovedBy        string   `json:"approved_by,omitempty"`
	Conditions        []string `json:"conditions"`
	PolicyVersion     string   `json:"policy_version"`
	Purpose           string   `json:"purpose,omitempty"`
}

type feesDoc struct {
	OriginationFee int64 `json:"origination_fee"`
	LateFee        int64 `json:"late_fee"`
	PrepaymentFee  int64 `json:"prepayment_fee"`
}

// documents holds the encoded JSONB columns of a line.
type documents struct {
	snapshot     []byte
	installments []byte
	payments     []byte
	fees         []byte
}

func encodeDocuments(l *creditline.CreditLine) (documents, error) {
	installments := make([]installmentDoc, 0, len(l.PaymentHistory))
	for _, inst := range l.PaymentHistory {
		installments = append(installments, installmentDoc{
			ID:             inst.ID,
			Amount:         inst.Amount,
			Principal:      inst.Principal,
			CreatedAt:      inst.CreatedAt,
			DueDate:        inst.DueDate,
			Status:         string(inst.Status),
			TransactionRef: inst.TransactionRef,
			PaidAt:         inst.PaidAt,
		})
	}

	payments := make([]paymentDoc, 0, len(l.Payments))
	for _, p := range l.Payments {
		payments = append(payments, paymentDoc(p))
	}

	snap := l.ApprovalSnapshot

	var (
		docs documents
		err  error
	)

	if docs.snapshot, err = json.Marshal(snapshotDoc(snap)); err != nil {
		return documents{}, fmt.Errorf("encoding approval snapshot: %w", err)
	}

	if docs.installments, err = json.Marshal(installments); err != nil {
		return documents{}, fmt.Errorf("encoding installments: %w", err)
	}

	if docs.payments, err = json.Marshal(payments); err != nil {
		return documents{}, fmt.Errorf("encoding payments: %w", err)
	}

	if docs.fees, err = json.Marshal(feesDoc(l.Fees)); err != nil {
		return documents{}, fmt.Errorf("encoding fees: %w", err)
	}

	return docs, nil
}

func decodeDocuments(docs documents, l *creditline.CreditLine) error {
	var snap snapshotDoc
	if err := json.Unmarshal(docs.snapshot, &snap); err != nil {
		return fmt.Errorf("decoding approval snapshot: %w", err)
	}

	var installments []installmentDoc
	if err := json.Unmarshal(docs.installments, &installments); err != nil {
		return fmt.Errorf("decoding installments: %w", err)
	}

	var payments []paymentDoc
	if err := json.Unmarshal(docs.payments, &payments); err != nil {
		return fmt.Errorf("decoding payments: %w", err)
	}

	var fees feesDoc
	if err := json.Unmarshal(docs.fees, &fees); err != nil {
		return fmt.Errorf("decoding fees: %w", err)
	}

	l.ApprovalSnapshot = creditline.ApprovalSnapshot(snap)
	l.Fees = creditline.Fees(fees)

	l.PaymentHistory = nil
	for _, d := range installments {
		l.PaymentHistory = append(l.PaymentHistory, creditline.Installment{
			ID:             d.ID,
			Amount:         d.Amount,
			Principal:      d.Principal,
			CreatedAt:      d.CreatedAt,
			DueDate:        d.DueDate,
			Status:         creditline.InstallmentStatus(d.Status),
			TransactionRef: d.TransactionRef,
			PaidAt:         d.PaidAt,
		})
	}

	l.Payments = nil
	for _, d := range payments {
		l.Payments = append(l.Payments, creditline.Payment(d))
	}

	return nil
}
