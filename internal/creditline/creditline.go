package creditline

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bnpl/internal/money"
)

// Partner is the financial partner that funds a line.
type Partner string

const (
	PartnerInternal   Partner = "internal"
	PartnerKueski     Partner = "kueski"
	PartnerKonfio     Partner = "konfio"
	PartnerCredijusto Partner = "credijusto"
)

func (p Partner) Valid() bool {
	switch p {
	case PartnerInternal, PartnerKueski, PartnerKonfio, PartnerCredijusto:
		return true
	}

	return false
}

// Currency is fixed for the life of a line.
type Currency string

const (
	CurrencyMXN Currency = "MXN"
	CurrencyUSD Currency = "USD"
)

func (c Currency) Valid() bool {
	return c == CurrencyMXN || c == CurrencyUSD
}

// Status represents the lifecycle state of a credit line.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusActive          Status = "active"
	StatusSuspended       Status = "suspended"
	StatusCancelled       Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusActive, StatusSuspended, StatusCancelled:
		return true
	}

	return false
}

// Open reports whether the line blocks a new application for the same partner.
func (s Status) Open() bool {
	return s == StatusPendingApproval || s == StatusActive
}

// InstallmentStatus represents the collection state of a single draw.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentOverdue InstallmentStatus = "overdue"
	InstallmentPaid    InstallmentStatus = "paid"
)

// Outstanding reports whether the installment is still receivable.
func (s InstallmentStatus) Outstanding() bool {
	return s == InstallmentPending || s == InstallmentOverdue
}

// Installment is the receivable created by one draw. Amount is what is still
// owed including interest; Principal is the part of it that counts against
// the line's used amount.
type Installment struct {
	ID             uuid.UUID
	Amount         int64
	Principal      int64
	CreatedAt      time.Time
	DueDate        time.Time
	Status         InstallmentStatus
	TransactionRef string
	PaidAt         *time.Time
}

// Payment records money received against the line.
type Payment struct {
	ID             uuid.UUID
	Amount         int64
	Applied        int64
	Overpayment    int64
	TransactionRef string
	ReceivedAt     time.Time
}

// Fees charged on the line, in minor units.
type Fees struct {
	OriginationFee int64
	LateFee        int64
	PrepaymentFee  int64
}

// ApprovalSnapshot is the audit record of the underwriting inputs and outcome.
// It is written once when the line is created.
type ApprovalSnapshot struct {
	CreditScore       int
	MonthlyIncome     int64
	DebtToIncomeRatio float64
	ApprovedBy        string
	Conditions        []string
	PolicyVersion     string
	Purpose           string
}

// CreditLine is the aggregate root. All amounts are minor units of Currency.
type CreditLine struct {
	ID       uuid.UUID
	UserID   string
	Partner  Partner
	Currency Currency

	MaxAmount  int64
	UsedAmount int64

	Status          Status
	InterestRate    float64 // annual percentage
	PaymentTermDays int

	ApprovedAt *time.Time
	ExpiresAt  *time.Time
	LastUsedAt *time.Time

	ApprovalSnapshot ApprovalSnapshot
	ReviewedBy       string
	SuspendReason    string

	PaymentHistory []Installment
	Payments       []Payment
	Fees           Fees

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Available is what can still be drawn. Only active lines have credit available.
func (l *CreditLine) Available() int64 {
	if l.Status != StatusActive {
		return 0
	}

	return max(0, l.MaxAmount-l.UsedAmount)
}

// UtilizationRate is the used share of the limit, in percent.
func (l *CreditLine) UtilizationRate() float64 {
	return money.Ratio(l.UsedAmount, l.MaxAmount)
}

// OutstandingBalance is the receivable: the sum of every unpaid installment,
// interest included.
func (l *CreditLine) OutstandingBalance() int64 {
	var total int64

	for _, inst := range l.PaymentHistory {
		if inst.Status.Outstanding() {
			total += inst.Amount
		}
	}

	return total
}

// OutstandingPrincipal is the principal still owed across unpaid installments.
func (l *CreditLine) OutstandingPrincipal() int64 {
	var total int64

	for _, inst := range l.PaymentHistory {
		if inst.Status.Outstanding() {
			total += inst.Principal
		}
	}

	return total
}

func (l *CreditLine) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// DaysUntilExpiry rounds up to whole days; nil when the line has no expiry.
func (l *CreditLine) DaysUntilExpiry(now time.Time) *int {
	if l.ExpiresAt == nil {
		return nil
	}

	days := int(math.Ceil(l.ExpiresAt.Sub(now).Hours() / 24))

	return &days
}

// Summary is a line together with the fields derived from it at a point in time.
type Summary struct {
	Line               *CreditLine
	AvailableAmount    int64
	UtilizationRate    float64
	OutstandingBalance int64
	IsExpired          bool
	DaysUntilExpiry    *int
}

func (l *CreditLine) Summarize(now time.Time) Summary {
	return Summary{
		Line:               l,
		AvailableAmount:    l.Available(),
		UtilizationRate:    l.UtilizationRate(),
		OutstandingBalance: l.OutstandingBalance(),
		IsExpired:          l.IsExpired(now),
		DaysUntilExpiry:    l.DaysUntilExpiry(now),
	}
}

// Clone returns a deep copy that shares nothing with l.
func (l *CreditLine) Clone() *CreditLine {
	c := *l
	c.ApprovedAt = cloneTime(l.ApprovedAt)
	c.ExpiresAt = cloneTime(l.ExpiresAt)
	c.LastUsedAt = cloneTime(l.LastUsedAt)
	c.ApprovalSnapshot.Conditions = slices.Clone(l.ApprovalSnapshot.Conditions)
	c.Payments = slices.Clone(l.Payments)

	c.PaymentHistory = make([]Installment, len(l.PaymentHistory))
	for i, inst := range l.PaymentHistory {
		inst.PaidAt = cloneTime(inst.PaidAt)
		c.PaymentHistory[i] = inst
	}

	if l.PaymentHistory == nil {
		c.PaymentHistory = nil
	}

	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := *t

	return &v
}
