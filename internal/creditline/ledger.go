package creditline

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bnpl/internal/money"
	"github.com/MrJamesThe3rd/bnpl/internal/underwriting"
)

const (
	minTermDays = 1
	maxTermDays = 365

	suspendReasonExpired = "expired"
)

var transitions = map[Status][]Status{
	StatusPendingApproval: {StatusActive, StatusCancelled},
	StatusActive:          {StatusSuspended, StatusCancelled},
	StatusSuspended:       {StatusActive, StatusCancelled},
}

func canTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// CreateParams describes a line to open from an underwriting decision.
type CreateParams struct {
	UserID        string
	Partner       Partner
	Currency      Currency
	Decision      underwriting.Decision
	CreditScore   int
	MonthlyIncome int64
	Purpose       string
	Now           time.Time
}

// New opens a line in pending_approval. An approved decision activates it
// straight away; a decision routed to manual review waits for Approve.
func New(p CreateParams) (*CreditLine, error) {
	d := p.Decision

	switch {
	case !p.Partner.Valid():
		return nil, fmt.Errorf("%w: %q", ErrInvalidPartner, p.Partner)
	case !p.Currency.Valid():
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, p.Currency)
	case !d.HasTerms():
		return nil, ErrDecisionNoTerms
	case d.ApprovedAmount <= 0:
		return nil, fmt.Errorf("%w: approved amount %d", ErrInvalidAmount, d.ApprovedAmount)
	case d.TermDays < minTermDays || d.TermDays > maxTermDays:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTerm, d.TermDays)
	case d.InterestRate < 0 || d.InterestRate > 100:
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRate, d.InterestRate)
	}

	approvedBy := ""
	if d.Approved {
		approvedBy = string(p.Partner) + "_auto"
	}

	l := &CreditLine{
		ID:              uuid.New(),
		UserID:          p.UserID,
		Partner:         p.Partner,
		Currency:        p.Currency,
		MaxAmount:       d.ApprovedAmount,
		Status:          StatusPendingApproval,
		InterestRate:    d.InterestRate,
		PaymentTermDays: d.TermDays,
		ApprovalSnapshot: ApprovalSnapshot{
			CreditScore:       p.CreditScore,
			MonthlyIncome:     p.MonthlyIncome,
			DebtToIncomeRatio: d.DebtToIncomeRatio,
			ApprovedBy:        approvedBy,
			Conditions:        slices.Clone(d.Conditions),
			PolicyVersion:     d.PolicyVersion,
			Purpose:           p.Purpose,
		},
		Fees: Fees{
			OriginationFee: d.Fees.OriginationFee,
			LateFee:        d.Fees.LateFee,
			PrepaymentFee:  d.Fees.PrepaymentFee,
		},
		Version:   1,
		CreatedAt: p.Now,
		UpdatedAt: p.Now,
	}

	if d.Approved {
		l.activate(p.Now)
	}

	if err := l.checkInvariants(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *CreditLine) activate(now time.Time) {
	expires := now.AddDate(1, 0, 0)
	l.Status = StatusActive
	l.ApprovedAt = &now
	l.ExpiresAt = &expires
}

// mutate applies fn to a copy and only commits it back when fn succeeds and
// the result still satisfies every invariant. A committed change bumps Version.
func (l *CreditLine) mutate(now time.Time, fn func(next *CreditLine) error) error {
	next := l.Clone()

	if err := fn(next); err != nil {
		return err
	}

	if err := next.checkInvariants(); err != nil {
		return err
	}

	next.Version = l.Version + 1
	next.UpdatedAt = now
	*l = *next

	return nil
}

func (l *CreditLine) checkInvariants() error {
	if l.UsedAmount < 0 || l.UsedAmount > l.MaxAmount {
		return fmt.Errorf("%w: used amount %d outside [0, %d]", ErrInvariantViolation, l.UsedAmount, l.MaxAmount)
	}

	if l.Status == StatusCancelled && l.UsedAmount > 0 {
		return fmt.Errorf("%w: cancelled with used amount %d", ErrInvariantViolation, l.UsedAmount)
	}

	for _, inst := range l.PaymentHistory {
		if inst.Amount < 0 || inst.Principal < 0 {
			return fmt.Errorf("%w: installment %s has negative balance", ErrInvariantViolation, inst.ID)
		}
	}

	return nil
}

// Approve activates a line that was waiting for a manual reviewer.
func (l *CreditLine) Approve(reviewer string, now time.Time) error {
	return l.mutate(now, func(next *CreditLine) error {
		if next.Status != StatusPendingApproval {
			return fmt.Errorf("%w: cannot approve a %s line", ErrInvalidTransition, next.Status)
		}

		next.ReviewedBy = reviewer
		next.activate(now)

		return nil
	})
}

// Draw uses amount of the available credit and books the installment that
// will collect it, interest included.
func (l *CreditLine) Draw(amount int64, now time.Time) (Installment, error) {
	var inst Installment

	err := l.mutate(now, func(next *CreditLine) error {
		switch {
		case amount <= 0:
			return ErrInvalidAmount
		case next.Status != StatusActive:
			return fmt.Errorf("%w: line is %s", ErrInactiveLine, next.Status)
		case next.IsExpired(now):
			return ErrExpired
		case amount > next.Available():
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientCredit, amount, next.Available())
		}

		inst = Installment{
			ID:        uuid.New(),
			Amount:    money.WithInterest(amount, next.InterestRate),
			Principal: amount,
			CreatedAt: now,
			DueDate:   now.AddDate(0, 0, next.PaymentTermDays),
			Status:    InstallmentPending,
		}

		next.UsedAmount += amount
		next.LastUsedAt = &now
		next.PaymentHistory = append(next.PaymentHistory, inst)

		return nil
	})

	return inst, err
}

// PaymentOutcome reports how a payment was allocated.
type PaymentOutcome struct {
	Payment     Payment
	Settled     []uuid.UUID
	Overpayment int64
}

// ApplyPayment runs the waterfall: outstanding installments are settled
// oldest due date first, the last one touched may be settled partially, and
// whatever is left over is returned as overpayment.
func (l *CreditLine) ApplyPayment(amount int64, transactionRef string, now time.Time) (PaymentOutcome, error) {
	var out PaymentOutcome

	err := l.mutate(now, func(next *CreditLine) error {
		if amount <= 0 {
			return ErrInvalidAmount
		}

		if next.Status == StatusCancelled || next.Status == StatusPendingApproval {
			return fmt.Errorf("%w: line is %s", ErrInactiveLine, next.Status)
		}

		if transactionRef != "" && slices.ContainsFunc(next.Payments, func(p Payment) bool {
			return p.TransactionRef == transactionRef
		}) {
			return fmt.Errorf("%w: %s", ErrDuplicatePayment, transactionRef)
		}

		out = next.waterfall(amount, transactionRef, now)

		return nil
	})
	if err != nil {
		return PaymentOutcome{}, err
	}

	return out, nil
}

func (l *CreditLine) waterfall(amount int64, transactionRef string, now time.Time) PaymentOutcome {
	var open []int

	for i, inst := range l.PaymentHistory {
		if inst.Status.Outstanding() {
			open = append(open, i)
		}
	}

	slices.SortStableFunc(open, func(a, b int) int {
		return l.PaymentHistory[a].DueDate.Compare(l.PaymentHistory[b].DueDate)
	})

	var out PaymentOutcome

	remaining := amount

	for _, i := range open {
		if remaining <= 0 {
			break
		}

		inst := &l.PaymentHistory[i]

		if remaining >= inst.Amount {
			remaining -= inst.Amount
			l.UsedAmount = max(0, l.UsedAmount-inst.Principal)

			inst.Status = InstallmentPaid
			inst.TransactionRef = transactionRef
			inst.PaidAt = &now

			out.Settled = append(out.Settled, inst.ID)

			continue
		}

		principalPaid := min(money.Proportion(remaining, inst.Principal, inst.Amount), inst.Principal)

		inst.Amount -= remaining
		inst.Principal -= principalPaid
		l.UsedAmount = max(0, l.UsedAmount-principalPaid)
		remaining = 0
	}

	out.Overpayment = remaining
	out.Payment = Payment{
		ID:             uuid.New(),
		Amount:         amount,
		Applied:        amount - remaining,
		Overpayment:    remaining,
		TransactionRef: transactionRef,
		ReceivedAt:     now,
	}
	l.Payments = append(l.Payments, out.Payment)

	return out
}

// Suspend blocks further draws. Suspending a suspended line changes nothing.
func (l *CreditLine) Suspend(reason string, now time.Time) error {
	if l.Status == StatusSuspended {
		return nil
	}

	return l.mutate(now, func(next *CreditLine) error {
		if !canTransition(next.Status, StatusSuspended) {
			return fmt.Errorf("%w: cannot suspend a %s line", ErrInvalidTransition, next.Status)
		}

		next.Status = StatusSuspended
		next.SuspendReason = reason

		return nil
	})
}

// Reactivate returns a suspended line to active unless it has expired.
func (l *CreditLine) Reactivate(now time.Time) error {
	return l.mutate(now, func(next *CreditLine) error {
		if next.Status != StatusSuspended {
			return fmt.Errorf("%w: cannot reactivate a %s line", ErrInvalidTransition, next.Status)
		}

		if next.IsExpired(now) {
			return ErrExpired
		}

		next.Status = StatusActive
		next.SuspendReason = ""

		return nil
	})
}

// Cancel closes the line for good. Only lines with nothing drawn can be cancelled.
func (l *CreditLine) Cancel(now time.Time) error {
	return l.mutate(now, func(next *CreditLine) error {
		if next.UsedAmount > 0 {
			return fmt.Errorf("%w: %d still used", ErrOutstandingBalance, next.UsedAmount)
		}

		if !canTransition(next.Status, StatusCancelled) {
			return fmt.Errorf("%w: line is already %s", ErrInvalidTransition, next.Status)
		}

		next.Status = StatusCancelled

		return nil
	})
}

// Age marks past-due installments overdue and suspends an active line past
// its expiry. It reports whether anything changed; running it again with the
// same now is a no-op.
func (l *CreditLine) Age(now time.Time) (bool, error) {
	if !l.needsAging(now) {
		return false, nil
	}

	err := l.mutate(now, func(next *CreditLine) error {
		for i := range next.PaymentHistory {
			inst := &next.PaymentHistory[i]
			if inst.Status == InstallmentPending && inst.DueDate.Before(now) {
				inst.Status = InstallmentOverdue
			}
		}

		if next.Status == StatusActive && next.ExpiresAt != nil && next.ExpiresAt.Before(now) {
			next.Status = StatusSuspended
			next.SuspendReason = suspendReasonExpired
		}

		return nil
	})

	return err == nil, err
}

func (l *CreditLine) needsAging(now time.Time) bool {
	if l.Status == StatusActive && l.ExpiresAt != nil && l.ExpiresAt.Before(now) {
		return true
	}

	return slices.ContainsFunc(l.PaymentHistory, func(inst Installment) bool {
		return inst.Status == InstallmentPending && inst.DueDate.Before(now)
	})
}
