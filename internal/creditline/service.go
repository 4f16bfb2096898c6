package creditline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bnpl/internal/underwriting"
)

const (
	defaultRetryAttempts = 3
	defaultRetryInterval = 20 * time.Millisecond
	defaultMinDraw       = 100_00
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=creditline
type Repository interface {
	// Create fails with ErrDuplicateActiveLine when the user already has an
	// open line with the same partner.
	Create(ctx context.Context, line *CreditLine) error
	Get(ctx context.Context, id uuid.UUID) (*CreditLine, error)
	// Update persists line only if the stored version still equals
	// expectedVersion, otherwise it fails with ErrConcurrentModification.
	Update(ctx context.Context, line *CreditLine, expectedVersion int64) error
	FindOpen(ctx context.Context, userID string, partner Partner) (*CreditLine, error)
	List(ctx context.Context, filter ListFilter) ([]*CreditLine, error)
	ListSweepCandidates(ctx context.Context) ([]uuid.UUID, error)
}

// Locker serializes work on a single line id.
type Locker interface {
	Lock(ctx context.Context, key uuid.UUID) (func(), error)
}

type ListFilter struct {
	UserID  string
	Status  *Status
	Partner *Partner
}

type Service struct {
	repo     Repository
	provider underwriting.Provider
	locks    Locker

	now           func() time.Time
	retryAttempts uint
	retryInterval time.Duration
	lockTimeout   time.Duration
	minDraw       int64
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRetry bounds how many times a conflicting read-modify-write cycle is
// attempted in total.
func WithRetry(attempts uint, interval time.Duration) Option {
	return func(s *Service) {
		s.retryAttempts = max(1, attempts)
		s.retryInterval = interval
	}
}

// WithLockTimeout bounds how long a mutation waits for the line's lock. Zero
// waits as long as the caller's context allows.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) { s.lockTimeout = d }
}

func WithMinDraw(amount int64) Option {
	return func(s *Service) { s.minDraw = amount }
}

func NewService(repo Repository, provider underwriting.Provider, locks Locker, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		provider:      provider,
		locks:         locks,
		now:           time.Now,
		retryAttempts: defaultRetryAttempts,
		retryInterval: defaultRetryInterval,
		minDraw:       defaultMinDraw,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type RequestParams struct {
	UserID        string
	Partner       Partner
	Currency      Currency
	Amount        int64
	TermDays      int
	MonthlyIncome int64
	Purpose       string
	Applicant     underwriting.ApplicantSnapshot
}

// RequestResult carries the decision and, when the decision had terms, the
// persisted line.
type RequestResult struct {
	Decision underwriting.Decision
	Line     *CreditLine
}

func (p RequestParams) validate() error {
	switch {
	case p.UserID == "":
		return ErrMissingUser
	case p.Amount <= 0:
		return ErrInvalidAmount
	case p.MonthlyIncome < 0:
		return fmt.Errorf("%w: monthly income", ErrInvalidAmount)
	case p.TermDays < minTermDays || p.TermDays > maxTermDays:
		return fmt.Errorf("%w: got %d", ErrInvalidTerm, p.TermDays)
	case !p.Partner.Valid():
		return fmt.Errorf("%w: %q", ErrInvalidPartner, p.Partner)
	case !p.Currency.Valid():
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, p.Currency)
	}

	return nil
}

// RequestCreditLine underwrites an application and opens a line when the
// decision allows it. A rejection is a result, not an error.
func (s *Service) RequestCreditLine(ctx context.Context, params RequestParams) (*RequestResult, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	_, err := s.repo.FindOpen(ctx, params.UserID, params.Partner)
	switch {
	case err == nil:
		return nil, ErrDuplicateActiveLine
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("find open credit line: %w", err)
	}

	decision, err := s.provider.Evaluate(ctx, params.Applicant, underwriting.RequestDetails{
		Partner:       string(params.Partner),
		Currency:      string(params.Currency),
		Amount:        params.Amount,
		TermDays:      params.TermDays,
		MonthlyIncome: params.MonthlyIncome,
		Purpose:       params.Purpose,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate application: %w", err)
	}

	result := &RequestResult{Decision: decision}

	if !decision.HasTerms() {
		slog.Info("credit line rejected",
			"user_id", params.UserID,
			"partner", params.Partner,
			"reason", decision.RejectionReason,
		)

		return result, nil
	}

	line, err := New(CreateParams{
		UserID:        params.UserID,
		Partner:       params.Partner,
		Currency:      params.Currency,
		Decision:      decision,
		CreditScore:   params.Applicant.CreditScore,
		MonthlyIncome: params.MonthlyIncome,
		Purpose:       params.Purpose,
		Now:           s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("open credit line: %w", err)
	}

	if err := s.repo.Create(ctx, line); err != nil {
		return nil, fmt.Errorf("create credit line: %w", err)
	}

	slog.Info("credit line opened",
		"credit_line_id", line.ID,
		"user_id", line.UserID,
		"partner", line.Partner,
		"status", line.Status,
		"max_amount", line.MaxAmount,
	)

	result.Line = line

	return result, nil
}

type DrawResult struct {
	Line        *CreditLine
	Installment Installment
}

func (s *Service) DrawCredit(ctx context.Context, id uuid.UUID, amount int64) (*DrawResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if amount < s.minDraw {
		return nil, fmt.Errorf("%w: minimum draw is %d", ErrAmountOutOfRange, s.minDraw)
	}

	var inst Installment

	line, err := s.mutate(ctx, id, "draw", func(l *CreditLine, now time.Time) error {
		var err error
		inst, err = l.Draw(amount, now)

		return err
	})
	if err != nil {
		return nil, err
	}

	return &DrawResult{Line: line, Installment: inst}, nil
}

type PaymentResult struct {
	Line    *CreditLine
	Outcome PaymentOutcome
}

// ApplyPayment applies amount, in minor units of currency, to the line. An
// empty currency means the line's own.
func (s *Service) ApplyPayment(ctx context.Context, id uuid.UUID, amount int64, currency Currency, transactionRef string) (*PaymentResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if currency != "" && !currency.Valid() {
		return nil, ErrInvalidCurrency
	}

	var out PaymentOutcome

	line, err := s.mutate(ctx, id, "payment", func(l *CreditLine, now time.Time) error {
		if currency != "" && currency != l.Currency {
			return fmt.Errorf("%w: got %s, line is %s", ErrCurrencyMismatch, currency, l.Currency)
		}

		var err error
		out, err = l.ApplyPayment(amount, transactionRef, now)

		return err
	})
	if err != nil {
		return nil, err
	}

	return &PaymentResult{Line: line, Outcome: out}, nil
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID, reviewer string) (*CreditLine, error) {
	return s.mutate(ctx, id, "approve", func(l *CreditLine, now time.Time) error {
		return l.Approve(reviewer, now)
	})
}

func (s *Service) Suspend(ctx context.Context, id uuid.UUID, reason string) (*CreditLine, error) {
	return s.mutate(ctx, id, "suspend", func(l *CreditLine, now time.Time) error {
		return l.Suspend(reason, now)
	})
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) (*CreditLine, error) {
	return s.mutate(ctx, id, "reactivate", func(l *CreditLine, now time.Time) error {
		return l.Reactivate(now)
	})
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*CreditLine, error) {
	return s.mutate(ctx, id, "cancel", func(l *CreditLine, now time.Time) error {
		return l.Cancel(now)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Summary, error) {
	line, err := s.repo.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}

	return line.Summarize(s.now()), nil
}

// Summarize computes the derived fields of line as of the service clock.
func (s *Service) Summarize(line *CreditLine) Summary {
	return line.Summarize(s.now())
}

// Stats aggregates a listing.
type Stats struct {
	TotalLines           int
	ActiveLines          int
	TotalMaxAmount       int64
	TotalUsedAmount      int64
	TotalAvailableAmount int64
}

type ListResult struct {
	Lines []Summary
	Stats Stats
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	lines, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list credit lines: %w", err)
	}

	now := s.now()
	result := &ListResult{Lines: make([]Summary, 0, len(lines))}

	for _, l := range lines {
		sum := l.Summarize(now)
		result.Lines = append(result.Lines, sum)

		result.Stats.TotalLines++
		result.Stats.TotalMaxAmount += l.MaxAmount
		result.Stats.TotalUsedAmount += l.UsedAmount
		result.Stats.TotalAvailableAmount += sum.AvailableAmount

		if l.Status == StatusActive {
			result.Stats.ActiveLines++
		}
	}

	return result, nil
}

// RunAgingSweep ages a single line. It reports whether anything was persisted.
func (s *Service) RunAgingSweep(ctx context.Context, id uuid.UUID) (bool, error) {
	var changed bool

	_, err := s.mutate(ctx, id, "age", func(l *CreditLine, now time.Time) error {
		var err error
		changed, err = l.Age(now)

		return err
	})

	return changed, err
}

type SweepReport struct {
	Scanned int
	Updated int
	Failed  int
}

// RunAgingSweepAll ages every candidate line. A failure on one line is logged
// and counted; it does not stop the sweep.
func (s *Service) RunAgingSweepAll(ctx context.Context) (SweepReport, error) {
	ids, err := s.repo.ListSweepCandidates(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list sweep candidates: %w", err)
	}

	var report SweepReport

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.Scanned++

		changed, err := s.RunAgingSweep(ctx, id)
		if err != nil {
			report.Failed++
			slog.Error("aging sweep failed", "credit_line_id", id, "error", err)

			continue
		}

		if changed {
			report.Updated++
		}
	}

	slog.Info("aging sweep finished",
		"scanned", report.Scanned,
		"updated", report.Updated,
		"failed", report.Failed,
	)

	return report, nil
}

// mutate runs one read-modify-write cycle under the line's lock, retrying
// the whole cycle when the conditional update loses a race. fn leaves the
// line's version untouched when there is nothing to persist.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, op string, fn func(l *CreditLine, now time.Time) error) (*CreditLine, error) {
	lockCtx := ctx
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	unlock, err := s.locks.Lock(lockCtx, id)
	if err != nil {
		return nil, fmt.Errorf("lock credit line %s: %w", id, err)
	}
	defer unlock()

	cycle := func() (*CreditLine, error) {
		line, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		version := line.Version

		if err := fn(line, s.now()); err != nil {
			return nil, backoff.Permanent(err)
		}

		if line.Version == version {
			return line, nil
		}

		if err := s.repo.Update(ctx, line, version); err != nil {
			if errors.Is(err, ErrConcurrentModification) {
				return nil, err
			}

			return nil, backoff.Permanent(err)
		}

		slog.Info("credit line updated",
			"credit_line_id", id,
			"op", op,
			"status", line.Status,
			"version", line.Version,
		)

		return line, nil
	}

	line, err := backoff.Retry(ctx, cycle,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.retryInterval)),
		backoff.WithMaxTries(s.retryAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("retrying credit line mutation",
				"credit_line_id", id,
				"op", op,
				"retry_in", next,
				"error", err,
			)
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}

		if errors.Is(err, ErrConcurrentModification) {
			return nil, fmt.Errorf("%s credit line %s: gave up after %d attempts: %w", op, id, s.retryAttempts, err)
		}

		return nil, err
	}

	return line, nil
}
