// Package settlement imports partner remittance files and applies each
// reported payment to its credit line.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
)

//go:generate mockgen -source=service.go -destination=payments_mock.go -package=settlement
type PaymentApplier interface {
	ApplyPayment(ctx context.Context, id uuid.UUID, amount int64, currency creditline.Currency, transactionRef string) (*creditline.PaymentResult, error)
}

type Status string

const (
	StatusApplied   Status = "applied"
	StatusDuplicate Status = "duplicate"
	StatusFailed    Status = "failed"
)

type Result struct {
	Row         Row
	Status      Status
	Overpayment int64
	Error       string
}

type Report struct {
	Profile          string
	Encoding         string
	Results          []Result
	Applied          int
	Duplicates       int
	Failed           int
	TotalApplied     int64
	TotalOverpayment int64
}

type Service struct {
	payments PaymentApplier
	parser   *Parser
}

func NewService(payments PaymentApplier) *Service {
	return &Service{payments: payments, parser: NewParser()}
}

// Import parses a settlement file and applies every row. A file that cannot
// be parsed is rejected as a whole; once parsed, each row succeeds or fails
// on its own.
func (s *Service) Import(ctx context.Context, r io.Reader) (*Report, error) {
	file, err := s.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse settlement: %w", err)
	}

	report, err := s.Apply(ctx, file.Rows)
	if err != nil {
		return nil, err
	}

	report.Profile = file.Profile
	report.Encoding = file.Encoding

	return report, nil
}

// Apply applies rows in file order. A replayed reference is reported as a
// duplicate rather than a failure.
func (s *Service) Apply(ctx context.Context, rows []Row) (*Report, error) {
	report := &Report{Results: make([]Result, 0, len(rows))}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := Result{Row: row}

		res, err := s.payments.ApplyPayment(ctx, row.LineID, row.Amount, creditline.Currency(row.Currency), row.Reference)

		switch {
		case err == nil:
			result.Status = StatusApplied
			result.Overpayment = res.Outcome.Overpayment
			report.Applied++
			report.TotalApplied += res.Outcome.Payment.Applied
			report.TotalOverpayment += res.Outcome.Overpayment
		case errors.Is(err, creditline.ErrDuplicatePayment):
			result.Status = StatusDuplicate
			result.Error = err.Error()
			report.Duplicates++
		default:
			result.Status = StatusFailed
			result.Error = err.Error()
			report.Failed++

			slog.Warn("settlement row failed",
				"row", row.Num,
				"credit_line_id", row.LineID,
				"reference", row.Reference,
				"error", err,
			)
		}

		report.Results = append(report.Results, result)
	}

	slog.Info("settlement applied",
		"rows", len(rows),
		"applied", report.Applied,
		"duplicates", report.Duplicates,
		"failed", report.Failed,
	)

	return report, nil
}
