package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order matches selectColumns.
func scanLine(s scanner) (*creditline.CreditLine, error) {
	var (
		l                  creditline.CreditLine
		partner, currency  string
		status             string
		docs               documents
		approvedAt         sql.NullTime
		expiresAt          sql.NullTime
		lastUsedAt         sql.NullTime
		reviewedBy, reason string
	)

	if err := s.Scan(
		&l.ID, &l.UserID, &partner, &currency, &l.MaxAmount, &l.UsedAmount, &status,
		&l.InterestRate, &l.PaymentTermDays, &approvedAt, &expiresAt, &lastUsedAt,
		&docs.snapshot, &reviewedBy, &reason, &docs.installments, &docs.payments, &docs.fees,
		&l.Version, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}

	l.Partner = creditline.Partner(partner)
	l.Currency = creditline.Currency(currency)
	l.Status = creditline.Status(status)
	l.ReviewedBy = reviewedBy
	l.SuspendReason = reason
	l.ApprovedAt = nullTime(approvedAt)
	l.ExpiresAt = nullTime(expiresAt)
	l.LastUsedAt = nullTime(lastUsedAt)

	if err := decodeDocuments(docs, &l); err != nil {
		return nil, err
	}

	return &l, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	v := t.Time.UTC()

	return &v
}

const selectColumns = `
	id, user_id, partner, currency, max_amount, used_amount, status,
	interest_rate, payment_term_days, approved_at, expires_at, last_used_at,
	approval_snapshot, reviewed_by, suspend_reason, installments, payments, fees,
	version, created_at, updated_at
`

// openLineLockKey serializes applications of one user with one partner.
func openLineLockKey(userID string, partner creditline.Partner) int64 {
	h := fnv.New64a()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(partner))

	return int64(h.Sum64())
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Store) Create(ctx context.Context, line *creditline.CreditLine) error {
	docs, err := encodeDocuments(line)
	if err != nil {
		return err
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", openLineLockKey(line.UserID, line.Partner)); err != nil {
		return fmt.Errorf("acquiring application lock: %w", err)
	}

	query := `
		INSERT INTO credit_lines (
			id, user_id, partner, currency, max_amount, used_amount, status,
			interest_rate, payment_term_days, approved_at, expires_at, last_used_at,
			approval_snapshot, reviewed_by, suspend_reason, installments, payments, fees,
			version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err = dbTx.ExecContext(ctx, query,
		line.ID,
		line.UserID,
		line.Partner,
		line.Currency,
		line.MaxAmount,
		line.UsedAmount,
		line.Status,
		line.InterestRate,
		line.PaymentTermDays,
		line.ApprovedAt,
		line.ExpiresAt,
		line.LastUsedAt,
		docs.snapshot,
		line.ReviewedBy,
		line.SuspendReason,
		docs.installments,
		docs.payments,
		docs.fees,
		line.Version,
		line.CreatedAt,
		line.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return creditline.ErrDuplicateActiveLine
		}

		return fmt.Errorf("creating credit line: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*creditline.CreditLine, error) {
	query := `SELECT ` + selectColumns + ` FROM credit_lines WHERE id = $1`

	line, err := scanLine(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, creditline.ErrNotFound
		}

		return nil, fmt.Errorf("getting credit line: %w", err)
	}

	return line, nil
}

// Update writes line only when the stored version is still expectedVersion.
func (s *Store) Update(ctx context.Context, line *creditline.CreditLine, expectedVersion int64) error {
	docs, err := encodeDocuments(line)
	if err != nil {
		return err
	}

	query := `
		UPDATE credit_lines
		SET used_amount = $1, status = $2, approved_at = $3, expires_at = $4, last_used_at = $5,
			reviewed_by = $6, suspend_reason = $7, installments = $8, payments = $9,
			version = $10, updated_at = $11
		WHERE id = $12 AND version = $13
	`

	res, err := s.db.ExecContext(ctx, query,
		line.UsedAmount,
		line.Status,
		line.ApprovedAt,
		line.ExpiresAt,
		line.LastUsedAt,
		line.ReviewedBy,
		line.SuspendReason,
		docs.installments,
		docs.payments,
		line.Version,
		line.UpdatedAt,
		line.ID,
		expectedVersion,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return creditline.ErrDuplicateActiveLine
		}

		return fmt.Errorf("updating credit line: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating credit line: %w", err)
	}

	if n == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM credit_lines WHERE id = $1)`, line.ID).Scan(&exists); err != nil {
		return fmt.Errorf("checking credit line: %w", err)
	}

	if !exists {
		return creditline.ErrNotFound
	}

	return creditline.ErrConcurrentModification
}

func (s *Store) FindOpen(ctx context.Context, userID string, partner creditline.Partner) (*creditline.CreditLine, error) {
	query := `SELECT ` + selectColumns + `
		FROM credit_lines
		WHERE user_id = $1 AND partner = $2 AND status IN ('pending_approval', 'active')
		LIMIT 1`

	line, err := scanLine(s.db.QueryRowContext(ctx, query, userID, partner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, creditline.ErrNotFound
		}

		return nil, fmt.Errorf("finding open credit line: %w", err)
	}

	return line, nil
}

func (s *Store) List(ctx context.Context, filter creditline.ListFilter) ([]*creditline.CreditLine, error) {
	query := `SELECT ` + selectColumns + ` FROM credit_lines WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)

		args = append(args, filter.UserID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.Partner != nil {
		query += fmt.Sprintf(" AND partner = $%d", argIdx)

		args = append(args, *filter.Partner)
		argIdx++
	}

	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing credit lines: %w", err)
	}
	defer rows.Close()

	var lines []*creditline.CreditLine

	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning credit line: %w", err)
		}

		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credit lines: %w", err)
	}

	return lines, nil
}

// ListSweepCandidates returns lines that are active or still have
// outstanding installments.
func (s *Store) ListSweepCandidates(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM credit_lines
		WHERE status = 'active'
		   OR jsonb_path_exists(installments, '$[*] ? (@.status == "pending" || @.status == "overdue")')
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing sweep candidates: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning sweep candidate: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sweep candidates: %w", err)
	}

	return ids, nil
}
