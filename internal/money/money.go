// Package money holds the fixed-point arithmetic used by underwriting and the
// credit line ledger. Amounts are int64 minor currency units (cents). Every
// intermediate value is an exact decimal; only the final result is rounded,
// using banker's rounding, back to minor units.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DaysPerMonth is the month length used to convert payment terms in days to
// amortization periods.
const DaysPerMonth = 30

// divisionPrecision bounds the digits kept by decimal division before the
// final rounding step.
const divisionPrecision = 24

var (
	ErrInvalidTerm      = errors.New("term must be positive")
	ErrInvalidPrincipal = errors.New("principal must be positive")
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	one     = decimal.NewFromInt(1)
)

// MonthlyPayment returns the level payment that amortizes principal over
// termMonths at annualRatePct (e.g. 18 for 18%). A zero rate falls back to a
// straight-line split.
func MonthlyPayment(principal int64, annualRatePct float64, termMonths int) (int64, error) {
	if termMonths <= 0 {
		return 0, ErrInvalidTerm
	}

	p := decimal.NewFromInt(principal)
	n := decimal.NewFromInt(int64(termMonths))

	rate := decimal.NewFromFloat(annualRatePct)
	if rate.IsZero() {
		return p.DivRound(n, divisionPrecision).RoundBank(0).IntPart(), nil
	}

	r := rate.DivRound(hundred, divisionPrecision).DivRound(twelve, divisionPrecision)
	growth := compound(one.Add(r), termMonths)

	payment := p.Mul(r).Mul(growth).DivRound(growth.Sub(one), divisionPrecision)

	return payment.RoundBank(0).IntPart(), nil
}

// compound raises base to an integer power by repeated multiplication so the
// result stays exact.
func compound(base decimal.Decimal, periods int) decimal.Decimal {
	acc := one
	for range periods {
		acc = acc.Mul(base)
	}

	return acc
}

// TotalCost is the sum of all scheduled payments.
func TotalCost(monthlyPayment int64, termMonths int) int64 {
	return monthlyPayment * int64(termMonths)
}

// APR annualizes the cost of credit over the term, in percent with two
// decimals.
func APR(totalCost, principal int64, termDays int) (float64, error) {
	if termDays <= 0 {
		return 0, ErrInvalidTerm
	}

	if principal <= 0 {
		return 0, ErrInvalidPrincipal
	}

	interest := decimal.NewFromInt(totalCost - principal)
	apr := interest.
		Mul(decimal.NewFromInt(365)).
		Mul(hundred).
		DivRound(decimal.NewFromInt(principal).Mul(decimal.NewFromInt(int64(termDays))), divisionPrecision)

	return apr.RoundBank(2).InexactFloat64(), nil
}

// TermMonths converts a payment term in days to whole amortization periods,
// rounding up.
func TermMonths(termDays int) int {
	if termDays <= 0 {
		return 0
	}

	return (termDays + DaysPerMonth - 1) / DaysPerMonth
}

// WithInterest returns amount grown by a flat ratePct.
func WithInterest(amount int64, ratePct float64) int64 {
	factor := one.Add(decimal.NewFromFloat(ratePct).DivRound(hundred, divisionPrecision))
	return decimal.NewFromInt(amount).Mul(factor).RoundBank(0).IntPart()
}

// Scale multiplies amount by factor (e.g. 1.2).
func Scale(amount int64, factor float64) int64 {
	return decimal.NewFromInt(amount).Mul(decimal.NewFromFloat(factor)).RoundBank(0).IntPart()
}

// Percent returns pct percent of amount.
func Percent(amount int64, pct float64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(pct)).
		DivRound(hundred, divisionPrecision).
		RoundBank(0).
		IntPart()
}

// Proportion returns amount * numerator / denominator. A zero denominator
// yields zero.
func Proportion(amount, numerator, denominator int64) int64 {
	if denominator == 0 {
		return 0
	}

	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(numerator)).
		DivRound(decimal.NewFromInt(denominator), divisionPrecision).
		RoundBank(0).
		IntPart()
}

// Ratio returns numerator/denominator as a percentage with two decimals.
func Ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}

	return decimal.NewFromInt(numerator).
		Mul(hundred).
		DivRound(decimal.NewFromInt(denominator), divisionPrecision).
		RoundBank(2).
		InexactFloat64()
}

// ExceedsPercent reports whether numerator/denominator is strictly above pct
// percent, compared exactly.
func ExceedsPercent(numerator, denominator int64, pct float64) bool {
	if denominator == 0 {
		return false
	}

	return decimal.NewFromInt(numerator).Mul(hundred).
		GreaterThan(decimal.NewFromFloat(pct).Mul(decimal.NewFromInt(denominator)))
}

// RoundDown truncates amount to a multiple of increment.
func RoundDown(amount, increment int64) int64 {
	if increment <= 0 {
		return amount
	}

	return amount - amount%increment
}

// MinorUnits reports how many decimal digits the currency's minor unit has.
func MinorUnits(code string) (int, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 0, fmt.Errorf("parsing currency %q: %w", code, err)
	}

	scale, _ := currency.Standard.Rounding(unit)

	return scale, nil
}

// FromMajor converts a decimal amount in major units (e.g. 1234.56) to minor
// units for the given currency.
func FromMajor(major decimal.Decimal, code string) (int64, error) {
	scale, err := MinorUnits(code)
	if err != nil {
		return 0, err
	}

	return major.Shift(int32(scale)).RoundBank(0).IntPart(), nil
}

// Format renders an amount in minor units for display, e.g. "MXN 1,234.56".
func Format(amount int64, code string) string {
	scale, err := MinorUnits(code)
	if err != nil {
		scale = 2
	}

	major := decimal.New(amount, -int32(scale)).InexactFloat64()
	p := message.NewPrinter(language.English)

	return p.Sprintf("%s %v", code, number.Decimal(major, number.Scale(scale)))
}
