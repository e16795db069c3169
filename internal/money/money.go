package money

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	Zero    = decimal.Zero
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Round2 rounds to the currency's minor unit, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MonthlyRate converts a percentage rate to the multiplier applied per period.
// The rate is applied directly as the monthly multiplier, not divided by 12;
// a 12% loan accrues 12% of the outstanding balance each month.
func MonthlyRate(ratePct decimal.Decimal) decimal.Decimal {
	return ratePct.Div(hundred)
}

// AnnuityPayment computes the level payment that amortizes principal over the
// given number of months at the per-month rate:
//
//	payment = P * r * (1+r)^n / ((1+r)^n - 1)
//
// A zero rate degenerates to an even split.
func AnnuityPayment(principal, rate decimal.Decimal, months int) decimal.Decimal {
	if months < 1 {
		months = 1
	}
	n := decimal.NewFromInt(int64(months))
	if rate.IsZero() {
		return principal.Div(n)
	}
	growth := one.Add(rate).Pow(n)
	return principal.Mul(rate).Mul(growth).Div(growth.Sub(one))
}

// AddMonths steps a date forward by whole calendar months.
func AddMonths(t time.Time, months int) time.Time {
	return t.AddDate(0, months, 0)
}

// DateOnly truncates a timestamp to midnight UTC so due-date comparisons are
// calendar comparisons.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
