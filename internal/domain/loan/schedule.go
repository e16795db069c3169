package loan

import (
	"context"
	"time"

	"github.com/forte001/GraceCoop/internal/money"
	"github.com/shopspring/decimal"
)

// ScheduleEngine builds and rebuilds amortization tables. Both entry points
// replace schedule rows and must be called inside a transaction (the service
// layer owns the TxRunner scope).
type ScheduleEngine struct {
	disbursements DisbursementRepository
	schedule      ScheduleRepository
}

func NewScheduleEngine(disbursements DisbursementRepository, schedule ScheduleRepository) *ScheduleEngine {
	return &ScheduleEngine{
		disbursements: disbursements,
		schedule:      schedule,
	}
}

// Generate replaces the loan's schedule with a full amortization table over
// DurationMonths for the total disbursed principal. The first due date is one
// month after the first disbursement.
func (e *ScheduleEngine) Generate(ctx context.Context, ln *Entity) error {
	disbs, err := e.disbursements.ListByLoan(ctx, ln.ID)
	if err != nil {
		return err
	}
	if len(disbs) == 0 {
		return ErrNoDisbursements
	}

	principal := decimal.Zero
	for _, d := range disbs {
		principal = principal.Add(d.Amount)
	}

	latest := latestDisbursement(disbs)
	firstDue := money.AddMonths(money.DateOnly(earliestDisbursement(disbs).DisbursedAt), 1)

	rows := buildInstallments(ln.ID, latest.ID, principal, money.MonthlyRate(ln.InterestRate), ln.DurationMonths, 1, firstDue)

	if err := e.schedule.DeleteUnpaid(ctx, ln.ID); err != nil {
		return err
	}
	return e.schedule.CreateBatch(ctx, rows)
}

// Regenerate rebuilds the unpaid tail of the schedule. Paid installments keep
// their historical principal, interest, and due date; the remaining principal
// is re-amortized over the remaining term.
func (e *ScheduleEngine) Regenerate(ctx context.Context, ln *Entity) error {
	disbs, err := e.disbursements.ListByLoan(ctx, ln.ID)
	if err != nil {
		return err
	}
	if len(disbs) == 0 {
		return ErrNoDisbursements
	}

	paid, err := e.schedule.ListPaid(ctx, ln.ID)
	if err != nil {
		return err
	}

	if err := e.schedule.DeleteUnpaid(ctx, ln.ID); err != nil {
		return err
	}

	totalDisbursed := decimal.Zero
	for _, d := range disbs {
		totalDisbursed = totalDisbursed.Add(d.Amount)
	}
	paidPrincipal := decimal.Zero
	for _, inst := range paid {
		paidPrincipal = paidPrincipal.Add(inst.Principal)
	}

	remaining := totalDisbursed.Sub(paidPrincipal)
	if remaining.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	monthsRemaining := ln.DurationMonths - len(paid)
	if monthsRemaining < 1 {
		monthsRemaining = 1
	}

	startSeq := 1
	var nextDue time.Time
	if len(paid) > 0 {
		last := paid[len(paid)-1]
		for _, inst := range paid {
			if inst.Sequence > last.Sequence {
				last = inst
			}
		}
		startSeq = last.Sequence + 1
		nextDue = money.AddMonths(money.DateOnly(last.DueDate), 1)
	} else {
		nextDue = money.AddMonths(money.DateOnly(earliestDisbursement(disbs).DisbursedAt), 1)
	}

	latest := latestDisbursement(disbs)
	rows := buildInstallments(ln.ID, latest.ID, remaining, money.MonthlyRate(ln.InterestRate), monthsRemaining, startSeq, nextDue)
	return e.schedule.CreateBatch(ctx, rows)
}

// buildInstallments walks the amortization forward month by month. Interest
// per period is balance * rate rounded half-up; the final installment forces
// principal to the remaining balance so principals sum exactly to the
// amortized amount with no residual cent.
func buildInstallments(loanID, disbursementID string, principal, rate decimal.Decimal, months, startSeq int, firstDue time.Time) []Installment {
	if months < 1 {
		months = 1
	}
	payment := money.AnnuityPayment(principal, rate, months)

	rows := make([]Installment, 0, months)
	balance := principal
	due := firstDue
	for i := 0; i < months; i++ {
		interest := money.Round2(balance.Mul(rate))
		principalPart := money.Round2(payment.Sub(interest))
		if i == months-1 {
			principalPart = balance
		}
		rows = append(rows, Installment{
			LoanID:         loanID,
			DisbursementID: disbursementID,
			Sequence:       startSeq + i,
			DueDate:        due,
			Principal:      principalPart,
			Interest:       interest,
			AmountDue:      money.Round2(principalPart.Add(interest)),
		})
		balance = balance.Sub(principalPart)
		due = money.AddMonths(due, 1)
	}
	return rows
}

func latestDisbursement(disbs []Disbursement) Disbursement {
	latest := disbs[0]
	for _, d := range disbs[1:] {
		if d.DisbursedAt.After(latest.DisbursedAt) {
			latest = d
		}
	}
	return latest
}

func earliestDisbursement(disbs []Disbursement) Disbursement {
	earliest := disbs[0]
	for _, d := range disbs[1:] {
		if d.DisbursedAt.Before(earliest.DisbursedAt) {
			earliest = d
		}
	}
	return earliest
}
