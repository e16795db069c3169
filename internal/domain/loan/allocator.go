package loan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forte001/GraceCoop/internal/money"
	"github.com/shopspring/decimal"
)

// Allocator applies incoming payments to a loan's schedule. Every call is
// idempotent on the source reference: retried webhooks, manual rechecks, and
// duplicate payoff requests resolve to the first application's result.
type Allocator struct {
	loans      Repository
	schedule   ScheduleRepository
	repayments RepaymentRepository
	tx         TxRunner
	now        func() time.Time
}

func NewAllocator(loans Repository, schedule ScheduleRepository, repayments RepaymentRepository, tx TxRunner) *Allocator {
	return &Allocator{
		loans:      loans,
		schedule:   schedule,
		repayments: repayments,
		tx:         tx,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type ApplyInput struct {
	LoanID          string
	Amount          decimal.Decimal
	PaidBy          string
	Payoff          bool
	SourceReference string
}

// AllocationResult reports what one Apply call did, so callers (webhook
// handler, manual recheck, verify endpoint) can branch without exception-style
// control flow.
type AllocationResult struct {
	AlreadyApplied bool
	AmountApplied  decimal.Decimal
	Overpayment    decimal.Decimal
	Repayments     []Repayment
	LoanPaid       bool
}

// Apply distributes the payment across unpaid installments, oldest due date
// first, splitting each slice interest-first. One Repayment row is written per
// installment touched; rows after the first get a numbered suffix on the
// source reference so the unique constraint holds while staying traceable to
// the originating gateway event. Leftover beyond the schedule is recorded as a
// separate overpayment row rather than dropped.
//
// The whole allocation runs in one transaction holding row locks on the loan
// and its unpaid installments; any failure rolls back wholesale.
func (a *Allocator) Apply(ctx context.Context, in ApplyInput) (*AllocationResult, error) {
	if in.SourceReference == "" {
		return nil, ErrMissingReference
	}
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	var res *AllocationResult
	err := a.tx.InTx(ctx, func(ctx context.Context) error {
		ln, err := a.loans.GetForUpdate(ctx, in.LoanID)
		if err != nil {
			return err
		}

		if existing, err := a.repayments.GetBySourceReference(ctx, in.SourceReference); err == nil {
			res = &AllocationResult{AlreadyApplied: true, Repayments: []Repayment{*existing}}
			return nil
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		outstanding, err := a.outstanding(ctx, ln)
		if err != nil {
			return err
		}
		if !in.Payoff && in.Amount.GreaterThan(outstanding) {
			return ErrExceedsOutstanding
		}

		installments, err := a.schedule.ListUnpaidForUpdate(ctx, ln.ID)
		if err != nil {
			return err
		}
		if len(installments) == 0 {
			return ErrNoUnpaidInstallments
		}

		today := money.DateOnly(a.now())
		remaining := in.Amount
		created := make([]Repayment, 0, len(installments))
		touched := 0

		for i := range installments {
			if remaining.LessThanOrEqual(decimal.Zero) {
				break
			}
			inst := &installments[i]

			appliedAmount, appliedInterest, err := a.repayments.SumForInstallment(ctx, inst.ID)
			if err != nil {
				return err
			}
			owed := inst.AmountDue.Sub(appliedAmount)
			if owed.LessThanOrEqual(decimal.Zero) {
				continue
			}

			pay := decimal.Min(remaining, owed)
			unpaidInterest := inst.Interest.Sub(appliedInterest)
			if unpaidInterest.IsNegative() {
				unpaidInterest = decimal.Zero
			}
			interestComponent := decimal.Min(pay, unpaidInterest)
			principalComponent := pay.Sub(interestComponent)

			touched++
			ref := in.SourceReference
			if touched > 1 {
				ref = fmt.Sprintf("%s_%d", in.SourceReference, touched)
			}

			due := inst.DueDate
			rep, err := a.repayments.Create(ctx, CreateRepaymentInput{
				LoanID:             ln.ID,
				Amount:             pay,
				PrincipalComponent: principalComponent,
				InterestComponent:  interestComponent,
				PaidBy:             in.PaidBy,
				PaymentDate:        today,
				WasLate:            today.After(money.DateOnly(inst.DueDate)),
				DueDate:            &due,
				InstallmentID:      inst.ID,
				SourceReference:    ref,
			})
			if err != nil {
				return err
			}
			created = append(created, *rep)
			remaining = remaining.Sub(pay)

			if appliedAmount.Add(pay).GreaterThanOrEqual(inst.AmountDue) {
				if err := a.schedule.MarkPaid(ctx, inst.ID); err != nil {
					return err
				}
			}
		}

		overpayment := decimal.Zero
		if remaining.GreaterThan(decimal.Zero) {
			overpayment = remaining
			rep, err := a.repayments.Create(ctx, CreateRepaymentInput{
				LoanID:             ln.ID,
				Amount:             remaining,
				PrincipalComponent: remaining,
				InterestComponent:  decimal.Zero,
				PaidBy:             in.PaidBy,
				PaymentDate:        today,
				SourceReference:    in.SourceReference + "_overpay",
			})
			if err != nil {
				return err
			}
			created = append(created, *rep)
		}

		unpaidLeft, err := a.schedule.CountUnpaid(ctx, ln.ID)
		if err != nil {
			return err
		}
		loanPaid := in.Payoff || unpaidLeft == 0
		if loanPaid && ln.Status != StatusPaid {
			ln.Status = StatusPaid
			if err := a.loans.Update(ctx, ln); err != nil {
				return err
			}
		}

		res = &AllocationResult{
			AmountApplied: in.Amount.Sub(overpayment),
			Overpayment:   overpayment,
			Repayments:    created,
			LoanPaid:      loanPaid,
		}
		return nil
	})

	// Two processes can race past the existence check; the unique constraint
	// on the source reference rejects the loser, which then reads the
	// winner's committed row.
	if errors.Is(err, ErrDuplicateReference) {
		existing, getErr := a.repayments.GetBySourceReference(ctx, in.SourceReference)
		if getErr != nil {
			return nil, err
		}
		return &AllocationResult{AlreadyApplied: true, Repayments: []Repayment{*existing}}, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Outstanding reports the balance still owed: approved principal plus all
// scheduled interest, minus everything repaid.
func (a *Allocator) Outstanding(ctx context.Context, loanID string) (decimal.Decimal, error) {
	ln, err := a.loans.GetByID(ctx, loanID)
	if err != nil {
		return decimal.Zero, err
	}
	return a.outstanding(ctx, ln)
}

func (a *Allocator) outstanding(ctx context.Context, ln *Entity) (decimal.Decimal, error) {
	totalInterest, err := a.schedule.SumInterest(ctx, ln.ID)
	if err != nil {
		return decimal.Zero, err
	}
	totalPaid, err := a.repayments.SumForLoan(ctx, ln.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return ln.Amount.Add(totalInterest).Sub(totalPaid), nil
}
