package loan

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestGenerateBuildsFullAmortizationTable(t *testing.T) {
	disbursedAt := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	disbRepo := newDisbursementRepoMock(disbursedAt)
	schedRepo := &scheduleRepoMock{}
	engine := NewScheduleEngine(disbRepo, schedRepo)

	ln := &Entity{ID: "loan-1", Amount: dec("120000"), InterestRate: dec("12"), DurationMonths: 3}
	if _, err := disbRepo.Create(context.Background(), CreateDisbursementInput{
		LoanID: ln.ID, Amount: dec("120000"), RepaymentMonths: 3, DisbursedBy: "admin-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := engine.Generate(context.Background(), ln); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, _ := schedRepo.ListByLoan(context.Background(), ln.ID)
	if len(rows) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(rows))
	}

	if !rows[0].Interest.Equal(dec("14400")) {
		t.Fatalf("expected first interest 14400, got %s", rows[0].Interest)
	}
	if !rows[0].DueDate.Equal(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first due date: %s", rows[0].DueDate)
	}

	totalPrincipal := decimal.Zero
	for i, row := range rows {
		if row.Sequence != i+1 {
			t.Fatalf("expected sequence %d, got %d", i+1, row.Sequence)
		}
		if !row.AmountDue.Equal(row.Principal.Add(row.Interest).Round(2)) {
			t.Fatalf("installment %d: amount due %s != principal %s + interest %s",
				row.Sequence, row.AmountDue, row.Principal, row.Interest)
		}
		totalPrincipal = totalPrincipal.Add(row.Principal)
	}
	if !totalPrincipal.Equal(dec("120000")) {
		t.Fatalf("principals must sum to the disbursed amount, got %s", totalPrincipal)
	}
}

func TestGenerateZeroRateSplitsEvenly(t *testing.T) {
	disbRepo := newDisbursementRepoMock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	schedRepo := &scheduleRepoMock{}
	engine := NewScheduleEngine(disbRepo, schedRepo)

	ln := &Entity{ID: "loan-1", Amount: dec("9000"), InterestRate: decimal.Zero, DurationMonths: 3}
	_, _ = disbRepo.Create(context.Background(), CreateDisbursementInput{LoanID: ln.ID, Amount: dec("9000"), RepaymentMonths: 3})

	if err := engine.Generate(context.Background(), ln); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, _ := schedRepo.ListByLoan(context.Background(), ln.ID)
	for _, row := range rows {
		if !row.Interest.IsZero() {
			t.Fatalf("expected zero interest, got %s", row.Interest)
		}
		if !row.AmountDue.Equal(dec("3000")) {
			t.Fatalf("expected even 3000 installments, got %s", row.AmountDue)
		}
	}
}

func TestGenerateWithoutDisbursements(t *testing.T) {
	engine := NewScheduleEngine(newDisbursementRepoMock(time.Now()), &scheduleRepoMock{})
	err := engine.Generate(context.Background(), &Entity{ID: "loan-1", DurationMonths: 3})
	if err != ErrNoDisbursements {
		t.Fatalf("expected ErrNoDisbursements, got %v", err)
	}
}

func TestRegeneratePreservesPaidHistory(t *testing.T) {
	disbursedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	disbRepo := newDisbursementRepoMock(disbursedAt)
	schedRepo := &scheduleRepoMock{}
	engine := NewScheduleEngine(disbRepo, schedRepo)

	ln := &Entity{ID: "loan-1", Amount: dec("12000"), InterestRate: dec("10"), DurationMonths: 4}
	_, _ = disbRepo.Create(context.Background(), CreateDisbursementInput{LoanID: ln.ID, Amount: dec("12000"), RepaymentMonths: 4})

	if err := engine.Generate(context.Background(), ln); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, _ := schedRepo.ListByLoan(context.Background(), ln.ID)
	first := rows[0]
	if err := schedRepo.MarkPaid(context.Background(), first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := engine.Regenerate(context.Background(), ln); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, _ := schedRepo.ListByLoan(context.Background(), ln.ID)
	if len(after) != 4 {
		t.Fatalf("expected 4 installments, got %d", len(after))
	}
	if after[0].ID != first.ID || !after[0].IsPaid {
		t.Fatalf("paid installment must survive regeneration untouched")
	}
	if !after[0].Principal.Equal(first.Principal) || !after[0].Interest.Equal(first.Interest) {
		t.Fatalf("paid installment figures changed")
	}

	if after[1].Sequence != first.Sequence+1 {
		t.Fatalf("regenerated tail must continue the sequence, got %d", after[1].Sequence)
	}
	wantDue := first.DueDate.AddDate(0, 1, 0)
	if !after[1].DueDate.Equal(wantDue) {
		t.Fatalf("expected next due %s, got %s", wantDue, after[1].DueDate)
	}

	tailPrincipal := decimal.Zero
	for _, row := range after[1:] {
		tailPrincipal = tailPrincipal.Add(row.Principal)
	}
	if !tailPrincipal.Equal(dec("12000").Sub(first.Principal)) {
		t.Fatalf("tail must re-amortize the remaining principal, got %s", tailPrincipal)
	}
}

func TestRegenerateFullyPaidLoanIsNoop(t *testing.T) {
	disbRepo := newDisbursementRepoMock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	schedRepo := &scheduleRepoMock{}
	engine := NewScheduleEngine(disbRepo, schedRepo)

	ln := &Entity{ID: "loan-1", Amount: dec("5000"), InterestRate: decimal.Zero, DurationMonths: 1}
	_, _ = disbRepo.Create(context.Background(), CreateDisbursementInput{LoanID: ln.ID, Amount: dec("5000"), RepaymentMonths: 1})
	_ = engine.Generate(context.Background(), ln)
	rows, _ := schedRepo.ListByLoan(context.Background(), ln.ID)
	_ = schedRepo.MarkPaid(context.Background(), rows[0].ID)

	if err := engine.Regenerate(context.Background(), ln); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, _ := schedRepo.ListByLoan(context.Background(), ln.ID)
	if len(after) != 1 {
		t.Fatalf("expected no new rows for a settled loan, got %d", len(after))
	}
}
