package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	loandomain "github.com/forte001/GraceCoop/internal/domain/loan"
	"github.com/shopspring/decimal"
)

type memTx struct{}

func (memTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type paymentRepoMock struct {
	byRef map[string]*Entity
	seq   int
}

func newPaymentRepoMock() *paymentRepoMock {
	return &paymentRepoMock{byRef: map[string]*Entity{}}
}

func (m *paymentRepoMock) Create(_ context.Context, e *Entity) (*Entity, error) {
	m.seq++
	cp := *e
	cp.ID = fmt.Sprintf("pay-%d", m.seq)
	m.byRef[cp.Reference] = &cp
	out := cp
	return &out, nil
}

func (m *paymentRepoMock) GetByReference(_ context.Context, reference string) (*Entity, error) {
	if e, ok := m.byRef[reference]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *paymentRepoMock) GetByReferenceForUpdate(ctx context.Context, reference string) (*Entity, error) {
	return m.GetByReference(ctx, reference)
}

func (m *paymentRepoMock) Update(_ context.Context, e *Entity) error {
	if _, ok := m.byRef[e.Reference]; !ok {
		return ErrNotFound
	}
	cp := *e
	m.byRef[e.Reference] = &cp
	return nil
}

func (m *paymentRepoMock) ListByMember(_ context.Context, memberID string, _, _ int32) ([]Entity, error) {
	out := make([]Entity, 0)
	for _, e := range m.byRef {
		if e.MemberID == memberID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *paymentRepoMock) List(_ context.Context, _, _ int32) ([]Entity, error) {
	out := make([]Entity, 0)
	for _, e := range m.byRef {
		out = append(out, *e)
	}
	return out, nil
}

type loanGatewayMock struct {
	loans       map[string]*loandomain.Entity
	outstanding decimal.Decimal
	applied     []loandomain.ApplyInput
	applyErr    error
}

func (m *loanGatewayMock) GetByID(_ context.Context, loanID string) (*loandomain.Entity, error) {
	if ln, ok := m.loans[loanID]; ok {
		cp := *ln
		return &cp, nil
	}
	return nil, loandomain.ErrNotFound
}

func (m *loanGatewayMock) Outstanding(_ context.Context, _ string) (decimal.Decimal, error) {
	return m.outstanding, nil
}

func (m *loanGatewayMock) Apply(_ context.Context, in loandomain.ApplyInput) (*loandomain.AllocationResult, error) {
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	m.applied = append(m.applied, in)
	return &loandomain.AllocationResult{AmountApplied: in.Amount}, nil
}

type ledgerMock struct {
	contributions map[string]decimal.Decimal
	levies        map[string]decimal.Decimal
}

func newLedgerMock() *ledgerMock {
	return &ledgerMock{contributions: map[string]decimal.Decimal{}, levies: map[string]decimal.Decimal{}}
}

func (m *ledgerMock) RecordContribution(_ context.Context, _ string, amount decimal.Decimal, ref string) error {
	m.contributions[ref] = amount
	return nil
}

func (m *ledgerMock) RecordLevy(_ context.Context, _ string, amount decimal.Decimal, ref string) error {
	m.levies[ref] = amount
	return nil
}

type verifierMock struct {
	result *VerifyResult
	err    error
	calls  int
}

func (m *verifierMock) VerifyTransaction(_ context.Context, reference string) (*VerifyResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &VerifyResult{Status: VerificationSuccess, Reference: reference}, nil
}

type queueMock struct {
	refs []string
}

func (m *queueMock) Enqueue(_ context.Context, reference string) error {
	m.refs = append(m.refs, reference)
	return nil
}

type paymentFixture struct {
	svc      *Service
	payments *paymentRepoMock
	loans    *loanGatewayMock
	ledger   *ledgerMock
	verifier *verifierMock
	queue    *queueMock
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		payments: newPaymentRepoMock(),
		loans: &loanGatewayMock{
			loans: map[string]*loandomain.Entity{
				"loan-1": {ID: "loan-1", MemberID: "member-1", Reference: "LN-REG-20250501-123456", Status: loandomain.StatusDisbursed},
			},
			outstanding: decimal.NewFromInt(7000),
		},
		ledger:   newLedgerMock(),
		verifier: &verifierMock{},
		queue:    &queueMock{},
	}
	f.svc = NewService(f.payments, f.loans, f.ledger, f.verifier, f.queue, memTx{})
	f.svc.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	f.svc.suffix = func() string { return "AB12CD" }
	return f
}

func TestInitiateLoanPaymentChecksOwnership(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.InitiateLoanPayment(context.Background(), InitiateLoanPaymentInput{
		MemberID: "member-2", LoanID: "loan-1", Amount: decimal.NewFromInt(100),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestInitiateLoanPaymentOpensCheckout(t *testing.T) {
	f := newPaymentFixture()

	p, err := f.svc.InitiateLoanPayment(context.Background(), InitiateLoanPaymentInput{
		MemberID: "member-1", LoanID: "loan-1", Amount: decimal.NewFromInt(2500),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Reference != "LN-REG-20250501-123456-AB12CD" {
		t.Fatalf("unexpected reference: %s", p.Reference)
	}
	if p.Type != TypeLoanRepayment || !p.Amount.Equal(decimal.NewFromInt(2500)) || p.Payoff {
		t.Fatalf("unexpected payment: %+v", p)
	}
	if len(f.queue.refs) != 1 || f.queue.refs[0] != p.Reference {
		t.Fatalf("payment must be queued for background verification, got %v", f.queue.refs)
	}
}

func TestInitiateLoanPaymentPayoffChargesOutstanding(t *testing.T) {
	f := newPaymentFixture()

	// The caller's amount is ignored for a payoff.
	p, err := f.svc.InitiateLoanPayment(context.Background(), InitiateLoanPaymentInput{
		MemberID: "member-1", LoanID: "loan-1", Payoff: true, Amount: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Amount.Equal(decimal.NewFromInt(7000)) || !p.Payoff {
		t.Fatalf("payoff must charge the full outstanding balance, got %+v", p)
	}
}

func TestInitiateLoanPaymentSettledLoan(t *testing.T) {
	f := newPaymentFixture()
	f.loans.outstanding = decimal.Zero

	_, err := f.svc.InitiateLoanPayment(context.Background(), InitiateLoanPaymentInput{
		MemberID: "member-1", LoanID: "loan-1", Payoff: true,
	})
	if !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
}

func TestInitiateEntryPaymentValidation(t *testing.T) {
	f := newPaymentFixture()

	if _, err := f.svc.InitiateEntryPayment(context.Background(), "member-1", "loan_repayment", decimal.NewFromInt(100)); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if _, err := f.svc.InitiateEntryPayment(context.Background(), "member-1", TypeShares, decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	p, err := f.svc.InitiateEntryPayment(context.Background(), "member-1", TypeShares, decimal.NewFromInt(5000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Reference != "GC-SHARES-20250501-AB12CD" {
		t.Fatalf("unexpected reference: %s", p.Reference)
	}
}

func TestVerifySuccessAppliesRepayment(t *testing.T) {
	f := newPaymentFixture()
	p, _ := f.svc.InitiateLoanPayment(context.Background(), InitiateLoanPaymentInput{
		MemberID: "member-1", LoanID: "loan-1", Amount: decimal.NewFromInt(2500),
	})
	f.verifier.result = &VerifyResult{Status: VerificationSuccess, Reference: "PSK_abc123"}

	out, err := f.svc.Verify(context.Background(), p.Reference)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Allocation == nil || !out.Allocation.AmountApplied.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("expected allocation result, got %+v", out.Allocation)
	}

	got, _ := f.payments.GetByReference(context.Background(), p.Reference)
	if !got.Verified || !got.RepaymentApplied {
		t.Fatalf("settled payment must carry both flags: %+v", got)
	}
	if got.SourceReference != "PSK_abc123" {
		t.Fatalf("payment must store the gateway's canonical reference, got %s", got.SourceReference)
	}
	if len(f.loans.applied) != 1 {
		t.Fatalf("expected one allocation, got %d", len(f.loans.applied))
	}
	in := f.loans.applied[0]
	if in.SourceReference != "PSK_abc123" || in.LoanID != "loan-1" || in.PaidBy != "member-1" {
		t.Fatalf("allocator must be keyed by the gateway reference: %+v", in)
	}
}

func TestVerifyPendingLeavesPaymentOpen(t *testing.T) {
	f := newPaymentFixture()
	p, _ := f.svc.InitiateEntryPayment(context.Background(), "member-1", TypeShares, decimal.NewFromInt(5000))
	f.verifier.result = &VerifyResult{Status: VerificationPending}

	if _, err := f.svc.Verify(context.Background(), p.Reference); !errors.Is(err, ErrVerificationPending) {
		t.Fatalf("expected ErrVerificationPending, got %v", err)
	}
	got, _ := f.payments.GetByReference(context.Background(), p.Reference)
	if got.Verified {
		t.Fatalf("pending verification must not mark the payment verified")
	}
}

func TestVerifyFailed(t *testing.T) {
	f := newPaymentFixture()
	p, _ := f.svc.InitiateEntryPayment(context.Background(), "member-1", TypeShares, decimal.NewFromInt(5000))
	f.verifier.result = &VerifyResult{Status: VerificationFailed}

	if _, err := f.svc.Verify(context.Background(), p.Reference); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestVerifySettledPaymentShortCircuits(t *testing.T) {
	f := newPaymentFixture()
	p, _ := f.svc.InitiateLoanPayment(context.Background(), InitiateLoanPaymentInput{
		MemberID: "member-1", LoanID: "loan-1", Amount: decimal.NewFromInt(2500),
	})
	if _, err := f.svc.Verify(context.Background(), p.Reference); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := f.verifier.calls

	out, err := f.svc.Verify(context.Background(), p.Reference)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.verifier.calls != before {
		t.Fatalf("settled payment must not hit the gateway again")
	}
	if len(f.loans.applied) != 1 {
		t.Fatalf("repayment must apply exactly once, got %d", len(f.loans.applied))
	}
	if !out.Payment.Verified {
		t.Fatalf("short-circuit must still return the settled payment")
	}
}

func TestVerifyEntryPaymentRecordsLedger(t *testing.T) {
	f := newPaymentFixture()
	p, _ := f.svc.InitiateEntryPayment(context.Background(), "member-1", TypeLevy, decimal.NewFromInt(2000))

	if _, err := f.svc.Verify(context.Background(), p.Reference); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.ledger.levies[p.Reference]; !ok {
		t.Fatalf("verified levy must land on the member ledger, got %v", f.ledger.levies)
	}
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	f := newPaymentFixture()

	out, err := f.svc.HandleWebhook(context.Background(), WebhookEvent{Event: "charge.failed", Reference: "whatever"})
	if err != nil || out != nil {
		t.Fatalf("non-success events are a no-op, got %v %v", out, err)
	}
}

func TestWebhookUnknownReference(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.HandleWebhook(context.Background(), WebhookEvent{Event: "charge.success", Reference: "unknown"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWebhookSettlesWithoutGatewayRoundTrip(t *testing.T) {
	f := newPaymentFixture()
	p, _ := f.svc.InitiateLoanPayment(context.Background(), InitiateLoanPaymentInput{
		MemberID: "member-1", LoanID: "loan-1", Amount: decimal.NewFromInt(2500),
	})

	out, err := f.svc.HandleWebhook(context.Background(), WebhookEvent{Event: "charge.success", Reference: p.Reference})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.verifier.calls != 0 {
		t.Fatalf("the webhook is the confirmation; no verify call expected")
	}
	if out.Allocation == nil {
		t.Fatalf("webhook settlement must apply the repayment")
	}
	got, _ := f.payments.GetByReference(context.Background(), p.Reference)
	if !got.Verified || !got.RepaymentApplied || got.SourceReference != p.Reference {
		t.Fatalf("unexpected settled state: %+v", got)
	}

	// A redelivered event settles nothing twice.
	if _, err := f.svc.HandleWebhook(context.Background(), WebhookEvent{Event: "charge.success", Reference: p.Reference}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.loans.applied) != 1 {
		t.Fatalf("redelivery must not re-apply, got %d allocations", len(f.loans.applied))
	}
}
