package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	loandomain "github.com/forte001/GraceCoop/internal/domain/loan"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanGateway interface {
	GetByID(ctx context.Context, loanID string) (*loandomain.Entity, error)
	Outstanding(ctx context.Context, loanID string) (decimal.Decimal, error)
	Apply(ctx context.Context, in loandomain.ApplyInput) (*loandomain.AllocationResult, error)
}

// MemberLedger records verified shares/levy payments on the member's ledger.
type MemberLedger interface {
	RecordContribution(ctx context.Context, memberID string, amount decimal.Decimal, sourceReference string) error
	RecordLevy(ctx context.Context, memberID string, amount decimal.Decimal, sourceReference string) error
}

type Service struct {
	payments Repository
	loans    LoanGateway
	ledger   MemberLedger
	verifier GatewayVerifier
	queue    VerifyQueue
	tx       TxRunner
	now      func() time.Time
	suffix   func() string
}

func NewService(payments Repository, loans LoanGateway, ledger MemberLedger, verifier GatewayVerifier, queue VerifyQueue, tx TxRunner) *Service {
	return &Service{
		payments: payments,
		loans:    loans,
		ledger:   ledger,
		verifier: verifier,
		queue:    queue,
		tx:       tx,
		now:      func() time.Time { return time.Now().UTC() },
		suffix:   func() string { return strings.ToUpper(uuid.NewString()[:6]) },
	}
}

type InitiateLoanPaymentInput struct {
	MemberID string
	LoanID   string
	Payoff   bool
	Amount   decimal.Decimal
}

// InitiateLoanPayment opens a checkout for a loan repayment. A payoff request
// ignores any custom amount and charges the full outstanding balance.
func (s *Service) InitiateLoanPayment(ctx context.Context, in InitiateLoanPaymentInput) (*Entity, error) {
	ln, err := s.loans.GetByID(ctx, in.LoanID)
	if err != nil {
		return nil, err
	}
	if ln.MemberID != in.MemberID {
		return nil, ErrForbidden
	}

	amount := in.Amount
	if in.Payoff {
		outstanding, err := s.loans.Outstanding(ctx, in.LoanID)
		if err != nil {
			return nil, err
		}
		if outstanding.LessThanOrEqual(decimal.Zero) {
			return nil, ErrAlreadySettled
		}
		amount = outstanding
	} else if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	p, err := s.payments.Create(ctx, &Entity{
		MemberID:  in.MemberID,
		LoanID:    ln.ID,
		Type:      TypeLoanRepayment,
		Reference: fmt.Sprintf("%s-%s", ln.Reference, s.suffix()),
		Amount:    amount,
		Payoff:    in.Payoff,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, p.Reference); err != nil {
		return nil, err
	}
	return p, nil
}

// InitiateEntryPayment opens a checkout for entry shares or the development
// levy.
func (s *Service) InitiateEntryPayment(ctx context.Context, memberID, paymentType string, amount decimal.Decimal) (*Entity, error) {
	if paymentType != TypeShares && paymentType != TypeLevy {
		return nil, ErrInvalidType
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	p, err := s.payments.Create(ctx, &Entity{
		MemberID:  memberID,
		Type:      paymentType,
		Reference: fmt.Sprintf("GC-%s-%s-%s", strings.ToUpper(paymentType), s.now().Format("20060102"), s.suffix()),
		Amount:    amount,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, p.Reference); err != nil {
		return nil, err
	}
	return p, nil
}

type VerifyOutcome struct {
	Payment    *Entity
	Allocation *loandomain.AllocationResult
}

// Verify asks the gateway about the transaction and, on success, settles the
// payment. Every failure path leaves the payment unverified/unapplied so a
// later recheck can succeed; calling Verify again on a settled payment is a
// no-op. "Recheck" is exactly this call.
func (s *Service) Verify(ctx context.Context, reference string) (*VerifyOutcome, error) {
	p, err := s.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if p.Verified && (p.Type != TypeLoanRepayment || p.RepaymentApplied) {
		return &VerifyOutcome{Payment: p}, nil
	}

	vr, err := s.verifier.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("gateway verify %s: %w", reference, err)
	}
	switch vr.Status {
	case VerificationSuccess:
	case VerificationPending:
		return nil, ErrVerificationPending
	default:
		return nil, ErrVerificationFailed
	}

	return s.settle(ctx, reference, vr.Reference)
}

type WebhookEvent struct {
	Event     string
	Reference string
}

// HandleWebhook processes a signature-checked gateway event. The webhook is
// itself the gateway's confirmation, so no verify round-trip is made; only
// charge.success events settle anything.
func (s *Service) HandleWebhook(ctx context.Context, ev WebhookEvent) (*VerifyOutcome, error) {
	if ev.Event != "charge.success" {
		return nil, nil
	}
	if _, err := s.payments.GetByReference(ctx, ev.Reference); err != nil {
		return nil, err
	}
	return s.settle(ctx, ev.Reference, ev.Reference)
}

// settle marks the payment verified and applies its effect exactly once. For
// loan repayments the allocator's source-reference idempotency backs up the
// RepaymentApplied flag; for shares/levy the ledger upsert is the guard.
func (s *Service) settle(ctx context.Context, reference, gatewayReference string) (*VerifyOutcome, error) {
	var out *VerifyOutcome
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.payments.GetByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}

		if !p.Verified {
			verifiedAt := s.now()
			p.Verified = true
			p.VerifiedAt = &verifiedAt
			p.SourceReference = gatewayReference
			if err := s.payments.Update(ctx, p); err != nil {
				return err
			}
		}

		out = &VerifyOutcome{Payment: p}

		switch p.Type {
		case TypeShares:
			return s.ledger.RecordContribution(ctx, p.MemberID, p.Amount, p.SourceReference)
		case TypeLevy:
			return s.ledger.RecordLevy(ctx, p.MemberID, p.Amount, p.SourceReference)
		case TypeLoanRepayment:
			if p.LoanID == "" {
				return ErrLoanRequired
			}
			if p.RepaymentApplied {
				return nil
			}
			res, err := s.loans.Apply(ctx, loandomain.ApplyInput{
				LoanID:          p.LoanID,
				Amount:          p.Amount,
				PaidBy:          p.MemberID,
				Payoff:          p.Payoff,
				SourceReference: p.SourceReference,
			})
			if err != nil {
				return err
			}
			out.Allocation = res
			p.RepaymentApplied = true
			return s.payments.Update(ctx, p)
		default:
			return ErrInvalidType
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetByReference(ctx context.Context, reference string) (*Entity, error) {
	return s.payments.GetByReference(ctx, reference)
}

func (s *Service) ListByMember(ctx context.Context, memberID string, limit, offset int32) ([]Entity, error) {
	return s.payments.ListByMember(ctx, memberID, limit, offset)
}

func (s *Service) List(ctx context.Context, limit, offset int32) ([]Entity, error) {
	return s.payments.List(ctx, limit, offset)
}
