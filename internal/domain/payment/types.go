package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeShares        = "shares"
	TypeLevy          = "levy"
	TypeLoanRepayment = "loan_repayment"
)

type VerificationStatus string

const (
	VerificationSuccess VerificationStatus = "success"
	VerificationFailed  VerificationStatus = "failed"
	VerificationPending VerificationStatus = "pending"
)

var (
	ErrNotFound            = errors.New("not_found")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidType         = errors.New("invalid_payment_type")
	ErrLoanRequired        = errors.New("loan_required_for_repayment")
	ErrAlreadySettled      = errors.New("loan_already_fully_paid")
	ErrVerificationFailed  = errors.New("gateway_verification_failed")
	ErrVerificationPending = errors.New("gateway_verification_pending")
	ErrForbidden           = errors.New("forbidden")
)

// Entity wraps one checkout attempt. Verified and RepaymentApplied are
// separate flags on purpose: the gateway confirms funds first, then the
// repayment is applied to the schedule exactly once. That split is what makes
// repeated webhook and verify calls safe.
type Entity struct {
	ID               string
	MemberID         string
	LoanID           string
	Type             string
	Reference        string
	SourceReference  string
	Amount           decimal.Decimal
	Payoff           bool
	Verified         bool
	RepaymentApplied bool
	CreatedAt        time.Time
	VerifiedAt       *time.Time
}

type Repository interface {
	Create(ctx context.Context, e *Entity) (*Entity, error)
	GetByReference(ctx context.Context, reference string) (*Entity, error)
	// GetByReferenceForUpdate row-locks the payment so concurrent verify and
	// webhook deliveries for the same checkout serialize.
	GetByReferenceForUpdate(ctx context.Context, reference string) (*Entity, error)
	Update(ctx context.Context, e *Entity) error
	ListByMember(ctx context.Context, memberID string, limit, offset int32) ([]Entity, error)
	List(ctx context.Context, limit, offset int32) ([]Entity, error)
}

type VerifyResult struct {
	Status VerificationStatus
	// Reference is the gateway's canonical transaction reference; it becomes
	// the Repayment idempotency key.
	Reference string
}

// GatewayVerifier asks the payment gateway for a transaction's settled state.
type GatewayVerifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error)
}

// VerifyQueue schedules a background recheck for an initiated payment.
type VerifyQueue interface {
	Enqueue(ctx context.Context, reference string) error
}

type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
