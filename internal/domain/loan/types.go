package loan

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending            = "pending"
	StatusApproved           = "approved"
	StatusRejected           = "rejected"
	StatusDisbursed          = "disbursed"
	StatusPartiallyDisbursed = "partially_disbursed"
	StatusPaid               = "paid"
	StatusGraceApplied       = "grace_applied"
)

var (
	ErrNotFound                = errors.New("not_found")
	ErrNoDisbursements         = errors.New("no_disbursements")
	ErrNoUnpaidInstallments    = errors.New("no_unpaid_installments")
	ErrDuplicateReference      = errors.New("duplicate_source_reference")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrMissingReference        = errors.New("missing_source_reference")
	ErrExceedsOutstanding      = errors.New("amount_exceeds_outstanding_balance")
	ErrExceedsApprovedAmount   = errors.New("disbursement_exceeds_approved_amount")
	ErrInvalidStatus           = errors.New("invalid_loan_status")
	ErrGraceAlreadyApplied     = errors.New("grace_already_applied")
	ErrNoGracePeriod           = errors.New("category_has_no_grace_period")
	ErrApplicationProcessed    = errors.New("application_already_processed")
	ErrGuarantorsNotApproved   = errors.New("guarantors_not_approved")
	ErrInsufficientGuarantors  = errors.New("at_least_two_guarantors_required")
	ErrConsentFinal            = errors.New("consent_already_recorded")
	ErrGuarantorNotReplaceable = errors.New("guarantor_not_replaceable")
)

type Entity struct {
	ID                    string
	Reference             string
	ApplicationID         string
	MemberID              string
	CategoryID            string
	Amount                decimal.Decimal
	InterestRate          decimal.Decimal
	DurationMonths        int
	Status                string
	DisbursedAmount       decimal.Decimal
	TotalRepaymentMonths  int
	RemainingDisbursement bool
	GraceApplied          bool
	StartDate             *time.Time
	EndDate               *time.Time
	RepaymentStartDate    *time.Time
	ApprovedBy            string
	ApprovedAt            *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Category struct {
	ID                string
	Name              string
	Abbreviation      string
	InterestRate      decimal.Decimal
	LoanPeriodMonths  int
	GracePeriodMonths int
	GraceInterestRate decimal.Decimal
	Status            string
}

// Disbursement is an append-only record of funds released against a loan.
type Disbursement struct {
	ID              string
	LoanID          string
	Amount          decimal.Decimal
	RepaymentMonths int
	DisbursedBy     string
	DisbursedAt     time.Time
}

// Installment is one row of a loan's repayment schedule. For an unpaid row
// AmountDue == Principal + Interest, both rounded to the minor unit.
type Installment struct {
	ID             string
	LoanID         string
	DisbursementID string
	Sequence       int
	DueDate        time.Time
	Principal      decimal.Decimal
	Interest       decimal.Decimal
	AmountDue      decimal.Decimal
	IsPaid         bool
}

// Repayment is an immutable ledger entry. SourceReference carries the external
// gateway transaction id and is globally unique; the unique constraint is the
// last-line guard against a retried gateway event being applied twice.
type Repayment struct {
	ID                 string
	LoanID             string
	Amount             decimal.Decimal
	PrincipalComponent decimal.Decimal
	InterestComponent  decimal.Decimal
	PaidBy             string
	PaymentDate        time.Time
	WasLate            bool
	DueDate            *time.Time
	InstallmentID      string
	SourceReference    string
	RecordedAt         time.Time
}

type Application struct {
	ID              string
	ApplicantID     string
	CategoryID      string
	Amount          decimal.Decimal
	InterestRate    decimal.Decimal
	PeriodMonths    int
	Status          string
	RejectionReason string
	AppliedAt       time.Time
	ApprovedBy      string
	ApprovedAt      *time.Time
}

type Guarantor struct {
	ID              string
	ApplicationID   string
	MemberID        string
	LoanID          string
	ConsentStatus   string
	RejectionReason string
	CreatedAt       time.Time
	RespondedAt     *time.Time
}

type CreateInput struct {
	Reference      string
	ApplicationID  string
	MemberID       string
	CategoryID     string
	Amount         decimal.Decimal
	InterestRate   decimal.Decimal
	DurationMonths int
	Status         string
	ApprovedBy     string
	ApprovedAt     time.Time
}

type CreateDisbursementInput struct {
	LoanID          string
	Amount          decimal.Decimal
	RepaymentMonths int
	DisbursedBy     string
}

type CreateRepaymentInput struct {
	LoanID             string
	Amount             decimal.Decimal
	PrincipalComponent decimal.Decimal
	InterestComponent  decimal.Decimal
	PaidBy             string
	PaymentDate        time.Time
	WasLate            bool
	DueDate            *time.Time
	InstallmentID      string
	SourceReference    string
}

type ListFilter struct {
	MemberID string
	Status   string
	Limit    int32
	Offset   int32
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	// GetForUpdate takes a row lock on the loan so concurrent payment events
	// for the same loan serialize inside the surrounding transaction.
	GetForUpdate(ctx context.Context, id string) (*Entity, error)
	Update(ctx context.Context, e *Entity) error
	List(ctx context.Context, f ListFilter) ([]Entity, error)
}

type CategoryRepository interface {
	GetByID(ctx context.Context, id string) (*Category, error)
}

type DisbursementRepository interface {
	Create(ctx context.Context, in CreateDisbursementInput) (*Disbursement, error)
	ListByLoan(ctx context.Context, loanID string) ([]Disbursement, error)
}

type ScheduleRepository interface {
	ListByLoan(ctx context.Context, loanID string) ([]Installment, error)
	ListPaid(ctx context.Context, loanID string) ([]Installment, error)
	// ListUnpaidForUpdate returns unpaid installments ordered by due date
	// ascending, locked for the duration of the transaction.
	ListUnpaidForUpdate(ctx context.Context, loanID string) ([]Installment, error)
	CountUnpaid(ctx context.Context, loanID string) (int, error)
	DeleteUnpaid(ctx context.Context, loanID string) error
	CreateBatch(ctx context.Context, rows []Installment) error
	MarkPaid(ctx context.Context, installmentID string) error
	SumInterest(ctx context.Context, loanID string) (decimal.Decimal, error)
}

type RepaymentRepository interface {
	// Create returns ErrDuplicateReference when the source reference has
	// already been recorded.
	Create(ctx context.Context, in CreateRepaymentInput) (*Repayment, error)
	GetBySourceReference(ctx context.Context, ref string) (*Repayment, error)
	SumForLoan(ctx context.Context, loanID string) (decimal.Decimal, error)
	// SumForInstallment returns the total amount and total interest component
	// already recorded against one installment.
	SumForInstallment(ctx context.Context, installmentID string) (decimal.Decimal, decimal.Decimal, error)
	ListByLoan(ctx context.Context, loanID string) ([]Repayment, error)
}

type ApplicationRepository interface {
	Create(ctx context.Context, a *Application) (*Application, error)
	GetByID(ctx context.Context, id string) (*Application, error)
	Update(ctx context.Context, a *Application) error
	ListByStatus(ctx context.Context, status string) ([]Application, error)
}

type GuarantorRepository interface {
	Create(ctx context.Context, g *Guarantor) (*Guarantor, error)
	GetByID(ctx context.Context, id string) (*Guarantor, error)
	Update(ctx context.Context, g *Guarantor) error
	ListByApplication(ctx context.Context, applicationID string) ([]Guarantor, error)
	Delete(ctx context.Context, id string) error
}

// TxRunner scopes a function to one database transaction. Nested calls join
// the transaction already in flight.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
