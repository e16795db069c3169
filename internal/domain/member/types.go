package member

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	MembershipActive   = "active"
	MembershipInactive = "inactive"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

var (
	ErrNotFound         = errors.New("not_found")
	ErrEmailTaken       = errors.New("email_already_registered")
	ErrAlreadyProcessed = errors.New("member_already_processed")
)

type Entity struct {
	ID               string
	MemberNumber     string
	FullName         string
	Email            string
	PhoneNumber      string
	Address          string
	PasswordHash     string
	Role             string
	Status           string
	MembershipStatus string
	HasPaidShares    bool
	HasPaidLevy      bool
	JoinedOn         time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Contribution is a share-capital ledger entry, recorded once per verified
// gateway event (SourceReference is unique).
type Contribution struct {
	ID              string
	MemberID        string
	Amount          decimal.Decimal
	SourceReference string
	Date            time.Time
}

// Levy is a development-levy ledger entry with the same idempotency rule as
// Contribution.
type Levy struct {
	ID              string
	MemberID        string
	Amount          decimal.Decimal
	SourceReference string
	Date            time.Time
}

type RegisterInput struct {
	FullName    string
	Email       string
	PhoneNumber string
	Address     string
	Password    string
}

type Repository interface {
	Create(ctx context.Context, e *Entity) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	GetByEmail(ctx context.Context, email string) (*Entity, error)
	Update(ctx context.Context, e *Entity) error
	List(ctx context.Context, status string, limit, offset int32) ([]Entity, error)
}

type ContributionRepository interface {
	// UpsertByReference inserts the entry unless one with the same source
	// reference already exists.
	UpsertByReference(ctx context.Context, c *Contribution) error
	ListByMember(ctx context.Context, memberID string) ([]Contribution, error)
}

type LevyRepository interface {
	UpsertByReference(ctx context.Context, l *Levy) error
	ListByMember(ctx context.Context, memberID string) ([]Levy, error)
}

// PasswordHasher keeps the bcrypt dependency out of the domain package.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}
