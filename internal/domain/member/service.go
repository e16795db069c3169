package member

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Service struct {
	members       Repository
	contributions ContributionRepository
	levies        LevyRepository
	hasher        PasswordHasher
	now           func() time.Time
}

func NewService(members Repository, contributions ContributionRepository, levies LevyRepository, hasher PasswordHasher) *Service {
	return &Service{
		members:       members,
		contributions: contributions,
		levies:        levies,
		hasher:        hasher,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Entity, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("invalid_registration_input")
	}
	if _, err := s.members.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	return s.members.Create(ctx, &Entity{
		FullName:         strings.TrimSpace(in.FullName),
		Email:            email,
		PhoneNumber:      strings.TrimSpace(in.PhoneNumber),
		Address:          strings.TrimSpace(in.Address),
		PasswordHash:     hash,
		Role:             RoleMember,
		Status:           StatusPending,
		MembershipStatus: MembershipInactive,
		JoinedOn:         s.now(),
	})
}

// Approve admits a pending member. Membership turns active once the entry
// shares and levy are both paid, not here.
func (s *Service) Approve(ctx context.Context, memberID string) (*Entity, error) {
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusPending {
		return nil, ErrAlreadyProcessed
	}
	m.Status = StatusApproved
	m.MemberNumber = fmt.Sprintf("GC-%s", m.ID[:8])
	if err := s.members.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, memberID string) (*Entity, error) {
	return s.members.GetByID(ctx, memberID)
}

func (s *Service) List(ctx context.Context, status string, limit, offset int32) ([]Entity, error) {
	return s.members.List(ctx, status, limit, offset)
}

// RecordContribution writes a share contribution ledger entry exactly once per
// source reference and flags the member's entry shares as paid.
func (s *Service) RecordContribution(ctx context.Context, memberID string, amount decimal.Decimal, sourceReference string) error {
	if err := s.contributions.UpsertByReference(ctx, &Contribution{
		MemberID:        memberID,
		Amount:          amount,
		SourceReference: sourceReference,
		Date:            s.now(),
	}); err != nil {
		return err
	}
	return s.markEntryPaid(ctx, memberID, func(m *Entity) bool {
		if m.HasPaidShares {
			return false
		}
		m.HasPaidShares = true
		return true
	})
}

// RecordLevy mirrors RecordContribution for the development levy.
func (s *Service) RecordLevy(ctx context.Context, memberID string, amount decimal.Decimal, sourceReference string) error {
	if err := s.levies.UpsertByReference(ctx, &Levy{
		MemberID:        memberID,
		Amount:          amount,
		SourceReference: sourceReference,
		Date:            s.now(),
	}); err != nil {
		return err
	}
	return s.markEntryPaid(ctx, memberID, func(m *Entity) bool {
		if m.HasPaidLevy {
			return false
		}
		m.HasPaidLevy = true
		return true
	})
}

func (s *Service) markEntryPaid(ctx context.Context, memberID string, apply func(*Entity) bool) error {
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	changed := apply(m)
	if m.HasPaidShares && m.HasPaidLevy && m.MembershipStatus != MembershipActive {
		m.MembershipStatus = MembershipActive
		changed = true
	}
	if !changed {
		return nil
	}
	return s.members.Update(ctx, m)
}

func (s *Service) ListContributions(ctx context.Context, memberID string) ([]Contribution, error) {
	return s.contributions.ListByMember(ctx, memberID)
}

func (s *Service) ListLevies(ctx context.Context, memberID string) ([]Levy, error) {
	return s.levies.ListByMember(ctx, memberID)
}
