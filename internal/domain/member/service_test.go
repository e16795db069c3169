package member

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type memberRepoMock struct {
	items map[string]*Entity
	seq   int
}

func newMemberRepoMock() *memberRepoMock {
	return &memberRepoMock{items: map[string]*Entity{}}
}

func (m *memberRepoMock) Create(_ context.Context, e *Entity) (*Entity, error) {
	m.seq++
	cp := *e
	cp.ID = fmt.Sprintf("member-%08d", m.seq)
	m.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memberRepoMock) GetByID(_ context.Context, id string) (*Entity, error) {
	if e, ok := m.items[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *memberRepoMock) GetByEmail(_ context.Context, email string) (*Entity, error) {
	for _, e := range m.items {
		if e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memberRepoMock) Update(_ context.Context, e *Entity) error {
	if _, ok := m.items[e.ID]; !ok {
		return ErrNotFound
	}
	cp := *e
	m.items[e.ID] = &cp
	return nil
}

func (m *memberRepoMock) List(_ context.Context, status string, _, _ int32) ([]Entity, error) {
	out := make([]Entity, 0)
	for _, e := range m.items {
		if status == "" || e.Status == status {
			out = append(out, *e)
		}
	}
	return out, nil
}

type contributionRepoMock struct {
	byRef map[string]Contribution
}

func (m *contributionRepoMock) UpsertByReference(_ context.Context, c *Contribution) error {
	if _, ok := m.byRef[c.SourceReference]; ok {
		return nil
	}
	m.byRef[c.SourceReference] = *c
	return nil
}

func (m *contributionRepoMock) ListByMember(_ context.Context, memberID string) ([]Contribution, error) {
	out := make([]Contribution, 0)
	for _, c := range m.byRef {
		if c.MemberID == memberID {
			out = append(out, c)
		}
	}
	return out, nil
}

type levyRepoMock struct {
	byRef map[string]Levy
}

func (m *levyRepoMock) UpsertByReference(_ context.Context, l *Levy) error {
	if _, ok := m.byRef[l.SourceReference]; ok {
		return nil
	}
	m.byRef[l.SourceReference] = *l
	return nil
}

func (m *levyRepoMock) ListByMember(_ context.Context, memberID string) ([]Levy, error) {
	out := make([]Levy, 0)
	for _, l := range m.byRef {
		if l.MemberID == memberID {
			out = append(out, l)
		}
	}
	return out, nil
}

type hasherMock struct{}

func (hasherMock) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func newMemberService() (*Service, *memberRepoMock, *contributionRepoMock, *levyRepoMock) {
	members := newMemberRepoMock()
	contributions := &contributionRepoMock{byRef: map[string]Contribution{}}
	levies := &levyRepoMock{byRef: map[string]Levy{}}
	svc := NewService(members, contributions, levies, hasherMock{})
	return svc, members, contributions, levies
}

func TestRegisterNormalizesAndHashes(t *testing.T) {
	svc, _, _, _ := newMemberService()

	m, err := svc.Register(context.Background(), RegisterInput{
		FullName: "  Ada Obi  ", Email: " Ada@Example.COM ", Password: "secret",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Email != "ada@example.com" || m.FullName != "Ada Obi" {
		t.Fatalf("input must be normalized, got %+v", m)
	}
	if m.PasswordHash != "hashed:secret" {
		t.Fatalf("password must be stored hashed, got %q", m.PasswordHash)
	}
	if m.Status != StatusPending || m.MembershipStatus != MembershipInactive || m.Role != RoleMember {
		t.Fatalf("unexpected initial state: %+v", m)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newMemberService()

	if _, err := svc.Register(context.Background(), RegisterInput{Email: "ada@example.com", Password: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Case and whitespace differences still hit the same account.
	_, err := svc.Register(context.Background(), RegisterInput{Email: " ADA@example.com ", Password: "y"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestApproveAssignsMemberNumberOnce(t *testing.T) {
	svc, _, _, _ := newMemberService()
	m, _ := svc.Register(context.Background(), RegisterInput{Email: "ada@example.com", Password: "x"})

	approved, err := svc.Approve(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Fatalf("expected approved status, got %s", approved.Status)
	}
	if !strings.HasPrefix(approved.MemberNumber, "GC-") {
		t.Fatalf("unexpected member number: %s", approved.MemberNumber)
	}
	if approved.MembershipStatus != MembershipInactive {
		t.Fatalf("approval alone must not activate membership")
	}

	if _, err := svc.Approve(context.Background(), m.ID); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestEntryPaymentsActivateMembership(t *testing.T) {
	svc, members, _, _ := newMemberService()
	m, _ := svc.Register(context.Background(), RegisterInput{Email: "ada@example.com", Password: "x"})
	_, _ = svc.Approve(context.Background(), m.ID)

	if err := svc.RecordContribution(context.Background(), m.ID, decimal.NewFromInt(5000), "GC-SHARES-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := members.GetByID(context.Background(), m.ID)
	if !got.HasPaidShares || got.HasPaidLevy {
		t.Fatalf("only shares should be flagged paid: %+v", got)
	}
	if got.MembershipStatus != MembershipInactive {
		t.Fatalf("shares alone must not activate membership")
	}

	if err := svc.RecordLevy(context.Background(), m.ID, decimal.NewFromInt(2000), "GC-LEVY-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = members.GetByID(context.Background(), m.ID)
	if !got.HasPaidShares || !got.HasPaidLevy {
		t.Fatalf("both entry flags should be set: %+v", got)
	}
	if got.MembershipStatus != MembershipActive {
		t.Fatalf("membership must activate once both entry payments land")
	}
}

func TestRecordContributionIsIdempotent(t *testing.T) {
	svc, _, contributions, _ := newMemberService()
	m, _ := svc.Register(context.Background(), RegisterInput{Email: "ada@example.com", Password: "x"})

	for i := 0; i < 3; i++ {
		if err := svc.RecordContribution(context.Background(), m.ID, decimal.NewFromInt(5000), "GC-SHARES-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	rows, _ := contributions.ListByMember(context.Background(), m.ID)
	if len(rows) != 1 {
		t.Fatalf("replayed reference must record one entry, got %d", len(rows))
	}
}
