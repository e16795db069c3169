package loan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type memTx struct{}

func (memTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type loanRepoMock struct {
	items map[string]*Entity
	seq   int
}

func newLoanRepoMock() *loanRepoMock {
	return &loanRepoMock{items: map[string]*Entity{}}
}

func (m *loanRepoMock) Create(_ context.Context, in CreateInput) (*Entity, error) {
	m.seq++
	approvedAt := in.ApprovedAt
	e := &Entity{
		ID:                   fmt.Sprintf("loan-%d", m.seq),
		Reference:            in.Reference,
		ApplicationID:        in.ApplicationID,
		MemberID:             in.MemberID,
		CategoryID:           in.CategoryID,
		Amount:               in.Amount,
		InterestRate:         in.InterestRate,
		DurationMonths:       in.DurationMonths,
		Status:               in.Status,
		TotalRepaymentMonths: in.DurationMonths,
		ApprovedBy:           in.ApprovedBy,
		ApprovedAt:           &approvedAt,
	}
	m.items[e.ID] = e
	return e, nil
}

func (m *loanRepoMock) GetByID(_ context.Context, id string) (*Entity, error) {
	if e, ok := m.items[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *loanRepoMock) GetForUpdate(ctx context.Context, id string) (*Entity, error) {
	return m.GetByID(ctx, id)
}

func (m *loanRepoMock) Update(_ context.Context, e *Entity) error {
	if _, ok := m.items[e.ID]; !ok {
		return ErrNotFound
	}
	cp := *e
	m.items[e.ID] = &cp
	return nil
}

func (m *loanRepoMock) List(_ context.Context, _ ListFilter) ([]Entity, error) {
	out := make([]Entity, 0, len(m.items))
	for _, e := range m.items {
		out = append(out, *e)
	}
	return out, nil
}

type categoryRepoMock struct {
	items map[string]*Category
}

func (m *categoryRepoMock) GetByID(_ context.Context, id string) (*Category, error) {
	if c, ok := m.items[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrNotFound
}

type applicationRepoMock struct {
	items map[string]*Application
	seq   int
}

func newApplicationRepoMock() *applicationRepoMock {
	return &applicationRepoMock{items: map[string]*Application{}}
}

func (m *applicationRepoMock) Create(_ context.Context, a *Application) (*Application, error) {
	m.seq++
	cp := *a
	cp.ID = fmt.Sprintf("app-%d", m.seq)
	m.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *applicationRepoMock) GetByID(_ context.Context, id string) (*Application, error) {
	if a, ok := m.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *applicationRepoMock) Update(_ context.Context, a *Application) error {
	if _, ok := m.items[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *applicationRepoMock) ListByStatus(_ context.Context, status string) ([]Application, error) {
	out := make([]Application, 0)
	for _, a := range m.items {
		if a.Status == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

type guarantorRepoMock struct {
	order []string
	items map[string]*Guarantor
	seq   int
}

func newGuarantorRepoMock() *guarantorRepoMock {
	return &guarantorRepoMock{items: map[string]*Guarantor{}}
}

func (m *guarantorRepoMock) Create(_ context.Context, g *Guarantor) (*Guarantor, error) {
	m.seq++
	cp := *g
	cp.ID = fmt.Sprintf("guar-%d", m.seq)
	m.items[cp.ID] = &cp
	m.order = append(m.order, cp.ID)
	out := cp
	return &out, nil
}

func (m *guarantorRepoMock) GetByID(_ context.Context, id string) (*Guarantor, error) {
	if g, ok := m.items[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *guarantorRepoMock) Update(_ context.Context, g *Guarantor) error {
	if _, ok := m.items[g.ID]; !ok {
		return ErrNotFound
	}
	cp := *g
	m.items[g.ID] = &cp
	return nil
}

func (m *guarantorRepoMock) ListByApplication(_ context.Context, applicationID string) ([]Guarantor, error) {
	out := make([]Guarantor, 0)
	for _, id := range m.order {
		g, ok := m.items[id]
		if ok && g.ApplicationID == applicationID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *guarantorRepoMock) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type disbursementRepoMock struct {
	items []Disbursement
	seq   int
	at    time.Time
}

func newDisbursementRepoMock(start time.Time) *disbursementRepoMock {
	return &disbursementRepoMock{at: start}
}

func (m *disbursementRepoMock) Create(_ context.Context, in CreateDisbursementInput) (*Disbursement, error) {
	m.seq++
	d := Disbursement{
		ID:              fmt.Sprintf("disb-%d", m.seq),
		LoanID:          in.LoanID,
		Amount:          in.Amount,
		RepaymentMonths: in.RepaymentMonths,
		DisbursedBy:     in.DisbursedBy,
		DisbursedAt:     m.at,
	}
	m.at = m.at.Add(24 * time.Hour)
	m.items = append(m.items, d)
	return &d, nil
}

func (m *disbursementRepoMock) ListByLoan(_ context.Context, loanID string) ([]Disbursement, error) {
	out := make([]Disbursement, 0)
	for _, d := range m.items {
		if d.LoanID == loanID {
			out = append(out, d)
		}
	}
	return out, nil
}

type scheduleRepoMock struct {
	items []*Installment
	seq   int
}

func (m *scheduleRepoMock) sorted(loanID string, filter func(*Installment) bool) []Installment {
	out := make([]Installment, 0)
	for _, inst := range m.items {
		if inst.LoanID == loanID && filter(inst) {
			out = append(out, *inst)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

func (m *scheduleRepoMock) ListByLoan(_ context.Context, loanID string) ([]Installment, error) {
	return m.sorted(loanID, func(*Installment) bool { return true }), nil
}

func (m *scheduleRepoMock) ListPaid(_ context.Context, loanID string) ([]Installment, error) {
	return m.sorted(loanID, func(i *Installment) bool { return i.IsPaid }), nil
}

func (m *scheduleRepoMock) ListUnpaidForUpdate(_ context.Context, loanID string) ([]Installment, error) {
	return m.sorted(loanID, func(i *Installment) bool { return !i.IsPaid }), nil
}

func (m *scheduleRepoMock) CountUnpaid(_ context.Context, loanID string) (int, error) {
	n := 0
	for _, inst := range m.items {
		if inst.LoanID == loanID && !inst.IsPaid {
			n++
		}
	}
	return n, nil
}

func (m *scheduleRepoMock) DeleteUnpaid(_ context.Context, loanID string) error {
	kept := m.items[:0]
	for _, inst := range m.items {
		if inst.LoanID != loanID || inst.IsPaid {
			kept = append(kept, inst)
		}
	}
	m.items = kept
	return nil
}

func (m *scheduleRepoMock) CreateBatch(_ context.Context, rows []Installment) error {
	for _, row := range rows {
		m.seq++
		cp := row
		cp.ID = fmt.Sprintf("inst-%d", m.seq)
		m.items = append(m.items, &cp)
	}
	return nil
}

func (m *scheduleRepoMock) MarkPaid(_ context.Context, installmentID string) error {
	for _, inst := range m.items {
		if inst.ID == installmentID {
			inst.IsPaid = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *scheduleRepoMock) SumInterest(_ context.Context, loanID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, inst := range m.items {
		if inst.LoanID == loanID {
			total = total.Add(inst.Interest)
		}
	}
	return total, nil
}

type repaymentRepoMock struct {
	items []*Repayment
	byRef map[string]*Repayment
	seq   int
}

func newRepaymentRepoMock() *repaymentRepoMock {
	return &repaymentRepoMock{byRef: map[string]*Repayment{}}
}

func (m *repaymentRepoMock) Create(_ context.Context, in CreateRepaymentInput) (*Repayment, error) {
	if _, ok := m.byRef[in.SourceReference]; ok {
		return nil, ErrDuplicateReference
	}
	m.seq++
	rep := &Repayment{
		ID:                 fmt.Sprintf("rep-%d", m.seq),
		LoanID:             in.LoanID,
		Amount:             in.Amount,
		PrincipalComponent: in.PrincipalComponent,
		InterestComponent:  in.InterestComponent,
		PaidBy:             in.PaidBy,
		PaymentDate:        in.PaymentDate,
		WasLate:            in.WasLate,
		DueDate:            in.DueDate,
		InstallmentID:      in.InstallmentID,
		SourceReference:    in.SourceReference,
		RecordedAt:         in.PaymentDate,
	}
	m.items = append(m.items, rep)
	m.byRef[in.SourceReference] = rep
	cp := *rep
	return &cp, nil
}

func (m *repaymentRepoMock) GetBySourceReference(_ context.Context, ref string) (*Repayment, error) {
	if rep, ok := m.byRef[ref]; ok {
		cp := *rep
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *repaymentRepoMock) SumForLoan(_ context.Context, loanID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, rep := range m.items {
		if rep.LoanID == loanID {
			total = total.Add(rep.Amount)
		}
	}
	return total, nil
}

func (m *repaymentRepoMock) SumForInstallment(_ context.Context, installmentID string) (decimal.Decimal, decimal.Decimal, error) {
	amount, interest := decimal.Zero, decimal.Zero
	for _, rep := range m.items {
		if rep.InstallmentID == installmentID && installmentID != "" {
			amount = amount.Add(rep.Amount)
			interest = interest.Add(rep.InterestComponent)
		}
	}
	return amount, interest, nil
}

func (m *repaymentRepoMock) ListByLoan(_ context.Context, loanID string) ([]Repayment, error) {
	out := make([]Repayment, 0)
	for _, rep := range m.items {
		if rep.LoanID == loanID {
			out = append(out, *rep)
		}
	}
	return out, nil
}
