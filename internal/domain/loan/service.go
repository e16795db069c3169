package loan

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/forte001/GraceCoop/internal/money"
	"github.com/shopspring/decimal"
)

type Service struct {
	loans         Repository
	categories    CategoryRepository
	applications  ApplicationRepository
	guarantors    GuarantorRepository
	disbursements DisbursementRepository
	schedule      ScheduleRepository
	repayments    RepaymentRepository
	engine        *ScheduleEngine
	tx            TxRunner
	now           func() time.Time
	randomDigits  func(n int) string
}

func NewService(
	loans Repository,
	categories CategoryRepository,
	applications ApplicationRepository,
	guarantors GuarantorRepository,
	disbursements DisbursementRepository,
	schedule ScheduleRepository,
	repayments RepaymentRepository,
	engine *ScheduleEngine,
	tx TxRunner,
) *Service {
	return &Service{
		loans:         loans,
		categories:    categories,
		applications:  applications,
		guarantors:    guarantors,
		disbursements: disbursements,
		schedule:      schedule,
		repayments:    repayments,
		engine:        engine,
		tx:            tx,
		now:           func() time.Time { return time.Now().UTC() },
		randomDigits:  randomDigits,
	}
}

// GenerateReference builds a human-readable loan identifier:
// LN-{ABBR}-{YYYYMMDD}-{6 random digits}.
func (s *Service) GenerateReference(categoryAbbreviation string) string {
	return fmt.Sprintf("LN-%s-%s-%s",
		strings.ToUpper(strings.TrimSpace(categoryAbbreviation)),
		s.now().Format("20060102"),
		s.randomDigits(6),
	)
}

func randomDigits(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = '0' + b%10
	}
	return string(out)
}

type ApplicationInput struct {
	ApplicantID  string
	CategoryID   string
	Amount       decimal.Decimal
	GuarantorIDs []string
}

// SubmitApplication records a loan application at the category's current rate
// and term, and issues pending consent requests to the named guarantors.
func (s *Service) SubmitApplication(ctx context.Context, in ApplicationInput) (*Application, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	uniq := map[string]struct{}{}
	for _, id := range in.GuarantorIDs {
		if id == in.ApplicantID {
			continue
		}
		uniq[id] = struct{}{}
	}
	if len(uniq) < requiredGuarantors {
		return nil, ErrInsufficientGuarantors
	}

	cat, err := s.categories.GetByID(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	var app *Application
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		app, err = s.applications.Create(ctx, &Application{
			ApplicantID:  in.ApplicantID,
			CategoryID:   cat.ID,
			Amount:       in.Amount,
			InterestRate: cat.InterestRate,
			PeriodMonths: cat.LoanPeriodMonths,
			Status:       StatusPending,
			AppliedAt:    s.now(),
		})
		if err != nil {
			return err
		}
		for id := range uniq {
			if _, err := s.guarantors.Create(ctx, &Guarantor{
				ApplicationID: app.ID,
				MemberID:      id,
				ConsentStatus: ConsentPending,
				CreatedAt:     s.now(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// RespondToConsent records a guarantor's decision. Approved and rejected are
// terminal; a second response is rejected.
func (s *Service) RespondToConsent(ctx context.Context, guarantorRowID string, approve bool, reason string) (*Guarantor, error) {
	g, err := s.guarantors.GetByID(ctx, guarantorRowID)
	if err != nil {
		return nil, err
	}
	if g.ConsentStatus != ConsentPending {
		return nil, ErrConsentFinal
	}
	respondedAt := s.now()
	g.RespondedAt = &respondedAt
	if approve {
		g.ConsentStatus = ConsentApproved
	} else {
		g.ConsentStatus = ConsentRejected
		g.RejectionReason = reason
	}
	if err := s.guarantors.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// ReplaceGuarantors swaps out every replaceable guarantor (rejected or
// long-pending) for the given replacements and re-issues pending requests.
func (s *Service) ReplaceGuarantors(ctx context.Context, applicationID string, replacementIDs []string) error {
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.Status != StatusPending && app.Status != StatusRejected {
		return ErrApplicationProcessed
	}

	existing, err := s.guarantors.ListByApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	now := s.now()
	replaceable := make([]Guarantor, 0, len(existing))
	for _, g := range existing {
		if g.CanBeReplaced(now) {
			replaceable = append(replaceable, g)
		}
	}
	if len(replaceable) == 0 {
		return ErrGuarantorNotReplaceable
	}
	if len(replacementIDs) != len(replaceable) {
		return ErrInsufficientGuarantors
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		for i, g := range replaceable {
			if err := s.guarantors.Delete(ctx, g.ID); err != nil {
				return err
			}
			if _, err := s.guarantors.Create(ctx, &Guarantor{
				ApplicationID: applicationID,
				MemberID:      replacementIDs[i],
				ConsentStatus: ConsentPending,
				CreatedAt:     now,
			}); err != nil {
				return err
			}
		}
		if app.Status == StatusRejected {
			app.Status = StatusPending
			app.RejectionReason = ""
			return s.applications.Update(ctx, app)
		}
		return nil
	})
}

// ApproveApplication converts a fully consented application into a loan.
func (s *Service) ApproveApplication(ctx context.Context, applicationID, approvedBy string) (*Entity, error) {
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusPending {
		return nil, ErrApplicationProcessed
	}

	guarantors, err := s.guarantors.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !AllGuarantorsApproved(guarantors) {
		return nil, ErrGuarantorsNotApproved
	}

	cat, err := s.categories.GetByID(ctx, app.CategoryID)
	if err != nil {
		return nil, err
	}

	var ln *Entity
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		approvedAt := s.now()
		ln, err = s.loans.Create(ctx, CreateInput{
			Reference:      s.GenerateReference(cat.Abbreviation),
			ApplicationID:  app.ID,
			MemberID:       app.ApplicantID,
			CategoryID:     cat.ID,
			Amount:         app.Amount,
			InterestRate:   cat.InterestRate,
			DurationMonths: cat.LoanPeriodMonths,
			Status:         StatusApproved,
			ApprovedBy:     approvedBy,
			ApprovedAt:     approvedAt,
		})
		if err != nil {
			return err
		}

		for i := range guarantors {
			guarantors[i].LoanID = ln.ID
			if err := s.guarantors.Update(ctx, &guarantors[i]); err != nil {
				return err
			}
		}

		app.Status = StatusApproved
		app.ApprovedBy = approvedBy
		app.ApprovedAt = &approvedAt
		return s.applications.Update(ctx, app)
	})
	if err != nil {
		return nil, err
	}
	return ln, nil
}

// AutoRejectStaleApplications rejects pending applications whose guarantor
// requests have been unresolved past the auto-rejection window. Returns the
// number rejected.
func (s *Service) AutoRejectStaleApplications(ctx context.Context) (int, error) {
	pending, err := s.applications.ListByStatus(ctx, StatusPending)
	if err != nil {
		return 0, err
	}
	now := s.now()
	rejected := 0
	for i := range pending {
		guarantors, err := s.guarantors.ListByApplication(ctx, pending[i].ID)
		if err != nil {
			return rejected, err
		}
		if !EligibleForAutoRejection(guarantors, now) {
			continue
		}
		pending[i].Status = StatusRejected
		pending[i].RejectionReason = "guarantor consent not obtained in time"
		if err := s.applications.Update(ctx, &pending[i]); err != nil {
			return rejected, err
		}
		rejected++
	}
	return rejected, nil
}

type DisburseInput struct {
	LoanID      string
	Amount      decimal.Decimal
	DisbursedBy string
}

// Disburse appends a disbursement, recomputes the loan's disbursed total and
// status, and regenerates the schedule so the table reflects the new total.
// The insert, the status update, and the regeneration share one transaction;
// there is no window where the disbursed amount and the schedule disagree.
func (s *Service) Disburse(ctx context.Context, in DisburseInput) (*Disbursement, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	var disb *Disbursement
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ln, err := s.loans.GetForUpdate(ctx, in.LoanID)
		if err != nil {
			return err
		}
		switch ln.Status {
		case StatusApproved, StatusPartiallyDisbursed, StatusDisbursed, StatusGraceApplied:
		default:
			return ErrInvalidStatus
		}

		existing, err := s.disbursements.ListByLoan(ctx, ln.ID)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, d := range existing {
			total = total.Add(d.Amount)
		}
		if total.Add(in.Amount).GreaterThan(ln.Amount) {
			return ErrExceedsApprovedAmount
		}

		disb, err = s.disbursements.Create(ctx, CreateDisbursementInput{
			LoanID:          ln.ID,
			Amount:          in.Amount,
			RepaymentMonths: ln.DurationMonths,
			DisbursedBy:     in.DisbursedBy,
		})
		if err != nil {
			return err
		}

		return s.updateDisbursementStatus(ctx, ln)
	})
	if err != nil {
		return nil, err
	}
	return disb, nil
}

// updateDisbursementStatus recomputes the disbursed total, flips the loan
// status, anchors the start and end dates, and regenerates the schedule.
func (s *Service) updateDisbursementStatus(ctx context.Context, ln *Entity) error {
	disbs, err := s.disbursements.ListByLoan(ctx, ln.ID)
	if err != nil {
		return err
	}
	if len(disbs) == 0 {
		return ErrNoDisbursements
	}

	total := decimal.Zero
	for _, d := range disbs {
		total = total.Add(d.Amount)
	}
	ln.DisbursedAmount = total

	if total.GreaterThanOrEqual(ln.Amount) {
		ln.Status = StatusDisbursed
		ln.RemainingDisbursement = false
	} else {
		ln.Status = StatusPartiallyDisbursed
		ln.RemainingDisbursement = true
	}
	if ln.TotalRepaymentMonths == 0 {
		ln.TotalRepaymentMonths = ln.DurationMonths
	}

	if ln.StartDate == nil {
		start := money.DateOnly(earliestDisbursement(disbs).DisbursedAt)
		ln.StartDate = &start
		firstDue := money.AddMonths(start, 1)
		ln.RepaymentStartDate = &firstDue
	}
	end := money.AddMonths(*ln.StartDate, ln.TotalRepaymentMonths)
	ln.EndDate = &end

	if err := s.loans.Update(ctx, ln); err != nil {
		return err
	}
	return s.engine.Regenerate(ctx, ln)
}

// ApplyGrace extends a disbursed loan's term by the category's grace months,
// optionally switching to the category's grace rate, and reschedules when the
// loan is already past its end date.
func (s *Service) ApplyGrace(ctx context.Context, loanID string) (*Entity, error) {
	var ln *Entity
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		ln, err = s.loans.GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if ln.Status != StatusDisbursed && ln.Status != StatusPartiallyDisbursed && ln.Status != StatusGraceApplied {
			return ErrInvalidStatus
		}
		if ln.GraceApplied {
			return ErrGraceAlreadyApplied
		}

		cat, err := s.categories.GetByID(ctx, ln.CategoryID)
		if err != nil {
			return err
		}
		if cat.GracePeriodMonths <= 0 {
			return ErrNoGracePeriod
		}

		ln.TotalRepaymentMonths += cat.GracePeriodMonths
		if cat.GraceInterestRate.IsPositive() {
			ln.InterestRate = cat.GraceInterestRate
		}
		ln.GraceApplied = true
		ln.Status = StatusGraceApplied

		today := money.DateOnly(s.now())
		if ln.EndDate != nil {
			end := money.AddMonths(*ln.EndDate, cat.GracePeriodMonths)
			ln.EndDate = &end
		} else {
			end := money.AddMonths(today, ln.TotalRepaymentMonths)
			ln.EndDate = &end
		}

		if err := s.loans.Update(ctx, ln); err != nil {
			return err
		}

		if ln.EndDate.Before(today) {
			return s.engine.Regenerate(ctx, ln)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ln, nil
}

// EnsureSchedule generates the full table for a disbursed loan that has none
// yet (first read of the schedule after disbursement races are resolved here).
func (s *Service) EnsureSchedule(ctx context.Context, loanID string) ([]Installment, error) {
	rows, err := s.schedule.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		ln, err := s.loans.GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return s.engine.Generate(ctx, ln)
	})
	if err != nil {
		return nil, err
	}
	return s.schedule.ListByLoan(ctx, loanID)
}

func (s *Service) GetLoan(ctx context.Context, id string) (*Entity, error) {
	return s.loans.GetByID(ctx, id)
}

func (s *Service) ListLoans(ctx context.Context, f ListFilter) ([]Entity, error) {
	return s.loans.List(ctx, f)
}

func (s *Service) GetApplication(ctx context.Context, id string) (*Application, error) {
	return s.applications.GetByID(ctx, id)
}

func (s *Service) GuarantorSummary(ctx context.Context, applicationID string) (*ConsentSummary, error) {
	guarantors, err := s.guarantors.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	summary := SummarizeConsent(guarantors, s.now())
	return &summary, nil
}

func (s *Service) ListRepayments(ctx context.Context, loanID string) ([]Repayment, error) {
	return s.repayments.ListByLoan(ctx, loanID)
}

func (s *Service) ListDisbursements(ctx context.Context, loanID string) ([]Disbursement, error) {
	return s.disbursements.ListByLoan(ctx, loanID)
}

// Summary aggregates the figures the admin loan view renders.
type Summary struct {
	LoanID            string          `json:"loan_id"`
	Reference         string          `json:"reference"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	TotalDisbursed    decimal.Decimal `json:"total_disbursed"`
	RemainingToLend   decimal.Decimal `json:"remaining_disbursement"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	GraceApplied      bool            `json:"grace_applied"`
	TotalMonths       int             `json:"total_repayment_months"`
	StartDate         *time.Time      `json:"start_date"`
	EndDate           *time.Time      `json:"end_date"`
}

func (s *Service) Summary(ctx context.Context, loanID string) (*Summary, error) {
	ln, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	totalPaid, err := s.repayments.SumForLoan(ctx, ln.ID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		LoanID:          ln.ID,
		Reference:       ln.Reference,
		Status:          ln.Status,
		Amount:          ln.Amount,
		TotalDisbursed:  ln.DisbursedAmount,
		RemainingToLend: ln.Amount.Sub(ln.DisbursedAmount),
		TotalPaid:       totalPaid,
		InterestRate:    ln.InterestRate,
		GraceApplied:    ln.GraceApplied,
		TotalMonths:     ln.TotalRepaymentMonths,
		StartDate:       ln.StartDate,
		EndDate:         ln.EndDate,
	}, nil
}
