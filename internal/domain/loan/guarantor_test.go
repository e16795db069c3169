package loan

import (
	"testing"
	"time"
)

func TestGuarantorReplacementRules(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	fresh := Guarantor{ConsentStatus: ConsentPending, CreatedAt: now.Add(-2 * 24 * time.Hour)}
	stale := Guarantor{ConsentStatus: ConsentPending, CreatedAt: now.Add(-8 * 24 * time.Hour)}
	rejected := Guarantor{ConsentStatus: ConsentRejected, CreatedAt: now.Add(-1 * 24 * time.Hour)}
	approved := Guarantor{ConsentStatus: ConsentApproved, CreatedAt: now.Add(-30 * 24 * time.Hour)}

	if fresh.CanBeReplaced(now) {
		t.Fatalf("a recent pending request is not replaceable")
	}
	if !stale.CanBeReplaced(now) {
		t.Fatalf("a request pending past seven days is replaceable")
	}
	if !rejected.CanBeReplaced(now) {
		t.Fatalf("a rejected request is replaceable")
	}
	if approved.CanBeReplaced(now) {
		t.Fatalf("an approved consent is never replaceable")
	}
}

func TestSummarizeConsent(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	s := SummarizeConsent([]Guarantor{
		{ConsentStatus: ConsentApproved},
		{ConsentStatus: ConsentRejected},
		{ConsentStatus: ConsentPending, CreatedAt: now.Add(-10 * 24 * time.Hour)},
	}, now)

	if s.Total != 3 || s.Approved != 1 || s.Rejected != 1 || s.Pending != 1 || s.LongPending != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.AllApproved {
		t.Fatalf("summary with pending and rejected entries cannot be all-approved")
	}
	if !s.HasRejections || !s.CanReplaceSome {
		t.Fatalf("summary must surface replaceable slots: %+v", s)
	}
}

func TestAllGuarantorsApproved(t *testing.T) {
	if AllGuarantorsApproved([]Guarantor{{ConsentStatus: ConsentApproved}}) {
		t.Fatalf("one guarantor is not enough")
	}
	if AllGuarantorsApproved([]Guarantor{
		{ConsentStatus: ConsentApproved},
		{ConsentStatus: ConsentPending},
	}) {
		t.Fatalf("pending consent blocks approval")
	}
	if !AllGuarantorsApproved([]Guarantor{
		{ConsentStatus: ConsentApproved},
		{ConsentStatus: ConsentApproved},
	}) {
		t.Fatalf("two approvals satisfy the gate")
	}
}

func TestEligibleForAutoRejection(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	if EligibleForAutoRejection([]Guarantor{
		{ConsentStatus: ConsentPending, CreatedAt: now.Add(-10 * 24 * time.Hour)},
	}, now) {
		t.Fatalf("ten days pending is inside the grace window")
	}
	if !EligibleForAutoRejection([]Guarantor{
		{ConsentStatus: ConsentApproved, CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{ConsentStatus: ConsentPending, CreatedAt: now.Add(-15 * 24 * time.Hour)},
	}, now) {
		t.Fatalf("fifteen days pending triggers auto-rejection")
	}
}
