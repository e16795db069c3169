package loan

import "time"

const (
	ConsentPending  = "pending"
	ConsentApproved = "approved"
	ConsentRejected = "rejected"
)

const (
	// A consent request still pending after this long is flagged replaceable.
	longPendingAfter = 7 * 24 * time.Hour
	// An application whose guarantor set has been stuck this long may be
	// auto-rejected.
	autoRejectAfter = 14 * 24 * time.Hour
)

const requiredGuarantors = 2

// IsLongPending reports whether the consent request has sat unanswered past
// the replacement threshold.
func (g Guarantor) IsLongPending(now time.Time) bool {
	return g.ConsentStatus == ConsentPending && now.Sub(g.CreatedAt) > longPendingAfter
}

// CanBeReplaced reports whether the guarantor slot may be swapped for another
// member: rejections and long-pending requests qualify.
func (g Guarantor) CanBeReplaced(now time.Time) bool {
	return g.ConsentStatus == ConsentRejected || g.IsLongPending(now)
}

type ConsentSummary struct {
	Total       int `json:"total"`
	Approved    int `json:"approved"`
	Rejected    int `json:"rejected"`
	Pending     int `json:"pending"`
	LongPending int `json:"long_pending"`

	AllApproved    bool `json:"all_approved"`
	HasRejections  bool `json:"has_rejections"`
	CanReplaceSome bool `json:"can_replace_some"`
}

func SummarizeConsent(guarantors []Guarantor, now time.Time) ConsentSummary {
	s := ConsentSummary{Total: len(guarantors)}
	for _, g := range guarantors {
		switch g.ConsentStatus {
		case ConsentApproved:
			s.Approved++
		case ConsentRejected:
			s.Rejected++
		case ConsentPending:
			s.Pending++
			if g.IsLongPending(now) {
				s.LongPending++
			}
		}
	}
	s.AllApproved = s.Approved >= requiredGuarantors && s.Pending == 0 && s.Rejected == 0
	s.HasRejections = s.Rejected > 0
	s.CanReplaceSome = s.Rejected+s.LongPending > 0
	return s
}

// AllGuarantorsApproved is the gate for application approval: at least two
// guarantors, every one of them approved.
func AllGuarantorsApproved(guarantors []Guarantor) bool {
	if len(guarantors) < requiredGuarantors {
		return false
	}
	for _, g := range guarantors {
		if g.ConsentStatus != ConsentApproved {
			return false
		}
	}
	return true
}

// EligibleForAutoRejection reports whether an application's guarantor set has
// unresolved requests old enough to auto-reject the application.
func EligibleForAutoRejection(guarantors []Guarantor, now time.Time) bool {
	for _, g := range guarantors {
		if g.ConsentStatus == ConsentPending && now.Sub(g.CreatedAt) > autoRejectAfter {
			return true
		}
	}
	return false
}
