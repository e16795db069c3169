package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type RepaymentEvent struct {
	RepaymentID     string
	LoanID          string
	LoanReference   string
	MemberID        string
	Amount          decimal.Decimal
	SourceReference string
	RecordedAt      time.Time
}

type EventRepository interface {
	ListRepaymentEventsSince(ctx context.Context, since time.Time, limit int32) ([]RepaymentEvent, error)
}

// Notifier polls the repayment ledger and pushes recorded repayments to the
// owning member's channel and the loan channel.
type Notifier struct {
	repo         EventRepository
	hub          *Hub
	pollInterval time.Duration
	cursor       time.Time
}

func NewNotifier(repo EventRepository, hub *Hub, pollInterval time.Duration) *Notifier {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Notifier{repo: repo, hub: hub, pollInterval: pollInterval, cursor: time.Now().UTC()}
}

func (n *Notifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := n.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (n *Notifier) tick(ctx context.Context) error {
	events, err := n.repo.ListRepaymentEventsSince(ctx, n.cursor, 100)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.RecordedAt.After(n.cursor) {
			n.cursor = ev.RecordedAt
		}
		payload, _ := json.Marshal(map[string]any{
			"event": "repayment_recorded",
			"data": map[string]any{
				"repayment_id":     ev.RepaymentID,
				"loan_id":          ev.LoanID,
				"loan_reference":   ev.LoanReference,
				"amount":           ev.Amount,
				"source_reference": ev.SourceReference,
				"recorded_at":      ev.RecordedAt.UTC().Format(time.RFC3339),
			},
		})
		n.hub.Publish(MemberChannel(ev.MemberID), payload)
		n.hub.Publish(LoanChannel(ev.LoanID), payload)
	}
	return nil
}
