package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event topics
const (
	TopicJobPaid          = "job_paid"
	TopicBalanceDeposited = "balance_deposited"
)

// JobPaid is published after a job settlement has been committed.
type JobPaid struct {
	EventID      string          `json:"event_id"`
	JobID        int64           `json:"job_id"`
	ClientID     int64           `json:"client_id"`
	ContractorID int64           `json:"contractor_id"`
	Amount       decimal.Decimal `json:"amount"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// BalanceDeposited is published after a deposit has been committed.
type BalanceDeposited struct {
	EventID    string          `json:"event_id"`
	ProfileID  int64           `json:"profile_id"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}
