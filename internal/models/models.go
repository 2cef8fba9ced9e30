package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile types
const (
	ProfileTypeClient     = "client"
	ProfileTypeContractor = "contractor"
)

// Contract statuses
const (
	ContractStatusNew        = "new"
	ContractStatusInProgress = "in_progress"
	ContractStatusTerminated = "terminated"
)

// Profile represents a marketplace party, either a client or a contractor.
// The balance is only ever mutated through the ledger operations.
type Profile struct {
	ID         int64           `json:"id"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Profession string          `json:"profession"`
	Balance    decimal.Decimal `json:"balance"`
	Type       string          `json:"type"` // "client" or "contractor"
	CreatedAt  time.Time       `json:"created_at"`
}

// Contract links one client profile to one contractor profile and owns jobs.
// Terminated contracts are excluded from active-work queries.
type Contract struct {
	ID           int64     `json:"id"`
	Terms        string    `json:"terms"`
	Status       string    `json:"status"`
	ClientID     int64     `json:"client_id"`
	ContractorID int64     `json:"contractor_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Job is a unit of billable work under a contract. Once paid, the price and
// payment date are immutable and the job can never be settled again.
type Job struct {
	ID          int64           `json:"id"`
	ContractID  int64           `json:"contract_id"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Paid        bool            `json:"paid"`
	PaymentDate *time.Time      `json:"payment_date,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ProfessionEarnings is an admin report row: total paid to a profession.
type ProfessionEarnings struct {
	Profession string          `json:"profession"`
	Earned     decimal.Decimal `json:"earned"`
}

// ClientEarnings is an admin report row: total a client paid for jobs.
type ClientEarnings struct {
	ID       int64           `json:"id"`
	FullName string          `json:"full_name"`
	Paid     decimal.Decimal `json:"paid"`
}
