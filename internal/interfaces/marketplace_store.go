package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/sheikh-saqib/marketplace-ledger-system/internal/models"
	"github.com/shopspring/decimal"
)

// Errors returned by MarketplaceStore implementations. SettleJob performs its
// own checks inside the storage transaction so that concurrent settlements of
// the same job cannot both succeed.
var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyPaid       = errors.New("job is already paid")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// MarketplaceStore is the persistence interface for profiles, contracts and
// jobs, can be any storage implementation (postgres, memory).
type MarketplaceStore interface {
	GetProfile(ctx context.Context, id int64) (models.Profile, error)
	GetContract(ctx context.Context, id int64) (models.Contract, error)
	GetJob(ctx context.Context, id int64) (models.Job, error)

	// ListContracts returns the non-terminated contracts where the profile is
	// either the client or the contractor.
	ListContracts(ctx context.Context, profileID int64) ([]models.Contract, error)
	// ListUnpaidJobs returns unpaid jobs on the profile's active contracts.
	ListUnpaidJobs(ctx context.Context, profileID int64) ([]models.Job, error)

	// UnpaidJobsTotal sums the prices of all unpaid jobs on contracts where
	// the profile is the client.
	UnpaidJobsTotal(ctx context.Context, clientID int64) (decimal.Decimal, error)

	// SettleJob marks the job paid, debits the payer and credits the payee as
	// a single atomic unit. Returns ErrAlreadyPaid if the job was settled in
	// the meantime and ErrInsufficientFunds if the payer cannot cover the
	// price; in both cases nothing is persisted.
	SettleJob(ctx context.Context, jobID, payerID, payeeID int64, price decimal.Decimal, paidAt time.Time) error

	// DepositToBalance credits the amount to the profile's balance.
	DepositToBalance(ctx context.Context, profileID int64, amount decimal.Decimal) error

	// BestProfession returns the profession that earned the most from paid
	// jobs in the period, or ErrNotFound if no job was paid in it.
	BestProfession(ctx context.Context, start, end *time.Time) (models.ProfessionEarnings, error)
	// BestClients returns up to limit clients ordered by total paid in the period.
	BestClients(ctx context.Context, start, end *time.Time, limit int) ([]models.ClientEarnings, error)
}
