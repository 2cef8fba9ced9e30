package query

import (
	"context"
	"errors"
	"time"

	"github.com/sheikh-saqib/marketplace-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/models"
)

// DefaultBestClientsLimit applies when the caller does not ask for a limit.
const DefaultBestClientsLimit = 2

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrNotContractParty = errors.New("contract does not belong to user")
)

// Service is the read-only side of the marketplace: contract and job
// listings plus admin aggregate reports. It never mutates state.
type Service struct {
	store interfaces.MarketplaceStore
}

func NewService(store interfaces.MarketplaceStore) *Service {
	return &Service{store: store}
}

// GetContract returns a contract only to one of its two parties.
func (s *Service) GetContract(ctx context.Context, caller models.Profile, id int64) (models.Contract, error) {
	contract, err := s.store.GetContract(ctx, id)
	if errors.Is(err, interfaces.ErrNotFound) {
		return models.Contract{}, ErrContractNotFound
	}
	if err != nil {
		return models.Contract{}, err
	}

	if contract.ClientID != caller.ID && contract.ContractorID != caller.ID {
		return models.Contract{}, ErrNotContractParty
	}
	return contract, nil
}

// ListContracts returns the caller's non-terminated contracts, on either side.
func (s *Service) ListContracts(ctx context.Context, caller models.Profile) ([]models.Contract, error) {
	return s.store.ListContracts(ctx, caller.ID)
}

// ListUnpaidJobs returns the unpaid jobs on the caller's active contracts.
func (s *Service) ListUnpaidJobs(ctx context.Context, caller models.Profile) ([]models.Job, error) {
	return s.store.ListUnpaidJobs(ctx, caller.ID)
}

// BestProfession returns the profession that earned the most from paid jobs
// in the period, or nil when no job was paid in it.
func (s *Service) BestProfession(ctx context.Context, start, end *time.Time) (*models.ProfessionEarnings, error) {
	best, err := s.store.BestProfession(ctx, start, end)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &best, nil
}

// BestClients returns up to limit clients ordered by total paid in the period.
func (s *Service) BestClients(ctx context.Context, start, end *time.Time, limit int) ([]models.ClientEarnings, error) {
	if limit <= 0 {
		limit = DefaultBestClientsLimit
	}
	return s.store.BestClients(ctx, start, end, limit)
}
