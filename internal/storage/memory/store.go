package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/marketplace-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/models"
)

// Store is an in-memory implementation of interfaces.MarketplaceStore. It is
// thread-safe; every multi-record write happens under the single mutex, which
// gives the same all-or-nothing behaviour as a database transaction.
type Store struct {
	mu        sync.Mutex
	profiles  map[int64]models.Profile
	contracts map[int64]models.Contract
	jobs      map[int64]models.Job
}

func NewStore() *Store {
	return &Store{
		profiles:  make(map[int64]models.Profile),
		contracts: make(map[int64]models.Contract),
		jobs:      make(map[int64]models.Job),
	}
}

// AddProfile inserts or replaces a profile. Used for seeding and tests.
func (m *Store) AddProfile(p models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

// AddContract inserts or replaces a contract.
func (m *Store) AddContract(c models.Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ID] = c
}

// AddJob inserts or replaces a job.
func (m *Store) AddJob(j models.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
}

func (m *Store) GetProfile(ctx context.Context, id int64) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[id]
	if !ok {
		return models.Profile{}, interfaces.ErrNotFound
	}
	return profile, nil
}

func (m *Store) GetContract(ctx context.Context, id int64) (models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	contract, ok := m.contracts[id]
	if !ok {
		return models.Contract{}, interfaces.ErrNotFound
	}
	return contract, nil
}

func (m *Store) GetJob(ctx context.Context, id int64) (models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return models.Job{}, interfaces.ErrNotFound
	}
	return job, nil
}

func (m *Store) ListContracts(ctx context.Context, profileID int64) ([]models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Contract
	for _, c := range m.contracts {
		if c.Status == models.ContractStatusTerminated {
			continue
		}
		if c.ClientID == profileID || c.ContractorID == profileID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Store) ListUnpaidJobs(ctx context.Context, profileID int64) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Job
	for _, j := range m.jobs {
		if j.Paid {
			continue
		}
		c, ok := m.contracts[j.ContractID]
		if !ok || c.Status == models.ContractStatusTerminated {
			continue
		}
		if c.ClientID == profileID || c.ContractorID == profileID {
			result = append(result, j)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Store) UnpaidJobsTotal(ctx context.Context, clientID int64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := decimal.Zero
	for _, j := range m.jobs {
		if j.Paid {
			continue
		}
		c, ok := m.contracts[j.ContractID]
		if !ok || c.ClientID != clientID {
			continue
		}
		total = total.Add(j.Price)
	}
	return total, nil
}

// SettleJob applies the three mutations under the store mutex so they are
// observed together or not at all. The paid flag and the payer balance are
// re-checked here, which makes the second of two concurrent settlements fail.
func (m *Store) SettleJob(ctx context.Context, jobID, payerID, payeeID int64, price decimal.Decimal, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return interfaces.ErrNotFound
	}
	if job.Paid {
		return interfaces.ErrAlreadyPaid
	}

	payer, ok := m.profiles[payerID]
	if !ok {
		return interfaces.ErrNotFound
	}
	payee, ok := m.profiles[payeeID]
	if !ok {
		return interfaces.ErrNotFound
	}
	if payer.Balance.Cmp(price) < 0 {
		return interfaces.ErrInsufficientFunds
	}

	job.Paid = true
	job.PaymentDate = &paidAt
	payer.Balance = payer.Balance.Sub(price)
	payee.Balance = payee.Balance.Add(price)

	m.jobs[jobID] = job
	m.profiles[payerID] = payer
	m.profiles[payeeID] = payee
	return nil
}

func (m *Store) DepositToBalance(ctx context.Context, profileID int64, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[profileID]
	if !ok {
		return interfaces.ErrNotFound
	}
	profile.Balance = profile.Balance.Add(amount)
	m.profiles[profileID] = profile
	return nil
}

func (m *Store) BestProfession(ctx context.Context, start, end *time.Time) (models.ProfessionEarnings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	earned := make(map[string]decimal.Decimal)
	for _, j := range m.jobs {
		if !m.paidInRange(j, start, end) {
			continue
		}
		c, ok := m.contracts[j.ContractID]
		if !ok {
			continue
		}
		contractor, ok := m.profiles[c.ContractorID]
		if !ok {
			continue
		}
		earned[contractor.Profession] = earned[contractor.Profession].Add(j.Price)
	}

	if len(earned) == 0 {
		return models.ProfessionEarnings{}, interfaces.ErrNotFound
	}

	var best models.ProfessionEarnings
	for profession, total := range earned {
		if best.Profession == "" || total.Cmp(best.Earned) > 0 ||
			(total.Cmp(best.Earned) == 0 && profession < best.Profession) {
			best = models.ProfessionEarnings{Profession: profession, Earned: total}
		}
	}
	return best, nil
}

func (m *Store) BestClients(ctx context.Context, start, end *time.Time, limit int) ([]models.ClientEarnings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	paid := make(map[int64]decimal.Decimal)
	for _, j := range m.jobs {
		if !m.paidInRange(j, start, end) {
			continue
		}
		c, ok := m.contracts[j.ContractID]
		if !ok {
			continue
		}
		paid[c.ClientID] = paid[c.ClientID].Add(j.Price)
	}

	result := make([]models.ClientEarnings, 0, len(paid))
	for clientID, total := range paid {
		client, ok := m.profiles[clientID]
		if !ok {
			continue
		}
		result = append(result, models.ClientEarnings{
			ID:       clientID,
			FullName: client.FirstName + " " + client.LastName,
			Paid:     total,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if cmp := result[i].Paid.Cmp(result[j].Paid); cmp != 0 {
			return cmp > 0
		}
		return result[i].ID < result[j].ID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *Store) paidInRange(j models.Job, start, end *time.Time) bool {
	if !j.Paid || j.PaymentDate == nil {
		return false
	}
	if start != nil && j.PaymentDate.Before(*start) {
		return false
	}
	if end != nil && j.PaymentDate.After(*end) {
		return false
	}
	return true
}

// Compile-time check: ensure Store implements the MarketplaceStore interface.
var _ interfaces.MarketplaceStore = (*Store)(nil)
