package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/marketplace-ledger-system/internal/models"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/storage/memory"
)

type publishedEvent struct {
	topic string
	event any
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *capturingPublisher) Publish(topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, event: event})
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// newTestLedger seeds a client (id 1, balance 100), a contractor (id 2,
// balance 0) and an unpaid job (id 10, price 50) on a contract between them.
func newTestLedger(t *testing.T) (*Ledger, *memory.Store, *capturingPublisher) {
	t.Helper()

	store := memory.NewStore()
	store.AddProfile(models.Profile{ID: 1, FirstName: "Ada", LastName: "Lovelace", Profession: "programmer", Balance: decimal.NewFromInt(100), Type: models.ProfileTypeClient})
	store.AddProfile(models.Profile{ID: 2, FirstName: "Alan", LastName: "Turing", Profession: "programmer", Balance: decimal.Zero, Type: models.ProfileTypeContractor})
	store.AddContract(models.Contract{ID: 1, Terms: "terms", Status: models.ContractStatusInProgress, ClientID: 1, ContractorID: 2})
	store.AddJob(models.Job{ID: 10, ContractID: 1, Description: "work", Price: decimal.NewFromInt(50)})

	publisher := &capturingPublisher{}
	return NewLedger(store, publisher, nil), store, publisher
}

func balance(t *testing.T, store *memory.Store, id int64) decimal.Decimal {
	t.Helper()
	profile, err := store.GetProfile(context.Background(), id)
	require.NoError(t, err)
	return profile.Balance
}

func TestPayJob_Success(t *testing.T) {
	ctx := context.Background()
	l, store, publisher := newTestLedger(t)

	client, err := store.GetProfile(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, l.PayJob(ctx, client, 10))

	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(50)), "client should be debited the price")
	assert.True(t, balance(t, store, 2).Equal(decimal.NewFromInt(50)), "contractor should be credited the price")

	job, err := store.GetJob(ctx, 10)
	require.NoError(t, err)
	assert.True(t, job.Paid)
	require.NotNil(t, job.PaymentDate)
	assert.WithinDuration(t, time.Now().UTC(), *job.PaymentDate, time.Minute)

	assert.Equal(t, 1, publisher.count())
}

func TestPayJob_BalanceSumInvariant(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t)

	before := balance(t, store, 1).Add(balance(t, store, 2))

	client, err := store.GetProfile(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, l.PayJob(ctx, client, 10))

	after := balance(t, store, 1).Add(balance(t, store, 2))
	assert.True(t, before.Equal(after), "settlement must not create or destroy money")
}

func TestPayJob_AlreadyPaid(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t)

	client, err := store.GetProfile(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, l.PayJob(ctx, client, 10))

	// Re-read the client so the second attempt has an up-to-date balance.
	client, err = store.GetProfile(ctx, 1)
	require.NoError(t, err)

	err = l.PayJob(ctx, client, 10)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(50)), "balances must be unchanged by the rejected call")
	assert.True(t, balance(t, store, 2).Equal(decimal.NewFromInt(50)))
}

func TestPayJob_NotClient(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t)

	contractor, err := store.GetProfile(ctx, 2)
	require.NoError(t, err)

	err = l.PayJob(ctx, contractor, 10)
	assert.ErrorIs(t, err, ErrNotClient)

	job, err := store.GetJob(ctx, 10)
	require.NoError(t, err)
	assert.False(t, job.Paid)
	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(100)))
}

func TestPayJob_JobNotFound(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t)

	client, err := store.GetProfile(ctx, 1)
	require.NoError(t, err)

	err = l.PayJob(ctx, client, 999)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(100)))
}

func TestPayJob_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t)

	store.AddJob(models.Job{ID: 11, ContractID: 1, Description: "big job", Price: decimal.NewFromInt(500)})

	client, err := store.GetProfile(ctx, 1)
	require.NoError(t, err)

	err = l.PayJob(ctx, client, 11)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	job, err := store.GetJob(ctx, 11)
	require.NoError(t, err)
	assert.False(t, job.Paid)
	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(100)))
	assert.True(t, balance(t, store, 2).Equal(decimal.Zero))
}

func TestPayJob_ConcurrentSettlementOfSameJob(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t)

	client, err := store.GetProfile(ctx, 1)
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.PayJob(ctx, client, 10)
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, alreadyPaid int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyPaid):
			alreadyPaid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded, "exactly one settlement must succeed")
	assert.Equal(t, 1, alreadyPaid, "the loser must observe the job as paid")
	assert.True(t, balance(t, store, 2).Equal(decimal.NewFromInt(50)), "contractor must be credited exactly once")
	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(50)), "client must be debited exactly once")
}

func TestDeposit_CapScenario(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.AddProfile(models.Profile{ID: 1, FirstName: "Ada", LastName: "Lovelace", Balance: decimal.NewFromInt(150), Type: models.ProfileTypeClient})
	store.AddProfile(models.Profile{ID: 2, FirstName: "Alan", LastName: "Turing", Type: models.ProfileTypeContractor})
	store.AddContract(models.Contract{ID: 1, Status: models.ContractStatusInProgress, ClientID: 1, ContractorID: 2})
	store.AddJob(models.Job{ID: 10, ContractID: 1, Price: decimal.NewFromInt(1000)})

	l := NewLedger(store, nil, nil)

	// 25% of the 1000 outstanding is 250: depositing 300 must be rejected
	// with the cap in the error, depositing 250 must succeed.
	err := l.Deposit(ctx, 1, decimal.NewFromInt(300))
	var capErr *DepositCapError
	require.ErrorAs(t, err, &capErr)
	assert.True(t, capErr.MaxAllowed.Equal(decimal.NewFromInt(250)))
	assert.Contains(t, capErr.Error(), "250")
	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(150)), "rejected deposit must not change the balance")

	require.NoError(t, l.Deposit(ctx, 1, decimal.NewFromInt(250)))
	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(400)))
}

func TestDeposit_MissingAmount(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)

	assert.ErrorIs(t, l.Deposit(ctx, 1, decimal.Zero), ErrMissingAmount)
	assert.ErrorIs(t, l.Deposit(ctx, 1, decimal.NewFromInt(-10)), ErrMissingAmount)
}

func TestDeposit_TargetNotClient(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)

	assert.ErrorIs(t, l.Deposit(ctx, 2, decimal.NewFromInt(10)), ErrNotClient)
	assert.ErrorIs(t, l.Deposit(ctx, 999, decimal.NewFromInt(10)), ErrNotClient)
}

func TestDeposit_NoUnpaidJobsMeansZeroCap(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.AddProfile(models.Profile{ID: 1, FirstName: "Ada", LastName: "Lovelace", Type: models.ProfileTypeClient})

	l := NewLedger(store, nil, nil)

	// With nothing outstanding the cap is zero, so every positive deposit is
	// rejected. This is the intended capping behaviour.
	err := l.Deposit(ctx, 1, decimal.NewFromInt(1))
	var capErr *DepositCapError
	require.ErrorAs(t, err, &capErr)
	assert.True(t, capErr.MaxAllowed.IsZero())
}

func TestDeposit_OnlyCountsOwnUnpaidJobs(t *testing.T) {
	ctx := context.Background()
	l, store, publisher := newTestLedger(t)

	// A paid job and another client's job must not raise the cap.
	paidAt := time.Now().UTC()
	store.AddJob(models.Job{ID: 11, ContractID: 1, Price: decimal.NewFromInt(4000), Paid: true, PaymentDate: &paidAt})
	store.AddProfile(models.Profile{ID: 3, FirstName: "Grace", LastName: "Hopper", Type: models.ProfileTypeClient})
	store.AddContract(models.Contract{ID: 2, Status: models.ContractStatusInProgress, ClientID: 3, ContractorID: 2})
	store.AddJob(models.Job{ID: 12, ContractID: 2, Price: decimal.NewFromInt(4000)})

	// Outstanding for client 1 is still just the seeded job priced 50, so the
	// cap is 12.5.
	err := l.Deposit(ctx, 1, decimal.NewFromInt(13))
	var capErr *DepositCapError
	require.ErrorAs(t, err, &capErr)
	assert.True(t, capErr.MaxAllowed.Equal(decimal.RequireFromString("12.5")))

	require.NoError(t, l.Deposit(ctx, 1, decimal.NewFromInt(12)))
	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(112)))
	assert.Equal(t, 1, publisher.count())
}
