package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/marketplace-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/models"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/models/events"
)

// depositCapRate limits a deposit to 25% of the client's unpaid job total.
var depositCapRate = decimal.NewFromFloat(0.25)

// Ledger is the balance-mutating core of the marketplace. It enforces the
// settlement and deposit rules and delegates the actual multi-record writes
// to the store, which applies them as a single transaction.
type Ledger struct {
	store     interfaces.MarketplaceStore
	publisher interfaces.EventPublisher // optional, nil disables events
	log       *logrus.Logger

	muMap map[int64]*sync.Mutex // per-profile locks for in-process ordering
	mapMu sync.Mutex            // protects the muMap itself
}

// NewLedger creates a Ledger on top of a storage implementation. The
// publisher may be nil when event publishing is not configured.
func NewLedger(store interfaces.MarketplaceStore, publisher interfaces.EventPublisher, log *logrus.Logger) *Ledger {
	if log == nil {
		log = logrus.New()
	}
	return &Ledger{
		store:     store,
		publisher: publisher,
		log:       log,
		muMap:     make(map[int64]*sync.Mutex),
	}
}

func (l *Ledger) getProfileLock(profileID int64) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[profileID]; !exists {
		l.muMap[profileID] = &sync.Mutex{}
	}
	return l.muMap[profileID]
}

// PayJob settles a job on behalf of the caller: it debits the job price from
// the caller's balance, credits it to the contract's contractor and marks the
// job paid, all as one atomic unit. Preconditions are checked in order and
// the first failure wins; the store re-checks the paid flag and the payer
// balance inside its transaction, so two concurrent calls on the same job can
// never both succeed.
func (l *Ledger) PayJob(ctx context.Context, caller models.Profile, jobID int64) error {
	if caller.Type != models.ProfileTypeClient {
		return ErrNotClient
	}

	job, err := l.store.GetJob(ctx, jobID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return ErrJobNotFound
	}
	if err != nil {
		return err
	}

	if job.Paid {
		return ErrAlreadyPaid
	}
	if caller.Balance.Cmp(job.Price) < 0 {
		return ErrInsufficientFunds
	}

	contract, err := l.store.GetContract(ctx, job.ContractID)
	if err != nil {
		return err
	}

	payerMutex := l.getProfileLock(caller.ID)
	payeeMutex := l.getProfileLock(contract.ContractorID)

	// Lock in id order to avoid deadlocks between concurrent settlements.
	if caller.ID < contract.ContractorID {
		payerMutex.Lock()
		payeeMutex.Lock()
	} else if caller.ID > contract.ContractorID {
		payeeMutex.Lock()
		payerMutex.Lock()
	} else {
		payerMutex.Lock()
	}
	defer payerMutex.Unlock()
	if caller.ID != contract.ContractorID {
		defer payeeMutex.Unlock()
	}

	paidAt := time.Now().UTC()
	err = l.store.SettleJob(ctx, job.ID, caller.ID, contract.ContractorID, job.Price, paidAt)
	switch {
	case errors.Is(err, interfaces.ErrAlreadyPaid):
		return ErrAlreadyPaid
	case errors.Is(err, interfaces.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case err != nil:
		return err
	}

	l.publish(events.TopicJobPaid, events.JobPaid{
		EventID:      uuid.New().String(),
		JobID:        job.ID,
		ClientID:     caller.ID,
		ContractorID: contract.ContractorID,
		Amount:       job.Price,
		OccurredAt:   paidAt,
	})
	return nil
}

// Deposit credits the amount to the target client's balance. The amount may
// not exceed 25% of the client's currently unpaid job total; with no unpaid
// jobs the cap is zero and every deposit is rejected.
//
// The cap is computed against current state and the credit is applied in its
// own transaction, so concurrent deposits may jointly exceed the nominal cap.
// Known limitation, kept deliberately.
func (l *Ledger) Deposit(ctx context.Context, profileID int64, amount decimal.Decimal) error {
	if amount.Cmp(decimal.Zero) <= 0 {
		return ErrMissingAmount
	}

	profile, err := l.store.GetProfile(ctx, profileID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return ErrNotClient
	}
	if err != nil {
		return err
	}
	if profile.Type != models.ProfileTypeClient {
		return ErrNotClient
	}

	unpaidTotal, err := l.store.UnpaidJobsTotal(ctx, profileID)
	if err != nil {
		return err
	}

	maxAllowed := unpaidTotal.Mul(depositCapRate)
	if amount.Cmp(maxAllowed) > 0 {
		return &DepositCapError{MaxAllowed: maxAllowed}
	}

	if err := l.store.DepositToBalance(ctx, profileID, amount); err != nil {
		return err
	}

	l.publish(events.TopicBalanceDeposited, events.BalanceDeposited{
		EventID:    uuid.New().String(),
		ProfileID:  profileID,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// publish sends an event after the operation has been committed. A publish
// failure is logged and never surfaced: the balance mutation already happened.
func (l *Ledger) publish(topic string, event any) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(topic, event); err != nil {
		l.log.WithError(err).WithField("topic", topic).Warn("failed to publish event")
	}
}
