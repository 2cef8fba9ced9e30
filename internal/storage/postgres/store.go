package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/marketplace-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/models"
)

// Store is the Postgres implementation of interfaces.MarketplaceStore.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (p *Store) GetProfile(ctx context.Context, id int64) (models.Profile, error) {
	const query = `SELECT id, first_name, last_name, profession, balance, type, created_at
	FROM profiles WHERE id = $1`

	var profile models.Profile
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&profile.FirstName,
		&profile.LastName,
		&profile.Profession,
		&profile.Balance,
		&profile.Type,
		&profile.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Profile{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func (p *Store) GetContract(ctx context.Context, id int64) (models.Contract, error) {
	const query = `SELECT id, terms, status, client_id, contractor_id, created_at
	FROM contracts WHERE id = $1`

	var contract models.Contract
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&contract.ID,
		&contract.Terms,
		&contract.Status,
		&contract.ClientID,
		&contract.ContractorID,
		&contract.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Contract{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.Contract{}, err
	}
	return contract, nil
}

func (p *Store) GetJob(ctx context.Context, id int64) (models.Job, error) {
	const query = `SELECT id, contract_id, description, price, paid, payment_date, created_at
	FROM jobs WHERE id = $1`

	var job models.Job
	var paymentDate sql.NullTime
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.ContractID,
		&job.Description,
		&job.Price,
		&job.Paid,
		&paymentDate,
		&job.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Job{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.Job{}, err
	}
	if paymentDate.Valid {
		job.PaymentDate = &paymentDate.Time
	}
	return job, nil
}

func (p *Store) ListContracts(ctx context.Context, profileID int64) ([]models.Contract, error) {
	const query = `SELECT id, terms, status, client_id, contractor_id, created_at
	FROM contracts
	WHERE status <> 'terminated' AND (client_id = $1 OR contractor_id = $1)
	ORDER BY id`

	rows, err := p.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		var c models.Contract
		if err := rows.Scan(&c.ID, &c.Terms, &c.Status, &c.ClientID, &c.ContractorID, &c.CreatedAt); err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func (p *Store) ListUnpaidJobs(ctx context.Context, profileID int64) ([]models.Job, error) {
	const query = `SELECT j.id, j.contract_id, j.description, j.price, j.paid, j.payment_date, j.created_at
	FROM jobs j
	JOIN contracts c ON c.id = j.contract_id
	WHERE NOT j.paid
	  AND c.status <> 'terminated'
	  AND (c.client_id = $1 OR c.contractor_id = $1)
	ORDER BY j.id`

	rows, err := p.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		var paymentDate sql.NullTime
		if err := rows.Scan(&j.ID, &j.ContractID, &j.Description, &j.Price, &j.Paid, &paymentDate, &j.CreatedAt); err != nil {
			return nil, err
		}
		if paymentDate.Valid {
			j.PaymentDate = &paymentDate.Time
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (p *Store) UnpaidJobsTotal(ctx context.Context, clientID int64) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(j.price), 0)
	FROM jobs j
	JOIN contracts c ON c.id = j.contract_id
	WHERE NOT j.paid AND c.client_id = $1`

	var total decimal.Decimal
	if err := p.db.QueryRowContext(ctx, query, clientID).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// SettleJob marks the job paid and moves the price between the two balances
// inside one transaction. The paid flag and the payer balance are enforced by
// conditional updates, so a concurrent settlement of the same job loses the
// race and nothing is committed.
func (p *Store) SettleJob(ctx context.Context, jobID, payerID, payeeID int64, price decimal.Decimal, paidAt time.Time) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	const markPaidQuery = `UPDATE jobs SET paid = TRUE, payment_date = $2
	WHERE id = $1 AND paid = FALSE`

	res, err := dbTx.ExecContext(ctx, markPaidQuery, jobID, paidAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		err = interfaces.ErrAlreadyPaid
		return err
	}

	const debitQuery = `UPDATE profiles SET balance = balance - $2
	WHERE id = $1 AND balance >= $2`

	res, err = dbTx.ExecContext(ctx, debitQuery, payerID, price)
	if err != nil {
		return err
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		err = interfaces.ErrInsufficientFunds
		return err
	}

	const creditQuery = `UPDATE profiles SET balance = balance + $2 WHERE id = $1`

	if _, err = dbTx.ExecContext(ctx, creditQuery, payeeID, price); err != nil {
		return err
	}

	err = dbTx.Commit()
	return err
}

func (p *Store) DepositToBalance(ctx context.Context, profileID int64, amount decimal.Decimal) error {
	const query = `UPDATE profiles SET balance = balance + $2 WHERE id = $1`

	res, err := p.db.ExecContext(ctx, query, profileID, amount)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (p *Store) BestProfession(ctx context.Context, start, end *time.Time) (models.ProfessionEarnings, error) {
	const query = `SELECT p.profession, SUM(j.price) AS earned
	FROM jobs j
	JOIN contracts c ON c.id = j.contract_id
	JOIN profiles p ON p.id = c.contractor_id
	WHERE j.paid
	  AND ($1::timestamptz IS NULL OR j.payment_date >= $1)
	  AND ($2::timestamptz IS NULL OR j.payment_date <= $2)
	GROUP BY p.profession
	ORDER BY earned DESC
	LIMIT 1`

	var best models.ProfessionEarnings
	err := p.db.QueryRowContext(ctx, query, nullTime(start), nullTime(end)).Scan(&best.Profession, &best.Earned)
	if err == sql.ErrNoRows {
		return models.ProfessionEarnings{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.ProfessionEarnings{}, err
	}
	return best, nil
}

func (p *Store) BestClients(ctx context.Context, start, end *time.Time, limit int) ([]models.ClientEarnings, error) {
	const query = `SELECT cl.id, cl.first_name || ' ' || cl.last_name AS full_name, SUM(j.price) AS paid
	FROM jobs j
	JOIN contracts c ON c.id = j.contract_id
	JOIN profiles cl ON cl.id = c.client_id
	WHERE j.paid
	  AND ($1::timestamptz IS NULL OR j.payment_date >= $1)
	  AND ($2::timestamptz IS NULL OR j.payment_date <= $2)
	GROUP BY cl.id, full_name
	ORDER BY paid DESC, cl.id
	LIMIT $3`

	rows, err := p.db.QueryContext(ctx, query, nullTime(start), nullTime(end), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []models.ClientEarnings
	for rows.Next() {
		var c models.ClientEarnings
		if err := rows.Scan(&c.ID, &c.FullName, &c.Paid); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ interfaces.MarketplaceStore = (*Store)(nil)
