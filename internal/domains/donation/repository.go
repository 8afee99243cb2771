package donation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, d *Donation) error
	GetByID(ctx context.Context, id string) (*Donation, error)
	ListByUser(ctx context.Context, userID string) ([]Donation, error)
	TotalByUser(ctx context.Context, userID string) (decimal.Decimal, error)
	// TopDonors returns donors ordered by lifetime total, largest first.
	TopDonors(ctx context.Context, limit int) ([]DonorSummary, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const donationColumns = `id, user_id, amount, currency, note, created_at`

func (p *postgresRepository) Create(ctx context.Context, d *Donation) error {
	query := fmt.Sprintf(`INSERT INTO donations (%s) VALUES ($1, $2, $3, $4, $5, $6)`, donationColumns)
	_, err := p.pool.Exec(ctx, query,
		d.ID, d.UserID, d.Amount, d.Currency, d.Note, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}
	return nil
}

func (p *postgresRepository) GetByID(ctx context.Context, id string) (*Donation, error) {
	query := fmt.Sprintf(`SELECT %s FROM donations WHERE id = $1`, donationColumns)

	var d Donation
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.UserID, &d.Amount, &d.Currency, &d.Note, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDonationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}
	return &d, nil
}

func (p *postgresRepository) ListByUser(ctx context.Context, userID string) ([]Donation, error) {
	query := fmt.Sprintf(`SELECT %s FROM donations WHERE user_id = $1 ORDER BY created_at DESC`, donationColumns)

	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	defer rows.Close()

	var donations []Donation
	for rows.Next() {
		var d Donation
		err := rows.Scan(&d.ID, &d.UserID, &d.Amount, &d.Currency, &d.Note, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

func (p *postgresRepository) TotalByUser(ctx context.Context, userID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := p.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM donations WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to total donations: %w", err)
	}
	return total, nil
}

func (p *postgresRepository) TopDonors(ctx context.Context, limit int) ([]DonorSummary, error) {
	query := `SELECT d.user_id, u.name, SUM(d.amount) AS total_amount,
			COUNT(*) AS donation_count, MAX(d.created_at) AS last_donated_at
		FROM donations d
		JOIN users u ON u.id = d.user_id
		GROUP BY d.user_id, u.name
		ORDER BY total_amount DESC
		LIMIT $1`

	rows, err := p.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top donors: %w", err)
	}
	defer rows.Close()

	var donors []DonorSummary
	for rows.Next() {
		var s DonorSummary
		err := rows.Scan(&s.UserID, &s.Name, &s.TotalAmount, &s.DonationCount, &s.LastDonatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donor summary: %w", err)
		}
		donors = append(donors, s)
	}
	return donors, rows.Err()
}
