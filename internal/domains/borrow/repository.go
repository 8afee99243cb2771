package borrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	GetDetail(ctx context.Context, id string) (*RequestDetail, error)
	ListByUser(ctx context.Context, userID string) ([]RequestDetail, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]RequestDetail, int, error)
	HasOpenRequest(ctx context.Context, bookID, userID string) (bool, error)
	// Decide moves a pending request to approved or rejected and, on
	// approval, decrements the book's available copies in the same
	// transaction.
	Decide(ctx context.Context, id, deciderID, status string, dueDate *time.Time) error
	// MarkReturned closes an approved request and restores the copy.
	MarkReturned(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, status string) (int, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const requestColumns = `id, book_id, user_id, status, note, due_date, decided_by, decided_at, returned_at, requested_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.BookID, &r.UserID, &r.Status, &r.Note,
		&r.DueDate, &r.DecidedBy, &r.DecidedAt, &r.ReturnedAt, &r.RequestedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan borrow request: %w", err)
	}
	return &r, nil
}

func (p *postgresRepository) Create(ctx context.Context, r *Request) error {
	query := fmt.Sprintf(`INSERT INTO borrow_requests (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, requestColumns)
	_, err := p.pool.Exec(ctx, query,
		r.ID, r.BookID, r.UserID, r.Status, r.Note,
		r.DueDate, r.DecidedBy, r.DecidedAt, r.ReturnedAt, r.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to insert borrow request: %w", err)
	}
	return nil
}

func (p *postgresRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM borrow_requests WHERE id = $1`, requestColumns)
	return scanRequest(p.pool.QueryRow(ctx, query, id))
}

const detailSelect = `
	SELECT r.id, r.book_id, r.user_id, r.status, r.note, r.due_date,
	       r.decided_by, r.decided_at, r.returned_at, r.requested_at,
	       b.title AS book_title, u.full_name AS user_name, u.email AS user_email
	FROM borrow_requests r
	JOIN books b ON r.book_id = b.id
	JOIN users u ON r.user_id = u.id
`

func scanDetailRows(rows pgx.Rows) ([]RequestDetail, error) {
	defer rows.Close()

	var details []RequestDetail
	for rows.Next() {
		var d RequestDetail
		err := rows.Scan(&d.ID, &d.BookID, &d.UserID, &d.Status, &d.Note,
			&d.DueDate, &d.DecidedBy, &d.DecidedAt, &d.ReturnedAt, &d.RequestedAt,
			&d.BookTitle, &d.UserName, &d.UserEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request detail: %w", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func (p *postgresRepository) GetDetail(ctx context.Context, id string) (*RequestDetail, error) {
	var d RequestDetail
	err := p.pool.QueryRow(ctx, detailSelect+` WHERE r.id = $1`, id).Scan(
		&d.ID, &d.BookID, &d.UserID, &d.Status, &d.Note,
		&d.DueDate, &d.DecidedBy, &d.DecidedAt, &d.ReturnedAt, &d.RequestedAt,
		&d.BookTitle, &d.UserName, &d.UserEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request detail: %w", err)
	}
	return &d, nil
}

func (p *postgresRepository) ListByUser(ctx context.Context, userID string) ([]RequestDetail, error) {
	rows, err := p.pool.Query(ctx, detailSelect+` WHERE r.user_id = $1 ORDER BY r.requested_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return scanDetailRows(rows)
}

func (p *postgresRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]RequestDetail, int, error) {
	var total int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM borrow_requests WHERE status = $1`, status).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		detailSelect+` WHERE r.status = $1 ORDER BY r.requested_at ASC LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list requests: %w", err)
	}

	details, err := scanDetailRows(rows)
	return details, total, err
}

func (p *postgresRepository) HasOpenRequest(ctx context.Context, bookID, userID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM borrow_requests
			WHERE book_id = $1 AND user_id = $2 AND status IN ($3, $4)
		)
	`, bookID, userID, StatusPending, StatusApproved).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check open request: %w", err)
	}
	return exists, nil
}

func (p *postgresRepository) Decide(ctx context.Context, id, deciderID, status string, dueDate *time.Time) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE borrow_requests
		SET status = $1, due_date = $2, decided_by = $3, decided_at = NOW()
		WHERE id = $4 AND status = $5
	`, status, dueDate, deciderID, id, StatusPending)
	if err != nil {
		return fmt.Errorf("failed to decide request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidTransition
	}

	if status == StatusApproved {
		result, err := tx.Exec(ctx, `
			UPDATE books
			SET available_copies = available_copies - 1,
			    status = CASE WHEN available_copies - 1 <= 0 THEN 'borrowed' ELSE status END,
			    updated_at = NOW()
			WHERE id = (SELECT book_id FROM borrow_requests WHERE id = $1)
			  AND available_copies > 0
		`, id)
		if err != nil {
			return fmt.Errorf("failed to reserve copy: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrNoCopiesAvailable
		}
	}

	return tx.Commit(ctx)
}

func (p *postgresRepository) MarkReturned(ctx context.Context, id string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE borrow_requests
		SET status = $1, returned_at = NOW()
		WHERE id = $2 AND status = $3
	`, StatusReturned, id, StatusApproved)
	if err != nil {
		return fmt.Errorf("failed to mark returned: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE books
		SET available_copies = LEAST(available_copies + 1, total_copies),
		    status = CASE WHEN status = 'borrowed' THEN 'available' ELSE status END,
		    updated_at = NOW()
		WHERE id = (SELECT book_id FROM borrow_requests WHERE id = $1)
	`, id)
	if err != nil {
		return fmt.Errorf("failed to restore copy: %w", err)
	}

	return tx.Commit(ctx)
}

func (p *postgresRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM borrow_requests WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return count, nil
}
