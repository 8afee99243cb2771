package favorite

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type Repository interface {
	// Add hearts a book for a user. Adding an existing heart is a no-op.
	Add(ctx context.Context, bookID, userID string) error
	Remove(ctx context.Context, bookID, userID string) error
	Exists(ctx context.Context, bookID, userID string) (bool, error)
	CountByBook(ctx context.Context, bookID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]FavoriteBook, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (p *postgresRepository) Add(ctx context.Context, bookID, userID string) error {
	query := `INSERT INTO book_hearts (book_id, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (book_id, user_id) DO NOTHING`
	_, err := p.pool.Exec(ctx, query, bookID, userID)
	if err != nil {
		return fmt.Errorf("failed to insert heart: %w", err)
	}
	return nil
}

func (p *postgresRepository) Remove(ctx context.Context, bookID, userID string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM book_hearts WHERE book_id = $1 AND user_id = $2`, bookID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete heart: %w", err)
	}
	return nil
}

func (p *postgresRepository) Exists(ctx context.Context, bookID, userID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM book_hearts WHERE book_id = $1 AND user_id = $2)`,
		bookID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check heart: %w", err)
	}
	return exists, nil
}

func (p *postgresRepository) CountByBook(ctx context.Context, bookID string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM book_hearts WHERE book_id = $1`, bookID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count hearts: %w", err)
	}
	return count, nil
}

func (p *postgresRepository) ListByUser(ctx context.Context, userID string) ([]FavoriteBook, error) {
	query := `SELECT b.id, b.title, b.slug, b.authors, b.cover_url, b.status,
			(SELECT COUNT(*) FROM book_hearts h2 WHERE h2.book_id = b.id) AS hearts_count,
			h.created_at
		FROM book_hearts h
		JOIN books b ON b.id = h.book_id AND b.deleted_at IS NULL
		WHERE h.user_id = $1
		ORDER BY h.created_at DESC`

	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	var favorites []FavoriteBook
	for rows.Next() {
		var f FavoriteBook
		err := rows.Scan(&f.BookID, &f.Title, &f.Slug, pq.Array(&f.Authors),
			&f.CoverURL, &f.Status, &f.HeartsCount, &f.HeartedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}
