package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"physlib-backend/internal/domains/book/model"
)

type categoryLinkRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryLinkRepository(pool *pgxpool.Pool) CategoryLinkRepository {
	return &categoryLinkRepository{pool: pool}
}

func (r *categoryLinkRepository) DeleteByBookID(ctx context.Context, bookID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM book_categories WHERE book_id = $1`, bookID)
	if err != nil {
		return fmt.Errorf("failed to delete category links: %w", err)
	}
	return nil
}

func (r *categoryLinkRepository) InsertLinks(ctx context.Context, bookID string, categoryIDs []string) error {
	if len(categoryIDs) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(categoryIDs)+1)
	values = append(values, bookID)
	placeholders := make([]string, 0, len(categoryIDs))
	for i, id := range categoryIDs {
		placeholders = append(placeholders, fmt.Sprintf("($1, $%d, NOW())", i+2))
		values = append(values, id)
	}

	query := `INSERT INTO book_categories (book_id, category_id, created_at) VALUES ` +
		strings.Join(placeholders, ", ")
	if _, err := r.pool.Exec(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to insert category links: %w", err)
	}
	return nil
}

func (r *categoryLinkRepository) ListByBookID(ctx context.Context, bookID string) ([]model.CategorySummary, error) {
	query := `
		SELECT c.id, c.name, c.slug
		FROM book_categories bc
		JOIN categories c ON bc.category_id = c.id
		WHERE bc.book_id = $1
		ORDER BY c.name ASC
	`

	rows, err := r.pool.Query(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category links: %w", err)
	}
	defer rows.Close()

	var categories []model.CategorySummary
	for rows.Next() {
		var c model.CategorySummary
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
