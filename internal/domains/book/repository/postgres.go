package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"physlib-backend/internal/domains/book/model"
)

const bookColumns = `
	id, title, slug, isbn, authors, publisher, edition, published_year,
	language, pages, description, shelf_location, total_copies,
	available_copies, cover_url, status, is_active, view_count,
	created_at, updated_at, deleted_at`

type postgresBookRepository struct {
	pool *pgxpool.Pool
}

func NewBookRepository(pool *pgxpool.Pool) BookRepository {
	return &postgresBookRepository{pool: pool}
}

func scanBook(row pgx.Row) (*model.Book, error) {
	var b model.Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Slug, &b.ISBN, pq.Array(&b.Authors), &b.Publisher,
		&b.Edition, &b.PublishedYear, &b.Language, &b.Pages, &b.Description,
		&b.ShelfLocation, &b.TotalCopies, &b.AvailableCopies, &b.CoverURL,
		&b.Status, &b.IsActive, &b.ViewCount,
		&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan book: %w", err)
	}
	return &b, nil
}

func (r *postgresBookRepository) Create(ctx context.Context, book *model.Book) error {
	query := `
		INSERT INTO books (
			id, title, slug, isbn, authors, publisher, edition, published_year,
			language, pages, description, shelf_location, total_copies,
			available_copies, cover_url, status, is_active, view_count,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20
		)
	`

	_, err := r.pool.Exec(ctx, query,
		book.ID, book.Title, book.Slug, book.ISBN, pq.Array(book.Authors),
		book.Publisher, book.Edition, book.PublishedYear,
		book.Language, book.Pages, book.Description, book.ShelfLocation,
		book.TotalCopies, book.AvailableCopies, book.CoverURL,
		book.Status, book.IsActive, book.ViewCount,
		book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	return nil
}

func (r *postgresBookRepository) GetByID(ctx context.Context, id string) (*model.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = $1 AND deleted_at IS NULL`, bookColumns)
	return scanBook(r.pool.QueryRow(ctx, query, id))
}

func (r *postgresBookRepository) GetBySlug(ctx context.Context, slug string) (*model.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE slug = $1 AND deleted_at IS NULL`, bookColumns)
	return scanBook(r.pool.QueryRow(ctx, query, slug))
}

// List returns a filtered page of the catalog plus the total match count.
func (r *postgresBookRepository) List(ctx context.Context, filter *model.BookFilter) ([]model.Book, int, error) {
	whereClause, args := r.buildWhereClause(filter)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM books b WHERE %s`, whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM books b
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, prefixColumns("b"), whereClause, orderBy(filter.Sort), len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list books query failed: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return books, total, nil
}

func prefixColumns(alias string) string {
	cols := strings.Split(bookColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func orderBy(sort string) string {
	switch sort {
	case "title_asc":
		return "b.title ASC"
	case "view_count_desc":
		return "b.view_count DESC"
	case "published_year_desc":
		return "b.published_year DESC NULLS LAST"
	default:
		return "b.created_at DESC"
	}
}

func (r *postgresBookRepository) buildWhereClause(filter *model.BookFilter) (string, []interface{}) {
	conditions := []string{"b.deleted_at IS NULL"}
	args := []interface{}{}
	argIndex := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("b.search_vector @@ websearch_to_tsquery('simple', $%d)", argIndex))
		args = append(args, filter.Search)
		argIndex++
	}

	if filter.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM book_categories bc WHERE bc.book_id = b.id AND bc.category_id = $%d)", argIndex))
		args = append(args, filter.CategoryID)
		argIndex++
	}

	if filter.Language != "" {
		conditions = append(conditions, fmt.Sprintf("b.language = $%d", argIndex))
		args = append(args, filter.Language)
		argIndex++
	}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("b.is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	return strings.Join(conditions, " AND "), args
}

// UpdateDraft overwrites the editable fields, guarded on updated_at so a
// stale editor cannot silently clobber a newer save.
func (r *postgresBookRepository) UpdateDraft(ctx context.Context, bookID string, draft *model.BookDraft, expectedUpdatedAt time.Time) (*model.Book, error) {
	query := fmt.Sprintf(`
		UPDATE books
		SET title = $1, isbn = $2, authors = $3, publisher = $4, edition = $5,
		    published_year = $6, language = $7, pages = $8, description = $9,
		    shelf_location = $10, total_copies = $11, status = $12,
		    is_active = $13, updated_at = NOW()
		WHERE id = $14 AND updated_at = $15 AND deleted_at IS NULL
		RETURNING %s
	`, bookColumns)

	book, err := scanBook(r.pool.QueryRow(ctx, query,
		draft.Title, draft.ISBN, pq.Array(draft.Authors), draft.Publisher,
		draft.Edition, draft.PublishedYear, draft.Language, draft.Pages,
		draft.Description, draft.ShelfLocation, draft.TotalCopies,
		draft.Status, draft.IsActive,
		bookID, expectedUpdatedAt,
	))
	if errors.Is(err, model.ErrBookNotFound) {
		// Distinguish a missing row from a concurrent edit.
		if _, getErr := r.GetByID(ctx, bookID); getErr == nil {
			return nil, model.ErrBookConflict
		}
		return nil, model.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	return book, nil
}

func (r *postgresBookRepository) SetCoverURL(ctx context.Context, bookID string, coverURL *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE books SET cover_url = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`,
		coverURL, bookID)
	if err != nil {
		return fmt.Errorf("failed to set cover url: %w", err)
	}
	return nil
}

func (r *postgresBookRepository) SoftDelete(ctx context.Context, bookID string, deletedAt time.Time) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE books SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		deletedAt, bookID)
	if err != nil {
		return fmt.Errorf("failed to soft delete book: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrBookNotFound
	}
	return nil
}

func (r *postgresBookRepository) IncrementViewCount(ctx context.Context, bookID string, delta int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE books SET view_count = view_count + $1 WHERE id = $2`, delta, bookID)
	return err
}

// GenerateUniqueSlug appends a numeric suffix until the slug is free.
func (r *postgresBookRepository) GenerateUniqueSlug(ctx context.Context, baseSlug string) (string, error) {
	slug := baseSlug
	counter := 1

	for {
		var exists bool
		err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM books WHERE slug = $1 AND deleted_at IS NULL)`, slug).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return slug, nil
		}

		counter++
		slug = fmt.Sprintf("%s-%d", baseSlug, counter)

		if counter > 100 {
			return "", fmt.Errorf("failed to generate unique slug after 100 attempts")
		}
	}
}

func (r *postgresBookRepository) CheckISBNExistsExcept(ctx context.Context, isbn, excludeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM books WHERE isbn = $1 AND id != $2 AND deleted_at IS NULL)`,
		isbn, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check ISBN: %w", err)
	}
	return exists, nil
}

func (r *postgresBookRepository) ListMostViewed(ctx context.Context, limit int) ([]model.BookListItem, error) {
	query := `
		SELECT id, title, slug, authors, cover_url, status, available_copies, view_count
		FROM books
		WHERE deleted_at IS NULL AND is_active = true
		ORDER BY view_count DESC, created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("most viewed query failed: %w", err)
	}
	defer rows.Close()

	var items []model.BookListItem
	for rows.Next() {
		var item model.BookListItem
		err := rows.Scan(&item.ID, &item.Title, &item.Slug, pq.Array(&item.Authors),
			&item.CoverURL, &item.Status, &item.AvailableCopies, &item.ViewCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *postgresBookRepository) ListAllForExport(ctx context.Context) ([]model.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE deleted_at IS NULL ORDER BY title ASC`, bookColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("export query failed: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}
