package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"physlib-backend/internal/domains/book/model"
)

type bookImageRepository struct {
	pool *pgxpool.Pool
}

func NewBookImageRepository(pool *pgxpool.Pool) BookImageRepository {
	return &bookImageRepository{pool: pool}
}

const imageColumns = `
	id, book_id, storage_path, original_url, medium_url, thumbnail_url,
	display_order, is_cover, alt_text, status, error_message, file_size,
	created_at, updated_at`

func scanImage(row pgx.Row) (*model.BookImage, error) {
	img := &model.BookImage{}
	err := row.Scan(
		&img.ID, &img.BookID, &img.StoragePath, &img.OriginalURL,
		&img.MediumURL, &img.ThumbnailURL, &img.DisplayOrder, &img.IsCover,
		&img.AltText, &img.Status, &img.ErrorMessage, &img.FileSize,
		&img.CreatedAt, &img.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}
	return img, nil
}

// CreateBatch inserts all image rows in one statement.
func (r *bookImageRepository) CreateBatch(ctx context.Context, images []*model.BookImage) error {
	if len(images) == 0 {
		return nil
	}

	query := `
		INSERT INTO book_images (
			id, book_id, storage_path, original_url, display_order,
			is_cover, alt_text, status, file_size, created_at, updated_at
		) VALUES
	`

	values := make([]interface{}, 0, len(images)*11)
	placeholders := make([]string, 0, len(images))

	now := time.Now()
	for i, img := range images {
		img.CreatedAt = now
		img.UpdatedAt = now

		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			i*11+1, i*11+2, i*11+3, i*11+4, i*11+5,
			i*11+6, i*11+7, i*11+8, i*11+9, i*11+10, i*11+11,
		))

		values = append(values,
			img.ID, img.BookID, img.StoragePath, img.OriginalURL,
			img.DisplayOrder, img.IsCover, img.AltText, img.Status,
			img.FileSize, img.CreatedAt, img.UpdatedAt,
		)
	}

	query += strings.Join(placeholders, ", ")

	_, err := r.pool.Exec(ctx, query, values...)
	if err != nil {
		return fmt.Errorf("failed to batch create book_images: %w", err)
	}
	return nil
}

func (r *bookImageRepository) GetByID(ctx context.Context, id string) (*model.BookImage, error) {
	query := fmt.Sprintf(`SELECT %s FROM book_images WHERE id = $1`, imageColumns)
	return scanImage(r.pool.QueryRow(ctx, query, id))
}

func (r *bookImageRepository) GetByBookID(ctx context.Context, bookID string) ([]*model.BookImage, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM book_images
		WHERE book_id = $1
		ORDER BY display_order ASC
	`, imageColumns)

	rows, err := r.pool.Query(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var images []*model.BookImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// MaxDisplayOrder returns the highest display_order of the book's images,
// or -1 when the book has none. New images continue from this value.
func (r *bookImageRepository) MaxDisplayOrder(ctx context.Context, bookID string) (int, error) {
	var max int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(display_order), -1) FROM book_images WHERE book_id = $1`,
		bookID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max display order: %w", err)
	}
	return max, nil
}

func (r *bookImageRepository) UnsetAllCovers(ctx context.Context, bookID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE book_images SET is_cover = false, updated_at = NOW() WHERE book_id = $1 AND is_cover = true`,
		bookID)
	if err != nil {
		return fmt.Errorf("failed to unset covers: %w", err)
	}
	return nil
}

func (r *bookImageRepository) SetCover(ctx context.Context, imageID string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE book_images SET is_cover = true, updated_at = NOW() WHERE id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("failed to set cover: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrImageNotFound
	}
	return nil
}

func (r *bookImageRepository) UpdateAltText(ctx context.Context, imageID string, altText *string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE book_images SET alt_text = $1, updated_at = NOW() WHERE id = $2`, altText, imageID)
	if err != nil {
		return fmt.Errorf("failed to update alt text: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrImageNotFound
	}
	return nil
}

// UpdateVariants stores the derived URLs after the worker processed them.
func (r *bookImageRepository) UpdateVariants(ctx context.Context, imageID string, medium, thumbnail string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE book_images
		SET medium_url = $1, thumbnail_url = $2, status = $3, updated_at = NOW()
		WHERE id = $4
	`, medium, thumbnail, model.ImageStatusReady, imageID)
	if err != nil {
		return fmt.Errorf("failed to update variants: %w", err)
	}
	return nil
}

func (r *bookImageRepository) UpdateStatus(ctx context.Context, imageID, status, errorMsg string) error {
	var errMsgPtr *string
	if errorMsg != "" {
		errMsgPtr = &errorMsg
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE book_images
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
	`, status, errMsgPtr, imageID)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

func (r *bookImageRepository) Delete(ctx context.Context, imageID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM book_images WHERE id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func (r *bookImageRepository) DeleteByBookID(ctx context.Context, bookID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM book_images WHERE book_id = $1`, bookID)
	if err != nil {
		return fmt.Errorf("failed to delete images: %w", err)
	}
	return nil
}
