package stats

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"physlib-backend/internal/shared/response"
)

// Overview is the admin dashboard headline numbers.
type Overview struct {
	TotalBooks      int `json:"total_books"`
	TotalUsers      int `json:"total_users"`
	PendingRequests int `json:"pending_requests"`
	ActiveLoans     int `json:"active_loans"`
	TotalHearts     int `json:"total_hearts"`
}

type Repository interface {
	Overview(ctx context.Context) (*Overview, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (p *postgresRepository) Overview(ctx context.Context) (*Overview, error) {
	query := `SELECT
		(SELECT COUNT(*) FROM books WHERE deleted_at IS NULL),
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM borrow_requests WHERE status = 'pending'),
		(SELECT COUNT(*) FROM borrow_requests WHERE status = 'approved'),
		(SELECT COUNT(*) FROM book_hearts)`

	var o Overview
	err := p.pool.QueryRow(ctx, query).Scan(
		&o.TotalBooks, &o.TotalUsers, &o.PendingRequests, &o.ActiveLoans, &o.TotalHearts)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats overview: %w", err)
	}
	return &o, nil
}

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Overview - GET /v1/admin/stats
func (h *Handler) Overview(c *gin.Context) {
	overview, err := h.repo.Overview(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, "Internal server error")
		return
	}
	response.Success(c, http.StatusOK, overview)
}
