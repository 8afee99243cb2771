package category

import (
	"context"
	"time"

	"github.com/google/uuid"

	"physlib-backend/internal/shared/utils"
	"physlib-backend/pkg/cache"
	"physlib-backend/pkg/logger"
)

const (
	listCacheKey = "categories:list"
	listCacheTTL = 15 * time.Minute
)

type Service struct {
	repo  Repository
	cache cache.Cache
}

func NewService(repo Repository, cacheClient cache.Cache) *Service {
	return &Service{repo: repo, cache: cacheClient}
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	var cached []Category
	if found, err := s.cache.Get(ctx, listCacheKey, &cached); err == nil && found {
		return cached, nil
	}

	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, listCacheKey, categories, listCacheTTL); err != nil {
		logger.Warn("category list cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return categories, nil
}

func (s *Service) Create(ctx context.Context, req *CategoryRequest) (*Category, error) {
	exists, err := s.repo.NameExists(ctx, req.Name, uuid.Nil.String())
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrNameExists
	}

	now := time.Now()
	c := &Category{
		ID:          uuid.New(),
		Name:        req.Name,
		Slug:        utils.GenerateSlug(req.Name),
		Description: req.Description,
		SortOrder:   req.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, req *CategoryRequest) (*Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.NameExists(ctx, req.Name, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrNameExists
	}

	c.Name = req.Name
	c.Slug = utils.GenerateSlug(req.Name)
	c.Description = req.Description
	c.SortOrder = req.SortOrder

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ValidateIDs confirms that every referenced category exists. Used by
// the book create/save flows before writing links.
func (s *Service) ValidateIDs(ctx context.Context, ids []string) error {
	ok, err := s.repo.ExistAll(ctx, ids)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, listCacheKey); err != nil {
		logger.Warn("category cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}
