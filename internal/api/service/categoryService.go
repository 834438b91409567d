package service

import (
	"context"

	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
)

type CategoryService interface {
	List(ctx context.Context, search string, page, pageSize int) ([]models.Category, int64, error)
	Create(ctx context.Context, category *models.Category) error
	DeleteBySlug(ctx context.Context, slug string) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

func (s *categoryService) List(ctx context.Context, search string, page, pageSize int) ([]models.Category, int64, error) {
	return s.categoryRepo.List(ctx, search, page, pageSize)
}

func (s *categoryService) Create(ctx context.Context, category *models.Category) error {
	return s.categoryRepo.Create(ctx, category)
}

// DeleteBySlug removes the category; its titles (and their reviews and
// comments) go with it through the cascade constraints.
func (s *categoryService) DeleteBySlug(ctx context.Context, slug string) error {
	return s.categoryRepo.DeleteBySlug(ctx, slug)
}
