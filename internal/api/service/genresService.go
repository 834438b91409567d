package service

import (
	"context"

	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
)

type GenreService interface {
	List(ctx context.Context, search string, page, pageSize int) ([]models.Genre, int64, error)
	Create(ctx context.Context, genre *models.Genre) error
	DeleteBySlug(ctx context.Context, slug string) error
}

type genreService struct {
	genreRepo repository.GenreRepository
}

func NewGenreService(genreRepo repository.GenreRepository) GenreService {
	return &genreService{genreRepo: genreRepo}
}

func (s *genreService) List(ctx context.Context, search string, page, pageSize int) ([]models.Genre, int64, error) {
	return s.genreRepo.List(ctx, search, page, pageSize)
}

func (s *genreService) Create(ctx context.Context, genre *models.Genre) error {
	return s.genreRepo.Create(ctx, genre)
}

func (s *genreService) DeleteBySlug(ctx context.Context, slug string) error {
	return s.genreRepo.DeleteBySlug(ctx, slug)
}
