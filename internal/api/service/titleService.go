package service

import (
	"context"
	"errors"
	"time"

	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/rating"
	"reviewhub/internal/api/repository"
)

var (
	ErrInvalidYear     = errors.New("year must be greater than 0 and not in the future")
	ErrUnknownCategory = errors.New("unknown category slug")
	ErrUnknownGenre    = errors.New("unknown genre slug")
)

// TitleWithRating pairs a catalog row with its read-time aggregate. Rating is
// nil when no scored review exists.
type TitleWithRating struct {
	models.Title
	Rating *float64
}

type TitleService interface {
	List(ctx context.Context, filter repository.TitleFilter, page, pageSize int) ([]TitleWithRating, int64, error)
	GetByID(ctx context.Context, id int64) (*TitleWithRating, error)
	Create(ctx context.Context, in dto.CreateTitleDTO) (*TitleWithRating, error)
	Update(ctx context.Context, id int64, in dto.UpdateTitleDTO) (*TitleWithRating, error)
	Delete(ctx context.Context, id int64) error
}

type titleService struct {
	titleRepo    repository.TitleRepository
	categoryRepo repository.CategoryRepository
	genreRepo    repository.GenreRepository
	reviewRepo   repository.ReviewRepository
}

func NewTitleService(
	titleRepo repository.TitleRepository,
	categoryRepo repository.CategoryRepository,
	genreRepo repository.GenreRepository,
	reviewRepo repository.ReviewRepository,
) TitleService {
	return &titleService{
		titleRepo:    titleRepo,
		categoryRepo: categoryRepo,
		genreRepo:    genreRepo,
		reviewRepo:   reviewRepo,
	}
}

func (s *titleService) List(ctx context.Context, filter repository.TitleFilter, page, pageSize int) ([]TitleWithRating, int64, error) {
	titles, total, err := s.titleRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int64, 0, len(titles))
	for _, t := range titles {
		ids = append(ids, t.ID)
	}
	averages, err := s.reviewRepo.AverageScoreByTitle(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	annotated := make([]TitleWithRating, 0, len(titles))
	for _, t := range titles {
		entry := TitleWithRating{Title: t}
		if avg, ok := averages[t.ID]; ok {
			value := avg
			entry.Rating = &value
		}
		annotated = append(annotated, entry)
	}
	return annotated, total, nil
}

func (s *titleService) GetByID(ctx context.Context, id int64) (*TitleWithRating, error) {
	title, err := s.titleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.AllByTitle(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TitleWithRating{
		Title:  *title,
		Rating: rating.Average(reviews),
	}, nil
}

func (s *titleService) Create(ctx context.Context, in dto.CreateTitleDTO) (*TitleWithRating, error) {
	if err := validateYear(in.Year); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.FindBySlug(ctx, in.Category)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownCategory
		}
		return nil, err
	}
	genres, err := s.resolveGenres(ctx, in.Genres)
	if err != nil {
		return nil, err
	}

	title := models.Title{
		Name:        in.Name,
		Year:        in.Year,
		Description: in.Description,
		CategoryID:  category.ID,
		Genres:      genres,
	}
	if err := s.titleRepo.Create(ctx, &title); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, title.ID)
}

func (s *titleService) Update(ctx context.Context, id int64, in dto.UpdateTitleDTO) (*TitleWithRating, error) {
	title, err := s.titleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	in.ApplyTo(title)
	if err := validateYear(title.Year); err != nil {
		return nil, err
	}

	if in.Category != nil {
		category, err := s.categoryRepo.FindBySlug(ctx, *in.Category)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUnknownCategory
			}
			return nil, err
		}
		title.CategoryID = category.ID
		title.Category = *category
	}

	if err := s.titleRepo.Update(ctx, title); err != nil {
		return nil, err
	}

	if in.Genres != nil {
		genres, err := s.resolveGenres(ctx, *in.Genres)
		if err != nil {
			return nil, err
		}
		if err := s.titleRepo.ReplaceGenres(ctx, title, genres); err != nil {
			return nil, err
		}
	}

	return s.GetByID(ctx, id)
}

func (s *titleService) Delete(ctx context.Context, id int64) error {
	return s.titleRepo.Delete(ctx, id)
}

func (s *titleService) resolveGenres(ctx context.Context, slugs []string) ([]models.Genre, error) {
	// The lookup returns one row per distinct slug, so the cardinality check
	// must run against the deduplicated input.
	seen := make(map[string]struct{}, len(slugs))
	uniq := slugs[:0:0]
	for _, slug := range slugs {
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		uniq = append(uniq, slug)
	}

	genres, err := s.genreRepo.FindBySlugs(ctx, uniq)
	if err != nil {
		return nil, err
	}
	if len(genres) != len(uniq) {
		return nil, ErrUnknownGenre
	}
	return genres, nil
}

func validateYear(year int) error {
	if year <= 0 || year > time.Now().Year() {
		return ErrInvalidYear
	}
	return nil
}
