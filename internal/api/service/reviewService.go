package service

import (
	"context"
	"errors"

	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
)

var (
	ErrInvalidScore    = errors.New("score must be between 1 and 10")
	ErrDuplicateReview = errors.New("only one review per title per author")
)

type ReviewService interface {
	ListByTitle(ctx context.Context, titleID int64, page, pageSize int) ([]models.Review, int64, error)
	GetByID(ctx context.Context, titleID, id int64) (*models.Review, error)
	Create(ctx context.Context, titleID int64, authorID string, in dto.CreateReviewDTO) (*models.Review, error)
	Update(ctx context.Context, review *models.Review, in dto.UpdateReviewDTO) (*models.Review, error)
	Delete(ctx context.Context, id int64) error
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	titleRepo  repository.TitleRepository
}

func NewReviewService(reviewRepo repository.ReviewRepository, titleRepo repository.TitleRepository) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		titleRepo:  titleRepo,
	}
}

func (s *reviewService) ListByTitle(ctx context.Context, titleID int64, page, pageSize int) ([]models.Review, int64, error) {
	if _, err := s.titleRepo.GetByID(ctx, titleID); err != nil {
		return nil, 0, err
	}
	return s.reviewRepo.ListByTitle(ctx, titleID, page, pageSize)
}

func (s *reviewService) GetByID(ctx context.Context, titleID, id int64) (*models.Review, error) {
	return s.reviewRepo.GetByID(ctx, titleID, id)
}

// Create appends to the ledger. Score range is validated before the
// uniqueness constraint gets a say; the duplicate itself is detected by the
// database on insert, never by a pre-check.
func (s *reviewService) Create(ctx context.Context, titleID int64, authorID string, in dto.CreateReviewDTO) (*models.Review, error) {
	if err := validateScore(in.Score); err != nil {
		return nil, err
	}
	if _, err := s.titleRepo.GetByID(ctx, titleID); err != nil {
		return nil, err
	}

	review := models.Review{
		Text:     in.Text,
		AuthorID: authorID,
		TitleID:  titleID,
		Score:    in.Score,
	}
	if err := s.reviewRepo.Create(ctx, &review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateReview
		}
		return nil, err
	}

	// Reload so the author association is populated for the response.
	return s.reviewRepo.GetByID(ctx, titleID, review.ID)
}

// Update changes text and/or score. Authorship, title and pub_date are fixed
// at creation and are not writable through any path.
func (s *reviewService) Update(ctx context.Context, review *models.Review, in dto.UpdateReviewDTO) (*models.Review, error) {
	if in.Score != nil {
		if err := validateScore(in.Score); err != nil {
			return nil, err
		}
		review.Score = in.Score
	}
	if in.Text != nil {
		review.Text = *in.Text
	}

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, err
	}
	return s.reviewRepo.GetByID(ctx, review.TitleID, review.ID)
}

func (s *reviewService) Delete(ctx context.Context, id int64) error {
	return s.reviewRepo.Delete(ctx, id)
}

func validateScore(score *int) error {
	if score == nil {
		return nil
	}
	if *score < 1 || *score > 10 {
		return ErrInvalidScore
	}
	return nil
}
