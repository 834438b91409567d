package service

import (
	"context"

	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
)

type CommentService interface {
	ListByReview(ctx context.Context, titleID, reviewID int64, page, pageSize int) ([]models.Comment, int64, error)
	GetByID(ctx context.Context, titleID, reviewID, id int64) (*models.Comment, error)
	Create(ctx context.Context, titleID, reviewID int64, authorID, text string) (*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment, text string) (*models.Comment, error)
	Delete(ctx context.Context, id int64) error
}

type commentService struct {
	commentRepo repository.CommentRepository
	reviewRepo  repository.ReviewRepository
}

func NewCommentService(commentRepo repository.CommentRepository, reviewRepo repository.ReviewRepository) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		reviewRepo:  reviewRepo,
	}
}

func (s *commentService) ListByReview(ctx context.Context, titleID, reviewID int64, page, pageSize int) ([]models.Comment, int64, error) {
	if _, err := s.reviewRepo.GetByID(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	return s.commentRepo.ListByReview(ctx, reviewID, page, pageSize)
}

func (s *commentService) GetByID(ctx context.Context, titleID, reviewID, id int64) (*models.Comment, error) {
	if _, err := s.reviewRepo.GetByID(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, reviewID, id)
}

// Create attaches a comment to an existing review; a missing review is the
// only constraint.
func (s *commentService) Create(ctx context.Context, titleID, reviewID int64, authorID, text string) (*models.Comment, error) {
	if _, err := s.reviewRepo.GetByID(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	comment := models.Comment{
		Text:     text,
		AuthorID: authorID,
		ReviewID: reviewID,
	}
	if err := s.commentRepo.Create(ctx, &comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, reviewID, comment.ID)
}

func (s *commentService) Update(ctx context.Context, comment *models.Comment, text string) (*models.Comment, error) {
	comment.Text = text
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ReviewID, comment.ID)
}

func (s *commentService) Delete(ctx context.Context, id int64) error {
	return s.commentRepo.Delete(ctx, id)
}
