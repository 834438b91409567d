package repository

import (
	"context"

	"reviewhub/internal/api/models"

	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, titleID, id int64) (*models.Review, error)
	ListByTitle(ctx context.Context, titleID int64, page, pageSize int) ([]models.Review, int64, error)
	AllByTitle(ctx context.Context, titleID int64) ([]models.Review, error)
	AverageScoreByTitle(ctx context.Context, titleIDs []int64) (map[int64]float64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create inserts the review. A second review by the same author for the same
// title violates idx_reviews_author_title and comes back as ErrDuplicate;
// there is deliberately no find-then-insert here.
func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	return translate(r.db.WithContext(ctx).Create(review).Error)
}

// Update touches text and score only; pub_date and the author/title pair are
// fixed at creation.
func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).Model(review).
		Select("text", "score").
		Updates(map[string]interface{}{"text": review.Text, "score": review.Score}).Error
	return translate(err)
}

func (r *reviewRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.Review{}, id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, titleID, id int64) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("title_id = ?", titleID).
		First(&review, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &review, nil
}

func (r *reviewRepository) ListByTitle(ctx context.Context, titleID int64, page, pageSize int) ([]models.Review, int64, error) {
	var reviews []models.Review
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Review{}).Where("title_id = ?", titleID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	offset := (page - 1) * pageSize
	err := q.Preload("Author").
		Order("id").
		Limit(pageSize).
		Offset(offset).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return reviews, total, nil
}

// AllByTitle loads the full (bounded) review set for one title, for the
// read-time rating computation.
func (r *reviewRepository) AllByTitle(ctx context.Context, titleID int64) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).Where("title_id = ?", titleID).Find(&reviews).Error
	if err != nil {
		return nil, translate(err)
	}
	return reviews, nil
}

// AverageScoreByTitle recomputes the mean score per title in one grouped
// query. Unscored reviews are excluded; titles with no scored review are
// absent from the map, which callers render as a null rating, never 0.
func (r *reviewRepository) AverageScoreByTitle(ctx context.Context, titleIDs []int64) (map[int64]float64, error) {
	averages := make(map[int64]float64, len(titleIDs))
	if len(titleIDs) == 0 {
		return averages, nil
	}

	var rows []struct {
		TitleID int64
		Rating  float64
	}
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("title_id, AVG(score) AS rating").
		Where("title_id IN ? AND score IS NOT NULL", titleIDs).
		Group("title_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	for _, row := range rows {
		averages[row.TitleID] = row.Rating
	}
	return averages, nil
}
