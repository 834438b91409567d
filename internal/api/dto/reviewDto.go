package dto

import (
	"time"

	"reviewhub/internal/api/models"
)

type ReviewResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   *int      `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

func ReviewFromModel(r models.Review) ReviewResponse {
	return ReviewResponse{
		ID:      r.ID,
		Text:    r.Text,
		Author:  r.Author.Username,
		Score:   r.Score,
		PubDate: r.PubDate,
	}
}

// CreateReviewDTO: score is optional; its 1..10 range is a service-level rule
// so the ledger can answer with its own error, not a binding message.
type CreateReviewDTO struct {
	Text  string `json:"text" binding:"required"`
	Score *int   `json:"score"`
}

// UpdateReviewDTO: partial update of text and/or score; pub_date and
// authorship never change.
type UpdateReviewDTO struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

type PaginatedReviewResponse struct {
	Data       []ReviewResponse `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

type PaginatedCommentResponse struct {
	Data       []CommentResponse `json:"data"`
	Pagination Pagination        `json:"pagination"`
}
