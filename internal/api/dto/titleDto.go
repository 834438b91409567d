package dto

import "reviewhub/internal/api/models"

// TitleResponse carries the derived rating: a pointer so an unrated title
// renders as "rating": null, never 0.
type TitleResponse struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Year        int              `json:"year"`
	Rating      *float64         `json:"rating"`
	Description string           `json:"description"`
	Genres      []GenreResponse  `json:"genre"`
	Category    CategoryResponse `json:"category"`
}

func TitleFromModel(t models.Title, rating *float64) TitleResponse {
	genres := make([]GenreResponse, 0, len(t.Genres))
	for _, g := range t.Genres {
		genres = append(genres, GenreFromModel(g))
	}
	return TitleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      rating,
		Description: t.Description,
		Genres:      genres,
		Category:    CategoryFromModel(t.Category),
	}
}

// CreateTitleDTO references category and genres by slug, the way the admin
// surface and the bulk importer address reference data.
type CreateTitleDTO struct {
	Name        string   `json:"name" binding:"required,max=256"`
	Year        int      `json:"year" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category" binding:"required,slug"`
	Genres      []string `json:"genre" binding:"omitempty,dive,slug"`
}

// UpdateTitleDTO: partial update; nil fields are left untouched.
type UpdateTitleDTO struct {
	Name        *string   `json:"name" binding:"omitempty,max=256"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Category    *string   `json:"category" binding:"omitempty,slug"`
	Genres      *[]string `json:"genre" binding:"omitempty,dive,slug"`
}

func (d UpdateTitleDTO) ApplyTo(t *models.Title) {
	if d.Name != nil {
		t.Name = *d.Name
	}
	if d.Year != nil {
		t.Year = *d.Year
	}
	if d.Description != nil {
		t.Description = *d.Description
	}
}
