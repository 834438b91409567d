package dto

import "reviewhub/internal/api/models"

type CategoryResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func CategoryFromModel(c models.Category) CategoryResponse {
	return CategoryResponse{Name: c.Name, Slug: c.Slug}
}

// CreateCategoryDTO: admin-side reference-data creation
type CreateCategoryDTO struct {
	Name string `json:"name" binding:"required,max=64"`
	Slug string `json:"slug" binding:"required,max=64,slug"`
}

func (d CreateCategoryDTO) ToModel() models.Category {
	return models.Category{Name: d.Name, Slug: d.Slug}
}
