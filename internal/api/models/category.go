package models

// Category is admin-managed reference data. Titles belong to exactly one category.
type Category struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"size:64;not null"`
	Slug string `json:"slug" gorm:"uniqueIndex;size:64;not null"`
}

func (Category) TableName() string {
	return "categories"
}
