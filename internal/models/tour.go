package models

import "time"

type Tour struct {
	ID           string    `yaml:"id" json:"id"`
	Title        string    `yaml:"title" json:"title"`
	Description  string    `yaml:"description" json:"description"`
	Location     string    `yaml:"location" json:"location"`
	DurationDays int       `yaml:"duration_days" json:"durationDays"`
	Price        float64   `yaml:"price" json:"price"`
	CreatedAt    time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updatedAt"`
}

func (t *Tour) Summary() *TourSummary {
	return &TourSummary{
		ID:          t.ID,
		Title:       t.Title,
		Price:       t.Price,
		Description: t.Description,
	}
}
