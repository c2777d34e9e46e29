package models

import "gorm.io/gorm"

// Review is a rating left by a user on a store.
type Review struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	StoreID    string `json:"store_id" gorm:"type:varchar(36);index" validate:"required"`
	AuthorID   string `json:"author_id" gorm:"type:varchar(36);index"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Text       string `json:"text" validate:"omitempty,max=1000"`
	gorm.Model `json:"-"`
}
