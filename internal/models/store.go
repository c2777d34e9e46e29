package models

import "gorm.io/gorm"

// Location is a point with a human-readable address, stored inline on the
// store row.
type Location struct {
	Address string  `json:"address" validate:"required"`
	Lng     float64 `json:"lng" validate:"min=-180,max=180"`
	Lat     float64 `json:"lat" validate:"min=-90,max=90"`
}

// Store represents a store listing.
type Store struct {
	ID          string   `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string   `json:"name" validate:"required,min=3,max=100"`
	Slug        string   `json:"slug" gorm:"uniqueIndex;type:varchar(120)"`
	Description string   `json:"description" validate:"omitempty,max=500"`
	Tags        []string `json:"tags" gorm:"-" validate:"omitempty,dive,min=1,max=50"`
	Location    Location `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	Photo       string   `json:"photo,omitempty"`
	AuthorID    string   `json:"author_id" gorm:"type:varchar(36);index"`
	gorm.Model  `json:"-"`
}

// StoreTag is one row of the store/tag relation. Tags live in their own table
// so tag counting and tag filtering are plain GROUP BY / JOIN queries.
type StoreTag struct {
	StoreID string `gorm:"primaryKey;type:varchar(36)"`
	Tag     string `gorm:"primaryKey;type:varchar(50)"`
}

// TagCount is one row of the tag listing aggregation.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// TopStore is one row of the top-stores aggregation: a store joined with its
// reviews, kept only when it has enough of them.
type TopStore struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Slug          string  `json:"slug"`
	Photo         string  `json:"photo,omitempty"`
	ReviewCount   int64   `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
}
