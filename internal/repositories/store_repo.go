package repositories

import (
	"storefront/internal/models"
)

// StoreRepository defines the interface for store data access, including the
// aggregation queries the listing pages are built on.
type StoreRepository interface {
	Create(store *models.Store) error
	Update(store *models.Store) error
	GetByID(id string) (*models.Store, error)
	GetBySlug(slug string) (*models.Store, error)

	// List returns one page of stores, newest first, plus the total count.
	List(offset, limit int) ([]models.Store, int64, error)

	// ListByTag returns stores carrying the given tag. An empty tag means
	// "any tag": every store that has at least one.
	ListByTag(tag string) ([]models.Store, error)

	ListByIDs(ids []string) ([]models.Store, error)

	// SlugsLike returns existing slugs equal to base or starting with
	// "base-", the candidate set for unique-slug derivation.
	SlugsLike(base string) ([]string, error)

	// TagCounts groups stores by tag and counts occurrences, largest first.
	TagCounts() ([]models.TagCount, error)

	// TopStores joins stores with their reviews, keeps those with at least
	// minReviews of them, and returns up to limit ordered by descending
	// average rating.
	TopStores(minReviews, limit int) ([]models.TopStore, error)

	// Search matches the query against name and description, name hits
	// ranking above description hits, capped at limit.
	Search(query string, limit int) ([]models.Store, error)

	// Near returns up to limit stores ordered by proximity to (lng, lat).
	Near(lng, lat float64, limit int) ([]models.Store, error)
}
