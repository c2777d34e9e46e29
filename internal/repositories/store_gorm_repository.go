package repositories

import (
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMStoreRepository is a GORM implementation of StoreRepository.
type GORMStoreRepository struct {
	db *gorm.DB
}

// NewGORMStoreRepository creates a new instance of GORMStoreRepository.
func NewGORMStoreRepository(db *gorm.DB) *GORMStoreRepository {
	return &GORMStoreRepository{
		db: db,
	}
}

// Create inserts the store and its tag rows in one transaction.
func (r *GORMStoreRepository) Create(store *models.Store) error {
	if store.ID == "" {
		store.ID = uuid.New().String()
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(store).Error; err != nil {
			return err
		}
		return replaceTags(tx, store.ID, store.Tags)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to create store: %w", err)
	}
	return nil
}

// Update saves the store and replaces its tag rows in one transaction.
func (r *GORMStoreRepository) Update(store *models.Store) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(store).Error; err != nil {
			return err
		}
		return replaceTags(tx, store.ID, store.Tags)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update store %s: %w", store.ID, err)
	}
	return nil
}

// replaceTags rewrites the store_tags rows for one store.
func replaceTags(tx *gorm.DB, storeID string, tags []string) error {
	if err := tx.Where("store_id = ?", storeID).Delete(&models.StoreTag{}).Error; err != nil {
		return err
	}
	for _, tag := range tags {
		if err := tx.Create(&models.StoreTag{StoreID: storeID, Tag: tag}).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a store by its ID.
func (r *GORMStoreRepository) GetByID(id string) (*models.Store, error) {
	var store models.Store
	if err := r.db.First(&store, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get store by ID %s: %w", id, err)
	}
	if err := r.loadTags(&store); err != nil {
		return nil, err
	}
	return &store, nil
}

// GetBySlug retrieves a store by its slug.
func (r *GORMStoreRepository) GetBySlug(slug string) (*models.Store, error) {
	var store models.Store
	if err := r.db.First(&store, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get store by slug %s: %w", slug, err)
	}
	if err := r.loadTags(&store); err != nil {
		return nil, err
	}
	return &store, nil
}

// List returns one page of stores, newest first, plus the total count.
func (r *GORMStoreRepository) List(offset, limit int) ([]models.Store, int64, error) {
	var count int64
	if err := r.db.Model(&models.Store{}).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count stores: %w", err)
	}

	var stores []models.Store
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&stores).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stores: %w", err)
	}
	if err := r.loadTagsAll(stores); err != nil {
		return nil, 0, err
	}
	return stores, count, nil
}

// ListByTag returns stores carrying the tag; empty tag matches any tag.
func (r *GORMStoreRepository) ListByTag(tag string) ([]models.Store, error) {
	q := r.db.Model(&models.Store{}).
		Joins("JOIN store_tags ON store_tags.store_id = stores.id").
		Distinct("stores.*").
		Order("stores.created_at DESC")
	if tag != "" {
		q = q.Where("store_tags.tag = ?", tag)
	}

	var stores []models.Store
	if err := q.Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to list stores by tag %q: %w", tag, err)
	}
	if err := r.loadTagsAll(stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// ListByIDs returns the stores with the given IDs, newest first.
func (r *GORMStoreRepository) ListByIDs(ids []string) ([]models.Store, error) {
	if len(ids) == 0 {
		return []models.Store{}, nil
	}
	var stores []models.Store
	err := r.db.Where("id IN ?", ids).Order("created_at DESC").Find(&stores).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stores by IDs: %w", err)
	}
	if err := r.loadTagsAll(stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// SlugsLike returns slugs equal to base or prefixed with "base-".
func (r *GORMStoreRepository) SlugsLike(base string) ([]string, error) {
	slugs := []string{}
	err := r.db.Model(&models.Store{}).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Pluck("slug", &slugs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query slugs like %q: %w", base, err)
	}
	return slugs, nil
}

// TagCounts groups the tag rows and counts them, most used first.
func (r *GORMStoreRepository) TagCounts() ([]models.TagCount, error) {
	counts := []models.TagCount{}
	err := r.db.Model(&models.StoreTag{}).
		Select("tag, COUNT(*) AS count").
		Group("tag").
		Order("count DESC, tag ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tag counts: %w", err)
	}
	return counts, nil
}

// TopStores keeps stores with at least minReviews reviews and ranks them by
// average rating. Stores below the threshold are excluded entirely.
func (r *GORMStoreRepository) TopStores(minReviews, limit int) ([]models.TopStore, error) {
	tops := []models.TopStore{}
	err := r.db.Model(&models.Review{}).
		Select("stores.id AS id, stores.name AS name, stores.slug AS slug, stores.photo AS photo, "+
			"COUNT(reviews.id) AS review_count, AVG(reviews.rating) AS average_rating").
		Joins("JOIN stores ON stores.id = reviews.store_id").
		Group("stores.id, stores.name, stores.slug, stores.photo").
		Having("COUNT(reviews.id) >= ?", minReviews).
		Order("average_rating DESC").
		Limit(limit).
		Scan(&tops).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top stores: %w", err)
	}
	return tops, nil
}

// Search matches name and description, ranking name matches higher.
func (r *GORMStoreRepository) Search(query string, limit int) ([]models.Store, error) {
	pattern := "%" + query + "%"
	var stores []models.Store
	err := r.db.Model(&models.Store{}).
		Select("stores.*, (CASE WHEN name LIKE ? THEN 2 ELSE 0 END) + "+
			"(CASE WHEN description LIKE ? THEN 1 ELSE 0 END) AS score", pattern, pattern).
		Where("name LIKE ? OR description LIKE ?", pattern, pattern).
		Order("score DESC").
		Limit(limit).
		Find(&stores).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search stores for %q: %w", query, err)
	}
	if err := r.loadTagsAll(stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// Near orders stores by squared planar distance from the given point. Good
// enough at city scale; there is no maximum distance.
func (r *GORMStoreRepository) Near(lng, lat float64, limit int) ([]models.Store, error) {
	var stores []models.Store
	err := r.db.Model(&models.Store{}).
		Select("stores.*, ((location_lng - ?) * (location_lng - ?) + "+
			"(location_lat - ?) * (location_lat - ?)) AS distance", lng, lng, lat, lat).
		Order("distance ASC").
		Limit(limit).
		Find(&stores).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stores near (%f, %f): %w", lng, lat, err)
	}
	if err := r.loadTagsAll(stores); err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *GORMStoreRepository) loadTags(store *models.Store) error {
	tags := []string{}
	err := r.db.Model(&models.StoreTag{}).
		Where("store_id = ?", store.ID).
		Order("tag").
		Pluck("tag", &tags).Error
	if err != nil {
		return fmt.Errorf("failed to load tags for store %s: %w", store.ID, err)
	}
	store.Tags = tags
	return nil
}

func (r *GORMStoreRepository) loadTagsAll(stores []models.Store) error {
	for i := range stores {
		if err := r.loadTags(&stores[i]); err != nil {
			return err
		}
	}
	return nil
}
