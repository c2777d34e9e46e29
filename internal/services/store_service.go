package services

import (
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
)

const (
	// PageSize is the fixed page size of the store listing.
	PageSize = 4

	// SearchLimit caps full-text search results.
	SearchLimit = 5

	// NearLimit caps geo search results.
	NearLimit = 10

	// TopLimit caps the top-stores ranking.
	TopLimit = 10

	// TopMinReviews is the minimum-sample threshold: stores with fewer
	// reviews are excluded from the ranking entirely.
	TopMinReviews = 2

	// maxSlugRetries bounds recomputation when concurrent saves race for
	// the same slug and hit the unique index.
	maxSlugRetries = 3
)

var (
	// ErrNotOwner is returned when a user tries to mutate a store they do
	// not own.
	ErrNotOwner = errors.New("you must own a store in order to edit it")

	// ErrPageOutOfRange is returned by ListStores when the requested page
	// is past the last one; the accompanying Pagination still carries the
	// last valid page and the total count.
	ErrPageOutOfRange = errors.New("page is out of range")
)

// Pagination describes one page of the store listing.
type Pagination struct {
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Count int64 `json:"count"`
}

// StoreService handles business logic for stores, tags, hearts, and reviews.
type StoreService struct {
	storeRepo  repositories.StoreRepository
	reviewRepo repositories.ReviewRepository
	userRepo   repositories.UserRepository
}

// NewStoreService creates a new StoreService.
func NewStoreService(storeRepo repositories.StoreRepository, reviewRepo repositories.ReviewRepository, userRepo repositories.UserRepository) *StoreService {
	return &StoreService{
		storeRepo:  storeRepo,
		reviewRepo: reviewRepo,
		userRepo:   userRepo,
	}
}

// CreateStore derives a unique slug for the store, sets its author, and
// saves it.
func (s *StoreService) CreateStore(store *models.Store, authorID string) error {
	store.AuthorID = authorID
	if store.ID == "" {
		store.ID = uuid.New().String()
	}
	return s.saveWithSlug(store, s.storeRepo.Create)
}

// UpdateStore applies the submitted fields to the store. Only the owner may
// update; the slug is recomputed only when the name changed.
func (s *StoreService) UpdateStore(id string, input *models.Store, userID string) (*models.Store, error) {
	store, err := s.storeRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if store.AuthorID != userID {
		return nil, ErrNotOwner
	}

	nameChanged := store.Name != input.Name
	store.Name = input.Name
	store.Description = input.Description
	store.Tags = input.Tags
	store.Location = input.Location

	if !nameChanged {
		if err := s.storeRepo.Update(store); err != nil {
			return nil, err
		}
		return store, nil
	}
	if err := s.saveWithSlug(store, s.storeRepo.Update); err != nil {
		return nil, err
	}
	return store, nil
}

// saveWithSlug derives the slug from the store name and saves. The slug
// column has a unique index; when a concurrent save takes the candidate
// first, the suffix is recomputed and the save retried.
func (s *StoreService) saveWithSlug(store *models.Store, save func(*models.Store) error) error {
	base := Slugify(store.Name)
	for attempt := 0; attempt < maxSlugRetries; attempt++ {
		existing, err := s.storeRepo.SlugsLike(base)
		if err != nil {
			return err
		}
		store.Slug = UniqueSlug(base, existing)

		err = save(store)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repositories.ErrDuplicateSlug) {
			return err
		}
	}
	return fmt.Errorf("failed to derive a unique slug for %q", store.Name)
}

// GetStoreByID retrieves a single store by its ID.
func (s *StoreService) GetStoreByID(id string) (*models.Store, error) {
	return s.storeRepo.GetByID(id)
}

// GetStoreBySlug retrieves a store together with its author and reviews.
func (s *StoreService) GetStoreBySlug(slug string) (*models.Store, *models.User, []models.Review, error) {
	store, err := s.storeRepo.GetBySlug(slug)
	if err != nil {
		return nil, nil, nil, err
	}
	author, err := s.userRepo.GetByID(store.AuthorID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, nil, err
	}
	reviews, err := s.reviewRepo.ListByStore(store.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, author, reviews, nil
}

// ListStores returns one page of stores. Requesting a page past the end
// returns ErrPageOutOfRange together with a Pagination pointing at the last
// valid page, so the handler can redirect there.
func (s *StoreService) ListStores(page int) ([]models.Store, Pagination, error) {
	if page < 1 {
		page = 1
	}
	skip := (page - 1) * PageSize

	stores, count, err := s.storeRepo.List(skip, PageSize)
	if err != nil {
		return nil, Pagination{}, err
	}

	pages := int((count + PageSize - 1) / PageSize)
	p := Pagination{Page: page, Pages: pages, Count: count}
	if len(stores) == 0 && skip > 0 && count > 0 {
		p.Page = pages
		return nil, p, ErrPageOutOfRange
	}
	return stores, p, nil
}

// GetStoresByTag returns the tag listing plus the stores carrying the given
// tag. An empty tag means every store that has at least one tag.
func (s *StoreService) GetStoresByTag(tag string) ([]models.TagCount, []models.Store, error) {
	tags, err := s.storeRepo.TagCounts()
	if err != nil {
		return nil, nil, err
	}
	stores, err := s.storeRepo.ListByTag(tag)
	if err != nil {
		return nil, nil, err
	}
	return tags, stores, nil
}

// SearchStores runs a text search over store names and descriptions.
func (s *StoreService) SearchStores(query string) ([]models.Store, error) {
	return s.storeRepo.Search(query, SearchLimit)
}

// NearbyStores returns the stores closest to the given point.
func (s *StoreService) NearbyStores(lng, lat float64) ([]models.Store, error) {
	return s.storeRepo.Near(lng, lat, NearLimit)
}

// TopStores returns the highest-rated stores with enough reviews.
func (s *StoreService) TopStores() ([]models.TopStore, error) {
	return s.storeRepo.TopStores(TopMinReviews, TopLimit)
}

// ToggleHeart flips the store's membership in the user's favorites and
// returns the updated set. Toggling twice restores the original set.
func (s *StoreService) ToggleHeart(userID, storeID string) ([]string, error) {
	if _, err := s.storeRepo.GetByID(storeID); err != nil {
		return nil, err
	}
	return s.userRepo.ToggleHeart(userID, storeID)
}

// HeartedStores returns the stores the user has favorited.
func (s *StoreService) HeartedStores(userID string) ([]models.Store, error) {
	ids, err := s.userRepo.GetHearts(userID)
	if err != nil {
		return nil, err
	}
	return s.storeRepo.ListByIDs(ids)
}

// AddReview records a review by the given user on a store.
func (s *StoreService) AddReview(review *models.Review, authorID string) error {
	if _, err := s.storeRepo.GetByID(review.StoreID); err != nil {
		return err
	}
	review.AuthorID = authorID
	return s.reviewRepo.Create(review)
}

// SetPhoto stores the processed photo filename on the store. Only the owner
// may change it.
func (s *StoreService) SetPhoto(storeID, userID, filename string) (*models.Store, error) {
	store, err := s.storeRepo.GetByID(storeID)
	if err != nil {
		return nil, err
	}
	if store.AuthorID != userID {
		return nil, ErrNotOwner
	}
	store.Photo = filename
	if err := s.storeRepo.Update(store); err != nil {
		return nil, err
	}
	return store, nil
}
