package handlers

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/images"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// StoreHandler handles HTTP requests for stores, tags, search, hearts, and
// reviews.
type StoreHandler struct {
	service   *services.StoreService
	validate  *validator.Validate
	uploadDir string
}

// NewStoreHandler creates a new StoreHandler. uploadDir is where processed
// photos are written.
func NewStoreHandler(service *services.StoreService, uploadDir string) *StoreHandler {
	return &StoreHandler{
		service:   service,
		validate:  validator.New(),
		uploadDir: uploadDir,
	}
}

// RegisterRoutes registers the public store routes.
func (h *StoreHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/stores", h.HandleGetStores)
	router.Get("/store/:slug", h.HandleGetStoreBySlug)
	router.Get("/tags", h.HandleGetTags)
	router.Get("/tags/:tag", h.HandleGetTags)
	router.Get("/top", h.HandleTopStores)
	router.Get("/api/search", h.HandleSearch)
	router.Get("/api/stores/near", h.HandleNearby)
}

// RegisterProtectedRoutes registers the store routes that require a session.
func (h *StoreHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Post("/stores", h.HandleCreateStore)
	router.Put("/stores/:id", h.HandleUpdateStore)
	router.Post("/stores/:id/photo", h.HandleUploadPhoto)
	router.Post("/stores/:id/reviews", h.HandleCreateReview)
	router.Post("/api/stores/:id/heart", h.HandleHeartToggle)
	router.Get("/hearts", h.HandleGetHearts)
}

// HandleGetStores returns one page of stores. A page past the end redirects
// to the last valid page, keeping the total count in the body.
func (h *StoreHandler) HandleGetStores(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)

	stores, pagination, err := h.service.ListStores(page)
	if err != nil {
		if errors.Is(err, services.ErrPageOutOfRange) {
			c.Location(fmt.Sprintf("/stores?page=%d", pagination.Pages))
			return c.Status(fiber.StatusSeeOther).JSON(fiber.Map{
				"message":    fmt.Sprintf("Page %d does not exist, sending you to page %d", page, pagination.Pages),
				"pagination": pagination,
			})
		}
		log.Printf("Error listing stores: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve stores",
		})
	}

	return c.JSON(fiber.Map{
		"stores":     stores,
		"pagination": pagination,
	})
}

// HandleGetStoreBySlug returns a store with its author and reviews.
func (h *StoreHandler) HandleGetStoreBySlug(c *fiber.Ctx) error {
	store, author, reviews, err := h.service.GetStoreBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Store not found",
			})
		}
		log.Printf("Error getting store by slug: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve store",
		})
	}

	return c.JSON(fiber.Map{
		"store":   store,
		"author":  author,
		"reviews": reviews,
	})
}

// HandleCreateStore creates a store owned by the session user.
func (h *StoreHandler) HandleCreateStore(c *fiber.Ctx) error {
	var store models.Store
	if err := c.BodyParser(&store); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(store); err != nil {
		return validationError(c, err)
	}

	if err := h.service.CreateStore(&store, currentUserID(c)); err != nil {
		log.Printf("Error creating store: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create store",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": fmt.Sprintf("Successfully created %s. Care to leave a review?", store.Name),
		"store":   store,
	})
}

// HandleUpdateStore updates a store; only its owner may do so.
func (h *StoreHandler) HandleUpdateStore(c *fiber.Ctx) error {
	var input models.Store
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return validationError(c, err)
	}

	store, err := h.service.UpdateStore(c.Params("id"), &input, currentUserID(c))
	if err != nil {
		return h.storeMutationError(c, err, "Could not update store")
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Successfully updated %s", store.Name),
		"store":   store,
	})
}

// HandleUploadPhoto accepts a multipart photo, resizes it to 800px width,
// stores it under a random name, and attaches it to the store.
func (h *StoreHandler) HandleUploadPhoto(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "A photo file is required",
		})
	}

	filename, err := images.Filename(fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "That filetype isn't allowed",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read uploaded photo",
		})
	}
	defer file.Close()

	img, format, err := images.Resize(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not process uploaded photo",
			"error":   err.Error(),
		})
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		log.Printf("Error creating upload dir: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not store photo",
		})
	}
	out, err := os.Create(filepath.Join(h.uploadDir, filename))
	if err != nil {
		log.Printf("Error creating photo file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not store photo",
		})
	}
	defer out.Close()
	if err := images.Encode(out, img, format); err != nil {
		log.Printf("Error encoding photo: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not store photo",
		})
	}

	store, err := h.service.SetPhoto(c.Params("id"), currentUserID(c), filename)
	if err != nil {
		return h.storeMutationError(c, err, "Could not attach photo to store")
	}

	return c.JSON(fiber.Map{
		"message": "Photo uploaded",
		"store":   store,
	})
}

// HandleCreateReview records a review on a store.
func (h *StoreHandler) HandleCreateReview(c *fiber.Ctx) error {
	var review models.Review
	if err := c.BodyParser(&review); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	review.StoreID = c.Params("id")

	if err := h.validate.Struct(review); err != nil {
		return validationError(c, err)
	}

	if err := h.service.AddReview(&review, currentUserID(c)); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Store not found",
			})
		}
		log.Printf("Error creating review: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not save review",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Review saved",
		"review":  review,
	})
}

// HandleGetTags returns the tag listing and the stores for one tag (or all
// tagged stores when no tag is given).
func (h *StoreHandler) HandleGetTags(c *fiber.Ctx) error {
	tag := c.Params("tag")
	tags, stores, err := h.service.GetStoresByTag(tag)
	if err != nil {
		log.Printf("Error getting stores by tag: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve tags",
		})
	}

	return c.JSON(fiber.Map{
		"tag":    tag,
		"tags":   tags,
		"stores": stores,
	})
}

// HandleTopStores returns the top-rated stores.
func (h *StoreHandler) HandleTopStores(c *fiber.Ctx) error {
	stores, err := h.service.TopStores()
	if err != nil {
		log.Printf("Error getting top stores: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve top stores",
		})
	}
	return c.JSON(fiber.Map{
		"stores": stores,
	})
}

// HandleSearch runs a text search over names and descriptions.
func (h *StoreHandler) HandleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Query parameter 'q' is required",
		})
	}

	stores, err := h.service.SearchStores(query)
	if err != nil {
		log.Printf("Error searching stores: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not search stores",
		})
	}
	return c.JSON(stores)
}

// HandleNearby returns the stores closest to a point.
func (h *StoreHandler) HandleNearby(c *fiber.Ctx) error {
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	if errLng != nil || errLat != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Query parameters 'lng' and 'lat' must be numbers",
		})
	}

	stores, err := h.service.NearbyStores(lng, lat)
	if err != nil {
		log.Printf("Error querying nearby stores: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not query nearby stores",
		})
	}
	return c.JSON(stores)
}

// HandleHeartToggle flips the store in the session user's favorites.
func (h *StoreHandler) HandleHeartToggle(c *fiber.Ctx) error {
	hearts, err := h.service.ToggleHeart(currentUserID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Store not found",
			})
		}
		log.Printf("Error toggling heart: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not toggle heart",
		})
	}
	return c.JSON(fiber.Map{
		"hearts": hearts,
	})
}

// HandleGetHearts lists the session user's favorited stores.
func (h *StoreHandler) HandleGetHearts(c *fiber.Ctx) error {
	stores, err := h.service.HeartedStores(currentUserID(c))
	if err != nil {
		log.Printf("Error listing hearted stores: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve hearted stores",
		})
	}
	return c.JSON(fiber.Map{
		"stores": stores,
	})
}

func (h *StoreHandler) storeMutationError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Store not found",
		})
	case errors.Is(err, services.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You must own a store in order to edit it",
		})
	default:
		log.Printf("%s: %v", fallback, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": fallback,
		})
	}
}
