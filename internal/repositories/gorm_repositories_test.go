package repositories_test

import (
	"fmt"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupDB opens a fresh in-memory SQLite database for one test.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Store{},
		&models.StoreTag{},
		&models.Review{},
		&models.Heart{},
	))
	return db
}

func seedStore(t *testing.T, repo repositories.StoreRepository, name, slug string, tags []string, lng, lat float64) *models.Store {
	t.Helper()
	store := &models.Store{
		Name:     name,
		Slug:     slug,
		Tags:     tags,
		Location: models.Location{Address: "somewhere", Lng: lng, Lat: lat},
		AuthorID: "author-1",
	}
	require.NoError(t, repo.Create(store))
	return store
}

func TestGORMStoreRepository_DuplicateSlug(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMStoreRepository(db)

	seedStore(t, repo, "Coffee House", "coffee-house", nil, 0, 0)

	dup := &models.Store{
		Name:     "Coffee House",
		Slug:     "coffee-house",
		Location: models.Location{Address: "elsewhere"},
		AuthorID: "author-2",
	}
	err := repo.Create(dup)
	assert.ErrorIs(t, err, repositories.ErrDuplicateSlug)
}

func TestGORMStoreRepository_SlugsLike(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMStoreRepository(db)

	seedStore(t, repo, "Coffee", "coffee", nil, 0, 0)
	seedStore(t, repo, "Coffee", "coffee-2", nil, 0, 0)
	seedStore(t, repo, "Coffee Shop", "coffee-shop", nil, 0, 0)
	seedStore(t, repo, "Tea", "tea", nil, 0, 0)

	slugs, err := repo.SlugsLike("coffee")
	require.NoError(t, err)
	// "coffee-shop" is returned by the prefix query; the service's regexp
	// filter is what excludes it from the match count.
	assert.ElementsMatch(t, []string{"coffee", "coffee-2", "coffee-shop"}, slugs)
}

func TestGORMStoreRepository_TagCounts(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMStoreRepository(db)

	seedStore(t, repo, "A", "a", []string{"coffee", "wifi"}, 0, 0)
	seedStore(t, repo, "B", "b", []string{"coffee"}, 0, 0)
	seedStore(t, repo, "C", "c", []string{"coffee", "vegan"}, 0, 0)

	counts, err := repo.TagCounts()
	require.NoError(t, err)

	// A store with tags [A, B] contributes one count to each; totals equal
	// the number of stores carrying the tag, largest first.
	require.Len(t, counts, 3)
	assert.Equal(t, models.TagCount{Tag: "coffee", Count: 3}, counts[0])
	assert.ElementsMatch(t, []models.TagCount{
		{Tag: "vegan", Count: 1},
		{Tag: "wifi", Count: 1},
	}, counts[1:])
}

func TestGORMStoreRepository_ListByTag(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMStoreRepository(db)

	seedStore(t, repo, "A", "a", []string{"coffee", "wifi"}, 0, 0)
	seedStore(t, repo, "B", "b", []string{"vegan"}, 0, 0)
	seedStore(t, repo, "C", "c", nil, 0, 0)

	stores, err := repo.ListByTag("coffee")
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "a", stores[0].Slug)
	assert.Equal(t, []string{"coffee", "wifi"}, stores[0].Tags)

	// Empty tag means "any tag": untagged stores are excluded
	stores, err = repo.ListByTag("")
	require.NoError(t, err)
	assert.Len(t, stores, 2)
}

func TestGORMStoreRepository_TopStores(t *testing.T) {
	db := setupDB(t)
	storeRepo := repositories.NewGORMStoreRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)

	great := seedStore(t, storeRepo, "Great", "great", nil, 0, 0)
	okay := seedStore(t, storeRepo, "Okay", "okay", nil, 0, 0)
	sparse := seedStore(t, storeRepo, "Sparse", "sparse", nil, 0, 0)

	addReview := func(storeID string, rating int) {
		require.NoError(t, reviewRepo.Create(&models.Review{StoreID: storeID, AuthorID: "u", Rating: rating}))
	}
	addReview(great.ID, 5)
	addReview(great.ID, 4)
	addReview(okay.ID, 3)
	addReview(okay.ID, 3)
	addReview(okay.ID, 3)
	addReview(sparse.ID, 5) // only one review: excluded

	tops, err := storeRepo.TopStores(2, 10)
	require.NoError(t, err)

	require.Len(t, tops, 2)
	assert.Equal(t, "great", tops[0].Slug)
	assert.InDelta(t, 4.5, tops[0].AverageRating, 0.001)
	assert.Equal(t, int64(2), tops[0].ReviewCount)
	assert.Equal(t, "okay", tops[1].Slug)
	assert.InDelta(t, 3.0, tops[1].AverageRating, 0.001)
}

func TestGORMStoreRepository_TopStores_Limit(t *testing.T) {
	db := setupDB(t)
	storeRepo := repositories.NewGORMStoreRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)

	for i := 0; i < 12; i++ {
		store := seedStore(t, storeRepo, fmt.Sprintf("Store %d", i), fmt.Sprintf("store-%d", i), nil, 0, 0)
		require.NoError(t, reviewRepo.Create(&models.Review{StoreID: store.ID, AuthorID: "u", Rating: 4}))
		require.NoError(t, reviewRepo.Create(&models.Review{StoreID: store.ID, AuthorID: "u", Rating: 5}))
	}

	tops, err := storeRepo.TopStores(2, 10)
	require.NoError(t, err)
	assert.Len(t, tops, 10)
}

func TestGORMStoreRepository_Search(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMStoreRepository(db)

	seedStore(t, repo, "Plain Bakery", "plain-bakery", nil, 0, 0)
	nameHit := seedStore(t, repo, "Espresso Bar", "espresso-bar", nil, 0, 0)
	descHit := &models.Store{
		Name:        "Corner Cafe",
		Slug:        "corner-cafe",
		Description: "Best espresso in town",
		Location:    models.Location{Address: "somewhere"},
		AuthorID:    "author-1",
	}
	require.NoError(t, repo.Create(descHit))

	stores, err := repo.Search("espresso", 5)
	require.NoError(t, err)

	// Name matches rank above description matches; non-matches are absent
	require.Len(t, stores, 2)
	assert.Equal(t, nameHit.Slug, stores[0].Slug)
	assert.Equal(t, descHit.Slug, stores[1].Slug)
}

func TestGORMStoreRepository_Search_Cap(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMStoreRepository(db)

	for i := 0; i < 7; i++ {
		seedStore(t, repo, fmt.Sprintf("Espresso %d", i), fmt.Sprintf("espresso-%d", i), nil, 0, 0)
	}

	stores, err := repo.Search("espresso", 5)
	require.NoError(t, err)
	assert.Len(t, stores, 5)
}

func TestGORMStoreRepository_Near(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMStoreRepository(db)

	close := seedStore(t, repo, "Close", "close", nil, -122.41, 37.77)
	mid := seedStore(t, repo, "Mid", "mid", nil, -122.30, 37.70)
	far := seedStore(t, repo, "Far", "far", nil, -73.98, 40.75)

	stores, err := repo.Near(-122.40, 37.78, 10)
	require.NoError(t, err)

	require.Len(t, stores, 3)
	assert.Equal(t, close.Slug, stores[0].Slug)
	assert.Equal(t, mid.Slug, stores[1].Slug)
	assert.Equal(t, far.Slug, stores[2].Slug)
}

func TestGORMStoreRepository_List_Pagination(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMStoreRepository(db)

	for i := 0; i < 6; i++ {
		seedStore(t, repo, fmt.Sprintf("Store %d", i), fmt.Sprintf("store-%d", i), nil, 0, 0)
	}

	stores, count, err := repo.List(0, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
	assert.Len(t, stores, 4)

	stores, count, err = repo.List(4, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
	assert.Len(t, stores, 2)

	stores, count, err = repo.List(8, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
	assert.Empty(t, stores)
}

func TestGORMStoreRepository_UpdateReplacesTags(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMStoreRepository(db)

	store := seedStore(t, repo, "A", "a", []string{"coffee", "wifi"}, 0, 0)

	store.Tags = []string{"vegan"}
	require.NoError(t, repo.Update(store))

	reloaded, err := repo.GetByID(store.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"vegan"}, reloaded.Tags)

	counts, err := repo.TagCounts()
	require.NoError(t, err)
	assert.Equal(t, []models.TagCount{{Tag: "vegan", Count: 1}}, counts)
}

func TestGORMUserRepository_ToggleHeartIsItsOwnInverse(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMUserRepository(db)

	user := &models.User{Name: "Test User", Email: "heart@example.com", Password: "x"}
	require.NoError(t, repo.Create(user))

	hearts, err := repo.ToggleHeart(user.ID, "store-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"store-1"}, hearts)

	hearts, err = repo.ToggleHeart(user.ID, "store-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"store-1", "store-2"}, hearts)

	// Toggling the same store again restores the original set
	hearts, err = repo.ToggleHeart(user.ID, "store-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"store-1"}, hearts)
}

func TestGORMUserRepository_DuplicateEmail(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMUserRepository(db)

	require.NoError(t, repo.Create(&models.User{Name: "A", Email: "dup@example.com", Password: "x"}))
	err := repo.Create(&models.User{Name: "B", Email: "dup@example.com", Password: "x"})
	assert.ErrorIs(t, err, repositories.ErrDuplicateEmail)
}

func TestGORMUserRepository_ResetTokenLifecycle(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMUserRepository(db)

	user := &models.User{Name: "Test User", Email: "reset@example.com", Password: "old-hash"}
	require.NoError(t, repo.Create(user))

	token := "aaaabbbbccccddddeeeeffff0000111122223333"
	require.NoError(t, repo.SetResetToken(user.ID, token, time.Now().Add(time.Hour)))

	found, err := repo.FindByValidResetToken(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	// First redemption succeeds and clears both fields
	require.NoError(t, repo.RedeemResetToken(token, "new-hash", time.Now()))

	reloaded, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", reloaded.Password)
	assert.Nil(t, reloaded.ResetPasswordToken)
	assert.Nil(t, reloaded.ResetPasswordExpires)

	// Second redemption finds no matching row: the token is single-use
	err = repo.RedeemResetToken(token, "another-hash", time.Now())
	assert.ErrorIs(t, err, repositories.ErrInvalidResetToken)

	again, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", again.Password)
}

func TestGORMUserRepository_ExpiredResetToken(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMUserRepository(db)

	user := &models.User{Name: "Test User", Email: "expired@example.com", Password: "old-hash"}
	require.NoError(t, repo.Create(user))

	token := "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	require.NoError(t, repo.SetResetToken(user.ID, token, time.Now().Add(-time.Minute)))

	_, err := repo.FindByValidResetToken(token, time.Now())
	assert.ErrorIs(t, err, repositories.ErrInvalidResetToken)

	err = repo.RedeemResetToken(token, "new-hash", time.Now())
	assert.ErrorIs(t, err, repositories.ErrInvalidResetToken)

	// The password did not change
	reloaded, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "old-hash", reloaded.Password)
}
