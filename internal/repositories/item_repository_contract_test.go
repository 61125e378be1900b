package repositories_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"sweetshop/internal/models"
	"sweetshop/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoFactory func(t *testing.T) repositories.ItemRepository

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func stringPtr(v string) *string  { return &v }

func mustCreate(t *testing.T, repo repositories.ItemRepository, name, category string, price float64, qty int) models.Item {
	t.Helper()
	item := models.Item{Name: name, Category: category, Price: price, Quantity: qty}
	require.NoError(t, repo.Create(context.Background(), &item))
	return item
}

func names(items []models.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

// runItemRepositoryContract checks the catalog store guarantees against any backend.
func runItemRepositoryContract(t *testing.T, newRepo repoFactory) {
	ctx := context.Background()

	t.Run("CreateAssignsIDAndTimestamps", func(t *testing.T) {
		repo := newRepo(t)
		item := mustCreate(t, repo, "Kaju Katli", "Nut", 40, 30)

		assert.NotEmpty(t, item.ID)
		assert.False(t, item.CreatedAt.IsZero())
		assert.False(t, item.UpdatedAt.IsZero())

		stored, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "Kaju Katli", stored.Name)
		assert.Equal(t, 30, stored.Quantity)
	})

	t.Run("CreateRejectsNegativePrice", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Create(ctx, &models.Item{Name: "X", Category: "Y", Price: -1, Quantity: 5})
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrValidation))

		items, err := repo.Find(ctx, models.ItemFilter{})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("CreateRejectsMissingNameOrCategory", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Create(ctx, &models.Item{Category: "Y", Price: 1, Quantity: 1})
		assert.True(t, errors.Is(err, models.ErrValidation))
		err = repo.Create(ctx, &models.Item{Name: "X", Price: 1, Quantity: 1})
		assert.True(t, errors.Is(err, models.ErrValidation))
		err = repo.Create(ctx, &models.Item{Name: "X", Category: "Y", Price: 1, Quantity: -1})
		assert.True(t, errors.Is(err, models.ErrValidation))
	})

	t.Run("FindBySearch", func(t *testing.T) {
		repo := newRepo(t)
		mustCreate(t, repo, "Gulab Jamun", "Syrup", 20, 10)
		mustCreate(t, repo, "Jalebi", "Fried", 10, 10)

		items, err := repo.Find(ctx, models.ItemFilter{Search: "Gulab"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Gulab Jamun", items[0].Name)

		items, err = repo.Find(ctx, models.ItemFilter{Search: "fRiEd"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Jalebi"}, names(items))

		items, err = repo.Find(ctx, models.ItemFilter{})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Gulab Jamun", "Jalebi"}, names(items))
	})

	t.Run("FindTreatsWildcardsLiterally", func(t *testing.T) {
		repo := newRepo(t)
		mustCreate(t, repo, "100% Cocoa Barfi", "Milk", 25, 4)
		mustCreate(t, repo, "Ladoo", "Ghee", 12, 60)

		items, err := repo.Find(ctx, models.ItemFilter{Search: "%"})
		require.NoError(t, err)
		assert.Equal(t, []string{"100% Cocoa Barfi"}, names(items))

		items, err = repo.Find(ctx, models.ItemFilter{Search: "_"})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("FindAvailableOnly", func(t *testing.T) {
		repo := newRepo(t)
		mustCreate(t, repo, "Rasmalai", "Milk", 50, 0)
		mustCreate(t, repo, "Mysore Pak", "Ghee", 30, 5)
		mustCreate(t, repo, "Ladoo", "Ghee", 12, 10)

		items, err := repo.Find(ctx, models.ItemFilter{AvailableOnly: true})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Mysore Pak", "Ladoo"}, names(items))
	})

	t.Run("FindPriceRange", func(t *testing.T) {
		repo := newRepo(t)
		mustCreate(t, repo, "Jalebi", "Fried", 10, 20)
		mustCreate(t, repo, "Rasgulla", "Syrup", 15, 45)
		mustCreate(t, repo, "Kaju Katli", "Nut", 40, 30)

		items, err := repo.Find(ctx, models.ItemFilter{MinPrice: floatPtr(15), MaxPrice: floatPtr(40)})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Rasgulla", "Kaju Katli"}, names(items))

		items, err = repo.Find(ctx, models.ItemFilter{Search: "a", MaxPrice: floatPtr(14)})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("UpdatePartial", func(t *testing.T) {
		repo := newRepo(t)
		item := mustCreate(t, repo, "Old Sweet", "Test", 10, 5)

		updated, err := repo.Update(ctx, item.ID, models.ItemPatch{Name: stringPtr("Updated Sweet"), Quantity: intPtr(20)})
		require.NoError(t, err)
		assert.Equal(t, item.ID, updated.ID)
		assert.Equal(t, "Updated Sweet", updated.Name)
		assert.Equal(t, "Test", updated.Category)
		assert.Equal(t, 10.0, updated.Price)
		assert.Equal(t, 20, updated.Quantity)
	})

	t.Run("UpdateRejectsInvalidPatch", func(t *testing.T) {
		repo := newRepo(t)
		item := mustCreate(t, repo, "Barfi", "Milk", 25, 40)

		_, err := repo.Update(ctx, item.ID, models.ItemPatch{Price: floatPtr(-5)})
		assert.True(t, errors.Is(err, models.ErrValidation))
		_, err = repo.Update(ctx, item.ID, models.ItemPatch{Name: stringPtr("  ")})
		assert.True(t, errors.Is(err, models.ErrValidation))

		stored, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 25.0, stored.Price)
		assert.Equal(t, "Barfi", stored.Name)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Update(ctx, "missing", models.ItemPatch{Price: floatPtr(1)})
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("DeleteIsFinal", func(t *testing.T) {
		repo := newRepo(t)
		item := mustCreate(t, repo, "To Delete", "Test", 10, 5)
		mustCreate(t, repo, "Keeper", "Test", 10, 5)

		require.NoError(t, repo.Delete(ctx, item.ID))

		items, err := repo.Find(ctx, models.ItemFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Keeper"}, names(items))

		_, err = repo.GetByID(ctx, item.ID)
		assert.True(t, errors.Is(err, models.ErrNotFound))

		err = repo.Delete(ctx, item.ID)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("TryDecrement", func(t *testing.T) {
		repo := newRepo(t)
		item := mustCreate(t, repo, "Rasmalai", "Milk", 50, 1)

		updated, err := repo.TryDecrement(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, updated.Quantity)
		assert.Equal(t, "Rasmalai", updated.Name)

		_, err = repo.TryDecrement(ctx, item.ID)
		assert.True(t, errors.Is(err, models.ErrOutOfStockOrNotFound))

		_, err = repo.TryDecrement(ctx, "does-not-exist")
		assert.True(t, errors.Is(err, models.ErrOutOfStockOrNotFound))

		stored, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.Quantity)
	})

	t.Run("TwoBuyersLastUnit", func(t *testing.T) {
		repo := newRepo(t)
		item := mustCreate(t, repo, "Rasmalai", "Milk", 50, 1)

		results := make([]error, 2)
		snapshots := make([]*models.Item, 2)
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				snapshots[i], results[i] = repo.TryDecrement(ctx, item.ID)
			}(i)
		}
		close(start)
		wg.Wait()

		var successes, failures int
		for i, err := range results {
			if err == nil {
				successes++
				assert.Equal(t, 0, snapshots[i].Quantity)
			} else {
				failures++
				assert.True(t, errors.Is(err, models.ErrOutOfStockOrNotFound))
			}
		}
		assert.Equal(t, 1, successes)
		assert.Equal(t, 1, failures)

		stored, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.Quantity)
	})

	t.Run("UpdateDoesNotClobberConcurrentDecrements", func(t *testing.T) {
		const initial, buyers, renames = 40, 15, 5
		repo := newRepo(t)
		item := mustCreate(t, repo, "Barfi", "Milk", 25, initial)

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < buyers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if _, err := repo.TryDecrement(ctx, item.ID); err != nil {
					t.Errorf("unexpected decrement error: %v", err)
				}
			}()
		}
		for i := 0; i < renames; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if _, err := repo.Update(ctx, item.ID, models.ItemPatch{Name: stringPtr("Milk Barfi")}); err != nil {
					t.Errorf("unexpected update error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		stored, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, initial-buyers, stored.Quantity)
		assert.Equal(t, "Milk Barfi", stored.Name)
	})

	t.Run("UpdateRacingDelete", func(t *testing.T) {
		for round := 0; round < 10; round++ {
			repo := newRepo(t)
			item := mustCreate(t, repo, "Peda", "Milk", 18, 10)

			var updateErr, deleteErr error
			var wg sync.WaitGroup
			start := make(chan struct{})
			wg.Add(2)
			go func() {
				defer wg.Done()
				<-start
				_, updateErr = repo.Update(ctx, item.ID, models.ItemPatch{Price: floatPtr(20)})
			}()
			go func() {
				defer wg.Done()
				<-start
				deleteErr = repo.Delete(ctx, item.ID)
			}()
			close(start)
			wg.Wait()

			require.NoError(t, deleteErr)
			if updateErr != nil {
				assert.True(t, errors.Is(updateErr, models.ErrNotFound), "got %v", updateErr)
			}
			_, err := repo.GetByID(ctx, item.ID)
			assert.True(t, errors.Is(err, models.ErrNotFound))
		}
	})

	for _, tc := range []struct {
		name    string
		initial int
		buyers  int
	}{
		{"NoOversellWhenDemandExceedsStock", 5, 25},
		{"AllBuyersServedWhenStockSuffices", 30, 20},
		{"NothingSoldFromEmptyStock", 0, 10},
	} {
		t.Run(tc.name, func(t *testing.T) {
			repo := newRepo(t)
			item := mustCreate(t, repo, "Ladoo", "Ghee", 12, tc.initial)

			var successes, failures int64
			var wg sync.WaitGroup
			start := make(chan struct{})
			for i := 0; i < tc.buyers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := repo.TryDecrement(ctx, item.ID)
					switch {
					case err == nil:
						atomic.AddInt64(&successes, 1)
					case errors.Is(err, models.ErrOutOfStockOrNotFound):
						atomic.AddInt64(&failures, 1)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			close(start)
			wg.Wait()

			wantSold := min(tc.buyers, tc.initial)
			assert.Equal(t, int64(wantSold), successes)
			assert.Equal(t, int64(tc.buyers-wantSold), failures)

			stored, err := repo.GetByID(ctx, item.ID)
			require.NoError(t, err)
			assert.Equal(t, max(tc.initial-tc.buyers, 0), stored.Quantity)
		})
	}
}
