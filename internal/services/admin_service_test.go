package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"sweetshop/internal/models"
	"sweetshop/internal/repositories"
	"sweetshop/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var admin = &models.Principal{UserID: "admin-1", Role: models.RoleAdmin}

func TestAdminService_CreateItem(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockMQ := new(MockPublisher)
	service := services.NewAdminService(mockRepo, mockMQ, nil)

	newItem := &models.Item{Name: "Kaju Katli", Category: "Nut", Price: 20, Quantity: 100}

	// Test successful creation
	mockRepo.On("Create", mock.Anything, newItem).Return(nil).Once()
	mockMQ.On("PublishItemEvent", mock.MatchedBy(func(e models.ItemEvent) bool {
		return e.Type == models.EventItemCreated && e.Name == "Kaju Katli" && e.ActorID == "admin-1"
	})).Return(nil).Once()
	created, err := service.CreateItem(context.Background(), newItem, admin)
	assert.NoError(t, err)
	assert.Equal(t, newItem, created)
	mockRepo.AssertExpectations(t)
	mockMQ.AssertExpectations(t)

	// Test creation failure (e.g., store down); no event is published
	mockRepo.On("Create", mock.Anything, newItem).Return(fmt.Errorf("create item: %w", models.ErrStoreUnavailable)).Once()
	_, err = service.CreateItem(context.Background(), newItem, admin)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStoreUnavailable))
	mockRepo.AssertExpectations(t)
	mockMQ.AssertNumberOfCalls(t, "PublishItemEvent", 1)
}

func TestAdminService_CreateItemRejectsNegativePrice(t *testing.T) {
	repo := repositories.NewMemoryItemRepository()
	service := services.NewAdminService(repo, nil, nil)

	_, err := service.CreateItem(context.Background(), &models.Item{Name: "X", Category: "Y", Price: -1, Quantity: 5}, admin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))

	items, err := repo.Find(context.Background(), models.ItemFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAdminService_PublisherFailureDoesNotFailMutation(t *testing.T) {
	repo := repositories.NewMemoryItemRepository()
	mockMQ := new(MockPublisher)
	mockMQ.On("PublishItemEvent", mock.Anything).Return(errors.New("broker down"))
	service := services.NewAdminService(repo, mockMQ, nil)

	item, err := service.CreateItem(context.Background(), &models.Item{Name: "Ladoo", Category: "Ghee", Price: 12, Quantity: 60}, admin)
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
}

func TestAdminService_UpdateItem(t *testing.T) {
	mockRepo := new(MockItemRepository)
	service := services.NewAdminService(mockRepo, nil, nil)

	price := 15.0
	patch := models.ItemPatch{Price: &price}
	updated := &models.Item{ID: "1", Name: "Updated Sweet", Category: "Test", Price: 15, Quantity: 20}

	// Test successful update
	mockRepo.On("Update", mock.Anything, "1", patch).Return(updated, nil).Once()
	item, err := service.UpdateItem(context.Background(), "1", patch, admin)
	assert.NoError(t, err)
	assert.Equal(t, updated, item)
	mockRepo.AssertExpectations(t)

	// Test update failure (item not found in repo)
	mockRepo.On("Update", mock.Anything, "99", patch).Return(nil, fmt.Errorf("item with ID 99: %w", models.ErrNotFound)).Once()
	_, err = service.UpdateItem(context.Background(), "99", patch, admin)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	mockRepo.AssertExpectations(t)

	// An empty patch reads the current snapshot without writing
	mockRepo.On("GetByID", mock.Anything, "1").Return(updated, nil).Once()
	item, err = service.UpdateItem(context.Background(), "1", models.ItemPatch{}, admin)
	assert.NoError(t, err)
	assert.Equal(t, updated, item)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "Update", 2)
}

func TestAdminService_DeleteItem(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockMQ := new(MockPublisher)
	service := services.NewAdminService(mockRepo, mockMQ, nil)

	// Test successful deletion
	mockRepo.On("Delete", mock.Anything, "1").Return(nil).Once()
	mockMQ.On("PublishItemEvent", mock.MatchedBy(func(e models.ItemEvent) bool {
		return e.Type == models.EventItemDeleted && e.ItemID == "1"
	})).Return(nil).Once()
	err := service.DeleteItem(context.Background(), "1", admin)
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockMQ.AssertExpectations(t)

	// Test deletion failure (e.g., item not found)
	mockRepo.On("Delete", mock.Anything, "99").Return(fmt.Errorf("item with ID 99: %w", models.ErrNotFound)).Once()
	err = service.DeleteItem(context.Background(), "99", admin)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	mockRepo.AssertExpectations(t)
}

func TestAdminService_UpdateRacingDelete(t *testing.T) {
	repo := repositories.NewMemoryItemRepository()
	service := services.NewAdminService(repo, nil, nil)
	ctx := context.Background()

	item, err := service.CreateItem(ctx, &models.Item{Name: "Barfi", Category: "Milk", Price: 25, Quantity: 40}, admin)
	require.NoError(t, err)

	qty := 10
	done := make(chan error, 1)
	go func() {
		_, err := service.UpdateItem(ctx, item.ID, models.ItemPatch{Quantity: &qty}, admin)
		done <- err
	}()
	require.NoError(t, service.DeleteItem(ctx, item.ID, admin))

	if err := <-done; err != nil {
		assert.True(t, errors.Is(err, models.ErrNotFound))
	}
	_, err = repo.GetByID(ctx, item.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
