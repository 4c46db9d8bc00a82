package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ebulletin-go-api/internal/dto"
	"github.com/noah-isme/ebulletin-go-api/internal/repository"
)

func TestWelcomeCardServiceLifecycle(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewWelcomeCardService(repository.NewWelcomeCardRepository(db), validator.New(), testLogger())
	ctx := context.Background()

	first, err := svc.Create(ctx, dto.WelcomeCardRequest{Title: "Welcome", Content: "<b>Hi</b><img src=x onerror=alert(1)>"})
	require.NoError(t, err)
	require.Equal(t, 0, first.DisplayOrder)
	require.True(t, first.IsActive)
	require.NotContains(t, first.Content, "onerror")

	inactive := false
	second, err := svc.Create(ctx, dto.WelcomeCardRequest{Title: "Library hours", IsActive: &inactive, Metadata: map[string]interface{}{"icon": "book"}})
	require.NoError(t, err)
	require.Equal(t, 1, second.DisplayOrder)
	require.False(t, second.IsActive)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)

	reordered, err := svc.Reorder(ctx, dto.WelcomeCardReorderRequest{Items: []dto.WelcomeCardOrder{
		{CardID: first.ID, DisplayOrder: 5},
		{CardID: second.ID, DisplayOrder: 0},
	}})
	require.NoError(t, err)
	require.Equal(t, second.ID, reordered[0].ID)
	require.Equal(t, "book", reordered[0].Metadata["icon"])

	_, err = svc.Reorder(ctx, dto.WelcomeCardReorderRequest{Items: []dto.WelcomeCardOrder{{CardID: 99, DisplayOrder: 1}}})
	require.ErrorIs(t, err, ErrWelcomeCardNotFound)

	updated, previous, err := svc.Update(ctx, first.ID, dto.WelcomeCardRequest{Title: "Welcome back"})
	require.NoError(t, err)
	require.Equal(t, "Welcome", previous.Title)
	require.Equal(t, "Welcome back", updated.Title)
	require.Equal(t, 5, updated.DisplayOrder)

	deleted, err := svc.Delete(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, "Library hours", deleted.Title)
	_, err = svc.Delete(ctx, second.ID)
	require.ErrorIs(t, err, ErrWelcomeCardNotFound)

	_, err = svc.Create(ctx, dto.WelcomeCardRequest{Title: "x"})
	require.Error(t, err)
}
