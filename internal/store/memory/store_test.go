package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealwatch/pricewatch/internal/watch"
)

func TestStore_CreateAssignsID(t *testing.T) {
	t.Parallel()

	s := New()
	created, err := s.Create(context.Background(), watch.Request{
		URL:               "https://shop.example/item",
		TargetPrice:       100,
		NotifyDestination: "buyer@example.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestStore_CreateValidates(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Create(context.Background(), watch.Request{URL: "", NotifyDestination: "x@example.com"})
	require.Error(t, err)

	_, err = s.Create(context.Background(), watch.Request{
		URL:               "https://shop.example",
		TargetPrice:       -1,
		NotifyDestination: "x@example.com",
	})
	require.Error(t, err)
}

func TestStore_ListAllOrdersByCreation(t *testing.T) {
	t.Parallel()

	s := New()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		_, err := s.Create(context.Background(), watch.Request{
			URL:               "https://shop.example/" + title,
			TargetPrice:       10,
			NotifyDestination: "x@example.com",
			Title:             title,
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	requests, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, "first", requests[0].Title)
	assert.Equal(t, "third", requests[2].Title)
}

func TestStore_DeleteByID(t *testing.T) {
	t.Parallel()

	s := New()
	created, err := s.Create(context.Background(), watch.Request{
		URL:               "https://shop.example/item",
		TargetPrice:       100,
		NotifyDestination: "buyer@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteByID(context.Background(), created.ID))
	requests, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, requests)

	require.NoError(t, s.DeleteByID(context.Background(), created.ID),
		"second delete is a no-op")
	require.NoError(t, s.DeleteByID(context.Background(), "never-existed"))
}
