package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-notification-service/internal/models"
)

func TestMemoryStoreStatusUpdatesAreMonotonic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, models.Notification{ID: "n1", RecipientID: "u1"}))

	ch := models.ChannelEmail
	require.NoError(t, store.UpdateChannelStatus(ctx, "n1", ch, models.StatusPending))
	require.NoError(t, store.UpdateChannelStatus(ctx, "n1", ch, models.StatusSent))
	require.NoError(t, store.UpdateChannelStatus(ctx, "n1", ch, models.StatusDelivered))

	// regression and duplicates are ignored, not errors
	require.NoError(t, store.UpdateChannelStatus(ctx, "n1", ch, models.StatusPending))
	require.NoError(t, store.UpdateChannelStatus(ctx, "n1", ch, models.StatusFailed))
	require.NoError(t, store.UpdateChannelStatus(ctx, "n1", ch, models.StatusDelivered))

	n, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, n.ChannelStatus[ch])
}

func TestMemoryStoreUpdateUnknownNotification(t *testing.T) {
	store := NewMemoryStore()
	err := store.UpdateChannelStatus(context.Background(), "nope", models.ChannelEmail, models.StatusPending)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, models.Notification{ID: "n1", RecipientID: "u1", Title: "first"}))
	require.NoError(t, store.Save(ctx, models.Notification{ID: "n1", RecipientID: "u1", Title: "second"}))

	n, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "second", n.Title)

	list, err := store.ListForUser(ctx, "u1", Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStoreListForUserFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i, typ := range []string{"alert", "digest", "alert"} {
		require.NoError(t, store.Save(ctx, models.Notification{
			ID:          string(rune('a' + i)),
			RecipientID: "u1",
			Type:        typ,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.MarkRead(ctx, "a"))

	list, err := store.ListForUser(ctx, "u1", Filter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].ID, "newest first")

	unread, err := store.ListForUser(ctx, "u1", Filter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	alerts, err := store.ListForUser(ctx, "u1", Filter{Type: "alert"})
	require.NoError(t, err)
	assert.Len(t, alerts, 2)

	page, err := store.ListForUser(ctx, "u1", Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)

	empty, err := store.ListForUser(ctx, "u1", Filter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStoreMarkReadAndDismissIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, models.Notification{ID: "n1", RecipientID: "u1"}))

	require.NoError(t, store.MarkRead(ctx, "n1"))
	first, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	require.True(t, first.Read)
	require.NotNil(t, first.ReadAt)

	require.NoError(t, store.MarkRead(ctx, "n1"))
	second, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, first.ReadAt, second.ReadAt, "timestamp does not move")

	require.NoError(t, store.MarkDismissed(ctx, "n1"))
	require.NoError(t, store.MarkDismissed(ctx, "n1"))
	n, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, n.Dismissed)

	assert.ErrorIs(t, store.MarkRead(ctx, "nope"), ErrNotFound)
}
