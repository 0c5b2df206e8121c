package store

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- RecordEvent + ListEvents ---

func TestRecordEvent(t *testing.T) {
	requirePostgres(t)
	ctx := context.Background()

	t.Run("stores all columns", func(t *testing.T) {
		handle := "store-test-record"
		t.Cleanup(func() { cleanupEventsByHandle(t, ctx, handle) })

		id, err := uuid.NewV7()
		require.NoError(t, err)
		created := time.Now().Add(-time.Minute).Truncate(time.Microsecond)
		ev := InstallEvent{
			ID:         id,
			Handle:     handle,
			Action:     ActionCallbackAuthorized,
			Scope:      strPtr("read_products"),
			ExpireTime: int64Ptr(1700000000000),
			IPAddress:  strPtr("203.0.113.7"),
			UserAgent:  strPtr("test-agent"),
			CreatedAt:  created,
		}
		require.NoError(t, testStore.RecordEvent(ctx, ev))

		got, err := testStore.ListEvents(ctx, handle, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, id, got[0].ID)
		assert.Equal(t, ActionCallbackAuthorized, got[0].Action)
		assert.Nil(t, got[0].I18nCode)
		assert.Equal(t, "read_products", *got[0].Scope)
		assert.Equal(t, int64(1700000000000), *got[0].ExpireTime)
		assert.Equal(t, "203.0.113.7", *got[0].IPAddress)
		assert.True(t, got[0].CreatedAt.Equal(created))
	})

	t.Run("fills id and created_at", func(t *testing.T) {
		handle := "store-test-defaults"
		t.Cleanup(func() { cleanupEventsByHandle(t, ctx, handle) })

		require.NoError(t, testStore.RecordEvent(ctx, InstallEvent{Handle: handle, Action: ActionCallbackFailed, I18nCode: strPtr("invalid_code")}))

		got, err := testStore.ListEvents(ctx, handle, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.NotEqual(t, uuid.Nil, got[0].ID)
		assert.False(t, got[0].CreatedAt.IsZero())
		assert.Equal(t, "invalid_code", *got[0].I18nCode)
	})

	t.Run("duplicate id is ignored", func(t *testing.T) {
		handle := "store-test-dup"
		t.Cleanup(func() { cleanupEventsByHandle(t, ctx, handle) })

		id, _ := uuid.NewV7()
		ev := InstallEvent{ID: id, Handle: handle, Action: ActionInstallRedirected}
		require.NoError(t, testStore.RecordEvent(ctx, ev))
		require.NoError(t, testStore.RecordEvent(ctx, ev))

		got, err := testStore.ListEvents(ctx, handle, 10)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("unknown action violates check constraint", func(t *testing.T) {
		handle := "store-test-bad-action"
		t.Cleanup(func() { cleanupEventsByHandle(t, ctx, handle) })

		err := testStore.RecordEvent(ctx, InstallEvent{Handle: handle, Action: "user.login"})
		assert.Error(t, err)
	})
}

func TestListEvents(t *testing.T) {
	requirePostgres(t)
	ctx := context.Background()

	handle := "store-test-list"
	other := "store-test-list-other"
	t.Cleanup(func() { cleanupEventsByHandle(t, ctx, handle, other) })

	base := time.Now().Add(-time.Hour)
	for i, action := range []string{ActionInstallRedirected, ActionCallbackFailed, ActionCallbackAuthorized} {
		require.NoError(t, testStore.RecordEvent(ctx, InstallEvent{
			Handle: handle, Action: action, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, testStore.RecordEvent(ctx, InstallEvent{Handle: other, Action: ActionInstallRejected}))

	t.Run("newest first, scoped to handle", func(t *testing.T) {
		got, err := testStore.ListEvents(ctx, handle, 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, ActionCallbackAuthorized, got[0].Action)
		assert.Equal(t, ActionCallbackFailed, got[1].Action)
		assert.Equal(t, ActionInstallRedirected, got[2].Action)
	})

	t.Run("respects limit", func(t *testing.T) {
		got, err := testStore.ListEvents(ctx, handle, 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("unknown handle returns empty", func(t *testing.T) {
		got, err := testStore.ListEvents(ctx, "store-test-nobody", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestDeleteEvents(t *testing.T) {
	requirePostgres(t)
	ctx := context.Background()

	handle := "store-test-delete"
	other := "store-test-delete-other"
	t.Cleanup(func() { cleanupEventsByHandle(t, ctx, handle, other) })

	for range 2 {
		require.NoError(t, testStore.RecordEvent(ctx, InstallEvent{Handle: handle, Action: ActionInstallRedirected}))
	}
	require.NoError(t, testStore.RecordEvent(ctx, InstallEvent{Handle: other, Action: ActionInstallRedirected}))

	n, err := testStore.DeleteEvents(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := testStore.ListEvents(ctx, handle, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = testStore.ListEvents(ctx, other, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1, "other handles are untouched")
}

func TestPostgresCheckHealth(t *testing.T) {
	requirePostgres(t)
	assert.NoError(t, testStore.CheckHealth(context.Background()))
}
