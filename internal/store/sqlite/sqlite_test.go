package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/studychat-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndListAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	caption := "read before friday"
	hello := "hello"
	messages := []store.Message{
		{ID: "01A", User: "User1", Text: &hello, CreatedAt: base},
		{ID: "01B", User: "User2", Text: &caption, File: &store.Attachment{Name: "plan.pdf", Path: "/uploads/pdf-1.pdf"}, CreatedAt: base.Add(time.Second)},
		{ID: "01C", User: "User2", File: &store.Attachment{Name: "notes.pdf", Path: "/uploads/pdf-2.pdf"}, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, m := range messages {
		got, err := s.Append(ctx, m)
		require.NoError(t, err)
		require.Equal(t, m.ID, got.ID)
	}

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	for i, want := range messages {
		got := all[i]
		require.Equal(t, want.ID, got.ID)
		require.Equal(t, want.User, got.User)
		require.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, want.CreatedAt)
		require.Equal(t, want.Text, got.Text)
		require.Equal(t, want.File, got.File)
	}
	require.Nil(t, all[2].Text)
	require.Nil(t, all[0].File)
}

func TestListAllEmpty(t *testing.T) {
	s := newTestStore(t)

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, all)
	require.Empty(t, all)
}

func TestListAllOrdersByCreationTime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.Append(ctx, store.Message{ID: "late", User: "User1", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	_, err = s.Append(ctx, store.Message{ID: "early", User: "User1", CreatedAt: base})
	require.NoError(t, err)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, "early", all[0].ID)
	require.Equal(t, "late", all[1].ID)
}

func TestDuplicateIDIsStoreError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	msg := store.Message{ID: "dup", User: "User1", CreatedAt: time.Now()}

	_, err := s.Append(ctx, msg)
	require.NoError(t, err)
	_, err = s.Append(ctx, msg)

	var storeErr *store.Error
	require.True(t, errors.As(err, &storeErr))
	require.Equal(t, "append", storeErr.Op)
}

func TestMissingSchemaIsStoreError(t *testing.T) {
	s, err := NewWithSetup(":memory:", func(*sql.DB) error { return nil })
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ListAll(context.Background())
	var storeErr *store.Error
	require.True(t, errors.As(err, &storeErr))
	require.Equal(t, "list", storeErr.Op)
}
