package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/studychat-server/internal/store"
)

func TestStoreKeepsAppendOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		_, err := s.Append(ctx, store.Message{ID: id, User: "User1"})
		require.NoError(t, err)
	}

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "1", all[0].ID)
	require.Equal(t, "3", all[2].ID)

	// Callers get a copy.
	all[0].ID = "changed"
	again, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, "1", again[0].ID)
}

func TestStoreClosed(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())

	_, err := s.Append(context.Background(), store.Message{ID: "x"})
	var storeErr *store.Error
	require.True(t, errors.As(err, &storeErr))

	_, err = s.ListAll(context.Background())
	require.True(t, errors.As(err, &storeErr))
}
