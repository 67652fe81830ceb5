package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/studychat-server/internal/log"
	"github.com/vovakirdan/studychat-server/internal/proto"
	"github.com/vovakirdan/studychat-server/internal/store"
)

func TestHistoryListsMessages(t *testing.T) {
	env := startTestServer(t, nil)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second"} {
		_, err := env.store.Append(context.Background(), store.Message{
			ID:        text,
			User:      "User1",
			Text:      store.TextPtr(text),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	resp, err := env.server.Client().Get(env.server.URL + "/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)

	var msgs []proto.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].ID)
	assert.Equal(t, "second", msgs[1].ID)
}

func TestHistoryEmptyIsArray(t *testing.T) {
	env := startTestServer(t, nil)

	resp, err := env.server.Client().Get(env.server.URL + "/messages")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "[]", string(raw))
}

func TestHistoryStoreFailure(t *testing.T) {
	env := startTestServer(t, failingStore{})

	resp, err := env.server.Client().Get(env.server.URL + "/messages")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, stdhttp.StatusInternalServerError, resp.StatusCode)
}

// blockingListStore holds ListAll until release is closed and fails if its context was cancelled.
type blockingListStore struct {
	failingStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingListStore) ListAll(ctx context.Context) ([]store.Message, error) {
	s.entered <- struct{}{}
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("list", err)
	}
	return []store.Message{}, nil
}

func TestHistorySharedReadSurvivesFirstCallerCancel(t *testing.T) {
	st := &blockingListStore{entered: make(chan struct{}, 2), release: make(chan struct{})}
	handler := NewHistoryHandler(st, log.Nop())

	serve := func(ctx context.Context) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(stdhttp.MethodGet, "/messages", nil).WithContext(ctx)
		handler.List(c)
		return w
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		serve(leaderCtx)
	}()
	<-st.entered

	followerDone := make(chan *httptest.ResponseRecorder, 1)
	go func() { followerDone <- serve(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	<-leaderDone
	close(st.release)

	select {
	case w := <-followerDone:
		assert.Equal(t, stdhttp.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	case <-time.After(2 * time.Second):
		t.Fatal("follower request did not finish")
	}
}
