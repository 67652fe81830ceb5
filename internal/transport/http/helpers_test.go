package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vovakirdan/studychat-server/internal/config"
	"github.com/vovakirdan/studychat-server/internal/core"
	"github.com/vovakirdan/studychat-server/internal/files"
	"github.com/vovakirdan/studychat-server/internal/log"
	"github.com/vovakirdan/studychat-server/internal/store"
	"github.com/vovakirdan/studychat-server/internal/store/memory"
)

type testEnv struct {
	server  *httptest.Server
	hub     *core.Hub
	store   store.MessageStore
	storage *files.Storage
}

func startTestServer(t *testing.T, st store.MessageStore) *testEnv {
	t.Helper()

	if st == nil {
		st = memory.New()
	}
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.AssistantDelay = 20 * time.Millisecond
	cfg.MaxUploadBytes = 1 << 20
	cfg.UploadDir = t.TempDir()

	logger := log.Nop()
	hub := core.NewHub(st, core.HubConfig{
		PoolSize:      cfg.IdentityPoolSize,
		FallbackRange: cfg.IdentityFallbackMax,
		Assistant:     core.ResponderConfig{Delay: cfg.AssistantDelay, Trigger: cfg.AssistantTrigger},
	}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	storage, err := files.NewStorage(cfg.UploadDir, "/uploads", cfg.MaxUploadBytes)
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}

	server := NewServer(hub, st, storage, &cfg, logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-hub.Done()
	})

	return &testEnv{server: ts, hub: hub, store: st, storage: storage}
}

// failingStore rejects every write and read.
type failingStore struct{}

var errBackendDown = errors.New("backend down")

func (failingStore) Append(context.Context, store.Message) (store.Message, error) {
	return store.Message{}, store.Wrap("append", errBackendDown)
}

func (failingStore) ListAll(context.Context) ([]store.Message, error) {
	return nil, store.Wrap("list", errBackendDown)
}

func (failingStore) Close() error { return nil }
