package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"visionbridge/features/classify"
	"visionbridge/internal/config"
	"visionbridge/internal/store"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: make(map[string][]byte)} }

func (m *memStore) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return data, nil
}

func (m *memStore) GetDelete(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(m.objects, key)
	return data, nil
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

type memQueue struct {
	mu     sync.Mutex
	bodies [][]byte
}

func (m *memQueue) Publish(topic string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *memQueue) Ping() error { return nil }

func testApp(t *testing.T) (*App, *memStore, *memQueue) {
	t.Helper()
	cfg := &config.Config{
		StagingPrefix:      "requests",
		ResultPrefix:       "results",
		WaitTimeoutSeconds: 1,
		PollIntervalMS:     20,
		PollIntervalMaxMS:  100,
		PollBackoffFactor:  1.5,
		ResultRetention:    "delete",
		ServerPort:         0,
		MaxUploadSizeMB:    10,
	}
	objects := newMemStore()
	queue := &memQueue{}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	a, err := New(cfg, objects, objects, queue, logger)
	require.NoError(t, err)
	return a, objects, queue
}

func TestNew(t *testing.T) {
	a, _, _ := testApp(t)
	assert.NotNil(t, a.Handler)
	assert.NotNil(t, a.Service)
	assert.NotNil(t, a.Notifier)
	assert.NotNil(t, a.ResultConsumer)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_Metrics(t *testing.T) {
	a, _, _ := testApp(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Plain counters and histograms export even before the first observation;
	// labeled vectors only appear once a label combination has been observed,
	// so only the former are safe to assert on in a fresh process.
	assert.Contains(t, w.Body.String(), "bridge_result_polls_total")
	assert.Contains(t, w.Body.String(), "bridge_wait_duration_seconds")
}

func TestRoutes_RedeemPending(t *testing.T) {
	a, _, _ := testApp(t)

	req := httptest.NewRequest("GET", "/result/unknown-id", nil)
	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))

	var out classify.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, classify.StatusPending, out.Status)
}

// Full round trip through the public surface: announcement consumed from the
// result topic wakes the registered waiter immediately.
func TestResultAnnouncement_WakesWaiter(t *testing.T) {
	a, objects, _ := testApp(t)

	id := "job-7"
	ch := a.Notifier.Register(id)
	defer a.Notifier.Unregister(id, ch)

	require.NoError(t, objects.Put(context.Background(),
		store.ResultKey("results", id), []byte(`{"labels":[{"name":"cat","confidence":97.2}]}`)))

	body, _ := json.Marshal(map[string]string{"correlation_id": id, "status": "success"})
	require.NoError(t, a.ResultConsumer.HandleMessage(&nsq.Message{Body: body}))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("announcement did not wake the waiter")
	}
}
