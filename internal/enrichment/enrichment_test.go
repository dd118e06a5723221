package enrichment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"inmo-workers/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func setupStore(t *testing.T) *TaskStore {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewTaskStore(rdb, time.Hour)
}

func TestTaskStorePutGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	err := store.Put(ctx, TaskRecord{
		TaskID: "task-1",
		LeadID: "lead-1",
		Status: StatusPending,
	})
	assert.NoError(t, err)

	rec, err := store.Get(ctx, "task-1")
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, "lead-1", rec.LeadID)
	assert.NotEmpty(t, rec.UpdatedAt)
}

func TestTaskStoreTerminalOverwrite(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	assert.NoError(t, store.Put(ctx, TaskRecord{TaskID: "task-2", Status: StatusPending}))
	assert.NoError(t, store.Put(ctx, TaskRecord{
		TaskID:             "task-2",
		Status:             StatusDone,
		CadastralReference: "9872023VH5797S",
	}))

	rec, err := store.Get(ctx, "task-2")
	assert.NoError(t, err)
	assert.Equal(t, StatusDone, rec.Status)
	assert.Equal(t, "9872023VH5797S", rec.CadastralReference)
}

func TestTaskStoreUnknownHandle(t *testing.T) {
	store := setupStore(t)

	rec, err := store.Get(context.Background(), "never-created")
	assert.NoError(t, err)
	assert.Equal(t, StatusUnknown, rec.Status)
	assert.Equal(t, "never-created", rec.TaskID)
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	pool := NewPool(2, 8, logger.NewTestLogger(t))
	defer pool.Shutdown()

	var mu sync.Mutex
	ran := 0
	done := make(chan struct{})

	for i := 0; i < 5; i++ {
		err := pool.Submit(func(context.Context) {
			mu.Lock()
			ran++
			if ran == 5 {
				close(done)
			}
			mu.Unlock()
		})
		assert.NoError(t, err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not run submitted tasks")
	}
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	pool := NewPool(1, 1, logger.NewNoOpLogger())
	defer pool.Shutdown()

	block := make(chan struct{})
	defer close(block)

	// Occupy the single worker, then fill the single queue slot.
	_ = pool.Submit(func(context.Context) { <-block })

	full := false
	for i := 0; i < 10; i++ {
		if err := pool.Submit(func(context.Context) {}); err == ErrQueueFull {
			full = true
			break
		}
	}
	assert.True(t, full, "expected ErrQueueFull once queue saturated")
}

func TestCadastralClientResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Calle Mayor 1", r.URL.Query().Get("address"))
		assert.Equal(t, "Granada", r.URL.Query().Get("municipality"))
		json.NewEncoder(w).Encode(map[string]string{"cadastralReference": "9872023VH5797S"})
	}))
	defer srv.Close()

	client := NewCadastralClient(srv.URL, 2*time.Second)
	ref, err := client.Resolve(context.Background(), "Calle Mayor 1", "Granada", "Granada")
	assert.NoError(t, err)
	assert.Equal(t, "9872023VH5797S", ref)
}

func TestCadastralClientErrors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewCadastralClient(srv.URL, 2*time.Second)
		_, err := client.Resolve(context.Background(), "x", "y", "z")
		assert.Error(t, err)
	})

	t.Run("empty reference", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"cadastralReference": ""})
		}))
		defer srv.Close()

		client := NewCadastralClient(srv.URL, 2*time.Second)
		_, err := client.Resolve(context.Background(), "x", "y", "z")
		assert.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		client := NewCadastralClient(srv.URL, 50*time.Millisecond)
		_, err := client.Resolve(context.Background(), "x", "y", "z")
		assert.Error(t, err)
	})
}
