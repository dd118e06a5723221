// internal/enrichment/store.go
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Task statuses. Terminal states are done and error; there is no cancellation.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusError   = "error"
	StatusUnknown = "unknown"
)

const taskKeyPrefix = "cadastral:task:"

// TaskRecord is the persisted state of one enrichment task, keyed by handle.
type TaskRecord struct {
	TaskID             string `json:"taskId"`
	LeadID             string `json:"leadId,omitempty"`
	Status             string `json:"status"`
	CadastralReference string `json:"cadastralReference,omitempty"`
	Error              string `json:"error,omitempty"`
	UpdatedAt          string `json:"updatedAt"`
}

// TaskStore keeps task state in redis so any worker-manager instance can
// answer a status poll, not just the one that ran the task.
type TaskStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewTaskStore(rdb *redis.Client, ttl time.Duration) *TaskStore {
	return &TaskStore{redis: rdb, ttl: ttl}
}

// Put writes a task record, stamping UpdatedAt.
func (s *TaskStore) Put(ctx context.Context, rec TaskRecord) error {
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal task record: %w", err)
	}
	if err := s.redis.Set(ctx, taskKeyPrefix+rec.TaskID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store task record: %w", err)
	}
	return nil
}

// Get fetches a task record. Expired or never-created handles come back with
// status unknown rather than an error; pollers cannot distinguish the two and
// should not need to.
func (s *TaskStore) Get(ctx context.Context, taskID string) (TaskRecord, error) {
	data, err := s.redis.Get(ctx, taskKeyPrefix+taskID).Result()
	if err == redis.Nil {
		return TaskRecord{TaskID: taskID, Status: StatusUnknown}, nil
	}
	if err != nil {
		return TaskRecord{}, fmt.Errorf("fetch task record: %w", err)
	}

	var rec TaskRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return TaskRecord{}, fmt.Errorf("unmarshal task record: %w", err)
	}
	return rec, nil
}
