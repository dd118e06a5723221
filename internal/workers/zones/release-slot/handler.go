// internal/workers/zones/release-slot/handler.go
package releaseslot

import (
	"context"
	"database/sql"
	"encoding/json"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/common/metrics"
	zonesummary "inmo-workers/internal/workers/zones/zone-summary"
	"inmo-workers/internal/zones/capacity"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "release-slot"
)

type Handler struct {
	config       *Config
	db           *sql.DB
	redis        *redis.Client
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		redis:        rdb,
		logger:       scoped,
		errorHandler: errors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey": job.Key,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, errors.NewValidationFailedError(err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ZoneID == "" {
		return nil, errors.NewValidationFailedError("zoneId is required")
	}
	if input.Decrement < 0 {
		return nil, errors.NewValidationFailedError("decrement must be positive")
	}
	decrement := input.Decrement
	if decrement == 0 {
		decrement = 1
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	output, err := h.release(ctx, tx, input.ZoneID, decrement, input.AssignedTo)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(TaskType, err)
	}

	h.invalidateSummaryCache(ctx)

	return output, nil
}

func (h *Handler) release(ctx context.Context, tx *sql.Tx, zoneID string, decrement int, assignedTo string) (*Output, error) {
	var output Output
	var occupied int

	// Same row lock as occupy-slot; release floors at zero instead of
	// capping at capacity.
	err := tx.QueryRowContext(ctx, `
		SELECT id, province, municipality, total_slots, occupied
		FROM zones
		WHERE id = $1
		FOR UPDATE`,
		zoneID).Scan(&output.ZoneID, &output.Province, &output.Municipality,
		&output.TotalSlots, &occupied)
	if err == sql.ErrNoRows {
		return nil, errors.NewZoneNotFoundError(zoneID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(TaskType, err)
	}

	output.Occupied, output.Clamped = capacity.Clamp(occupied-decrement, output.TotalSlots)
	if output.Clamped {
		metrics.OccupancyClamped.WithLabelValues("release").Inc()
		h.logger.Warn("release floored at zero", map[string]interface{}{
			"zoneId":    zoneID,
			"requested": occupied - decrement,
		})
	}
	output.Free = output.TotalSlots - output.Occupied
	output.Status = capacity.StatusFor(output.Occupied, output.TotalSlots)

	_, err = tx.ExecContext(ctx, `
		UPDATE zones
		SET occupied = $2, free = $3, status = $4, updated_at = NOW()
		WHERE id = $1`,
		zoneID, output.Occupied, output.Free, output.Status)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(TaskType, err)
	}

	if assignedTo != "" {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM zone_assignments
			WHERE zone_id = $1 AND franchisee_id = $2`,
			zoneID, assignedTo)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError(TaskType, err)
		}
	}

	return &output, nil
}

func (h *Handler) invalidateSummaryCache(ctx context.Context) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Del(ctx, zonesummary.CacheKey).Err(); err != nil {
		h.logger.Warn("failed to invalidate summary cache", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
