// internal/workers/zones/zone-summary/handler.go

// Package zonesummary aggregates network-wide slot totals for dashboards.
// Occupancy writers invalidate the cache under CacheKey after every commit.
package zonesummary

import (
	"context"
	"database/sql"
	"encoding/json"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "zone-summary"

	// CacheKey holds the cached aggregate. Shared with occupy-slot and
	// release-slot, which delete it on every occupancy change.
	CacheKey = "zones:summary"
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
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context) (*models.NetworkSummary, error) {
	return h.execute(ctx)
}

func (h *Handler) execute(ctx context.Context) (*models.NetworkSummary, error) {
	if cached := h.fromCache(ctx); cached != nil {
		return cached, nil
	}

	var summary models.NetworkSummary
	err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(population), 0),
			COALESCE(SUM(total_slots), 0),
			COALESCE(SUM(occupied), 0),
			COALESCE(SUM(free), 0)
		FROM zones`).Scan(&summary.TotalMunicipios, &summary.Habitantes,
		&summary.Plazas, &summary.Ocupadas, &summary.Libres)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(TaskType, err)
	}

	h.toCache(ctx, &summary)

	return &summary, nil
}

func (h *Handler) fromCache(ctx context.Context) *models.NetworkSummary {
	if h.redis == nil {
		return nil
	}
	raw, err := h.redis.Get(ctx, CacheKey).Result()
	if err != nil {
		if err != redis.Nil {
			h.logger.Warn("summary cache read failed", map[string]interface{}{
				"error": err,
			})
		}
		return nil
	}
	var summary models.NetworkSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil
	}
	return &summary
}

func (h *Handler) toCache(ctx context.Context, summary *models.NetworkSummary) {
	if h.redis == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, CacheKey, raw, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("summary cache write failed", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, summary *models.NetworkSummary) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(summary)
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
