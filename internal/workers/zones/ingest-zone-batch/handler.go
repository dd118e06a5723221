// internal/workers/zones/ingest-zone-batch/handler.go
package ingestzonebatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/common/metrics"
	"inmo-workers/internal/models"
	"inmo-workers/internal/zones/capacity"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	TaskType = "ingest-zone-batch"
)

type Handler struct {
	config       *Config
	db           *sql.DB
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		logger:       scoped,
		errorHandler: errors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
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
	if len(input.Rows) == 0 {
		return nil, errors.NewValidationFailedError("batch contains no rows")
	}
	if len(input.Rows) > h.config.MaxBatchRows {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("batch exceeds %d rows", h.config.MaxBatchRows))
	}

	output := &Output{}
	seen := make(map[string]bool, len(input.Rows))

	for i, row := range input.Rows {
		if err := validateRow(row); err != nil {
			output.Errors++
			output.Failures = append(output.Failures, fmt.Sprintf("row %d: %v", i, err))
			continue
		}

		key := capacity.Normalize(row.Province) + "|" + capacity.Normalize(row.Municipality)
		if seen[key] {
			output.Skipped++
			continue
		}
		seen[key] = true

		inserted, err := h.upsertZone(ctx, row)
		if err != nil {
			h.logger.Warn("row upsert failed", map[string]interface{}{
				"province":     row.Province,
				"municipality": row.Municipality,
				"error":        err,
			})
			output.Errors++
			output.Failures = append(output.Failures, fmt.Sprintf("row %d: %v", i, err))
			continue
		}
		if inserted {
			output.Inserted++
		} else {
			output.Updated++
		}
	}

	h.logger.Info("batch ingested", map[string]interface{}{
		"inserted": output.Inserted,
		"updated":  output.Updated,
		"skipped":  output.Skipped,
		"errors":   output.Errors,
	})

	return output, nil
}

func validateRow(row ZoneRow) error {
	if capacity.Normalize(row.Province) == "" {
		return fmt.Errorf("missing province")
	}
	if capacity.Normalize(row.Municipality) == "" {
		return fmt.Errorf("missing municipality")
	}
	if row.Population < 0 {
		return fmt.Errorf("negative population %d", row.Population)
	}
	return nil
}

// upsertZone inserts a new zone or recomputes an existing one. A concurrent
// insert racing past the initial lookup surfaces as a unique violation and is
// self-healed by retrying as an update.
func (h *Handler) upsertZone(ctx context.Context, row ZoneRow) (bool, error) {
	totalSlots := capacity.PermittedSlots(row.Province, row.Municipality, row.Population)

	var zoneID string
	var occupied int
	err := h.db.QueryRowContext(ctx, `
		SELECT id, occupied
		FROM zones
		WHERE province_norm = $1 AND municipality_norm = $2 AND district = '' AND level = $3`,
		capacity.Normalize(row.Province), capacity.Normalize(row.Municipality),
		models.ZoneLevelMunicipality).Scan(&zoneID, &occupied)

	switch {
	case err == sql.ErrNoRows:
		if insertErr := h.insertZone(ctx, row, totalSlots); insertErr != nil {
			if pqErr, ok := insertErr.(*pq.Error); ok && pqErr.Code == "23505" {
				// Lost the insert race; fall back to update-in-place.
				return false, h.updateExisting(ctx, row, totalSlots)
			}
			return false, fmt.Errorf("insert zone: %w", insertErr)
		}
		return true, nil

	case err != nil:
		return false, fmt.Errorf("lookup zone: %w", err)

	default:
		return false, h.updateZone(ctx, zoneID, row.Population, totalSlots, occupied)
	}
}

func (h *Handler) insertZone(ctx context.Context, row ZoneRow, totalSlots int) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO zones (id, province, municipality, district, level,
			province_norm, municipality_norm, population,
			total_slots, occupied, free, status, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $5, $6, $7, $8, 0, $8, $9, NOW(), NOW())`,
		uuid.New().String(), row.Province, row.Municipality, models.ZoneLevelMunicipality,
		capacity.Normalize(row.Province), capacity.Normalize(row.Municipality),
		row.Population, totalSlots, models.ZoneStatusFree)
	return err
}

func (h *Handler) updateExisting(ctx context.Context, row ZoneRow, totalSlots int) error {
	var zoneID string
	var occupied int
	err := h.db.QueryRowContext(ctx, `
		SELECT id, occupied
		FROM zones
		WHERE province_norm = $1 AND municipality_norm = $2 AND district = '' AND level = $3`,
		capacity.Normalize(row.Province), capacity.Normalize(row.Municipality),
		models.ZoneLevelMunicipality).Scan(&zoneID, &occupied)
	if err != nil {
		return fmt.Errorf("re-lookup after conflict: %w", err)
	}
	return h.updateZone(ctx, zoneID, row.Population, totalSlots, occupied)
}

func (h *Handler) updateZone(ctx context.Context, zoneID string, population, totalSlots, occupied int) error {
	// Repartitioning may shrink capacity below the current occupancy; the
	// occupied count is clamped rather than rejected, same as occupy-slot.
	clamped, wasClamped := capacity.Clamp(occupied, totalSlots)
	if wasClamped {
		metrics.OccupancyClamped.WithLabelValues("ingest").Inc()
		h.logger.Warn("occupied count clamped by capacity change", map[string]interface{}{
			"zoneId":     zoneID,
			"occupied":   occupied,
			"totalSlots": totalSlots,
		})
	}

	status := capacity.StatusFor(clamped, totalSlots)
	_, err := h.db.ExecContext(ctx, `
		UPDATE zones
		SET population = $2, total_slots = $3, occupied = $4, free = $5,
			status = $6, updated_at = NOW()
		WHERE id = $1`,
		zoneID, population, totalSlots, clamped, totalSlots-clamped, status)
	if err != nil {
		return fmt.Errorf("update zone: %w", err)
	}
	return nil
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
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
