// internal/workers/leads/resolve-assignment/handler.go

// Package resolveassignment finds the franchisee responsible for a zone.
// Lookup is two-tier: zone assignments by municipality, then by province,
// then the static province fallback table. Absence is a terminal state and
// never raises.
package resolveassignment

import (
	"context"
	"database/sql"
	"encoding/json"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/leads/fallback"
	"inmo-workers/internal/zones/capacity"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "resolve-assignment"
)

type Handler struct {
	config       *Config
	db           *sql.DB
	fallback     *fallback.Table
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, table *fallback.Table, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		fallback:     table,
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
	if input.Province == "" {
		return nil, errors.NewValidationFailedError("province is required")
	}

	if input.Municipality != "" {
		franchiseeID, err := h.lookupByMunicipality(ctx, input.Municipality)
		if err != nil {
			return nil, err
		}
		if franchiseeID != "" {
			return &Output{FranchiseeID: franchiseeID, Source: SourceOccupancy}, nil
		}
	}

	franchiseeID, err := h.lookupByProvince(ctx, input.Province)
	if err != nil {
		return nil, err
	}
	if franchiseeID != "" {
		return &Output{FranchiseeID: franchiseeID, Source: SourceOccupancy}, nil
	}

	if bucketID, ok := h.fallback.Resolve(input.Province); ok {
		return &Output{FranchiseeID: bucketID, Source: SourceFallback}, nil
	}

	h.logger.Info("no assignment found", map[string]interface{}{
		"province":     input.Province,
		"municipality": input.Municipality,
	})
	return &Output{Source: SourceNone}, nil
}

// Ties between franchisees sharing a zone break on the lowest identifier so
// resolution is reproducible.
func (h *Handler) lookupByMunicipality(ctx context.Context, municipality string) (string, error) {
	var franchiseeID string
	err := h.db.QueryRowContext(ctx, `
		SELECT za.franchisee_id
		FROM zone_assignments za
		JOIN zones z ON z.id = za.zone_id
		WHERE z.municipality_norm = $1
		ORDER BY za.franchisee_id
		LIMIT 1`,
		capacity.Normalize(municipality)).Scan(&franchiseeID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.NewQueryExecutionFailedError(TaskType, err)
	}
	return franchiseeID, nil
}

func (h *Handler) lookupByProvince(ctx context.Context, province string) (string, error) {
	var franchiseeID string
	err := h.db.QueryRowContext(ctx, `
		SELECT za.franchisee_id
		FROM zone_assignments za
		JOIN zones z ON z.id = za.zone_id
		WHERE z.province_norm = $1
		ORDER BY za.franchisee_id
		LIMIT 1`,
		capacity.Normalize(province)).Scan(&franchiseeID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.NewQueryExecutionFailedError(TaskType, err)
	}
	return franchiseeID, nil
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
