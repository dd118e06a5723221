// internal/workers/enrichment/cadastral-lookup/handler.go

// Package cadastrallookup resolves an address to its cadastral reference,
// detached from the request path. Submitting returns a task handle at once;
// the pool runs the lookup and writes the terminal state to the task store,
// where task-status reads it. All lookup failures collapse into a terminal
// error status, never into a failed job.
package cadastrallookup

import (
	"context"
	"encoding/json"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/enrichment"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "cadastral-lookup"
)

// Resolver is satisfied by the cadastral HTTP client.
type Resolver interface {
	Resolve(ctx context.Context, address, municipality, province string) (string, error)
}

type Handler struct {
	config       *Config
	store        *enrichment.TaskStore
	pool         *enrichment.Pool
	resolver     Resolver
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, store *enrichment.TaskStore, pool *enrichment.Pool,
	resolver Resolver, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		pool:         pool,
		resolver:     resolver,
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

// Submit satisfies the router's enricher hook.
func (h *Handler) Submit(leadID, municipality, province string) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	_, err := h.execute(ctx, &Input{
		LeadID:       leadID,
		Municipality: municipality,
		Province:     province,
	})
	return err
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Municipality == "" || input.Province == "" {
		return nil, errors.NewValidationFailedError("municipality and province are required")
	}

	taskID := uuid.New().String()

	if err := h.store.Put(ctx, enrichment.TaskRecord{
		TaskID: taskID,
		LeadID: input.LeadID,
		Status: enrichment.StatusPending,
	}); err != nil {
		return nil, errors.NewExternalServiceError("task-store", err)
	}

	address := input.Address
	leadID := input.LeadID
	municipality := input.Municipality
	province := input.Province

	err := h.pool.Submit(func(taskCtx context.Context) {
		h.runLookup(taskCtx, taskID, leadID, address, municipality, province)
	})
	if err != nil {
		// Queue saturated: record the terminal state and still answer with
		// the handle so pollers see a consistent story.
		h.writeRecord(enrichment.TaskRecord{
			TaskID: taskID,
			LeadID: leadID,
			Status: enrichment.StatusError,
			Error:  err.Error(),
		})
		return &Output{TaskID: taskID, Status: enrichment.StatusError}, nil
	}

	return &Output{TaskID: taskID, Status: enrichment.StatusPending}, nil
}

func (h *Handler) runLookup(ctx context.Context, taskID, leadID, address, municipality, province string) {
	reference, err := h.resolver.Resolve(ctx, address, municipality, province)
	if err != nil {
		h.logger.Warn("cadastral lookup failed", map[string]interface{}{
			"taskId": taskID,
			"error":  err,
		})
		h.writeRecord(enrichment.TaskRecord{
			TaskID: taskID,
			LeadID: leadID,
			Status: enrichment.StatusError,
			Error:  err.Error(),
		})
		return
	}

	h.writeRecord(enrichment.TaskRecord{
		TaskID:             taskID,
		LeadID:             leadID,
		Status:             enrichment.StatusDone,
		CadastralReference: reference,
	})
}

// writeRecord stores a terminal state with a fresh context; the submitting
// request may be long gone by the time the lookup finishes.
func (h *Handler) writeRecord(rec enrichment.TaskRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if err := h.store.Put(ctx, rec); err != nil {
		h.logger.Error("failed to store task record", map[string]interface{}{
			"taskId": rec.TaskID,
			"error":  err,
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
