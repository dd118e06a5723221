// internal/workers/enrichment/task-status/handler.go

// Package taskstatus answers polls for detached enrichment tasks. Unknown
// handles report status unknown instead of failing: an expired record and a
// never-created one look the same to the poller.
package taskstatus

import (
	"context"
	"encoding/json"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/enrichment"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "task-status"
)

type Input struct {
	TaskID string `json:"taskId"`
}

type Output struct {
	TaskID             string `json:"taskId"`
	Status             string `json:"status"`
	LeadID             string `json:"leadId,omitempty"`
	CadastralReference string `json:"cadastralReference,omitempty"`
	Error              string `json:"error,omitempty"`
	UpdatedAt          string `json:"updatedAt,omitempty"`
}

type Handler struct {
	config       *Config
	store        *enrichment.TaskStore
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, store *enrichment.TaskStore, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		logger:       scoped,
		errorHandler: errors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
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
	if input.TaskID == "" {
		return nil, errors.NewValidationFailedError("taskId is required")
	}

	rec, err := h.store.Get(ctx, input.TaskID)
	if err != nil {
		return nil, errors.NewExternalServiceError("task-store", err)
	}

	return &Output{
		TaskID:             rec.TaskID,
		Status:             rec.Status,
		LeadID:             rec.LeadID,
		CadastralReference: rec.CadastralReference,
		Error:              rec.Error,
		UpdatedAt:          rec.UpdatedAt,
	}, nil
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
