// internal/workers/leads/update-lead-status/handler.go
package updateleadstatus

import (
	"context"
	"database/sql"
	"encoding/json"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/leads/statemachine"
	"inmo-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "update-lead-status"
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
	if input.LeadID == "" {
		return nil, errors.NewValidationFailedError("leadId is required")
	}
	if !statemachine.IsValidStatus(input.Status) {
		return nil, errors.NewValidationFailedError("unsupported status " + input.Status)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	var current string
	var assignedTo sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT status, assigned_to
		FROM leads
		WHERE id = $1
		FOR UPDATE`,
		input.LeadID).Scan(&current, &assignedTo)
	if err == sql.ErrNoRows {
		return nil, errors.NewLeadNotFoundError(input.LeadID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(TaskType, err)
	}

	if !statemachine.CanTransition(current, input.Status) {
		return nil, errors.NewStatusTransitionInvalidError(current, input.Status)
	}

	newAssignedTo := assignedTo.String
	if input.Status == models.LeadStatusAssigned && input.AssignedTo != "" {
		newAssignedTo = input.AssignedTo
	}

	var assignedArg interface{}
	if newAssignedTo != "" {
		assignedArg = newAssignedTo
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE leads
		SET status = $2, assigned_to = $3, updated_at = NOW()
		WHERE id = $1`,
		input.LeadID, input.Status, assignedArg)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(TaskType, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(TaskType, err)
	}

	h.logger.Info("lead status updated", map[string]interface{}{
		"leadId": input.LeadID,
		"from":   current,
		"to":     input.Status,
	})

	return &Output{
		LeadID:         input.LeadID,
		PreviousStatus: current,
		Status:         input.Status,
		AssignedTo:     newAssignedTo,
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
