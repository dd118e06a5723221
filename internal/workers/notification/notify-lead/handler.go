// internal/workers/notification/notify-lead/handler.go

// Package notifylead delivers lead-assignment notifications to franchisees
// over SES email, falling back to SNS SMS when no email is on file. The
// router calls Notify fire-and-forget; delivery failure never blocks lead
// creation.
package notifylead

import (
	"context"
	"database/sql"
	"encoding/json"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "notify-lead"
)

// EmailSender is satisfied by the SES client wrapper.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender is satisfied by the SNS client wrapper.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Handler struct {
	config       *Config
	db           *sql.DB
	email        EmailSender
	sms          SMSSender
	templates    *templateRegistry
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, email EmailSender, sms SMSSender, log logger.Logger) (*Handler, error) {
	templates, err := loadTemplates(config.TemplateRegistry)
	if err != nil {
		return nil, err
	}

	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		email:        email,
		sms:          sms,
		templates:    templates,
		logger:       scoped,
		errorHandler: errors.NewErrorHandler(scoped),
	}, nil
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

// Notify satisfies the router's fire-and-forget notifier.
func (h *Handler) Notify(ctx context.Context, lead *models.Lead) error {
	_, err := h.deliver(ctx, lead)
	return err
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.LeadID == "" {
		return nil, errors.NewValidationFailedError("leadId is required")
	}

	lead, err := h.findLead(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}

	return h.deliver(ctx, lead)
}

func (h *Handler) deliver(ctx context.Context, lead *models.Lead) (*Output, error) {
	if !h.config.Enabled {
		return &Output{LeadID: lead.ID, Status: StatusDisabled}, nil
	}
	if lead.AssignedTo == "" {
		return &Output{LeadID: lead.ID, Status: StatusDisabled}, nil
	}

	franchisee, err := h.findFranchisee(ctx, lead.AssignedTo)
	if err != nil {
		return nil, err
	}

	if franchisee.Email != "" && h.email != nil {
		messageID, err := h.sendEmail(ctx, lead, franchisee)
		if err != nil {
			return nil, errors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		return &Output{
			LeadID:    lead.ID,
			Status:    StatusSent,
			Channel:   ChannelEmail,
			Recipient: franchisee.Email,
			MessageID: messageID,
		}, nil
	}

	if franchisee.Phone != "" && h.sms != nil {
		messageID, err := h.sendSMS(ctx, lead, franchisee)
		if err != nil {
			return nil, errors.NewNotificationSendFailedError(ChannelSMS, err)
		}
		return &Output{
			LeadID:    lead.ID,
			Status:    StatusSent,
			Channel:   ChannelSMS,
			Recipient: franchisee.Phone,
			MessageID: messageID,
		}, nil
	}

	h.logger.Warn("franchisee has no reachable contact", map[string]interface{}{
		"leadId":       lead.ID,
		"franchiseeId": franchisee.ID,
	})
	return &Output{LeadID: lead.ID, Status: StatusDisabled}, nil
}

func (h *Handler) sendEmail(ctx context.Context, lead *models.Lead, franchisee *models.Franchisee) (string, error) {
	tpl, ok := h.templates.get("lead_assigned_email")
	if !ok {
		return "", errors.NewTemplateNotFoundError("lead_assigned_email")
	}

	out, err := h.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(h.config.SenderEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{franchisee.Email},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(render(tpl.Subject, lead, franchisee))},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(render(tpl.Body, lead, franchisee))},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

func (h *Handler) sendSMS(ctx context.Context, lead *models.Lead, franchisee *models.Franchisee) (string, error) {
	tpl, ok := h.templates.get("lead_assigned_sms")
	if !ok {
		return "", errors.NewTemplateNotFoundError("lead_assigned_sms")
	}

	out, err := h.sms.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(franchisee.Phone),
		Message:     aws.String(render(tpl.Body, lead, franchisee)),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

func (h *Handler) findLead(ctx context.Context, leadID string) (*models.Lead, error) {
	var lead models.Lead
	var assignedTo, email sql.NullString
	err := h.db.QueryRowContext(ctx, `
		SELECT id, kind, province, municipality, name, phone, email, assigned_to, status
		FROM leads
		WHERE id = $1`,
		leadID).Scan(&lead.ID, &lead.Kind, &lead.Province, &lead.Municipality,
		&lead.Name, &lead.Phone, &email, &assignedTo, &lead.Status)
	if err == sql.ErrNoRows {
		return nil, errors.NewLeadNotFoundError(leadID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(TaskType, err)
	}
	lead.Email = email.String
	lead.AssignedTo = assignedTo.String
	return &lead, nil
}

func (h *Handler) findFranchisee(ctx context.Context, franchiseeID string) (*models.Franchisee, error) {
	var franchisee models.Franchisee
	var email, phone sql.NullString
	err := h.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, active
		FROM franchisees
		WHERE id = $1`,
		franchiseeID).Scan(&franchisee.ID, &franchisee.Name, &email, &phone, &franchisee.Active)
	if err == sql.ErrNoRows {
		return nil, errors.NewFranchiseeNotFoundError(franchiseeID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(TaskType, err)
	}
	franchisee.Email = email.String
	franchisee.Phone = phone.String
	return &franchisee, nil
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
