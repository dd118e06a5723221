// internal/workers/leads/route-lead/handler.go

// Package routelead assigns inbound leads to franchisees. Owner and tenant
// leads go to the least-loaded franchisee covering the zone; franchise
// applications skip routing and land in central admin review. Routing is
// idempotent per leadRef.
package routelead

import (
	"context"
	"database/sql"
	"encoding/json"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/common/metrics"
	"inmo-workers/internal/leads/statemachine"
	"inmo-workers/internal/models"
	resolveassignment "inmo-workers/internal/workers/leads/resolve-assignment"
	"inmo-workers/internal/zones/capacity"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "route-lead"

	idempotencyKeyPrefix = "leads:ref:"
)

// Routing outcomes recorded in metrics.
const (
	outcomeAssigned   = "assigned"
	outcomeUnassigned = "unassigned"
	outcomeSkipped    = "skipped"
	outcomeDuplicate  = "duplicate"
)

// AssignmentResolver is the province/municipality fallback lookup, consulted
// when no franchisee covers the exact zone.
type AssignmentResolver interface {
	Execute(ctx context.Context, input *resolveassignment.Input) (*resolveassignment.Output, error)
}

// Notifier delivers the assignment notification. Failures are swallowed:
// notification must never block lead creation.
type Notifier interface {
	Notify(ctx context.Context, lead *models.Lead) error
}

// Enricher submits the detached cadastral enrichment task for a lead.
type Enricher interface {
	Submit(leadID, municipality, province string) error
}

type Handler struct {
	config       *Config
	db           *sql.DB
	redis        *redis.Client
	resolver     AssignmentResolver
	notifier     Notifier
	enricher     Enricher
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, resolver AssignmentResolver,
	notifier Notifier, enricher Enricher, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		redis:        rdb,
		resolver:     resolver,
		notifier:     notifier,
		enricher:     enricher,
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
	if err := validateInput(input); err != nil {
		return nil, errors.NewValidationFailedError(err.Error())
	}

	if dup, err := h.claimLeadRef(ctx, input.LeadRef); err != nil {
		return nil, err
	} else if dup {
		existing, err := h.findByLeadRef(ctx, input.LeadRef)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			metrics.LeadsRouted.WithLabelValues(input.Kind, outcomeDuplicate).Inc()
			return existing, nil
		}
		// Claim exists but the lead row does not: an earlier attempt died
		// between SETNX and INSERT. Proceed with creation.
	}

	assignedTo, source, err := h.route(ctx, input)
	if err != nil {
		return nil, err
	}

	status := models.LeadStatusNew
	if assignedTo != "" {
		status = models.LeadStatusAssigned
	}

	lead := &models.Lead{
		ID:           uuid.New().String(),
		LeadRef:      input.LeadRef,
		Kind:         input.Kind,
		Province:     input.Province,
		Municipality: input.Municipality,
		Name:         input.Name,
		Phone:        input.Phone,
		Email:        input.Email,
		Notes:        input.Notes,
		AssignedTo:   assignedTo,
		Status:       status,
	}

	if dup, err := h.insertLead(ctx, lead); err != nil {
		return nil, err
	} else if dup {
		existing, err := h.findByLeadRef(ctx, input.LeadRef)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, errors.NewDuplicateLeadError(input.LeadRef)
		}
		metrics.LeadsRouted.WithLabelValues(input.Kind, outcomeDuplicate).Inc()
		return existing, nil
	}

	h.recordOutcome(lead)
	h.fireSideEffects(lead)

	return &Output{
		LeadID:       lead.ID,
		LeadRef:      lead.LeadRef,
		Kind:         lead.Kind,
		Province:     lead.Province,
		Municipality: lead.Municipality,
		AssignedTo:   lead.AssignedTo,
		Status:       lead.Status,
		Source:       source,
	}, nil
}

// route picks the franchisee for owner/tenant leads. Franchise applications
// are policy-routed to central review, so no lookup runs for them.
func (h *Handler) route(ctx context.Context, input *Input) (string, string, error) {
	if input.Kind == models.LeadKindFranchise {
		return "", "", nil
	}

	franchiseeID, err := h.leastLoaded(ctx, input.Province, input.Municipality)
	if err != nil {
		return "", "", err
	}
	if franchiseeID != "" {
		return franchiseeID, resolveassignment.SourceOccupancy, nil
	}

	if h.resolver == nil {
		return "", resolveassignment.SourceNone, nil
	}
	resolved, err := h.resolver.Execute(ctx, &resolveassignment.Input{
		Province:     input.Province,
		Municipality: input.Municipality,
	})
	if err != nil {
		return "", "", err
	}
	return resolved.FranchiseeID, resolved.Source, nil
}

// leastLoaded picks the franchisee covering the zone with the fewest leads in
// that exact (province, municipality) pair. Ties break on the lowest
// franchisee identifier so routing is reproducible.
func (h *Handler) leastLoaded(ctx context.Context, province, municipality string) (string, error) {
	var franchiseeID string
	err := h.db.QueryRowContext(ctx, `
		SELECT za.franchisee_id
		FROM zone_assignments za
		JOIN zones z ON z.id = za.zone_id
		LEFT JOIN leads l ON l.assigned_to = za.franchisee_id
			AND LOWER(TRIM(l.province)) = z.province_norm
			AND LOWER(TRIM(l.municipality)) = z.municipality_norm
		WHERE z.province_norm = $1 AND z.municipality_norm = $2
		GROUP BY za.franchisee_id
		ORDER BY COUNT(l.id), za.franchisee_id
		LIMIT 1`,
		capacity.Normalize(province), capacity.Normalize(municipality)).Scan(&franchiseeID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.NewQueryExecutionFailedError(TaskType, err)
	}
	return franchiseeID, nil
}

func (h *Handler) insertLead(ctx context.Context, lead *models.Lead) (bool, error) {
	if !statemachine.IsValidStatus(lead.Status) {
		return false, errors.NewValidationFailedError("unsupported status " + lead.Status)
	}

	var assignedTo interface{}
	if lead.AssignedTo != "" {
		assignedTo = lead.AssignedTo
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO leads (id, lead_ref, kind, province, municipality, name,
			phone, email, notes, assigned_to, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`,
		lead.ID, lead.LeadRef, lead.Kind, lead.Province, lead.Municipality,
		lead.Name, lead.Phone, lead.Email, lead.Notes, assignedTo, lead.Status)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return true, nil
		}
		return false, errors.NewDatabaseInsertFailedError(err)
	}
	return false, nil
}

func (h *Handler) findByLeadRef(ctx context.Context, leadRef string) (*Output, error) {
	var output Output
	var assignedTo sql.NullString
	err := h.db.QueryRowContext(ctx, `
		SELECT id, lead_ref, kind, province, municipality, assigned_to, status
		FROM leads
		WHERE lead_ref = $1`,
		leadRef).Scan(&output.LeadID, &output.LeadRef, &output.Kind,
		&output.Province, &output.Municipality, &assignedTo, &output.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(TaskType, err)
	}
	output.AssignedTo = assignedTo.String
	output.Duplicate = true
	return &output, nil
}

// claimLeadRef takes the redis idempotency claim for a leadRef. A lost claim
// means another routing attempt already ran; the unique index on lead_ref
// backstops this when redis is unavailable.
func (h *Handler) claimLeadRef(ctx context.Context, leadRef string) (bool, error) {
	if h.redis == nil {
		return false, nil
	}
	claimed, err := h.redis.SetNX(ctx, idempotencyKeyPrefix+leadRef, "1", h.config.IdempotencyTTL).Result()
	if err != nil {
		h.logger.Warn("idempotency claim failed, relying on unique index", map[string]interface{}{
			"leadRef": leadRef,
			"error":   err,
		})
		return false, nil
	}
	return !claimed, nil
}

func (h *Handler) recordOutcome(lead *models.Lead) {
	outcome := outcomeUnassigned
	switch {
	case lead.Kind == models.LeadKindFranchise:
		outcome = outcomeSkipped
	case lead.AssignedTo != "":
		outcome = outcomeAssigned
	}
	metrics.LeadsRouted.WithLabelValues(lead.Kind, outcome).Inc()

	h.logger.Info("lead routed", map[string]interface{}{
		"leadId":     lead.ID,
		"kind":       lead.Kind,
		"assignedTo": lead.AssignedTo,
		"status":     lead.Status,
	})
}

// fireSideEffects runs notification and enrichment detached from the routing
// path. Neither may fail the job.
func (h *Handler) fireSideEffects(lead *models.Lead) {
	if h.notifier != nil {
		go func(l models.Lead) {
			ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
			defer cancel()
			if err := h.notifier.Notify(ctx, &l); err != nil {
				h.logger.Warn("lead notification failed", map[string]interface{}{
					"leadId": l.ID,
					"error":  err,
				})
			}
		}(*lead)
	}

	if h.enricher != nil {
		if err := h.enricher.Submit(lead.ID, lead.Municipality, lead.Province); err != nil {
			h.logger.Warn("cadastral enrichment submit failed", map[string]interface{}{
				"leadId": lead.ID,
				"error":  err,
			})
		}
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
