// internal/workers/leads/route-lead/handler_test.go
package routelead

import (
	"context"
	"testing"
	"time"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/models"
	resolveassignment "inmo-workers/internal/workers/leads/resolve-assignment"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	output *resolveassignment.Output
	err    error
}

func (s *stubResolver) Execute(ctx context.Context, input *resolveassignment.Input) (*resolveassignment.Output, error) {
	return s.output, s.err
}

type recordingNotifier struct {
	notified chan string
}

func (n *recordingNotifier) Notify(ctx context.Context, lead *models.Lead) error {
	n.notified <- lead.ID
	return nil
}

type recordingEnricher struct {
	leadIDs []string
}

func (e *recordingEnricher) Submit(leadID, municipality, province string) error {
	e.leadIDs = append(e.leadIDs, leadID)
	return nil
}

func newTestHandler(t *testing.T, resolver AssignmentResolver) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewHandler(LoadConfig(), db, nil, resolver, nil, nil, logger.NewTestLogger(t)), mock
}

func ownerInput() *Input {
	return &Input{
		LeadRef:      "ref-1",
		Kind:         models.LeadKindOwner,
		Province:     "Granada",
		Municipality: "Granada",
		Name:         "Ana",
		Phone:        "+34600000001",
	}
}

func TestExecuteAssignsLeastLoadedFranchisee(t *testing.T) {
	handler, mock := newTestHandler(t, &stubResolver{})

	// F1 has 2 leads, F2 has 0: the query returns F2.
	mock.ExpectQuery(`SELECT za.franchisee_id`).
		WithArgs("granada", "granada").
		WillReturnRows(sqlmock.NewRows([]string{"franchisee_id"}).AddRow("fr-2"))
	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs(sqlmock.AnyArg(), "ref-1", models.LeadKindOwner, "Granada", "Granada",
			"Ana", "+34600000001", "", "", "fr-2", models.LeadStatusAssigned).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), ownerInput())

	require.NoError(t, err)
	assert.Equal(t, "fr-2", output.AssignedTo)
	assert.Equal(t, models.LeadStatusAssigned, output.Status)
	assert.Equal(t, resolveassignment.SourceOccupancy, output.Source)
	assert.False(t, output.Duplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteFallsBackToResolver(t *testing.T) {
	resolver := &stubResolver{output: &resolveassignment.Output{
		FranchiseeID: "central",
		Source:       resolveassignment.SourceFallback,
	}}
	handler, mock := newTestHandler(t, resolver)

	mock.ExpectQuery(`SELECT za.franchisee_id`).
		WithArgs("granada", "granada").
		WillReturnRows(sqlmock.NewRows([]string{"franchisee_id"}))
	mock.ExpectExec(`INSERT INTO leads`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), ownerInput())

	require.NoError(t, err)
	assert.Equal(t, "central", output.AssignedTo)
	assert.Equal(t, resolveassignment.SourceFallback, output.Source)
}

func TestExecuteUnassignedLeadStaysNew(t *testing.T) {
	resolver := &stubResolver{output: &resolveassignment.Output{Source: resolveassignment.SourceNone}}
	handler, mock := newTestHandler(t, resolver)

	mock.ExpectQuery(`SELECT za.franchisee_id`).
		WillReturnRows(sqlmock.NewRows([]string{"franchisee_id"}))
	mock.ExpectExec(`INSERT INTO leads`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), ownerInput())

	require.NoError(t, err)
	assert.Empty(t, output.AssignedTo)
	assert.Equal(t, models.LeadStatusNew, output.Status)
}

func TestExecuteFranchiseKindSkipsRouting(t *testing.T) {
	handler, mock := newTestHandler(t, &stubResolver{})

	// No routing query expected for franchise applications.
	mock.ExpectExec(`INSERT INTO leads`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	input := ownerInput()
	input.Kind = models.LeadKindFranchise

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Empty(t, output.AssignedTo)
	assert.Equal(t, models.LeadStatusNew, output.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteIdempotentViaRedisClaim(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set(idempotencyKeyPrefix+"ref-1", "1"))

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	handler := NewHandler(LoadConfig(), db, rdb, &stubResolver{}, nil, nil, logger.NewTestLogger(t))

	mock.ExpectQuery(`SELECT id, lead_ref, kind, province, municipality`).
		WithArgs("ref-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "lead_ref", "kind", "province", "municipality", "assigned_to", "status"}).
			AddRow("lead-1", "ref-1", "owner", "Granada", "Granada", "fr-2", "assigned"))

	output, err := handler.Execute(context.Background(), ownerInput())

	require.NoError(t, err)
	assert.True(t, output.Duplicate)
	assert.Equal(t, "lead-1", output.LeadID)
	assert.Equal(t, "fr-2", output.AssignedTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteIdempotentViaUniqueIndex(t *testing.T) {
	handler, mock := newTestHandler(t, &stubResolver{})

	mock.ExpectQuery(`SELECT za.franchisee_id`).
		WillReturnRows(sqlmock.NewRows([]string{"franchisee_id"}).AddRow("fr-2"))
	mock.ExpectExec(`INSERT INTO leads`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(`SELECT id, lead_ref, kind, province, municipality`).
		WithArgs("ref-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "lead_ref", "kind", "province", "municipality", "assigned_to", "status"}).
			AddRow("lead-1", "ref-1", "owner", "Granada", "Granada", "fr-2", "assigned"))

	output, err := handler.Execute(context.Background(), ownerInput())

	require.NoError(t, err)
	assert.True(t, output.Duplicate)
	assert.Equal(t, "lead-1", output.LeadID)
}

func TestExecuteRejectsInvalidInput(t *testing.T) {
	handler, _ := newTestHandler(t, &stubResolver{})

	input := ownerInput()
	input.Kind = "buyer"

	_, err := handler.Execute(context.Background(), input)

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)

	input = ownerInput()
	input.Phone = ""
	_, err = handler.Execute(context.Background(), input)
	assert.Error(t, err)
}

func TestExecuteFiresSideEffects(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	notifier := &recordingNotifier{notified: make(chan string, 1)}
	enricher := &recordingEnricher{}
	handler := NewHandler(LoadConfig(), db, nil, &stubResolver{}, notifier, enricher, logger.NewTestLogger(t))

	mock.ExpectQuery(`SELECT za.franchisee_id`).
		WillReturnRows(sqlmock.NewRows([]string{"franchisee_id"}).AddRow("fr-2"))
	mock.ExpectExec(`INSERT INTO leads`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), ownerInput())
	require.NoError(t, err)

	select {
	case leadID := <-notifier.notified:
		assert.Equal(t, output.LeadID, leadID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not fired")
	}
	assert.Equal(t, []string{output.LeadID}, enricher.leadIDs)
}
