// internal/workers/zones/query-zones/handler_test.go
package queryzones

import (
	"context"
	"testing"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewHandler(LoadConfig(), db, logger.NewTestLogger(t)), mock
}

func TestExecuteZoneListWithFilters(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT id, province, municipality, population`).
		WithArgs("granada", "partial").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "province", "municipality", "population", "total_slots", "occupied", "free", "status"}).
			AddRow("zone-1", "Granada", "Granada", 230000, 23, 4, 19, "partial"))

	output, err := handler.Execute(context.Background(), &Input{
		QueryType: "zone_list",
		Province:  "Granada",
		Status:    "partial",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, output.RowCount)
	rows, ok := output.Data.([]map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "zone-1", rows[0]["zoneId"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteZoneDetailIncludesAssignments(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT id, province, municipality, district, level`).
		WithArgs("zone-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "province", "municipality", "district", "level",
				"population", "total_slots", "occupied", "free", "status"}).
			AddRow("zone-1", "Granada", "Granada", "", "municipality", 230000, 23, 2, 21, "partial"))
	mock.ExpectQuery(`SELECT franchisee_id, assigned_at`).
		WithArgs("zone-1").
		WillReturnRows(sqlmock.NewRows([]string{"franchisee_id", "assigned_at"}).
			AddRow("fr-1", "2026-01-10T09:00:00Z").
			AddRow("fr-2", "2026-02-01T12:00:00Z"))

	output, err := handler.Execute(context.Background(), &Input{
		QueryType: "zone_detail",
		ZoneID:    "zone-1",
	})

	require.NoError(t, err)
	detail, ok := output.Data.(map[string]interface{})
	require.True(t, ok)
	assignments, ok := detail["assignments"].([]map[string]interface{})
	require.True(t, ok)
	assert.Len(t, assignments, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteZoneDetailNotFound(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT id, province, municipality, district, level`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "province", "municipality", "district", "level",
				"population", "total_slots", "occupied", "free", "status"}))

	_, err := handler.Execute(context.Background(), &Input{
		QueryType: "zone_detail",
		ZoneID:    "missing",
	})

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeZoneNotFound, stdErr.Code)
}

func TestExecuteProvinceReport(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT province`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"province", "municipios", "habitantes", "plazas", "ocupadas", "libres"}).
			AddRow("Granada", 168, 920000, 104, 18, 86).
			AddRow("Madrid", 179, 6800000, 420, 200, 220))

	output, err := handler.Execute(context.Background(), &Input{QueryType: "province_report"})

	require.NoError(t, err)
	assert.Equal(t, 2, output.RowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteLeadListFiltersByStatus(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT id, lead_ref, kind, province`).
		WithArgs("new").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "lead_ref", "kind", "province", "municipality", "name",
				"phone", "email", "assigned_to", "status", "created_at"}).
			AddRow("lead-1", "ref-1", "owner", "Granada", "Granada", "Ana",
				"+34600000001", "", "", "new", "2026-03-01T10:00:00Z"))

	output, err := handler.Execute(context.Background(), &Input{
		QueryType: "lead_list",
		Status:    "new",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, output.RowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteRejectsUnknownQueryType(t *testing.T) {
	handler, _ := newTestHandler(t)

	_, err := handler.Execute(context.Background(), &Input{QueryType: "drop_tables"})

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidQueryType, stdErr.Code)
}
