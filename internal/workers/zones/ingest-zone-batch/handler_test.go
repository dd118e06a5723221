// internal/workers/zones/ingest-zone-batch/handler_test.go
package ingestzonebatch

import (
	"context"
	"database/sql"
	"testing"

	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewHandler(LoadConfig(), db, logger.NewTestLogger(t)), mock
}

func TestExecuteInsertsNewZone(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT id, occupied`).
		WithArgs("granada", "granada", models.ZoneLevelMunicipality).
		WillReturnError(errNoRows())
	mock.ExpectExec(`INSERT INTO zones`).
		WithArgs(sqlmock.AnyArg(), "Granada", "Granada", models.ZoneLevelMunicipality,
			"granada", "granada", 230000, 23, models.ZoneStatusFree).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		Rows: []ZoneRow{{Province: "Granada", Municipality: "Granada", Population: 230000}},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, output.Inserted)
	assert.Equal(t, 0, output.Updated)
	assert.Equal(t, 0, output.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteUpdatesExistingZone(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT id, occupied`).
		WithArgs("madrid", "madrid", models.ZoneLevelMunicipality).
		WillReturnRows(sqlmock.NewRows([]string{"id", "occupied"}).AddRow("zone-1", 2))
	// Madrid capital: 45000 / 20000 -> 3 slots, occupied stays at 2.
	mock.ExpectExec(`UPDATE zones`).
		WithArgs("zone-1", 45000, 3, 2, 1, models.ZoneStatusPartial).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		Rows: []ZoneRow{{Province: "Madrid", Municipality: "Madrid", Population: 45000}},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, output.Inserted)
	assert.Equal(t, 1, output.Updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteClampsOccupiedWhenCapacityShrinks(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT id, occupied`).
		WithArgs("sevilla", "dos hermanas", models.ZoneLevelMunicipality).
		WillReturnRows(sqlmock.NewRows([]string{"id", "occupied"}).AddRow("zone-2", 5))
	// Population drop: 15000 -> 2 slots, occupied 5 clamps to 2, zone is full.
	mock.ExpectExec(`UPDATE zones`).
		WithArgs("zone-2", 15000, 2, 2, 0, models.ZoneStatusFull).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		Rows: []ZoneRow{{Province: "Sevilla", Municipality: "Dos Hermanas", Population: 15000}},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, output.Updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSelfHealsInsertRace(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT id, occupied`).
		WithArgs("toledo", "toledo", models.ZoneLevelMunicipality).
		WillReturnError(errNoRows())
	mock.ExpectExec(`INSERT INTO zones`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(`SELECT id, occupied`).
		WithArgs("toledo", "toledo", models.ZoneLevelMunicipality).
		WillReturnRows(sqlmock.NewRows([]string{"id", "occupied"}).AddRow("zone-3", 0))
	mock.ExpectExec(`UPDATE zones`).
		WithArgs("zone-3", 85000, 9, 0, 9, models.ZoneStatusFree).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		Rows: []ZoneRow{{Province: "Toledo", Municipality: "Toledo", Population: 85000}},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, output.Inserted)
	assert.Equal(t, 1, output.Updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSkipsDuplicateKeysWithinBatch(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT id, occupied`).
		WithArgs("burgos", "burgos", models.ZoneLevelMunicipality).
		WillReturnError(errNoRows())
	mock.ExpectExec(`INSERT INTO zones`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		Rows: []ZoneRow{
			{Province: "Burgos", Municipality: "Burgos", Population: 170000},
			{Province: "BURGOS", Municipality: "  Burgos ", Population: 170000},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, output.Inserted)
	assert.Equal(t, 1, output.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteRowFailureDoesNotAbortBatch(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT id, occupied`).
		WithArgs("cuenca", "cuenca", models.ZoneLevelMunicipality).
		WillReturnError(errNoRows())
	mock.ExpectExec(`INSERT INTO zones`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		Rows: []ZoneRow{
			{Province: "", Municipality: "Nowhere", Population: 1000},
			{Province: "Valencia", Municipality: "Gandia", Population: -5},
			{Province: "Cuenca", Municipality: "Cuenca", Population: 54000},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, output.Inserted)
	assert.Equal(t, 2, output.Errors)
	assert.Len(t, output.Failures, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteRejectsEmptyBatch(t *testing.T) {
	handler, _ := newTestHandler(t)

	_, err := handler.Execute(context.Background(), &Input{})
	assert.Error(t, err)
}

func TestExecuteRejectsOversizedBatch(t *testing.T) {
	handler, _ := newTestHandler(t)
	handler.config.MaxBatchRows = 1

	_, err := handler.Execute(context.Background(), &Input{
		Rows: []ZoneRow{
			{Province: "A", Municipality: "A", Population: 1},
			{Province: "B", Municipality: "B", Population: 1},
		},
	})
	assert.Error(t, err)
}

func errNoRows() error {
	return sql.ErrNoRows
}
