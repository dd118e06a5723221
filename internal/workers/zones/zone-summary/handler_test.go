// internal/workers/zones/zone-summary/handler_test.go
package zonesummary

import (
	"context"
	"testing"

	"inmo-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, rdb *redis.Client) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t)), mock
}

func TestExecuteAggregatesZones(t *testing.T) {
	handler, mock := newTestHandler(t, nil)

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"count", "habitantes", "plazas", "ocupadas", "libres"}).
			AddRow(812, 4500000, 470, 130, 340))

	summary, err := handler.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 812, summary.TotalMunicipios)
	assert.Equal(t, 4500000, summary.Habitantes)
	assert.Equal(t, 470, summary.Plazas)
	assert.Equal(t, 130, summary.Ocupadas)
	assert.Equal(t, 340, summary.Libres)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteServesFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set(CacheKey, `{"totalMunicipios":10,"habitantes":100000,"plazas":12,"ocupadas":4,"libres":8}`))

	handler, mock := newTestHandler(t, rdb)

	summary, err := handler.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 10, summary.TotalMunicipios)
	assert.Equal(t, 8, summary.Libres)
	// No database expectations were set: a cache hit must not touch postgres.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutePopulatesCacheOnMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	handler, mock := newTestHandler(t, rdb)

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"count", "habitantes", "plazas", "ocupadas", "libres"}).
			AddRow(5, 60000, 6, 1, 5))

	_, err := handler.Execute(context.Background())

	require.NoError(t, err)
	assert.True(t, mr.Exists(CacheKey))
}
