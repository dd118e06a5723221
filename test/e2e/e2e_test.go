// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inmo-workers/internal/common/config"
	"inmo-workers/internal/common/database"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/enrichment"
	"inmo-workers/internal/leads/fallback"
	"inmo-workers/internal/models"

	resolveassignment "inmo-workers/internal/workers/leads/resolve-assignment"
	routelead "inmo-workers/internal/workers/leads/route-lead"
	updateleadstatus "inmo-workers/internal/workers/leads/update-lead-status"
	ingestzonebatch "inmo-workers/internal/workers/zones/ingest-zone-batch"
	occupyslot "inmo-workers/internal/workers/zones/occupy-slot"
	releaseslot "inmo-workers/internal/workers/zones/release-slot"
	zonesummary "inmo-workers/internal/workers/zones/zone-summary"
)

// TestFullE2E drives the real worker flows against live postgres, redis and
// zeebe. Run with E2E_TESTS=1 and the docker compose stack up.
func TestFullE2E(t *testing.T) {
	if os.Getenv("E2E_TESTS") == "" {
		t.Skip("E2E_TESTS not set, skipping end-to-end smoke test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.NewTestLogger(t)

	// --- Connectivity ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "postgres connection failed")
	defer pg.Close()
	require.NoError(t, pg.Ping(ctx), "postgres ping failed")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "redis client creation failed")
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx), "redis ping failed")

	zeebe, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
	})
	require.NoError(t, err, "zeebe client creation failed")
	defer zeebe.Close()
	_, err = zeebe.NewTopologyCommand().Send(ctx)
	require.NoError(t, err, "zeebe topology request failed")

	createTables(t, ctx, pg)
	run := time.Now().UnixNano()

	// --- Zone registry: ingest then re-ingest idempotently ---
	ingest := ingestzonebatch.NewHandler(
		&ingestzonebatch.Config{Timeout: 60 * time.Second, MaxBatchRows: 10000},
		pg.DB, log,
	)

	batch := &ingestzonebatch.Input{Rows: []ingestzonebatch.ZoneRow{
		{Province: "Granada", Municipality: fmt.Sprintf("Testville-%d", run), Population: 230000},
		{Province: "Granada", Municipality: fmt.Sprintf("Smallville-%d", run), Population: 900},
	}}

	out, err := ingest.Execute(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Inserted)
	assert.Equal(t, 0, out.Errors)

	out, err = ingest.Execute(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Inserted)
	assert.Equal(t, 2, out.Updated)

	var zoneID string
	var totalSlots int
	err = pg.DB.QueryRowContext(ctx,
		"SELECT id, total_slots FROM zones WHERE municipality_norm = $1",
		fmt.Sprintf("testville-%d", run)).Scan(&zoneID, &totalSlots)
	require.NoError(t, err)
	assert.Equal(t, 23, totalSlots)

	// --- Occupancy: occupy then release restores state ---
	occupy := occupyslot.NewHandler(
		&occupyslot.Config{Timeout: 10 * time.Second}, pg.DB, rdb.Client, log)
	release := releaseslot.NewHandler(
		&releaseslot.Config{Timeout: 10 * time.Second}, pg.DB, rdb.Client, log)

	franchisee := fmt.Sprintf("fr-e2e-%d", run)
	occOut, err := occupy.Execute(ctx, &occupyslot.Input{
		ZoneID: zoneID, Increment: 1, AssignedTo: franchisee,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, occOut.Occupied)
	assert.False(t, occOut.Clamped)

	relOut, err := release.Execute(ctx, &releaseslot.Input{
		ZoneID: zoneID, Decrement: 1, AssignedTo: franchisee,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, relOut.Occupied)
	assert.Equal(t, models.ZoneStatusFree, relOut.Status)

	// --- Summary reflects the registry ---
	summary := zonesummary.NewHandler(
		&zonesummary.Config{Timeout: 30 * time.Second, CacheTTL: time.Second},
		pg.DB, rdb.Client, log)
	sumOut, err := summary.Execute(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sumOut.TotalMunicipios, 2)

	// --- Lead routing: occupy a slot, then route a lead into it ---
	_, err = occupy.Execute(ctx, &occupyslot.Input{
		ZoneID: zoneID, Increment: 1, AssignedTo: franchisee,
	})
	require.NoError(t, err)

	resolver := resolveassignment.NewHandler(
		&resolveassignment.Config{Timeout: 10 * time.Second},
		pg.DB, fallback.NewTable("central", nil), log)

	router := routelead.NewHandler(
		&routelead.Config{Timeout: 30 * time.Second, IdempotencyTTL: time.Minute},
		pg.DB, rdb.Client, resolver, nil, nil, log)

	leadRef := fmt.Sprintf("e2e-lead-%d", run)
	routeOut, err := router.Execute(ctx, &routelead.Input{
		LeadRef:      leadRef,
		Kind:         models.LeadKindOwner,
		Province:     "Granada",
		Municipality: fmt.Sprintf("Testville-%d", run),
		Name:         "Prueba Uno",
		Phone:        "+34600000001",
	})
	require.NoError(t, err)
	assert.Equal(t, franchisee, routeOut.AssignedTo)
	assert.Equal(t, models.LeadStatusAssigned, routeOut.Status)
	assert.False(t, routeOut.Duplicate)

	// Same leadRef again: duplicate, same lead back.
	dupOut, err := router.Execute(ctx, &routelead.Input{
		LeadRef:      leadRef,
		Kind:         models.LeadKindOwner,
		Province:     "Granada",
		Municipality: fmt.Sprintf("Testville-%d", run),
		Name:         "Prueba Uno",
		Phone:        "+34600000001",
	})
	require.NoError(t, err)
	assert.True(t, dupOut.Duplicate)
	assert.Equal(t, routeOut.LeadID, dupOut.LeadID)

	// --- Lifecycle: assigned -> done, and done is terminal ---
	status := updateleadstatus.NewHandler(
		&updateleadstatus.Config{Timeout: 10 * time.Second}, pg.DB, log)

	stOut, err := status.Execute(ctx, &updateleadstatus.Input{
		LeadID: routeOut.LeadID, Status: models.LeadStatusDone,
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusAssigned, stOut.PreviousStatus)

	_, err = status.Execute(ctx, &updateleadstatus.Input{
		LeadID: routeOut.LeadID, Status: models.LeadStatusNew,
	})
	assert.Error(t, err, "done must be terminal")

	// --- Detached task store round-trip over real redis ---
	store := enrichment.NewTaskStore(rdb.Client, time.Hour)
	rec := enrichment.TaskRecord{TaskID: fmt.Sprintf("e2e-task-%d", run), Status: enrichment.StatusPending}
	require.NoError(t, store.Put(ctx, rec))
	got, err := store.Get(ctx, rec.TaskID)
	require.NoError(t, err)
	assert.Equal(t, enrichment.StatusPending, got.Status)
}

func createTables(t *testing.T, ctx context.Context, pg *database.PostgresClient) {
	t.Helper()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS zones (
			id VARCHAR(255) PRIMARY KEY,
			province VARCHAR(255) NOT NULL,
			municipality VARCHAR(255) NOT NULL,
			district VARCHAR(255) DEFAULT '',
			level VARCHAR(50) NOT NULL,
			province_norm VARCHAR(255) NOT NULL,
			municipality_norm VARCHAR(255) NOT NULL,
			population INTEGER NOT NULL,
			total_slots INTEGER NOT NULL,
			occupied INTEGER NOT NULL DEFAULT 0,
			free INTEGER NOT NULL,
			status VARCHAR(50) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(province_norm, municipality_norm, district, level)
		)`,
		`CREATE TABLE IF NOT EXISTS zone_assignments (
			zone_id VARCHAR(255) NOT NULL REFERENCES zones(id),
			franchisee_id VARCHAR(255) NOT NULL,
			assigned_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (zone_id, franchisee_id)
		)`,
		`CREATE TABLE IF NOT EXISTS leads (
			id VARCHAR(255) PRIMARY KEY,
			lead_ref VARCHAR(255) UNIQUE NOT NULL,
			kind VARCHAR(50) NOT NULL,
			province VARCHAR(255) NOT NULL,
			municipality VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(50) NOT NULL,
			email VARCHAR(255),
			notes TEXT,
			assigned_to VARCHAR(255),
			status VARCHAR(50) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS franchisees (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			phone VARCHAR(50),
			active BOOLEAN DEFAULT true
		)`,
	}

	for _, query := range queries {
		if _, err := pg.DB.ExecContext(ctx, query); err != nil {
			t.Logf("Warning: failed to create table: %v", err)
		}
	}
}
