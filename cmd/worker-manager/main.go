// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"inmo-workers/internal/common/aws"
	"inmo-workers/internal/common/camunda"
	"inmo-workers/internal/common/config"
	"inmo-workers/internal/common/database"
	"inmo-workers/internal/common/logger"
	"inmo-workers/internal/common/observability"
	"inmo-workers/internal/enrichment"
	"inmo-workers/internal/leads/fallback"
	"inmo-workers/pkg/registry"

	// Zone registry and occupancy workers (6)
	izb "inmo-workers/internal/workers/zones/ingest-zone-batch"
	ocs "inmo-workers/internal/workers/zones/occupy-slot"
	qz "inmo-workers/internal/workers/zones/query-zones"
	rls "inmo-workers/internal/workers/zones/release-slot"
	sz "inmo-workers/internal/workers/zones/search-zones"
	zs "inmo-workers/internal/workers/zones/zone-summary"

	// Lead routing workers (3)
	ra "inmo-workers/internal/workers/leads/resolve-assignment"
	rl "inmo-workers/internal/workers/leads/route-lead"
	uls "inmo-workers/internal/workers/leads/update-lead-status"

	// Notification worker (1)
	nl "inmo-workers/internal/workers/notification/notify-lead"

	// Detached enrichment workers (2)
	cl "inmo-workers/internal/workers/enrichment/cadastral-lookup"
	ts "inmo-workers/internal/workers/enrichment/task-status"
)

const registryPath = "configs/activity-registry.json"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Activity registry ---
	reg, err := registry.Load(registryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	activities := reg.ByTaskType()
	zapLog.Info("Activity registry loaded",
		zap.String("version", reg.Version),
		zap.Int("activities", len(reg.Activities)),
	)

	// --- Init Zeebe client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer camundaClient.Close()
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init notification senders (optional) ---
	var emailSender nl.EmailSender
	var smsSender nl.SMSSender
	if cfg.Notifications.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWSRegion)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWSRegion)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		emailSender = sesClient
		smsSender = snsClient
		zapLog.Info("SES/SNS clients initialized", zap.String("region", cfg.Notifications.AWSRegion))
	} else {
		zapLog.Info("Notifications disabled, skipping SES/SNS init")
	}

	// --- Init enrichment infrastructure ---
	taskStore := enrichment.NewTaskStore(redisClient.Client,
		time.Duration(cfg.Cadastral.StatusTTLHours)*time.Hour)
	pool := enrichment.NewPool(cfg.Cadastral.PoolSize, cfg.Cadastral.QueueSize, log)
	cadastralClient := enrichment.NewCadastralClient(cfg.Cadastral.BaseURL,
		time.Duration(cfg.Cadastral.TimeoutSeconds)*time.Second)

	// --- Init static routing fallback ---
	fallbackTable := fallback.NewTable(cfg.Routing.CentralBucketID, cfg.Routing.ProvinceFallback)

	var workers []*camunda.CamundaWorker
	startWorker := func(taskType string, handler camunda.JobHandler) {
		if _, ok := activities[taskType]; !ok {
			zapLog.Warn("task type missing from activity registry", zap.String("taskType", taskType))
		}
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		wcfg := config.GetWorkerConfig(cfg, taskType)
		w := camunda.NewWorker(zeebeClient, taskType, wcfg.MaxJobsActive,
			config.GetDuration(wcfg.Timeout), handler, obs, zapLog)
		workers = append(workers, w)
	}

	// --- Zone registry workers ---
	startWorker(izb.TaskType, izb.NewHandler(
		&izb.Config{
			Timeout:      config.GetDuration(config.GetWorkerConfig(cfg, izb.TaskType).Timeout),
			MaxBatchRows: cfg.Zones.MaxBatchRows,
		},
		pg.DB, log,
	))

	startWorker(ocs.TaskType, ocs.NewHandler(
		&ocs.Config{
			Timeout: config.GetDuration(config.GetWorkerConfig(cfg, ocs.TaskType).Timeout),
		},
		pg.DB, redisClient.Client, log,
	))

	startWorker(rls.TaskType, rls.NewHandler(
		&rls.Config{
			Timeout: config.GetDuration(config.GetWorkerConfig(cfg, rls.TaskType).Timeout),
		},
		pg.DB, redisClient.Client, log,
	))

	startWorker(zs.TaskType, zs.NewHandler(
		&zs.Config{
			Timeout:  config.GetDuration(config.GetWorkerConfig(cfg, zs.TaskType).Timeout),
			CacheTTL: time.Duration(cfg.Zones.SummaryCacheTTL) * time.Second,
		},
		pg.DB, redisClient.Client, log,
	))

	startWorker(qz.TaskType, qz.NewHandler(
		&qz.Config{
			Timeout: config.GetDuration(config.GetWorkerConfig(cfg, qz.TaskType).Timeout),
		},
		pg.DB, log,
	))

	startWorker(sz.TaskType, sz.NewHandler(
		&sz.Config{
			Timeout:   config.GetDuration(config.GetWorkerConfig(cfg, sz.TaskType).Timeout),
			ZoneIndex: cfg.Database.Elasticsearch.ZoneIndex,
		},
		esClient.Client, log,
	))

	// --- Lead routing workers ---
	resolveHandler := ra.NewHandler(
		&ra.Config{
			Timeout: config.GetDuration(config.GetWorkerConfig(cfg, ra.TaskType).Timeout),
		},
		pg.DB, fallbackTable, log,
	)
	startWorker(ra.TaskType, resolveHandler)

	notifyHandler, err := nl.NewHandler(
		&nl.Config{
			Enabled:          cfg.Notifications.Enabled,
			Timeout:          config.GetDuration(config.GetWorkerConfig(cfg, nl.TaskType).Timeout),
			SenderEmail:      cfg.Notifications.SenderEmail,
			TemplateRegistry: cfg.Notifications.TemplateRegistry,
		},
		pg.DB, emailSender, smsSender, log,
	)
	if err != nil {
		zapLog.Fatal("failed to create notify-lead handler", zap.Error(err))
	}
	startWorker(nl.TaskType, notifyHandler)

	lookupHandler := cl.NewHandler(
		&cl.Config{
			Timeout: config.GetDuration(config.GetWorkerConfig(cfg, cl.TaskType).Timeout),
		},
		taskStore, pool, cadastralClient, log,
	)
	startWorker(cl.TaskType, lookupHandler)

	startWorker(rl.TaskType, rl.NewHandler(
		&rl.Config{
			Timeout:        config.GetDuration(config.GetWorkerConfig(cfg, rl.TaskType).Timeout),
			IdempotencyTTL: time.Duration(cfg.Routing.IdempotencyTTL) * time.Second,
		},
		pg.DB, redisClient.Client, resolveHandler, notifyHandler, lookupHandler, log,
	))

	startWorker(uls.TaskType, uls.NewHandler(
		&uls.Config{
			Timeout: config.GetDuration(config.GetWorkerConfig(cfg, uls.TaskType).Timeout),
		},
		pg.DB, log,
	))

	startWorker(ts.TaskType, ts.NewHandler(
		&ts.Config{
			Timeout: config.GetDuration(config.GetWorkerConfig(cfg, ts.TaskType).Timeout),
		},
		taskStore, log,
	))

	zapLog.Info("All workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	pool.Shutdown()

	zapLog.Info("Worker manager stopped gracefully")
}
