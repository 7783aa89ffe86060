package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atelier-commission/internal/billing"
	"atelier-commission/internal/cache"
	"atelier-commission/internal/config"
	httpapi "atelier-commission/internal/http"
	"atelier-commission/internal/messaging"
	"atelier-commission/internal/notify"
	"atelier-commission/internal/repository"
	"atelier-commission/internal/service"
	"atelier-commission/internal/store"

	"atelier-commission/pkg/database"
	"atelier-commission/pkg/logger"
	pkgredis "atelier-commission/pkg/redis"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "atelier-commission")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient := pkgredis.NewRedisClient(&cfg.Redis)
	kv := store.NewRedisKV(redisClient)
	readCache := cache.New(kv, cfg.Cache.TTL, log)

	// Repos: Postgres when the DB is reachable, in-memory otherwise so the
	// service stays usable for local dev.
	var (
		db              *sql.DB
		commissionsRepo repository.CommissionsRepository
		requestsRepo    repository.RequestsRepository
		usersRepo       repository.UsersRepository
		customersRepo   repository.CustomersRepository
		invoicesRepo    repository.InvoicesRepository
		kanbanRepo      repository.KanbanRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for atelier-commission")
		} else {
			log.Warn("DB enabled but connection failed, falling back to in-memory repos", zap.Error(err))
		}
	}
	if db != nil {
		commissionsRepo = repository.NewPostgresCommissionsRepository(db)
		requestsRepo = repository.NewPostgresRequestsRepository(db)
		usersRepo = repository.NewPostgresUsersRepository(db)
		customersRepo = repository.NewPostgresCustomersRepository(db)
		invoicesRepo = repository.NewPostgresInvoicesRepository(db)
		kanbanRepo = repository.NewPostgresKanbanRepository(db)
	} else {
		memRequests := repository.NewMemoryRequestsRepository()
		commissionsRepo = repository.NewMemoryCommissionsRepository(memRequests)
		requestsRepo = memRequests
		usersRepo = repository.NewMemoryUsersRepository()
		customersRepo = repository.NewMemoryCustomersRepository()
		invoicesRepo = repository.NewMemoryInvoicesRepository()
		kanbanRepo = repository.NewMemoryKanbanRepository()
	}

	billingClient := billing.NewClient(cfg.Billing.BaseURL, cfg.Billing.APIKey, log)
	messagingClient := messaging.NewClient(cfg.Messaging.BaseURL, cfg.Messaging.APIToken, log)
	dispatcher := notify.NewDispatcher(
		notify.NewStreamPublisher(redisClient),
		cfg.Notify.Stream,
		cfg.Notify.Timeout,
		log,
	)

	provisioner := service.NewCustomerProvisioner(customersRepo, usersRepo, billingClient, log)
	admission := service.NewAdmissionService(commissionsRepo, readCache, dispatcher, log)
	decision := service.NewDecisionService(
		commissionsRepo, requestsRepo, usersRepo, invoicesRepo, kanbanRepo,
		provisioner, billingClient, messagingClient,
		readCache, dispatcher,
		service.DecisionPolicy{PromoteOnReject: cfg.Decision.PromoteOnReject},
		log,
	)
	queries := service.NewRequestQueryService(commissionsRepo, requestsRepo, readCache, log)

	router := httpapi.NewRouter(log)
	router.RegisterCommissionRoutes(httpapi.NewRequestHandler(admission, decision, queries, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
