package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/metacatalog/internal/config"
	"github.com/totegamma/metacatalog/internal/infra/database"
	"github.com/totegamma/metacatalog/internal/infra/gateway"
	"github.com/totegamma/metacatalog/internal/infra/repository"
	"github.com/totegamma/metacatalog/internal/metrics"
	"github.com/totegamma/metacatalog/internal/present/rest"
	restmiddleware "github.com/totegamma/metacatalog/internal/present/rest/middleware"
	"github.com/totegamma/metacatalog/internal/service"
	"github.com/totegamma/metacatalog/internal/usecase"
	"github.com/totegamma/metacatalog/internal/utils"
	"github.com/totegamma/metacatalog/schemas"
)

const (
	serviceName    = "metacatalog"
	serviceVersion = "0.1.0"
)

func main() {
	configPath := os.Getenv("METACATALOG_CONFIG")
	if configPath == "" {
		configPath = "/etc/metacatalog/config.yaml"
	}

	conf, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Server.EnableTrace {
		shutdown, err := service.SetupTraceProvider(ctx, conf.Server.TraceEndpoint, serviceName, serviceVersion)
		if err != nil {
			panic(err)
		}
		defer shutdown(context.Background())
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		panic("failed to connect database")
	}

	err = database.MigratePostgres(db)
	if err != nil {
		panic("failed to migrate database")
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, "", conf.Server.RedisDB)
	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	schemaRegistry := schemas.NewRegistry(conf.Catalog.SchemaDir, conf.Catalog.Schemas...)
	engine := gateway.NewXsltprocEngine(conf.Server.XsltprocPath, conf.Catalog.TransformTimeout, m)

	metadataRepo := repository.NewMetadataRepository(db)
	indexRepo := repository.NewIndexRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	dependentsRepo := repository.NewDependentsRepository(db)
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	settingsRepo := repository.NewSettingsRepository(db, conf.Settings())
	thesaurusRepo := repository.NewThesaurusRepository(conf.Catalog.ThesaurusDir)

	access := service.NewAccessService(userRepo, groupRepo, grantRepo, metadataRepo, conf.Server.IntranetNetworks)
	auth := service.NewAuthService(conf.NodeInfo, userRepo)
	notifier := service.NewNotifierService(rdb)
	queue := service.NewQueueService(rdb)
	validationCache := service.NewValidationCacheService(mc)

	locks := utils.NewKeyedMutex()
	indexer := usecase.NewIndexer(metadataRepo, indexRepo, schemaRegistry, queue, m, conf.Catalog.IndexWorkers)
	transformer := usecase.NewFixedInfoTransformer(metadataRepo, schemaRegistry, engine, thesaurusRepo, userRepo)
	guard := usecase.NewIntegrityGuard(indexRepo)
	privileges := usecase.NewPrivilegeAggregator(metadataRepo, grantRepo, access)
	info := usecase.NewInfoBuilder(privileges, userRepo, dependentsRepo)
	children := usecase.NewChildPropagator(metadataRepo, schemaRegistry, engine, access, notifier, settingsRepo, indexer, locks)

	manager := usecase.NewMetadataManager(usecase.MetadataManagerDeps{
		Store:           metadataRepo,
		Index:           indexRepo,
		Indexer:         indexer,
		Transformer:     transformer,
		Guard:           guard,
		Info:            info,
		Children:        children,
		Grants:          grantRepo,
		Dependents:      dependentsRepo,
		Groups:          groupRepo,
		Categories:      categoryRepo,
		Settings:        settingsRepo,
		Schemas:         schemaRegistry,
		Engine:          engine,
		Notifier:        notifier,
		ValidationCache: validationCache,
		NewValidator:    service.SchematronValidatorFactory(schemaRegistry, engine, dependentsRepo),
		Locks:           locks,
		Metrics:         m,
	})
	reconciler := usecase.NewIndexReconciler(metadataRepo, indexRepo, indexer, m, conf.Catalog.ReconcilePageSize)

	result, err := reconciler.Reconcile(ctx, false)
	if err != nil {
		slog.ErrorContext(
			ctx, "startup reconciliation failed",
			slog.String("error", err.Error()),
			slog.String("module", "main"),
		)
	} else {
		slog.InfoContext(
			ctx, "startup reconciliation done",
			slog.Int("scheduled", len(result.Scheduled)),
			slog.Int("deleted", len(result.Deleted)),
			slog.String("module", "main"),
		)
	}

	go drainQueue(ctx, indexer, conf.Catalog.QueueDrainInterval, conf.Catalog.QueueDrainBatch)

	authMiddleware := restmiddleware.NewAuthMiddleware(auth, conf.NodeInfo)
	handler := rest.NewHandler(conf.NodeInfo.SiteID, manager, privileges, reconciler, indexer)

	e := echo.New()
	e.HideBanner = true
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(serviceName))
	}
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(authMiddleware.IdentifyIdentity)

	handler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	go func() {
		if err := e.Start(conf.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", slog.String("error", err.Error()), slog.String("module", "main"))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", slog.String("error", err.Error()), slog.String("module", "main"))
	}
	indexer.Wait()
}

// drainQueue reindexes the records queued by sub-template updates.
func drainQueue(ctx context.Context, indexer *usecase.Indexer, interval time.Duration, batch int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := indexer.DrainQueue(ctx, batch)
			if err != nil {
				slog.ErrorContext(
					ctx, "failed to drain reindex queue",
					slog.String("error", err.Error()),
					slog.String("module", "main"),
				)
				continue
			}
			if n > 0 {
				slog.DebugContext(
					ctx, "reindexed queued records",
					slog.Int("count", n),
					slog.String("module", "main"),
				)
			}
		}
	}
}
