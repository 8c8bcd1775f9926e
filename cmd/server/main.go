package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	coveragecache "campaign/internal/coverage/cache"
	coveragehandler "campaign/internal/coverage/handler"
	coveragemetrics "campaign/internal/coverage/metrics"
	coverageservice "campaign/internal/coverage/service"
	"campaign/internal/events"
	"campaign/internal/events/kafka"
	geostore "campaign/internal/geo/store"
	jwttoken "campaign/internal/jwt_token"
	orghandler "campaign/internal/organization/handler"
	orgmetrics "campaign/internal/organization/metrics"
	orgservice "campaign/internal/organization/service"
	orgstore "campaign/internal/organization/store"
	"campaign/internal/platform/config"
	"campaign/internal/platform/httpserver"
	"campaign/internal/platform/logger"
	"campaign/internal/platform/metrics"
	"campaign/internal/platform/middleware"
	"campaign/internal/platform/postgres"
	"campaign/internal/platform/redis"
	reporthandler "campaign/internal/report/handler"
	reportmetrics "campaign/internal/report/metrics"
	reportservice "campaign/internal/report/service"
	reportstore "campaign/internal/report/store"
	witnesshandler "campaign/internal/witness/handler"
	witnessmetrics "campaign/internal/witness/metrics"
	witnessservice "campaign/internal/witness/service"
	witnessstore "campaign/internal/witness/store"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/platform/middleware/requesttime"
)

// main wires the stores, services and HTTP surface. Business logic lives in
// the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// directory is every read the services need from the organizational store.
type directory interface {
	orgservice.Directory
	witnessservice.Directory
	coverageservice.Directory
}

type catalog interface {
	witnessservice.Catalog
	coverageservice.Catalog
}

type backend struct {
	directory directory
	catalog   catalog
	witnesses witnessservice.Store
	reports   interface {
		reportservice.Store
		coverageservice.Reports
	}
	db *sql.DB
}

func openBackend(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*backend, error) {
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &backend{
			directory: orgstore.NewInMemory(),
			catalog:   geostore.NewInMemory(),
			witnesses: witnessstore.NewInMemory(),
			reports:   reportstore.NewInMemory(),
		}, nil
	}
	return &backend{
		directory: orgstore.NewPostgres(db),
		catalog:   geostore.NewPostgres(db),
		witnesses: witnessstore.NewPostgres(db),
		reports:   reportstore.NewPostgres(db),
		db:        db,
	}, nil
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	be, err := openBackend(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if be.db != nil {
		defer be.db.Close()
	}

	var cache coverageservice.Cache = coveragecache.NewInMemory(cfg.Coverage.CacheTTL)
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache = coveragecache.NewRedis(redisClient.Client, cfg.Coverage.CacheTTL)
	}

	var sink events.Publisher = events.NewLogPublisher(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := kafka.New(ctx, cfg.Kafka)
		if err != nil {
			return err
		}
		defer kp.Close()
		sink = kp
	}
	publisher := events.NewAsync(sink,
		events.WithLogger(log),
		events.WithMetrics(events.NewMetrics()),
	)

	org := orgservice.New(be.directory,
		orgservice.WithLogger(log),
		orgservice.WithMetrics(orgmetrics.New()),
	)
	coverage := coverageservice.New(be.directory, org, be.witnesses, be.reports, be.catalog,
		coverageservice.WithLogger(log),
		coverageservice.WithMetrics(coveragemetrics.New()),
		coverageservice.WithCache(cache),
	)
	// Cached coverage is invalidated before the write returns; the broker
	// sink is fed asynchronously.
	writes := events.Fanout{events.PublisherFunc(coverage.HandleEvent), publisher}
	witnesses := witnessservice.New(be.witnesses, be.directory, be.catalog,
		witnessservice.WithLogger(log),
		witnessservice.WithMetrics(witnessmetrics.New()),
		witnessservice.WithPublisher(writes),
	)
	reports := reportservice.New(be.reports, be.witnesses,
		reportservice.WithLogger(log),
		reportservice.WithMetrics(reportmetrics.New()),
		reportservice.WithPublisher(writes),
	)

	jwtValidator := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer))
	reportHandler := reporthandler.New(reports, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log, metrics.New()))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if be.db != nil {
			if err := be.db.PingContext(req.Context()); err != nil {
				status["postgres"], code = "unavailable", http.StatusServiceUnavailable
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(req.Context()); err != nil {
				status["redis"], code = "unavailable", http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, status)
	})
	r.Handle("/metrics", promhttp.Handler())

	reportHandler.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtValidator, log))
		orghandler.New(org, log).Register(r)
		witnesshandler.New(witnesses, log).Register(r)
		reportHandler.RegisterProtected(r)
		coveragehandler.New(coverage, log).Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := publisher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting campaign server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
