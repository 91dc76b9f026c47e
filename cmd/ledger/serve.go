package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alem-hub/academy-ledger/config"
	"github.com/alem-hub/academy-ledger/internal/application/command"
	"github.com/alem-hub/academy-ledger/internal/application/eventhandler"
	"github.com/alem-hub/academy-ledger/internal/application/query"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/messaging"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/scheduler"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/scheduler/jobs"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/service"
	ledgerhttp "github.com/alem-hub/academy-ledger/internal/interface/http"
	"github.com/alem-hub/academy-ledger/internal/interface/http/handlers"
	"github.com/alem-hub/academy-ledger/pkg/timeutil"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := setupLogger(cfg)
	log.Info("starting Academy Ledger", "version", cfg.App.Version)

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// STORE
	// ─────────────────────────────────────────────────────────────────────────
	var uow store.UnitOfWork
	if cfg.Database.Enabled() {
		log.Info("connecting to database...")
		conn, err := postgres.NewConnection(ctx, postgresConfig(cfg.Database))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			conn.Close()
		}()

		pg := postgres.NewStore(conn, log)
		if cfg.Database.AutoMigrate {
			log.Info("applying database migrations...")
			if err := pg.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		health.AddCheck("database", handlers.PingCheck(pg))
		uow = pg
		log.Info("database connection established")
	} else {
		log.Warn("no database configured, ledger state lives in memory")
		uow = memory.New()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	var metadata service.MetadataStore = service.NewLocalMetadataStore()
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		c, err := redis.NewCache(ctx, redisConfig(cfg.Redis))
		if err != nil {
			log.Warn("failed to connect to Redis, ranking cache and event fan-out disabled", "error", err)
		} else {
			cache = c
			defer cache.Close()
			metadata = cache
			health.AddOptionalCheck("cache", handlers.PingCheck(cache))
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// EVENTS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.AsyncMode = cfg.Ledger.EventsAsync
	busCfg.WorkerPoolSize = cfg.Ledger.EventWorkers
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	bus.Use(messaging.LoggingMiddleware(log))
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	publishers := []shared.EventPublisher{bus}
	if cache != nil {
		publishers = append(publishers, redis.NewEventPublisher(cache, cfg.Redis.PublishTimeout, log))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// APPLICATION
	// ─────────────────────────────────────────────────────────────────────────
	clock := timeutil.SystemClock{}
	ledger := command.NewLedger(command.Dependencies{
		UnitOfWork:     uow,
		Issuer:         service.NewCredentialIssuer(metadata, clock.Now, log),
		EventPublisher: messaging.NewFanout(publishers...),
		Clock:          clock,
		Logger:         log,
	}, command.Rules{
		DailyXPCap:       cfg.Ledger.DailyXPCap,
		MaxStreakFreezes: cfg.Ledger.MaxStreakFreezes,
		CloseCooldown:    cfg.Ledger.CloseCooldown,
	})

	catalog := query.NewCourseCatalog(uow, cfg.Ledger.CatalogTTL, log)
	handlersSet := eventhandler.Handlers{
		CourseChanged: eventhandler.NewOnCourseChangedHandler(catalog, log),
	}

	var ranking token.RankingCache
	var sched *scheduler.Scheduler
	if cache != nil {
		mr := service.NewMintRanking(func(mint shared.Address) token.RankingCache {
			return redis.NewRankingCache(cache, mint)
		})
		warmer := service.NewLeaderboardService(uow, mr, log)
		if n, err := warmer.Warm(ctx); err != nil {
			log.Warn("ranking cache warm-up failed, leaderboard reads the store until the next rebuild", "error", err)
		} else {
			log.Info("ranking cache warmed", "accounts", n)
		}
		ranking = mr
		handlersSet.XPCredited = eventhandler.NewOnXPCreditedHandler(mr, mr, cfg.Ledger.RankingTimeout, log)

		if cfg.Ledger.RankingRebuildInterval > 0 {
			sched = scheduler.New(scheduler.Config{Logger: log})
			job := jobs.NewRebuildRankingJob(warmer, cfg.Ledger.RankingRebuildInterval, log)
			if err := sched.Register(job, scheduler.Every(cfg.Ledger.RankingRebuildInterval)); err != nil {
				return fmt.Errorf("failed to register %s: %w", job.Name(), err)
			}
		}
	}
	if err := eventhandler.Register(bus, handlersSet); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	auth, err := setupAuth(cfg.Auth, log)
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP
	// ─────────────────────────────────────────────────────────────────────────
	server := ledgerhttp.NewServer(httpConfig(cfg), ledgerhttp.Dependencies{
		Ledger:        ledger,
		Catalog:       catalog,
		Learners:      query.NewGetLearnerHandler(uow, clock, ledger.Rules().DailyXPCap),
		Progress:      query.NewGetProgressHandler(uow),
		Registry:      query.NewRegistry(uow),
		Leaderboard:   query.NewGetLeaderboardHandler(uow, ranking, log),
		Auth:          auth,
		HealthChecker: health,
		Logger:        log,
	})
	errCh := server.StartAsync()
	if sched != nil {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop() }()
	}

	log.Info("Academy Ledger is running", "address", httpConfig(cfg).Address())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	bus.Wait()

	log.Info("shutdown completed successfully")
	return nil
}

// setupAuth builds the token verifier. Without a public key the API still
// serves reads but rejects every transition.
func setupAuth(c config.AuthConfig, log *slog.Logger) (*ledgerhttp.Authenticator, error) {
	if c.PublicKey == "" {
		log.Warn("AUTH_PUBLIC_KEY not set, transitions are disabled")
		return nil, nil
	}
	pub, err := ledgerhttp.ParsePublicKey(c.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("AUTH_PUBLIC_KEY: %w", err)
	}
	auth, err := ledgerhttp.NewAuthenticator(ledgerhttp.AuthConfig{
		PublicKey: pub,
		Issuer:    c.Issuer,
		Audience:  c.Audience,
		Leeway:    c.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return auth, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CONFIG MAPPING
// ══════════════════════════════════════════════════════════════════════════════

func postgresConfig(c config.DatabaseConfig) postgres.Config {
	pg := postgres.DefaultConfig()
	pg.URL = c.URL
	if c.Host != "" {
		pg.Host = c.Host
	}
	pg.Port = c.Port
	pg.Database = c.Name
	pg.User = c.User
	pg.Password = c.Password
	pg.SSLMode = c.SSLMode
	pg.MaxConns = c.MaxConns
	pg.MinConns = c.MinConns
	pg.MaxConnLifetime = c.MaxConnLifetime
	pg.MaxConnIdleTime = c.MaxConnIdleTime
	pg.ConnectTimeout = c.ConnectTimeout
	return pg
}

func redisConfig(c config.RedisConfig) redis.Config {
	return redis.Config{
		Host:         c.Host,
		Port:         c.Port,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

func httpConfig(c *config.Config) ledgerhttp.Config {
	h := ledgerhttp.DefaultConfig()
	h.Host = c.HTTP.Host
	h.Port = c.HTTP.Port
	h.ReadTimeout = c.HTTP.ReadTimeout
	h.WriteTimeout = c.HTTP.WriteTimeout
	h.IdleTimeout = c.HTTP.IdleTimeout
	h.RequestTimeout = c.HTTP.RequestTimeout
	h.MaxBodyBytes = c.HTTP.MaxBodyBytes
	h.AllowedOrigins = c.HTTP.AllowedOrigins
	h.RateLimitPerMinute = c.HTTP.RateLimitPerMinute
	h.Version = c.App.Version
	return h
}

var errNoDatabase = errors.New("no database configured: set DATABASE_URL or DB_HOST")

// openDatabase connects for the maintenance commands.
func openDatabase(ctx context.Context, timeout time.Duration) (*postgres.Connection, error) {
	if !cfg.Database.Enabled() {
		return nil, errNoDatabase
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := postgres.NewConnection(ctx, postgresConfig(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}
