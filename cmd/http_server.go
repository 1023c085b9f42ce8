package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/finsolve-gateway/api"
	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/audit"
	auditPostgres "github.com/frahmantamala/finsolve-gateway/internal/audit/postgres"
	"github.com/frahmantamala/finsolve-gateway/internal/auth"
	"github.com/frahmantamala/finsolve-gateway/internal/chat"
	"github.com/frahmantamala/finsolve-gateway/internal/core/events"
	"github.com/frahmantamala/finsolve-gateway/internal/dashboard"
	"github.com/frahmantamala/finsolve-gateway/internal/document"
	"github.com/frahmantamala/finsolve-gateway/internal/guard"
	"github.com/frahmantamala/finsolve-gateway/internal/observability"
	"github.com/frahmantamala/finsolve-gateway/internal/registry"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/transport"
	"github.com/frahmantamala/finsolve-gateway/internal/transport/middleware"
	"github.com/frahmantamala/finsolve-gateway/internal/transport/rest"
	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
	"github.com/frahmantamala/finsolve-gateway/internal/user"
	"github.com/frahmantamala/finsolve-gateway/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	shutdownTimeout = 30 * time.Second
	// chatLockGrace keeps the shared chat lock alive a little past the
	// upstream timeout so a slow reply cannot be overtaken.
	chatLockGrace = 30 * time.Second
	// chatSweepInterval bounds how long an expired session's transcript
	// stays in memory.
	chatSweepInterval = time.Minute
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the gateway HTTP server`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Redis    *redis.Client
	Bus      *events.EventBus
	Registry *registry.Service
	Router   *chi.Mux
	Logger   *slog.Logger

	stopSweep context.CancelFunc
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.close(ctx)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// close drains background work before releasing connections, so the last
// audit events still reach the database.
func (d *Dependencies) close(ctx context.Context) {
	if d.stopSweep != nil {
		d.stopSweep()
	}
	if d.Registry != nil {
		d.Registry.Wait()
	}
	if err := d.Bus.Wait(ctx); err != nil {
		d.Logger.Error("Event handlers did not finish", "error", err)
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	var metrics *observability.Metrics
	var upstreamOpts []upstream.Option
	var loginObserver auth.LoginObserver
	var chatOpts []chat.Option
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.NewMetrics()
		upstreamOpts = append(upstreamOpts, upstream.WithObserver(metrics))
		loginObserver = metrics
		chatOpts = append(chatOpts, chat.WithObserver(metrics))
	}

	// One pooled transport for every upstream; the answering and registry
	// services usually share a host.
	upstreamOpts = append(upstreamOpts, upstream.WithHTTPClient(&http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        64,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}))
	authClient := upstream.NewClient(upstream.Config{Name: "auth", BaseURL: cfg.Upstream.AuthURL, Timeout: cfg.Upstream.RequestTimeout}, lg, upstreamOpts...)
	registryClient := upstream.NewClient(upstream.Config{Name: "registry", BaseURL: cfg.Upstream.RegistryURL, Timeout: cfg.Upstream.RequestTimeout}, lg, upstreamOpts...)
	answeringClient := upstream.NewClient(upstream.Config{Name: "answering", BaseURL: cfg.Upstream.AnsweringURL, Timeout: cfg.Upstream.ChatTimeout}, lg, upstreamOpts...)

	sealer, err := session.NewSealer(cfg.Security.CredentialSecret)
	if err != nil {
		return fmt.Errorf("failed to build credential sealer: %w", err)
	}
	var revocations session.Revocations = session.NewMemoryRevocations()
	var inflight chat.InFlight = chat.NewMemoryInFlight()
	if deps.Redis != nil {
		revocations = session.NewRedisRevocations(deps.Redis)
		inflight = chat.NewRedisInFlight(deps.Redis, cfg.Upstream.ChatTimeout+chatLockGrace)
	}
	sessions := session.NewCookieStore(session.Config{
		CookieName: cfg.Security.CookieName,
		Secret:     cfg.Security.SessionSecret,
		TTL:        cfg.Security.SessionTTL,
		Secure:     cfg.Security.CookieSecure,
	}, sealer, revocations)

	// Services
	authService := auth.NewService(authClient, lg)
	registryService := registry.NewService(registry.NewRemote(registryClient), deps.Bus, lg)
	deps.Registry = registryService
	documentService := document.NewService(document.NewRemote(registryClient), deps.Bus, lg)
	userService := user.NewService(user.NewRemote(registryClient), deps.Bus, lg)
	gateway := chat.NewGateway(answeringClient, inflight, chat.NewTranscripts(), lg,
		append(chatOpts, chat.WithPublisher(deps.Bus), chat.WithDefaultModel(cfg.Upstream.DefaultModel))...)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	deps.stopSweep = stopSweep
	go gateway.Run(sweepCtx, chatSweepInterval)
	auditService := audit.NewService(auditPostgres.NewAuditRepository(deps.Gorm), auditPostgres.NewSummaryRepository(deps.DB), lg)

	// Event subscriptions
	auditService.Register(deps.Bus)
	deps.Bus.Subscribe(events.EventTypeLogout, gateway.HandleLogout)

	routeGuard := guard.New(guard.DefaultPolicy(), registryService, deps.Bus, lg)
	dashboardService := dashboard.NewService(dashboard.Dependencies{
		Permits:   routeGuard,
		Checker:   registryService,
		Roles:     registryService,
		Users:     userService,
		Documents: documentService,
		Chat:      gateway,
	}, lg)

	var validator func(http.Handler) http.Handler
	if cfg.Server.OpenAPIValidation {
		validator, err = middleware.OpenAPIValidator(api.OpenAPISpec)
		if err != nil {
			return err
		}
	}

	var redisCheck rest.Pinger
	if deps.Redis != nil {
		redisCheck = rest.PingFunc(func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		})
	}

	metricsPath := ""
	if metrics != nil {
		metricsPath = cfg.Observability.Metrics.Path
	}

	base := transport.NewBaseHandler(lg)
	rest.RegisterAllRoutes(deps.Router, rest.RouterConfig{
		Sessions:    sessions,
		Guard:       routeGuard,
		Metrics:     metrics,
		MetricsPath: metricsPath,
		Security: middleware.SecurityOptions{
			BaseURL:    cfg.Server.BaseURL,
			Origins:    cfg.Server.Origins(),
			Production: cfg.IsProduction(),
		},
		OpenAPISpec:    api.OpenAPISpec,
		OpenAPI:        validator,
		LoginRateLimit: cfg.Security.LoginRateLimit,
		Logger:         lg,
	}, rest.Handlers{
		Health:    rest.NewHealthHandler(map[string]rest.Pinger{"postgres": deps.DB, "redis": redisCheck}),
		Auth:      auth.NewHandler(base, authService, sessions, deps.Bus, loginObserver),
		Registry:  registry.NewHandler(base, registryService),
		Documents: document.NewHandler(base, documentService),
		Users:     user.NewHandler(base, userService),
		Chat:      chat.NewHandler(base, gateway),
		Audit:     audit.NewHandler(base, auditService),
		Dashboard: dashboard.NewHandler(base, dashboardService),
	})
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	initLogger(config)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	redisClient, err := initRedis(config.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	if redisClient == nil {
		lg.Warn("redis not configured, revocations and chat locks stay in process memory")
	}

	return &Dependencies{
		Config: config,
		DB:     db,
		Gorm:   gormDB,
		Redis:  redisClient,
		Bus:    events.NewEventBus(lg),
		Router: chi.NewRouter(),
		Logger: lg,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

// initRedis returns nil when no address is configured.
func initRedis(cfg internal.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
