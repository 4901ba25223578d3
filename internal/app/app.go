// Package app wires configuration, storage, messaging and the HTTP surface
// into a runnable backtesting service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eziosantori/cbot-farm/api"
	"github.com/eziosantori/cbot-farm/internal/config"
	"github.com/eziosantori/cbot-farm/internal/engine"
	"github.com/eziosantori/cbot-farm/internal/infrastructure"
	"github.com/eziosantori/cbot-farm/internal/push"
	"github.com/eziosantori/cbot-farm/internal/storage"
)

// App defines the application structure and its dependencies
type App struct {
	Config     *config.Config
	Risk       *config.RiskConfig
	Universe   *config.UniverseConfig
	Logger     *zap.Logger
	DB         *pgxpool.Pool
	NC         *nats.Conn
	JS         nats.JetStreamContext
	Store      *storage.ReportStore
	Runner     *Runner
	Gateway    *push.Gateway
	HTTPServer *http.Server
}

// NewApp creates a new application instance
func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	infrastructure.Init()
	logger := infrastructure.Logger

	return &App{
		Config: &cfg,
		Logger: logger,
	}, nil
}

// Init initializes all application components
func (a *App) Init(ctx context.Context) error {
	// 1. Declarative configs
	risk, err := config.LoadRiskConfig(a.Config.RiskConfig)
	if err != nil {
		return err
	}
	a.Risk = risk

	universe, err := config.LoadUniverseConfig(a.Config.UniverseCfg)
	if err != nil {
		a.Logger.Warn("universe config unavailable, dataset filters disabled", zap.Error(err))
		universe = &config.UniverseConfig{}
	}
	a.Universe = universe

	api.SetAuthSecret(a.Config.AuthSecret)

	// 2. Database
	dbPool, err := pgxpool.Connect(ctx, a.Config.DB_DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = dbPool

	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// 3. NATS
	nc, js, err := infrastructure.InitNATS(a.Config.NatsURL, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.NC = nc
	a.JS = js

	// 4. Services
	dataDir := a.Config.DataDir
	if a.Universe.Ingestion.OutputDir != "" {
		dataDir = a.Universe.Ingestion.OutputDir
	}
	a.Store = storage.NewReportStore(a.DB, a.Config.ReportsDir, a.Logger)
	a.Runner = NewRunner(a.Logger, a.Risk, a.Universe, dataDir, a.Store, a.JS)
	a.Gateway = push.NewGateway(js, a.Logger)

	return nil
}

// Run starts the HTTP server and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	return a.waitForShutdown()
}

// waitForShutdown handles graceful shutdown signals
func (a *App) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.NC.Close()
	a.DB.Close()

	return nil
}

// initDatabase runs the database initialization script
func (a *App) initDatabase(ctx context.Context) error {
	content, err := os.ReadFile(a.Config.InitDBScript)
	if err != nil {
		return fmt.Errorf("failed to read init script: %w", err)
	}

	_, err = a.DB.Exec(ctx, string(content))
	if err != nil {
		return fmt.Errorf("failed to execute init script: %w", err)
	}

	a.Logger.Info("database initialized successfully")
	return nil
}

// setupRouter configures the Gin router and its routes
func (a *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	pool := engine.NewWorkerPool(a.Config.WorkerCount, a.Logger)
	apiHandler := api.NewHandler(a.DB, a.Logger, a.Risk, a.Config.RiskConfig, a.Store, pool, a.Runner)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/register", apiHandler.Register)
		v1.POST("/login", apiHandler.Login)
		v1.GET("/strategies", apiHandler.ListStrategies)
	}

	protected := r.Group("/api/v1")
	protected.Use(api.AuthMiddleware())
	{
		protected.POST("/backtest", apiHandler.RunBacktest)
		protected.POST("/optimize", apiHandler.RunOptimization)
		protected.POST("/campaigns", apiHandler.RunCampaign)
		protected.GET("/spaces", apiHandler.ListSpaces)
		protected.GET("/spaces/:strategy", apiHandler.GetSpace)
		protected.PUT("/spaces/:strategy", apiHandler.UpdateSpace)
		protected.GET("/spaces/:strategy/preview", apiHandler.PreviewSpace)
		protected.GET("/reports", apiHandler.ListReports)
		protected.GET("/reports/:run_id", apiHandler.GetReport)
	}

	r.GET("/ws", func(c *gin.Context) {
		a.Gateway.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
