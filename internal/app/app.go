package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/bolsa/internal/cache"
	"github.com/bobmcallan/bolsa/internal/clients/bvc"
	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/metrics"
	"github.com/bobmcallan/bolsa/internal/models"
	"github.com/bobmcallan/bolsa/internal/services/fx"
	"github.com/bobmcallan/bolsa/internal/services/history"
	"github.com/bobmcallan/bolsa/internal/services/market"
	"github.com/bobmcallan/bolsa/internal/storage"
	"github.com/bobmcallan/bolsa/internal/storage/archivefs"
)

// App holds all initialized services, clients, and the MCP server.
// It is the shared core used by cmd/bolsa-server and cmd/bolsa-admin.
type App struct {
	Config        *common.Config
	Logger        *common.Logger
	Storage       interfaces.StorageManager
	Archive       *archivefs.Store
	Metrics       *metrics.Metrics
	MarketService interfaces.MarketService
	FXService     interfaces.FXService
	MCPServer     *server.MCPServer
	StartupTime   time.Time

	schedulerCancel context.CancelFunc
	warmCacheCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration and initializes the App.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, BOLSA_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("BOLSA_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "bolsa.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/bolsa.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative data and log paths to binary directory
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(binDir, *p)
		}
	}
	resolve(&config.Storage.Path)
	resolve(&config.Archive.Dir)
	resolve(&config.Logging.FilePath)

	logger := common.NewLoggerFromConfig(config.Logging)

	return New(config, logger)
}

// New wires storage, the tier chain and the services from a loaded config.
func New(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	archive, err := archivefs.NewStore(logger, config.Archive.Dir)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// Remote tier stays a nil interface when disabled so the resolver skips it
	var remote interfaces.DaySource
	if config.Clients.BVC.Disabled {
		logger.Warn().Msg("Exchange download disabled - only stored, archived and manual data will be served")
	} else {
		opts := []bvc.ClientOption{
			bvc.WithBaseURL(config.Clients.BVC.BaseURL),
			bvc.WithLogger(logger),
			bvc.WithRateLimit(config.Clients.BVC.RateLimit),
			bvc.WithTimeout(config.Clients.BVC.GetTimeout()),
		}
		if config.Archive.SaveRemote {
			opts = append(opts, bvc.WithArchive(archive))
		}
		remote = bvc.NewClient(opts...)
	}

	m := metrics.New()

	marketService := market.NewService(storageManager, archive, remote, logger,
		market.WithMetrics(m),
		market.WithRecordCapacity(config.Cache.RecordCapacity),
		market.WithQueryCacheOptions(
			cache.WithTTL(config.Cache.GetQueryTTL()),
			cache.WithCapacity(config.Cache.QueryCapacity),
		),
		market.WithRedenomination(history.Redenomination{
			Cutover: models.Date(config.History.RedenominationCutover),
			Divisor: config.History.RedenominationDivisor,
		}),
		market.WithMaxLookback(config.Locator.MaxLookback),
		market.WithRemoteTimeout(config.Clients.BVC.GetTimeout()),
		market.WithLoadWorkers(config.Archive.Workers),
	)
	fxService := fx.NewService(storageManager.RateStore(), logger)

	mcpServer := server.NewMCPServer(
		"bolsa",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:        config,
		Logger:        logger,
		Storage:       storageManager,
		Archive:       archive,
		Metrics:       m,
		MarketService: marketService,
		FXService:     fxService,
		MCPServer:     mcpServer,
		StartupTime:   startupStart,
	}

	a.registerTools()

	logger.Info().
		Str("backend", config.Storage.Backend).
		Bool("remote", remote != nil).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, cancel warm cache, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.warmCacheCancel != nil {
		a.warmCacheCancel()
		a.warmCacheCancel = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
		a.Storage = nil
	}
}

// StartWarmCache launches the background cache warming goroutine.
func (a *App) StartWarmCache() {
	if !a.Config.Scheduler.WarmCache {
		a.Logger.Info().Msg("Warm cache: disabled in config")
		return
	}
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	a.warmCacheCancel = warmCancel
	go func() {
		defer warmCancel()
		warmCache(warmCtx, a.MarketService, a.Config.Scheduler.PreloadDays, a.Logger)
	}()
}

// StartScheduler launches the background latest-day refresh goroutine.
func (a *App) StartScheduler() {
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	go startScheduler(schedulerCtx, a.MarketService, a.Logger, a.Config.Scheduler.GetInterval())
}
