// Covercall server: covered call / PMCC screener backend.
//
// Startup sequence:
//  1. Load configuration (env + .env)
//  2. Initialize logging
//  3. Open the databases (screener cache, rules, portfolio book, config)
//  4. Apply settings-database overrides to the config
//  5. Wire repositories, services and handlers
//  6. Restore the last scan snapshot from cache
//  7. Register scheduled jobs and start the scheduler
//  8. Start the quote stream and the HTTP server
//  9. Wait for SIGINT/SIGTERM and shut down gracefully
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/clients/scanhub"
	"github.com/alevras/covercall/internal/config"
	"github.com/alevras/covercall/internal/database"
	"github.com/alevras/covercall/internal/modules/portfolio"
	portfoliohandlers "github.com/alevras/covercall/internal/modules/portfolio/handlers"
	"github.com/alevras/covercall/internal/modules/rules"
	ruleshandlers "github.com/alevras/covercall/internal/modules/rules/handlers"
	"github.com/alevras/covercall/internal/modules/screener"
	screenerhandlers "github.com/alevras/covercall/internal/modules/screener/handlers"
	"github.com/alevras/covercall/internal/modules/settings"
	settingshandlers "github.com/alevras/covercall/internal/modules/settings/handlers"
	"github.com/alevras/covercall/internal/modules/simulator"
	simulatorhandlers "github.com/alevras/covercall/internal/modules/simulator/handlers"
	"github.com/alevras/covercall/internal/reliability"
	"github.com/alevras/covercall/internal/scheduler"
	"github.com/alevras/covercall/internal/server"
	"github.com/alevras/covercall/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "covercall: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)
	log.Info().Str("data_dir", cfg.DataDir).Int("port", cfg.Port).Msg("Starting Covercall")

	// Databases
	screenerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "screener.db"),
		Profile: database.ProfileCache,
		Name:    "screener",
	})
	if err != nil {
		return err
	}
	defer screenerDB.Close()

	rulesDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "rules.db"),
		Profile: database.ProfileStandard,
		Name:    "rules",
	})
	if err != nil {
		return err
	}
	defer rulesDB.Close()

	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileBook,
		Name:    "portfolio",
	})
	if err != nil {
		return err
	}
	defer portfolioDB.Close()

	configDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "config.db"),
		Profile: database.ProfileStandard,
		Name:    "config",
	})
	if err != nil {
		return err
	}
	defer configDB.Close()

	// Settings and config overrides
	settingsRepo, err := settings.NewRepository(configDB.Conn(), log)
	if err != nil {
		return err
	}
	settingsService := settings.NewService(settingsRepo, log)
	if err := cfg.UpdateFromSettings(settingsRepo); err != nil {
		return fmt.Errorf("failed to apply settings overrides: %w", err)
	}

	// Rules
	rulesRepo, err := rules.NewRepository(rulesDB.Conn(), log)
	if err != nil {
		return err
	}
	rulesService := rules.NewService(rulesRepo, log)

	// Screener
	feedClient := scanhub.NewClient(cfg.ScanFeedURL, cfg.ScanFeedAPIKey, log)
	snapshotStore, err := screener.NewSnapshotStore(screenerDB.Conn(), log)
	if err != nil {
		return err
	}
	screenerService := screener.NewService(feedClient, snapshotStore, log)
	if err := screenerService.RestoreFromCache(); err != nil {
		log.Warn().Err(err).Msg("Failed to restore scan from cache")
	}

	// Simulator
	simulatorRepo, err := simulator.NewRepository(portfolioDB.Conn(), log)
	if err != nil {
		return err
	}
	simulatorService := simulator.NewService(simulatorRepo, rulesService, log)

	// Portfolio
	portfolioRepo, err := portfolio.NewRepository(portfolioDB.Conn(), log)
	if err != nil {
		return err
	}
	portfolioService := portfolio.NewService(portfolioRepo, log)

	databases := map[string]*database.DB{
		"screener":  screenerDB,
		"rules":     rulesDB,
		"portfolio": portfolioDB,
		"config":    configDB,
	}

	// Quote stream (optional)
	var quoteStream *scanhub.QuoteStream
	var streamStatus server.StreamStatus
	if cfg.QuoteStreamURL != "" {
		symbols := quoteSymbols(portfolioService, simulatorService, log)
		quoteStream = scanhub.NewQuoteStream(cfg.QuoteStreamURL, cfg.ScanFeedAPIKey, symbols, log)
		if err := quoteStream.Start(); err != nil {
			log.Warn().Err(err).Msg("Quote stream unavailable, continuing without live quotes")
		}
		streamStatus = quoteStream
	}

	// Backups (optional)
	var backupService *reliability.BackupService
	if cfg.Backup != nil && cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(
			cfg.Backup.Endpoint, cfg.Backup.Region, cfg.Backup.Bucket,
			cfg.Backup.AccessKeyID, cfg.Backup.SecretAccessKey, log,
		)
		if err != nil {
			return fmt.Errorf("failed to create backup storage client: %w", err)
		}
		backupService = reliability.NewBackupService(databases, s3Client, cfg.DataDir, cfg.Backup.KeepLast, log)
	}

	// Scheduler and jobs
	sched := scheduler.New(log)

	scanRefreshJob := scheduler.NewScanRefreshJob(screenerService, log)
	if err := sched.AddJob(cfg.ScanRefreshSchedule, scanRefreshJob); err != nil {
		return fmt.Errorf("failed to register scan refresh job: %w", err)
	}

	var markPricesJob scheduler.Job
	if quoteStream != nil {
		job := scheduler.NewMarkPricesJob(quoteStream, simulatorService, portfolioService, simulatorService, log)
		if err := sched.AddJob(cfg.MarkPricesSchedule, job); err != nil {
			return fmt.Errorf("failed to register mark prices job: %w", err)
		}
		markPricesJob = job
	}

	var backupJob scheduler.Job
	if backupService != nil {
		job := scheduler.NewBackupJob(backupService, log)
		if err := sched.AddJob(cfg.BackupSchedule, job); err != nil {
			return fmt.Errorf("failed to register backup job: %w", err)
		}
		backupJob = job
	}

	// HTTP server
	systemHandlers := server.NewSystemHandlers(log, cfg.DataDir, databases, streamStatus)
	systemHandlers.SetJobs(sched, scanRefreshJob, markPricesJob, backupJob)

	srv := server.New(server.Config{
		Log:               log,
		Cfg:               cfg,
		Port:              cfg.Port,
		DevMode:           cfg.DevMode,
		ScreenerDB:        screenerDB,
		RulesDB:           rulesDB,
		PortfolioDB:       portfolioDB,
		ConfigDB:          configDB,
		ScreenerHandlers:  screenerhandlers.NewHandler(screenerService, log),
		RulesHandlers:     ruleshandlers.NewHandler(rulesService, log),
		SimulatorHandlers: simulatorhandlers.NewHandler(simulatorService, log),
		PortfolioHandlers: portfoliohandlers.NewHandler(portfolioService, log),
		SettingsHandlers:  settingshandlers.NewHandler(settingsService, log),
		SystemHandlers:    systemHandlers,
	})

	sched.Start()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Refresh the scan shortly after startup if the cache was empty
	go func() {
		time.Sleep(2 * time.Second)
		if err := sched.RunNow(scanRefreshJob); err != nil {
			log.Warn().Err(err).Msg("Initial scan refresh failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sched.Stop()
	if quoteStream != nil {
		if err := quoteStream.Stop(); err != nil {
			log.Warn().Err(err).Msg("Quote stream shutdown error")
		}
	}
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Covercall stopped")
	return nil
}

// quoteSymbols collects the symbols worth subscribing to: imported positions
// plus open simulated trades.
func quoteSymbols(positions *portfolio.Service, trades *simulator.Service, log zerolog.Logger) []string {
	seen := map[string]bool{}
	symbols := []string{}

	fromPositions, err := positions.Symbols()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list position symbols")
	}
	for _, s := range fromPositions {
		if !seen[s] {
			seen[s] = true
			symbols = append(symbols, s)
		}
	}

	open, err := trades.List("open")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list open trades")
	}
	for _, t := range open {
		if !seen[t.Symbol] {
			seen[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
		}
	}
	return symbols
}

