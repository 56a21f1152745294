package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/cache"
	"github.com/aristath/stockfolio/internal/config"
	"github.com/aristath/stockfolio/internal/modules/simulator"
	"github.com/aristath/stockfolio/internal/reliability"
	"github.com/aristath/stockfolio/internal/scheduler"
)

// cacheCleanupSchedule drops expired market data entries
const cacheCleanupSchedule = "@every 5m"

// RegisterJobs creates the scheduler and registers every background job.
// Returns JobInstances for manual triggering.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	if container.Scheduler == nil {
		container.Scheduler = scheduler.New(log)
	}
	sched := container.Scheduler
	instances := &JobInstances{}

	// Order processing simulator
	if cfg.Simulator.Enabled {
		instances.SimulatorSend = simulator.NewSendJob(container.Simulator)
		if err := sched.AddJob(cfg.Simulator.SendSchedule, instances.SimulatorSend); err != nil {
			return nil, fmt.Errorf("failed to register simulator send job: %w", err)
		}
		instances.SimulatorProcess = simulator.NewProcessJob(container.Simulator)
		if err := sched.AddJob(cfg.Simulator.FillSchedule, instances.SimulatorProcess); err != nil {
			return nil, fmt.Errorf("failed to register simulator process job: %w", err)
		}
	} else {
		log.Info().Msg("Order simulator disabled")
	}

	// Watchlist price alerts
	instances.WatchlistAlerts = container.AlertChecker
	if err := sched.AddJob(cfg.Watchlist.Schedule, instances.WatchlistAlerts); err != nil {
		return nil, fmt.Errorf("failed to register watchlist alert job: %w", err)
	}

	// Market data cache cleanup
	instances.CacheCleanup = cache.NewCleanupJob(container.MarketDataService.Caches(), log)
	if err := sched.AddJob(cacheCleanupSchedule, instances.CacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to register cache cleanup job: %w", err)
	}

	// Backups
	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob(cfg.Backup.Schedule, instances.Backup); err != nil {
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	// Database maintenance
	instances.Maintenance = reliability.NewMaintenanceJob(container.DB, cfg.DataDir, log)
	if err := sched.AddJob(cfg.MaintenanceSchedule, instances.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	log.Info().Int("jobs", len(sched.Entries())).Msg("Jobs registered")
	return instances, nil
}
