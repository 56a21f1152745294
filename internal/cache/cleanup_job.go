package cache

import "github.com/rs/zerolog"

// Purger is anything that can drop its expired entries
type Purger interface {
	Purge() int
}

// CleanupJob removes expired entries from the registered caches.
type CleanupJob struct {
	caches map[string]Purger
	log    zerolog.Logger
}

// NewCleanupJob creates a new cache cleanup job.
func NewCleanupJob(caches map[string]Purger, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		caches: caches,
		log:    log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run purges every cache
func (j *CleanupJob) Run() error {
	total := 0
	for name, c := range j.caches {
		if n := c.Purge(); n > 0 {
			j.log.Debug().Str("cache", name).Int("deleted", n).Msg("Purged expired cache entries")
			total += n
		}
	}
	if total > 0 {
		j.log.Info().Int("total_deleted", total).Msg("Cache cleanup completed")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}
