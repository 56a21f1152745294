// Package reliability keeps the database safe: off-site backups and routine maintenance.
package reliability

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	backupPrefix      = "stockfolio-backup-"
	backupSuffix      = ".db.gz"
	backupStampLayout = "2006-01-02-150405"
	minBackupsToKeep  = 3
)

// Snapshotter produces a consistent copy of a database file
type Snapshotter interface {
	SnapshotTo(ctx context.Context, dest string) error
	Name() string
}

// BackupInfo represents information about a stored backup
type BackupInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Filename  string    `json:"filename"`
	Checksum  string    `json:"checksum,omitempty"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService snapshots the database and ships it to an ObjectStore
type BackupService struct {
	db         Snapshotter
	store      ObjectStore
	stagingDir string
	now        func() time.Time
	log        zerolog.Logger
}

// NewBackupService creates a backup service staging files under dataDir
func NewBackupService(db Snapshotter, store ObjectStore, dataDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:         db,
		store:      store,
		stagingDir: filepath.Join(dataDir, "backup-staging"),
		now:        time.Now,
		log:        log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload snapshots the database, compresses it and uploads it
func (s *BackupService) CreateAndUpload(ctx context.Context) (*BackupInfo, error) {
	start := s.now()
	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Logger()
	log.Info().Str("database", s.db.Name()).Msg("Starting backup")

	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	snapshotPath := filepath.Join(s.stagingDir, runID+".db")
	archivePath := snapshotPath + ".gz"
	defer os.Remove(snapshotPath)
	defer os.Remove(archivePath)

	if err := s.db.SnapshotTo(ctx, snapshotPath); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	checksum, err := calculateChecksum(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}
	rawInfo, err := os.Stat(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	if err := compressFile(snapshotPath, archivePath); err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	stamp := start.UTC()
	key := backupPrefix + stamp.Format(backupStampLayout) + backupSuffix
	metadata := map[string]string{
		"checksum":   checksum,
		"size-bytes": strconv.FormatInt(rawInfo.Size(), 10),
		"database":   s.db.Name(),
		"run-id":     runID,
	}
	if err := s.store.Upload(ctx, key, archive, metadata); err != nil {
		return nil, err
	}

	log.Info().
		Str("key", key).
		Int64("size_bytes", archiveInfo.Size()).
		Dur("duration", time.Since(start)).
		Msg("Backup uploaded")

	return &BackupInfo{
		Timestamp: stamp,
		Filename:  key,
		Checksum:  checksum,
		SizeBytes: archiveInfo.Size(),
	}, nil
}

// ListBackups lists stored backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		stamp, ok := parseBackupKey(obj.Key)
		if !ok {
			s.log.Warn().Str("key", obj.Key).Msg("Skipping object with unexpected name")
			continue
		}
		backups = append(backups, BackupInfo{
			Timestamp: stamp,
			Filename:  obj.Key,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(stamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays.
// The newest minBackupsToKeep are always kept and retentionDays <= 0 keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if retentionDays <= 0 || len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, b := range backups[minBackupsToKeep:] {
		if !b.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, b.Filename); err != nil {
			s.log.Error().Err(err).Str("key", b.Filename).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("key", b.Filename).Time("timestamp", b.Timestamp).Msg("Deleted old backup")
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return deleted, nil
}

func parseBackupKey(key string) (time.Time, bool) {
	if !strings.HasPrefix(key, backupPrefix) || !strings.HasSuffix(key, backupSuffix) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(key, backupPrefix), backupSuffix)
	stamp, err := time.Parse(backupStampLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return stamp, true
}

// calculateChecksum calculates SHA256 checksum of a file
func calculateChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func compressFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(src)
	if _, err := io.Copy(gz, in); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}
