package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockfolio/internal/database"
	testingpkg "github.com/aristath/stockfolio/internal/testing"
)

type storedObject struct {
	body     []byte
	metadata map[string]string
}

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string]storedObject
	deleteErr map[string]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string]storedObject{}, deleteErr: map[string]error{}}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader, metadata map[string]string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = storedObject{body: data, metadata: metadata}
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(obj.body))})
		}
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func backupKey(t time.Time) string {
	return backupPrefix + t.Format(backupStampLayout) + backupSuffix
}

func TestCreateAndUpload(t *testing.T) {
	db := testingpkg.NewLedgerDB(t)
	testingpkg.SeedStock(t, db, "AAPL", "Apple Inc")

	store := newMemoryStore()
	svc := NewBackupService(db, store, t.TempDir(), zerolog.Nop())
	fixed := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	info, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stockfolio-backup-2024-03-01-030000.db.gz", info.Filename)
	assert.True(t, strings.HasPrefix(info.Checksum, "sha256:"))

	obj := store.objects[info.Filename]
	assert.Equal(t, info.Checksum, obj.metadata["checksum"])
	assert.Equal(t, "stockfolio", obj.metadata["database"])

	gz, err := gzip.NewReader(bytes.NewReader(obj.body))
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("SQLite format 3")))
	assert.Equal(t, obj.metadata["size-bytes"], fmt.Sprint(len(raw)))
}

type failingSnapshotter struct{}

func (failingSnapshotter) SnapshotTo(context.Context, string) error { return errors.New("disk full") }
func (failingSnapshotter) Name() string                             { return "stockfolio" }

func TestCreateAndUpload_SnapshotFailure(t *testing.T) {
	store := newMemoryStore()
	svc := NewBackupService(failingSnapshotter{}, store, t.TempDir(), zerolog.Nop())

	_, err := svc.CreateAndUpload(context.Background())
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, store.keys())
}

func TestListBackups(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for _, days := range []int{3, 1, 2} {
		store.objects[backupKey(now.AddDate(0, 0, -days))] = storedObject{body: []byte("x")}
	}
	store.objects["stockfolio-backup-garbage.db.gz"] = storedObject{}

	svc := NewBackupService(failingSnapshotter{}, store, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return now }

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, int64(24), backups[0].AgeHours)
	assert.Equal(t, int64(72), backups[2].AgeHours)
}

func TestRotateOldBackups(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	ages := []int{1, 40, 50, 60, 70, 5}

	tests := []struct {
		name          string
		retentionDays int
		expectDeleted int
	}{
		// newest three (1, 5, 40 days) always stay
		{"thirty days", 30, 3},
		{"sixty five days", 65, 1},
		{"keep forever", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			for _, days := range ages {
				store.objects[backupKey(now.AddDate(0, 0, -days))] = storedObject{}
			}
			svc := NewBackupService(failingSnapshotter{}, store, t.TempDir(), zerolog.Nop())
			svc.now = func() time.Time { return now }

			deleted, err := svc.RotateOldBackups(context.Background(), tt.retentionDays)
			require.NoError(t, err)
			assert.Equal(t, tt.expectDeleted, deleted)
			assert.Len(t, store.keys(), len(ages)-tt.expectDeleted)
			assert.Contains(t, store.keys(), backupKey(now.AddDate(0, 0, -40)))
		})
	}
}

func TestRotateOldBackups_KeepsMinimumEvenWhenAllExpired(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	for _, days := range []int{100, 200, 300} {
		store.objects[backupKey(now.AddDate(0, 0, -days))] = storedObject{}
	}
	svc := NewBackupService(failingSnapshotter{}, store, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return now }

	deleted, err := svc.RotateOldBackups(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, store.keys(), 3)
}

func TestRotateOldBackups_ContinuesPastDeleteErrors(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	for _, days := range []int{1, 2, 3, 40, 50} {
		store.objects[backupKey(now.AddDate(0, 0, -days))] = storedObject{}
	}
	store.deleteErr[backupKey(now.AddDate(0, 0, -40))] = errors.New("denied")

	svc := NewBackupService(failingSnapshotter{}, store, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return now }

	deleted, err := svc.RotateOldBackups(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestBackupJob(t *testing.T) {
	db := testingpkg.NewLedgerDB(t)
	store := newMemoryStore()
	job := NewBackupJob(NewBackupService(db, store, t.TempDir(), zerolog.Nop()), 30, zerolog.Nop())

	assert.Equal(t, "backup", job.Name())
	require.NoError(t, job.Run())
	assert.Len(t, store.keys(), 1)
}

func TestMaintenanceJob(t *testing.T) {
	db := testingpkg.NewLedgerDB(t)
	job := NewMaintenanceJob(db, t.TempDir(), zerolog.Nop())

	assert.Equal(t, "db_maintenance", job.Name())
	assert.NoError(t, job.Run())
}

var _ Snapshotter = (*database.DB)(nil)
