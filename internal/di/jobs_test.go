package di

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wiredContainer(t *testing.T) *Container {
	t.Helper()
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, err := InitializeDatabase(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	require.NoError(t, InitializeRepositories(container, log))
	require.NoError(t, InitializeServices(container, cfg, log))
	return container
}

func jobNames(c *Container) []string {
	var names []string
	for _, e := range c.Scheduler.Entries() {
		names = append(names, e.Name)
	}
	return names
}

func TestRegisterJobs(t *testing.T) {
	container := wiredContainer(t)

	_, err := RegisterJobs(container, testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"cache_cleanup",
		"db_maintenance",
		"simulator_process",
		"simulator_send",
		"watchlist_alerts",
	}, jobNames(container))
}

func TestRegisterJobs_SimulatorDisabled(t *testing.T) {
	container := wiredContainer(t)
	cfg := testConfig(t)
	cfg.Simulator.Enabled = false

	jobs, err := RegisterJobs(container, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, jobs.SimulatorSend)
	assert.NotContains(t, jobNames(container), "simulator_send")
}

func TestRegisterJobs_CacheCleanupRuns(t *testing.T) {
	container := wiredContainer(t)
	_, err := RegisterJobs(container, testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, container.Scheduler.RunNow("cache_cleanup"))
}

func TestRegisterJobs_NilContainer(t *testing.T) {
	_, err := RegisterJobs(nil, testConfig(t), zerolog.Nop())
	assert.Error(t, err)
}

func TestInitializeServices_RequiresRepositories(t *testing.T) {
	assert.Error(t, InitializeServices(&Container{}, testConfig(t), zerolog.Nop()))
}
