package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/config"
)

func TestTasksDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "choplife-tasks.db"), TasksDBPath(filepath.Join("data", "choplife.db")))
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = os.Stat(filepath.Join(tmpDir, "test-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")

	assert.NoError(t, client.Close())
}

func TestClientStartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), cfg)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

type pingTask struct {
	Value string `json:"value"`
}

func (t pingTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "ping",
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     5 * time.Second,
	}
}

func TestClientEnqueue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), cfg)
	require.NoError(t, err)
	defer client.Close()

	executed := make(chan string, 1)
	client.Register(backlite.NewQueue(func(ctx context.Context, task pingTask) error {
		executed <- task.Value
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	ids, err := client.Enqueue(ctx, pingTask{Value: "hello"})
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	select {
	case val := <-executed:
		assert.Equal(t, "hello", val)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestQueueConfigs(t *testing.T) {
	assert.Equal(t, "geocode_place", GeocodePlaceTask{}.Config().Name)
	assert.Equal(t, "refresh_listing_aggregates", RefreshListingAggregatesTask{}.Config().Name)
	assert.Equal(t, "cleanup_audit", CleanupAuditTask{}.Config().Name)
	assert.NotNil(t, GeocodePlaceTask{}.Config().Retention)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.RetryDelay)
	assert.Equal(t, 2*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.RetentionDuration)
}

func TestConfigFromKeepsDefaultsForZeroValues(t *testing.T) {
	cfg := ConfigFrom(config.Tasks{Workers: 4, TaskTimeout: 30 * time.Second})

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.TaskTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
}
