package orchestrator

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glorpus-work/bucketd/pkg/config"
	"github.com/glorpus-work/bucketd/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Settings.CacheDir = filepath.Join(dir, "cache")
	cfg.Settings.StateDir = filepath.Join(dir, "state")
	cfg.Settings.InstallDir = filepath.Join(dir, "install")
	return cfg
}

func waitOrder(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case name := <-ch:
		return name
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for install result")
		return ""
	}
}

func TestDefault_SharedInstanceAcrossCallers(t *testing.T) {
	cfg := testConfig(t)

	const callers = 8
	instances := make(chan *Orchestrator, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			orch, err := Default(cfg)
			assert.NoError(t, err)
			instances <- orch
		}()
	}
	wg.Wait()
	close(instances)

	first := <-instances
	require.NotNil(t, first)
	for orch := range instances {
		assert.Same(t, first, orch)
	}
}

func TestDefault_SubmitsOrderedAcrossHandles(t *testing.T) {
	cfg := testConfig(t)

	h1, err := Default(cfg)
	require.NoError(t, err)
	h2, err := Default(cfg)
	require.NoError(t, err)
	require.Same(t, h1, h2)

	// No catalogs are configured, so both installs fail fast; only the
	// delivery order matters here.
	order := make(chan string, 2)
	require.NoError(t, h1.InstallBucket(model.Bucket{"alpha"}, nil,
		func(res model.Result) {
			assert.True(t, res.Failed())
			order <- "alpha"
		}))
	require.NoError(t, h2.InstallBucket(model.Bucket{"beta"}, nil,
		func(res model.Result) {
			assert.True(t, res.Failed())
			order <- "beta"
		}))

	assert.Equal(t, "alpha", waitOrder(t, order))
	assert.Equal(t, "beta", waitOrder(t, order))
}
