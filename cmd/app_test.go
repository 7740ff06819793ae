//go:build !integration

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonpay/amlscreen/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Paths: config.PathsConfig{
			DataDir: dir,
			DBPath:  filepath.Join(dir, "sanctions.db"),
			OutDir:  filepath.Join(dir, "out"),
		},
		Fetch: config.FetchConfig{TimeoutSecs: 120, Parallelism: 8},
	}
}

func TestInitApp(t *testing.T) {
	env, err := initApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.store)
	assert.NotNil(t, env.engine)
	assert.NotNil(t, env.screener)
	assert.Nil(t, env.sink)
	assert.Len(t, env.registry.All(), 8)
}

func TestInitApp_BadPolicyPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Screening.PolicyPath = filepath.Join(cfg.Paths.DataDir, "missing-policy.yaml")

	_, err := initApp(context.Background(), cfg)
	require.Error(t, err)
}
