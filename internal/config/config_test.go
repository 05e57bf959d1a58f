package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-rosetta/internal/match"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Cleanup(resetEnv)
	resetEnv()

	t.Setenv("ROSETTA_TEST_STRING", "value")
	t.Setenv("ROSETTA_TEST_INT", "42")
	t.Setenv("ROSETTA_TEST_BAD_INT", "forty")
	t.Setenv("ROSETTA_TEST_FLOAT", "0.75")
	t.Setenv("ROSETTA_TEST_BOOL", "yes")
	t.Setenv("ROSETTA_TEST_BAD_BOOL", "maybe")

	assert.Equal(t, "value", GetEnv("ROSETTA_TEST_STRING", "default"))
	assert.Equal(t, "default", GetEnv("ROSETTA_TEST_UNSET", "default"))
	assert.Equal(t, 42, GetEnvInt("ROSETTA_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("ROSETTA_TEST_BAD_INT", 1))
	assert.Equal(t, 0.75, GetEnvFloat("ROSETTA_TEST_FLOAT", 0.1))
	assert.Equal(t, 0.1, GetEnvFloat("ROSETTA_TEST_UNSET", 0.1))
	assert.True(t, GetEnvBool("ROSETTA_TEST_BOOL", false))
	assert.True(t, GetEnvBool("ROSETTA_TEST_BAD_BOOL", true))
}

func TestLoadEnvFile(t *testing.T) {
	t.Cleanup(resetEnv)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"# engine\nROSETTA_TOP_K=7\nROSETTA_LEARNING_BACKEND=redis\nPGHOST=db.internal\n"), 0o644))

	t.Setenv("PGHOST", "override.internal")
	require.NoError(t, LoadEnvFile(path))

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Engine.TopK)
	assert.Equal(t, BackendRedis, cfg.LearningBackend)
	assert.Equal(t, "override.internal", cfg.Database.Host)
}

func TestLoadEnvFileMissing(t *testing.T) {
	t.Cleanup(resetEnv)
	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestFromEnvDefaults(t *testing.T) {
	t.Cleanup(resetEnv)
	resetEnv()

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, match.DefaultSettings(), cfg.Engine)
	assert.Equal(t, BackendMemory, cfg.LearningBackend)
	assert.False(t, cfg.SymSpell.Enabled)
	assert.Equal(t, 8080, cfg.WebPort)
	assert.False(t, cfg.NeedsDatabase())
}

func TestFromEnvValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown backend", "ROSETTA_LEARNING_BACKEND", "sqlite"},
		{"tie margin out of range", "ROSETTA_TIE_MARGIN", "1.5"},
		{"non-positive top k", "ROSETTA_TOP_K", "0"},
		{"bad port", "ROSETTA_WEB_PORT", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetEnv)
			resetEnv()
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestNeedsDatabase(t *testing.T) {
	assert.True(t, (&Config{LearningBackend: BackendPostgres}).NeedsDatabase())
	assert.True(t, (&Config{LearningBackend: BackendMemory, Catalog: "postgres"}).NeedsDatabase())
	assert.False(t, (&Config{LearningBackend: BackendRedis, Catalog: "data/catalog.yaml"}).NeedsDatabase())
}
