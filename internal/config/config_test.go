package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so no config.yaml is picked up.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, int64(50<<20), cfg.WebSocket.MaxMessageSize)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "uploads", cfg.Storage.Local.BasePath)
	assert.Equal(t, "webm", cfg.Recording.Extension)
	assert.Equal(t, "video/webm", cfg.Recording.ContentType)
	assert.Equal(t, "live_recordings", cfg.Recording.Folder)
	assert.Equal(t, 50, cfg.Recording.CatalogLimit)
	assert.Equal(t, 4, cfg.Recording.FinalizeWorkers)
	assert.Equal(t, "memory", cfg.Registry.Type)
	assert.Equal(t, "none", cfg.PubSub.Driver)
	assert.Equal(t, "AI: ", cfg.Chat.Prefix)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0755))
	yaml := "server:\n  port: 5000\nchat:\n  prefix: \"bot> \"\nrecording:\n  finalize_timeout: 5s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"), []byte(yaml), 0644))
	chdir(t, dir)

	t.Setenv("STORAGE_TYPE", "s3")
	t.Setenv("S3_BUCKET", "media")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "bot> ", cfg.Chat.Prefix)
	assert.Equal(t, 5*time.Second, cfg.Recording.FinalizeTimeout)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "media", cfg.Storage.S3.Bucket)
}
