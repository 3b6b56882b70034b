package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  chunk_size: 500
storage:
  type: s3
  s3:
    bucket: legal-snapshots
    region: eu-west-3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 500, cfg.Engine.ChunkSize)
	require.Equal(t, 200, cfg.Engine.ChunkOverlap)
	require.Equal(t, 4, cfg.Engine.RetrievalK)
	require.Equal(t, "s3", cfg.Storage.Type)
	require.NotNil(t, cfg.Storage.S3)
	require.Equal(t, "legal-snapshots", cfg.Storage.S3.Bucket)
	require.Equal(t, "GEMINI_API_KEY", cfg.Provider.APIKeyEnv)
	require.Equal(t, "sqlite", cfg.Conversations.Type)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [not a mapping"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestAPIKey_ResolvesFromEnvironment(t *testing.T) {
	t.Setenv("LEXRAG_TEST_KEY", "secret")

	cfg := Default()
	cfg.Provider.APIKeyEnv = "LEXRAG_TEST_KEY"
	require.Equal(t, "secret", cfg.APIKey())
}

func TestDataDir_PrefersConfiguredDir(t *testing.T) {
	cfg := Default()
	cfg.Storage.Local = &LocalStorageConfig{Dir: "/var/lib/lexrag"}
	require.Equal(t, "/var/lib/lexrag", cfg.DataDir())
}
