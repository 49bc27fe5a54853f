package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	_ = os.Unsetenv("SHARDY_HTTP_ADDR")
	_ = os.Unsetenv("SHARDY_TCP_ADDR")
	_ = os.Unsetenv("SHARDY_ROTATION_INTERVAL")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, ":3000", cfg.HTTPAddr)
	require.Equal(t, "127.0.0.1:6666", cfg.TCPAddr)
	require.Equal(t, time.Minute, cfg.RotationInterval)
	require.Equal(t, 5*time.Second, cfg.QueryDeadline)
	require.Equal(t, uint32(16<<20), cfg.MaxFrameBytes)
}

func TestNew_EnvOverride(t *testing.T) {
	_ = os.Setenv("SHARDY_TCP_ADDR", "0.0.0.0:7777")
	defer func() { _ = os.Unsetenv("SHARDY_TCP_ADDR") }()

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:7777", cfg.TCPAddr)
}

func TestNewForTesting(t *testing.T) {
	cfg := NewForTesting(t.TempDir())
	require.Equal(t, "file", cfg.ObjectStoreKind)
	require.NotEmpty(t, cfg.CatalogPath)
}
