package internal

import (
	"chat-relay/errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "5000")

	config, err := LoadConfig("")

	req.NoError(err)
	req.Equal("0.0.0.0:5000", config.Address())
	req.Equal("/socket", config.SocketPath)
	req.Equal("http://localhost:3000", config.AllowedOrigin)
	req.Equal(60*time.Second, config.PingTimeout)
	req.Equal(25*time.Second, config.PingInterval)
	req.Equal(time.Second, config.SinkTimeout)
	req.Equal(int64(65536), config.MaxMessageSize)
	req.Equal(64, config.ConnectionBufferSize)
	req.Equal("INFO", config.LogLevel)
	req.False(config.EnableDebugRoutes)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "config.env")
	req.NoError(os.WriteFile(envFile, []byte("PORT=5001\nALLOWED_ORIGIN=https://chat.example\n"), 0o600))
	// The environment wins over the file
	t.Setenv("ALLOWED_ORIGIN", "http://localhost:8080")
	t.Setenv("PORT", "")
	req.NoError(os.Unsetenv("PORT"))

	config, err := LoadConfig(envFile)

	req.NoError(err)
	req.Equal(5001, config.Port)
	req.Equal("http://localhost:8080", config.AllowedOrigin)
}

func TestLoadConfig_MissingEnvFileIsFine(t *testing.T) {
	t.Setenv("PORT", "5000")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "ping interval not shorter than timeout", env: map[string]string{"PING_TIMEOUT": "10s", "PING_INTERVAL": "10s"}},
		{name: "socket path without slash", env: map[string]string{"WS_PATH": "socket"}},
		{name: "unknown log level", env: map[string]string{"LOG_LEVEL": "TRACE"}},
		{name: "port out of range", env: map[string]string{"PORT": "70000"}},
		{name: "tiny frames", env: map[string]string{"MAX_MESSAGE_SIZE": "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", "5000")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig("")

			require.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_PortRequired(t *testing.T) {
	t.Setenv("PORT", "")
	require.NoError(t, os.Unsetenv("PORT"))

	_, err := LoadConfig("")

	require.Error(t, err)
}
