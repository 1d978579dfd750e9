package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/legacymigrate/internal/config"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.DatabaseConfig
		expected string
	}{
		{
			name: "basic DSN",
			cfg: &config.DatabaseConfig{
				Host: "localhost", Port: 3306, User: "root", Password: "secret", Database: "mwnf3", TLS: "preferred",
			},
			expected: "root:secret@tcp(localhost:3306)/mwnf3?parseTime=true&charset=utf8mb4&tls=preferred",
		},
		{
			name: "DSN without database",
			cfg: &config.DatabaseConfig{
				Host: "localhost", Port: 3306, User: "root", Password: "secret",
			},
			expected: "root:secret@tcp(localhost:3306)/?parseTime=true&charset=utf8mb4&tls=preferred",
		},
		{
			name: "TLS disabled",
			cfg: &config.DatabaseConfig{
				Host: "legacy", Port: 3307, User: "reader", Password: "p@ss", Database: "mwnf3", TLS: "disable",
			},
			expected: "reader:p@ss@tcp(legacy:3307)/mwnf3?parseTime=true&charset=utf8mb4&tls=false",
		},
		{
			name: "TLS required",
			cfg: &config.DatabaseConfig{
				Host: "legacy", Port: 3306, User: "reader", Database: "mwnf3", TLS: "required",
			},
			expected: "reader:@tcp(legacy:3306)/mwnf3?parseTime=true&charset=utf8mb4&tls=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildDSN(tt.cfg))
		})
	}
}

func TestManagerCloseWithoutConnect(t *testing.T) {
	m := NewManager(&config.DatabaseConfig{})
	assert.NoError(t, m.Close())
}

func TestManagerPingWithoutConnect(t *testing.T) {
	m := NewManager(&config.DatabaseConfig{})
	err := m.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionFailed))
}

func TestManagerConnect_NilConfig(t *testing.T) {
	m := NewManager(nil)
	err := m.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionFailed))
}

func TestManagerConnect_UnreachableHost(t *testing.T) {
	m := NewManager(&config.DatabaseConfig{Host: "127.0.0.1", Port: 1, User: "x", TLS: "disable"})
	m.maxRetries = 2
	m.backoff = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionFailed))
	assert.True(t, strings.Contains(err.Error(), "x@127.0.0.1:1"))
}
