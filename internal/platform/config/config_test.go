package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DefaultExtensions, cfg.Evidence.Extensions)
	assert.Equal(t, 5*time.Second, cfg.Database.TxTimeout)
	assert.True(t, cfg.UsesDevSecrets())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custodian.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
database:
  url: postgres://lab/custody
  tx_timeout: 2s
evidence:
  root: /srv/evidence
  extensions: [".e01"]
kafka:
  brokers: ["k1:9092"]
`), 0o600))

	t.Setenv("CUSTODIAN_ADDR", ":9100")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("SIGNING_SECRET", "lab-secret")
	t.Setenv("SCRYPT_COST", "16384")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, "postgres://lab/custody", cfg.Database.URL)
	assert.Equal(t, 2*time.Second, cfg.Database.TxTimeout)
	assert.Equal(t, []string{".e01"}, cfg.Evidence.Extensions)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 16384, cfg.Signing.ScryptCost)
	assert.Equal(t, time.Minute, cfg.Redis.ReplayEvery, "unset keys keep defaults")
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"scrypt cost not a number", map[string]string{"SCRYPT_COST": "lots"}},
		{"scrypt cost not a power of two", map[string]string{"SCRYPT_COST": "1000"}},
		{"bad tx timeout", map[string]string{"TX_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
