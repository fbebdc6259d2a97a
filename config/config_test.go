package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  tracking_updated_topic_name: "tracking.updated"
  consumer_group: "shipscope-api"
redis:
  host: "localhost"
  port: 6379
shipscope:
  http_addr: ":8080"
  cache_ttl_seconds: 600
  rate_limit_per_minute: 30
  amazon_email: "ops@example.com"
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", cfg.Database.DSN())
	require.Equal(t, "localhost:9092", cfg.Kafka.Broker())
	require.Equal(t, "tracking.updated", cfg.Kafka.TrackingUpdatedTopicName)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, ":8080", cfg.ShipScope.HTTPAddr)
	require.Equal(t, 600, cfg.ShipScope.CacheTTLSeconds)
	require.Equal(t, "ops@example.com", cfg.ShipScope.AmazonEmail)
	require.Empty(t, cfg.ShipScope.AmazonPassword)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte("{not yaml: ["), 0o600))
	_, err := LoadConfig(p)
	require.Error(t, err)
}
