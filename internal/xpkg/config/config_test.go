package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "none", cfg.Events.Driver)
	assert.Equal(t, "RestoVersion", cfg.Orders.DefaultMenuVersion)
	assert.False(t, cfg.Orders.StrictTransitions)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  host: db
  port: "5432"
  user: staff
  password: secret
  database: hotel
events:
  driver: kafka
kafka:
  brokers: ["k1:9092", "k2:9092"]
orders:
  timezone: Asia/Kolkata
  strict_transitions: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "hotel", cfg.DB.Database)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Orders.StrictTransitions)
	// untouched sections keep their defaults
	assert.Equal(t, "staff-app", cfg.Orders.Source)

	loc, err := cfg.Orders.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadConfig_EmptySections(t *testing.T) {
	path := writeConfig(t, `
database:
auth:
  # passphrase: x
orders:
logging:
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Empty(t, cfg.Auth.Passphrase)
	assert.Equal(t, "RestoVersion", cfg.Orders.DefaultMenuVersion)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	require.NotNil(t, cfg.RMQ)
	assert.Equal(t, "order_events", cfg.RMQ.Exchange)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("APP_PASSPHRASE", "letmein")
	t.Setenv("ORDERS_STRICT_TRANSITIONS", "true")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "letmein", cfg.Auth.Passphrase)
	assert.True(t, cfg.Orders.StrictTransitions)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"driver":   "database:\n  driver: oracle\n",
		"events":   "events:\n  driver: smtp\n",
		"kafka":    "events:\n  driver: kafka\n",
		"timezone": "orders:\n  timezone: Mars/Olympus\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestOrders_LocationLocal(t *testing.T) {
	o := &Orders{}
	loc, err := o.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}
