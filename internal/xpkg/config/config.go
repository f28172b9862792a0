package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DB      *Database `yaml:"database"`
	RMQ     *RabbitMQ `yaml:"rabbitmq"`
	Kafka   *Kafka    `yaml:"kafka"`
	Events  *Events   `yaml:"events"`
	Auth    *Auth     `yaml:"auth"`
	Orders  *Orders   `yaml:"orders"`
	Logging *Logging  `yaml:"logging"`
}

type Database struct {
	// Driver is "postgres" or "sqlite".
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// Path is the sqlite database file, ":memory:" allowed.
	Path string `yaml:"path"`
}

type RabbitMQ struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	VHost    string `yaml:"vhost"`
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type Events struct {
	// Driver is "none", "rabbitmq" or "kafka".
	Driver      string `yaml:"driver"`
	PendingSize int    `yaml:"pending_size"`
}

type Auth struct {
	Passphrase     string `yaml:"passphrase"`
	PassphraseHash string `yaml:"passphrase_hash"`
}

type Orders struct {
	Timezone           string `yaml:"timezone"`
	DefaultMenuVersion string `yaml:"default_menu_version"`
	Source             string `yaml:"source"`
	StrictTransitions  bool   `yaml:"strict_transitions"`
	SeedMenu           bool   `yaml:"seed_menu"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DB: &Database{
			Driver: "sqlite",
			Path:   "room-service.db",
		},
		RMQ: &RabbitMQ{
			Host:     "localhost",
			Port:     "5672",
			Exchange: "order_events",
			Queue:    "kitchen_feed",
		},
		Kafka: &Kafka{
			Topic:   "order_events",
			GroupID: "kitchen-feed",
		},
		Events: &Events{
			Driver:      "none",
			PendingSize: 100,
		},
		Auth: &Auth{},
		Orders: &Orders{
			Timezone:           "Local",
			DefaultMenuVersion: "RestoVersion",
			Source:             "staff-app",
			SeedMenu:           true,
		},
		Logging: &Logging{
			Level: "INFO",
		},
	}
}

// LoadConfig reads the yaml file on top of Default and applies env overrides.
// A missing file is not an error: defaults and env are enough to run.
func LoadConfig(configPath string) (*Config, error) {
	cnf := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cnf); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	cnf.fillSections()
	applyEnv(cnf)

	if err := cnf.Validate(); err != nil {
		return nil, err
	}
	return cnf, nil
}

// fillSections restores sections that yaml set to nil, which it does for a
// key with no value (e.g. "auth:" with every field commented out).
func (c *Config) fillSections() {
	def := Default()
	if c.DB == nil {
		c.DB = def.DB
	}
	if c.RMQ == nil {
		c.RMQ = def.RMQ
	}
	if c.Kafka == nil {
		c.Kafka = def.Kafka
	}
	if c.Events == nil {
		c.Events = def.Events
	}
	if c.Auth == nil {
		c.Auth = def.Auth
	}
	if c.Orders == nil {
		c.Orders = def.Orders
	}
	if c.Logging == nil {
		c.Logging = def.Logging
	}
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite: %q", c.DB.Driver)
	}
	switch c.Events.Driver {
	case "none", "rabbitmq", "kafka":
	default:
		return fmt.Errorf("events.driver must be none, rabbitmq or kafka: %q", c.Events.Driver)
	}
	if c.Events.Driver == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required for the kafka events driver")
	}
	if c.Events.PendingSize < 0 {
		return fmt.Errorf("events.pending_size cannot be negative: %d", c.Events.PendingSize)
	}
	if _, err := c.Orders.Location(); err != nil {
		return fmt.Errorf("orders.timezone: %w", err)
	}
	return nil
}

// Location resolves the time zone that bounds a calendar day for filtering.
func (o *Orders) Location() (*time.Location, error) {
	if o.Timezone == "" || o.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(o.Timezone)
}

func applyEnv(c *Config) {
	c.DB.Driver = getEnv("DB_DRIVER", c.DB.Driver)
	c.DB.Host = getEnv("POSTGRES_HOST", c.DB.Host)
	c.DB.Port = getEnv("POSTGRES_PORT", c.DB.Port)
	c.DB.User = getEnv("POSTGRES_USER", c.DB.User)
	c.DB.Password = getEnv("POSTGRES_PASSWORD", c.DB.Password)
	c.DB.Database = getEnv("POSTGRES_DBNAME", c.DB.Database)
	c.DB.Path = getEnv("DB_FILE", c.DB.Path)

	c.RMQ.Host = getEnv("RABBITMQ_HOST", c.RMQ.Host)
	c.RMQ.Port = getEnv("RABBITMQ_PORT", c.RMQ.Port)
	c.RMQ.User = getEnv("RABBITMQ_USER", c.RMQ.User)
	c.RMQ.Password = getEnv("RABBITMQ_PASSWORD", c.RMQ.Password)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
	c.Events.Driver = getEnv("EVENTS_DRIVER", c.Events.Driver)

	c.Auth.Passphrase = getEnv("APP_PASSPHRASE", c.Auth.Passphrase)
	c.Auth.PassphraseHash = getEnv("APP_PASSPHRASE_HASH", c.Auth.PassphraseHash)

	c.Orders.Timezone = getEnv("ORDERS_TIMEZONE", c.Orders.Timezone)
	if v, err := strconv.ParseBool(getEnv("ORDERS_STRICT_TRANSITIONS", "")); err == nil {
		c.Orders.StrictTransitions = v
	}

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
