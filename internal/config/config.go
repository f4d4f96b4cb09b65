// Package config provides configuration structures and validation for the
// clearing ledger service. It handles environment-based configuration for
// the HTTP server, storage backends, Kafka auditing, authorization, and
// ledger policy.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field covers a
// major subsystem and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Kafka       KafkaConfig
	Audit       AuditConfig
	Auth        AuthConfig
	Ledger      LedgerConfig
	Currency    CurrencyConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// KafkaConfig contains Kafka configuration for the audit stream
type KafkaConfig struct {
	Brokers           string
	AuditTopic        string
	NumPartitions     int // Number of partitions for topic creation
	ReplicationFactor int // Replication factor for topic creation
	MaxWait           time.Duration
}

// AuditConfig contains the async audit dispatcher configuration
type AuditConfig struct {
	Enabled        bool
	PoolSize       int           // Worker pool size for async publication
	PublishTimeout time.Duration // Per-event publish deadline
}

// StaticToken maps a bearer token to a caller identity. Token verification
// proper lives at the gateway; this table is the adapter-side stand-in.
type StaticToken struct {
	Subject string
	Roles   []string
}

// AuthConfig contains authorization configuration
type AuthConfig struct {
	// StaticTokens maps bearer token -> caller identity.
	StaticTokens map[string]StaticToken
	// RoleGrants maps role -> granted capability names.
	RoleGrants map[string][]string
}

// LedgerConfig contains ledger policy configuration
type LedgerConfig struct {
	// OverdrawableAccountTypes lists account types exempt from the
	// solvency check. Empty means every account must stay non-negative.
	OverdrawableAccountTypes []string
}

// CurrencyConfig contains currency registry configuration
type CurrencyConfig struct {
	// DecimalsOverrides maps currency code -> decimal exponent, merged
	// over the built-in ISO-4217 table.
	DecimalsOverrides map[string]uint
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka and audit config when auditing is enabled
	if c.Audit.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
		}
		if c.Kafka.AuditTopic == "" {
			validationErrors = append(validationErrors, "KAFKA_AUDIT_TOPIC is required")
		}
		if c.Kafka.MaxWait <= 0 {
			validationErrors = append(validationErrors, "KAFKA_MAX_WAIT must be greater than 0")
		}
		if c.Audit.PoolSize <= 0 {
			validationErrors = append(validationErrors, "AUDIT_POOL_SIZE must be greater than 0")
		}
		if c.Audit.PublishTimeout <= 0 {
			validationErrors = append(validationErrors, "AUDIT_PUBLISH_TIMEOUT must be greater than 0")
		}
	}

	// Validate Auth config
	if len(c.Auth.RoleGrants) == 0 {
		validationErrors = append(validationErrors, "AUTH_ROLE_GRANTS is required")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
