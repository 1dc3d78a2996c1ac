package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Pure marketplace API
	PureAPIKey  string
	PureBaseURL string

	// Ingestion
	ProductSyncInterval     time.Duration
	TransactionSyncInterval time.Duration
	RateLimitDelay          time.Duration
	MaxRetries              int
	InitialBackoff          time.Duration
	ProductBatchSize        int
	SyncConcurrency         int

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/puremetrics.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "puremetrics"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_completed"),

		PureAPIKey:  getEnv("PURE_API_KEY", ""),
		PureBaseURL: getEnv("PURE_API_BASE_URL", "https://api.collectpure.com"),

		ProductSyncInterval:     getEnvDuration("PRODUCT_SYNC_INTERVAL", time.Hour),
		TransactionSyncInterval: getEnvDuration("TRANSACTION_SYNC_INTERVAL", 6*time.Hour),
		RateLimitDelay:          getEnvDuration("RATE_LIMIT_DELAY", 500*time.Millisecond),
		MaxRetries:              getEnvInt("MAX_RETRIES", 3),
		InitialBackoff:          getEnvDuration("INITIAL_BACKOFF", 2*time.Second),
		ProductBatchSize:        getEnvInt("PRODUCT_BATCH_SIZE", 20),
		SyncConcurrency:         getEnvInt("SYNC_CONCURRENCY", 4),

		DataBackend: getEnv("DATA_BACKEND", "sqlite"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.PureBaseURL != "" {
		if parsedURL, err := url.Parse(c.PureBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Pure API base URL '%s': %v", c.PureBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid Pure API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.ProductSyncInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid product sync interval %v: must be at least 1 minute", c.ProductSyncInterval))
	}
	if c.TransactionSyncInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid transaction sync interval %v: must be at least 1 minute", c.TransactionSyncInterval))
	}

	if c.MaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("invalid max retries %d: must not be negative", c.MaxRetries))
	}
	if c.InitialBackoff < 0 {
		errors = append(errors, fmt.Sprintf("invalid initial backoff %v: must not be negative", c.InitialBackoff))
	}

	if c.ProductBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid product batch size %d: must be at least 1", c.ProductBatchSize))
	} else if c.ProductBatchSize > 100 {
		errors = append(errors, fmt.Sprintf("invalid product batch size %d: must be at most 100", c.ProductBatchSize))
	}

	if c.SyncConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync concurrency %d: must be at least 1", c.SyncConcurrency))
	} else if c.SyncConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid sync concurrency %d: must be at most 32", c.SyncConcurrency))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
