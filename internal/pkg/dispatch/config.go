package dispatch

import (
	"time"

	"github.com/PayButton/paybutton-server/internal/pkg/env"
)

const (
	defaultPostTimeout   = 10 * time.Second
	defaultPostPoolSize  = 5
	defaultEmailPoolSize = 5
	defaultLogChunkSize  = 100
)

// Config carries every knob the dispatcher needs. It is built once during
// startup wiring and threaded into NewDispatcher; the dispatcher itself never
// reads process environment.
type Config struct {
	// PostTimeout bounds each outbound webhook request.
	PostTimeout time.Duration
	// PostPoolSize and EmailPoolSize cap in-flight transport calls per channel.
	PostPoolSize  int
	EmailPoolSize int
	// LogChunkSize bounds the batched trigger-log inserts at commit.
	LogChunkSize int
	// Disabled turns the whole dispatcher into a logged no-op. Used in
	// non-production environments.
	Disabled bool
	// SigningSecret keys the payload authenticity signature.
	SigningSecret string
}

// ConfigFromEnv assembles a Config from environment variables.
func ConfigFromEnv() Config {
	return Config{
		PostTimeout:   time.Duration(env.GetEnvInt("POST_TIMEOUT", 10)) * time.Second,
		PostPoolSize:  env.GetEnvInt("POST_POOL_SIZE", defaultPostPoolSize),
		EmailPoolSize: env.GetEnvInt("EMAIL_POOL_SIZE", defaultEmailPoolSize),
		LogChunkSize:  env.GetEnvInt("TRIGGER_LOG_CHUNK_SIZE", defaultLogChunkSize),
		Disabled:      env.GetEnvBool("DISABLE_TRIGGERS", false),
		SigningSecret: env.GetEnv("TRIGGER_SIGNING_SECRET", ""),
	}
}

func (c Config) withDefaults() Config {
	if c.PostTimeout <= 0 {
		c.PostTimeout = defaultPostTimeout
	}
	if c.PostPoolSize <= 0 {
		c.PostPoolSize = defaultPostPoolSize
	}
	if c.EmailPoolSize <= 0 {
		c.EmailPoolSize = defaultEmailPoolSize
	}
	if c.LogChunkSize <= 0 {
		c.LogChunkSize = defaultLogChunkSize
	}
	return c
}
