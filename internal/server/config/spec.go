package config

// ServerConfig is the root configuration for respkv-server.
type ServerConfig struct {
	Server ServerSection `koanf:"server"`
	Log    LogSection    `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Redis   RedisConfig   `koanf:"redis"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// RedisConfig configures the RESP listener.
type RedisConfig struct {
	Addr string `koanf:"addr"`
	// RateLimit is the maximum number of commands per second per
	// connection. Zero disables rate limiting.
	RateLimit int `koanf:"rate_limit"`
	// RateBurst is the burst size of the per-connection limiter.
	// Defaults to RateLimit when zero.
	RateBurst int `koanf:"rate_burst"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the HTTP listen address. Empty disables the endpoint.
	Addr string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Keys lists every configuration key in koanf dotted form. The runtime
// settings served by CONFIG GET are not configuration keys; they come
// only from ParseArgs.
func Keys() []string {
	return []string{
		"server.redis.addr",
		"server.redis.rate_limit",
		"server.redis.rate_burst",
		"server.metrics.addr",
		"log.level",
		"log.format",
	}
}
