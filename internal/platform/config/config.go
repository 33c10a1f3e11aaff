package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	LogLevel      string

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	// AgeIdentity is the X25519 identity used to decrypt connection configs.
	AgeIdentity string
	// SeedFile optionally loads integrations, rules and templates at startup.
	SeedFile string

	HTTP        HTTPConfig
	Connectors  ConnectorConfig
	Offboarding OffboardingConfig
}

// HTTPConfig bounds the admin API server. WriteTimeout must outlast a
// workflow started with immediate=true, which waits on provider calls.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit outbox relay.
type KafkaConfig struct {
	Brokers       []string
	AuditTopic    string
	Partitions    int32
	RelayInterval time.Duration
}

// ConnectorConfig bounds every outbound provider call.
type ConnectorConfig struct {
	Timeout time.Duration
}

// OffboardingConfig tunes the workflow engine and its scheduler.
type OffboardingConfig struct {
	Parallelism       int
	SchedulerInterval time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; production deployments must override it.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          envOr("PEOPLE_ADDR", ":8080"),
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     envOr("JWT_ISSUER", "people"),
		JWTAudience:   envOr("JWT_AUDIENCE", "people-admin"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:    envOr("AUDIT_TOPIC", "people.audit"),
			Partitions:    int32(envInt("AUDIT_TOPIC_PARTITIONS", 3)),
			RelayInterval: envDuration("OUTBOX_RELAY_INTERVAL", 2*time.Second),
		},
		HTTP: HTTPConfig{
			ReadHeaderTimeout: envDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			WriteTimeout:      envDuration("HTTP_WRITE_TIMEOUT", 2*time.Minute),
			IdleTimeout:       envDuration("HTTP_IDLE_TIMEOUT", time.Minute),
			ShutdownTimeout:   envDuration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		AgeIdentity: os.Getenv("AGE_IDENTITY"),
		SeedFile:    os.Getenv("SEED_FILE"),
		Connectors: ConnectorConfig{
			Timeout: envDuration("CONNECTOR_TIMEOUT", 30*time.Second),
		},
		Offboarding: OffboardingConfig{
			Parallelism:       envInt("OFFBOARDING_PARALLELISM", 4),
			SchedulerInterval: envDuration("SCHEDULER_INTERVAL", time.Minute),
		},
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
