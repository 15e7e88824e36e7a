package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service. Values come
// from the environment so deployments stay twelve-factor; defaults target
// local development.
type Config struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// Token lifetimes are a deployment knob: production runs shorter
	// access tokens than development.
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// ConsentTTL is how long a guardian grant stays valid.
	ConsentTTL time.Duration
	// RenewalWarningWindow is how far before expiry renewal checks start
	// reporting true.
	RenewalWarningWindow time.Duration

	// KafkaBrokers enables the audit event forwarder when non-empty.
	KafkaBrokers     []string
	AuditTopic       string
	InviteSigningKey string
}

// RedisConfig holds connection settings for the session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}
	inviteKey := os.Getenv("INVITE_SIGNING_KEY")
	if inviteKey == "" {
		inviteKey = jwtSigningKey
	}

	return Config{
		Addr:        envOr("FAMILYGATE_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		JWTSigningKey:        jwtSigningKey,
		JWTIssuer:            envOr("JWT_ISSUER", "familygate"),
		JWTAudience:          envOr("JWT_AUDIENCE", "familygate-clients"),
		AccessTokenTTL:       envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:      envDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		ConsentTTL:           envDuration("CONSENT_TTL", 365*24*time.Hour),
		RenewalWarningWindow: envDuration("CONSENT_RENEWAL_WARNING", 30*24*time.Hour),
		KafkaBrokers:         envList("KAFKA_BROKERS"),
		AuditTopic:           envOr("AUDIT_TOPIC", "familygate.audit.v1"),
		InviteSigningKey:     inviteKey,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
