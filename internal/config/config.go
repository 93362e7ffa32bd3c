package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aegisd/aegis/internal/model"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds all security-core configuration
type SecurityConfig struct {
	Password   PasswordConfig   `mapstructure:"password"`
	Tokens     TokenConfig      `mapstructure:"tokens"`
	Lockout    LockoutConfig    `mapstructure:"lockout"`
	Threat     ThreatConfig     `mapstructure:"threat"`
	Events     EventLogConfig   `mapstructure:"events"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
	TwoFactor  TwoFactorConfig  `mapstructure:"two_factor"`
}

// PasswordConfig holds the password policy and hashing parameters.
// Each character-class requirement is independently toggleable.
type PasswordConfig struct {
	MinLength         int    `mapstructure:"min_length"`
	RequireUppercase  bool   `mapstructure:"require_uppercase"`
	RequireLowercase  bool   `mapstructure:"require_lowercase"`
	RequireDigit      bool   `mapstructure:"require_digit"`
	RequireSymbol     bool   `mapstructure:"require_symbol"`
	Argon2Memory      uint32 `mapstructure:"argon2_memory"`
	Argon2Iterations  uint32 `mapstructure:"argon2_iterations"`
	Argon2Parallelism uint8  `mapstructure:"argon2_parallelism"`
}

// TokenConfig holds JWT token configuration
type TokenConfig struct {
	SigningKey      string        `mapstructure:"signing_key"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// LockoutConfig holds account lockout policy configuration
type LockoutConfig struct {
	MaxFailedAttempts int           `mapstructure:"max_failed_attempts"`
	Duration          time.Duration `mapstructure:"duration"`
}

// ThreatConfig holds threat detection thresholds. Constructed explicitly
// and handed to the monitor at startup so tests can inject isolated values.
type ThreatConfig struct {
	BruteForceWindow     time.Duration `mapstructure:"brute_force_window"`
	BruteForceThreshold  int           `mapstructure:"brute_force_threshold"`
	MaxRequestsPerMinute int           `mapstructure:"max_requests_per_minute"`
	KnownBadIPs          []string      `mapstructure:"known_bad_ips"`
}

// EventLogConfig holds security event log retention configuration
type EventLogConfig struct {
	MaxEvents int64 `mapstructure:"max_events"`
}

// EncryptionConfig holds cipher service configuration
type EncryptionConfig struct {
	MasterKey string `mapstructure:"master_key"`
	KDFSalt   string `mapstructure:"kdf_salt"`
}

// TwoFactorConfig holds TOTP second-factor configuration
type TwoFactorConfig struct {
	Issuer string `mapstructure:"issuer"`
}

// PermissionSeed returns the baseline role-to-permission mapping used to
// seed the authorization engine. Every role has a deterministic, non-empty
// set; admin's breadth is explicit, never derived from role ordering.
func PermissionSeed() map[model.Role][]string {
	return map[model.Role][]string{
		model.RoleAdmin: {
			"user:create", "user:read", "user:update", "user:delete",
			"workflow:create", "workflow:read", "workflow:update", "workflow:delete",
			"task:create", "task:read", "task:update", "task:delete",
			"system:configure", "system:monitor", "security:manage",
		},
		model.RoleUser: {
			"user:read_own", "user:update_own",
			"workflow:create", "workflow:read_own", "workflow:update_own", "workflow:delete_own",
			"task:create", "task:read_own", "task:update_own", "task:delete_own",
		},
		model.RoleGuest: {
			"user:read_own",
			"workflow:read_own",
			"task:read_own",
		},
		model.RoleService: {
			"workflow:execute", "task:execute", "system:monitor",
		},
	}
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/aegis")

	setDefaults(v)

	// Config file is optional; defaults and env vars cover everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("AEGIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default returns a Config populated with defaults only, without touching
// the filesystem or environment. Used by tests.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default config does not unmarshal: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 4)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Password policy defaults
	v.SetDefault("security.password.min_length", 12)
	v.SetDefault("security.password.require_uppercase", true)
	v.SetDefault("security.password.require_lowercase", true)
	v.SetDefault("security.password.require_digit", true)
	v.SetDefault("security.password.require_symbol", true)
	v.SetDefault("security.password.argon2_memory", 65536)
	v.SetDefault("security.password.argon2_iterations", 3)
	v.SetDefault("security.password.argon2_parallelism", 4)

	// Token defaults
	v.SetDefault("security.tokens.signing_key", "")
	v.SetDefault("security.tokens.issuer", "aegis")
	v.SetDefault("security.tokens.access_token_ttl", "1h")
	v.SetDefault("security.tokens.refresh_token_ttl", "168h")

	// Lockout defaults
	v.SetDefault("security.lockout.max_failed_attempts", 5)
	v.SetDefault("security.lockout.duration", "30m")

	// Threat detection defaults
	v.SetDefault("security.threat.brute_force_window", "300s")
	v.SetDefault("security.threat.brute_force_threshold", 10)
	v.SetDefault("security.threat.max_requests_per_minute", 100)
	v.SetDefault("security.threat.known_bad_ips", []string{})

	// Event log defaults
	v.SetDefault("security.events.max_events", 10000)

	// Encryption defaults
	v.SetDefault("security.encryption.master_key", "")
	v.SetDefault("security.encryption.kdf_salt", "aegis.kdf.v1")

	// Two-factor defaults
	v.SetDefault("security.two_factor.issuer", "Aegis")
}
