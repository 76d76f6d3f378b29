package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/spf13/viper"
)

const (
	minSecretLength  = 32
	minSaltLength    = 16
	minRequestTimout = 5 * time.Second
)

// Config is read once at startup and never mutated afterwards, so it can be
// shared by every goroutine without locking.
type Config struct {
	DatabaseURL string
	HTTPAddress string

	JWTSecret string
	TokenTTL  time.Duration

	Argon2Time        uint32
	Argon2MemoryKiB   uint32
	Argon2Parallelism uint8
	Argon2SaltLength  uint32
	Argon2KeyLength   uint32
	HashWorkers       int

	RequestTimeout time.Duration
	AllowedOrigins []string

	RedisAddress      string
	RedisPassword     string
	RedisDB           int
	ExistenceCacheTTL time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment and, when path is not empty,
// from a config file. Environment variables win over the file.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadHashing is Load for offline tools that only derive credentials. Only
// the argon2 settings are validated.
func LoadHashing(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := errors.Join(cfg.validateArgon2()...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	parallelism, err := threads(v.GetUint("ARGON2_PARALLELISM"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:       v.GetString("DATABASE_URL"),
		HTTPAddress:       v.GetString("HTTP_ADDRESS"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		TokenTTL:          v.GetDuration("TOKEN_TTL"),
		Argon2Time:        v.GetUint32("ARGON2_TIME"),
		Argon2MemoryKiB:   v.GetUint32("ARGON2_MEMORY_KIB"),
		Argon2Parallelism: parallelism,
		Argon2SaltLength:  v.GetUint32("ARGON2_SALT_LENGTH"),
		Argon2KeyLength:   v.GetUint32("ARGON2_KEY_LENGTH"),
		HashWorkers:       v.GetInt("HASH_WORKERS"),
		RequestTimeout:    v.GetDuration("REQUEST_TIMEOUT"),
		AllowedOrigins:    splitList(v.GetStringSlice("ALLOWED_ORIGINS")),
		RedisAddress:      v.GetString("REDIS_ADDRESS"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		ExistenceCacheTTL: v.GetDuration("EXISTENCE_CACHE_TTL"),
		RateLimitRPS:      v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:    v.GetInt("RATE_LIMIT_BURST"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("TOKEN_TTL", 24*time.Hour)
	v.SetDefault("ARGON2_TIME", 2)
	v.SetDefault("ARGON2_MEMORY_KIB", 64*1024)
	v.SetDefault("ARGON2_PARALLELISM", 4)
	v.SetDefault("ARGON2_SALT_LENGTH", 16)
	v.SetDefault("ARGON2_KEY_LENGTH", 32)
	v.SetDefault("HASH_WORKERS", runtime.NumCPU())
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("EXISTENCE_CACHE_TTL", 15*time.Second)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// Validate reports every missing or out-of-range value at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	errs = append(errs, c.validateArgon2()...)
	if c.HashWorkers <= 0 {
		errs = append(errs, errors.New("HASH_WORKERS must be positive"))
	}
	if c.RequestTimeout < minRequestTimout {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be at least %s", minRequestTimout))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate limit settings must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateArgon2() []error {
	var errs []error
	if c.Argon2Time == 0 || c.Argon2MemoryKiB == 0 || c.Argon2Parallelism == 0 || c.Argon2KeyLength == 0 {
		errs = append(errs, errors.New("argon2 cost parameters must be positive"))
	}
	if c.Argon2SaltLength < minSaltLength {
		errs = append(errs, fmt.Errorf("ARGON2_SALT_LENGTH must be at least %d", minSaltLength))
	}
	return errs
}

func (c *Config) Argon2Params() *argon2id.Params {
	return &argon2id.Params{
		Memory:      c.Argon2MemoryKiB,
		Iterations:  c.Argon2Time,
		Parallelism: c.Argon2Parallelism,
		SaltLength:  c.Argon2SaltLength,
		KeyLength:   c.Argon2KeyLength,
	}
}

// Secret returns a private copy of the signing key.
func (c *Config) Secret() []byte {
	return []byte(c.JWTSecret)
}

func threads(n uint) (uint8, error) {
	if n > 255 {
		return 0, fmt.Errorf("ARGON2_PARALLELISM %d exceeds 255", n)
	}
	return uint8(n), nil
}

// env vars arrive as one comma separated string, config files as a list
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
