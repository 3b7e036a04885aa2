package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	devJWTSecret = "perfhub-development-secret"
)

type Config struct {
	Addr          string
	Environment   string
	DatabaseURL   string
	RunMigrations bool
	MigrationsDir string
	RunSeed       bool

	Redis RedisConfig
	Log   LogConfig

	JWTSecret         string
	TokenTTL          time.Duration
	ManagerScope      string
	DataEncryptionKey string

	FrameworksFile    string
	UsersFile         string
	SeedAdminEmail    string
	SeedAdminPassword string
	SeedAdminName     string

	EmailFrom    string
	EmailEnabled bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPUseTLS   bool

	MaxBodyBytes       int64
	RateLimitPerMinute int
	RollupInterval     time.Duration
	MetricsEnabled     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment, after merging an optional
// .env file. CONFIG_FILE may point at an additional env-style file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		Addr:          v.GetString("APP_ADDR"),
		Environment:   strings.ToLower(v.GetString("APP_ENV")),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		RunMigrations: v.GetBool("RUN_MIGRATIONS"),
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		RunSeed:       v.GetBool("RUN_SEED"),
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		JWTSecret:          v.GetString("JWT_SECRET"),
		TokenTTL:           v.GetDuration("TOKEN_TTL"),
		ManagerScope:       v.GetString("MANAGER_SCOPE"),
		DataEncryptionKey:  v.GetString("DATA_ENCRYPTION_KEY"),
		FrameworksFile:     v.GetString("FRAMEWORKS_FILE"),
		UsersFile:          v.GetString("USERS_FILE"),
		SeedAdminEmail:     v.GetString("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:  v.GetString("SEED_ADMIN_PASSWORD"),
		SeedAdminName:      v.GetString("SEED_ADMIN_NAME"),
		EmailFrom:          v.GetString("EMAIL_FROM"),
		EmailEnabled:       v.GetBool("EMAIL_ENABLED"),
		SMTPHost:           v.GetString("SMTP_HOST"),
		SMTPPort:           v.GetInt("SMTP_PORT"),
		SMTPUser:           v.GetString("SMTP_USER"),
		SMTPPassword:       v.GetString("SMTP_PASSWORD"),
		SMTPUseTLS:         v.GetBool("SMTP_USE_TLS"),
		MaxBodyBytes:       v.GetInt64("MAX_BODY_BYTES"),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		RollupInterval:     v.GetDuration("ROLLUP_INTERVAL"),
		MetricsEnabled:     v.GetBool("METRICS_ENABLED"),
	}
	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = devJWTSecret
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("RUN_SEED", true)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("TOKEN_TTL", "8h")
	v.SetDefault("MANAGER_SCOPE", "all")
	v.SetDefault("SEED_ADMIN_NAME", "Administrator")
	v.SetDefault("EMAIL_FROM", "no-reply@example.com")
	v.SetDefault("EMAIL_ENABLED", false)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USE_TLS", true)
	v.SetDefault("MAX_BODY_BYTES", 1048576)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("ROLLUP_INTERVAL", "15m")
	v.SetDefault("METRICS_ENABLED", true)
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c Config) Validate() error {
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" || c.JWTSecret == devJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
		if c.RunSeed && c.SeedAdminEmail != "" && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be set or RUN_SEED disabled in production")
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.ManagerScope)) {
	case "", "all", "direct_reports":
	default:
		return fmt.Errorf("MANAGER_SCOPE must be all or direct_reports")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.RollupInterval < 0 {
		return fmt.Errorf("ROLLUP_INTERVAL must not be negative")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
