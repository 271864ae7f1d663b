package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret   string   `mapstructure:"JWT_SECRET"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// HTTP hardening.
	RateLimitRPS          float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int     `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeoutSeconds int     `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	MaxBodySize           string  `mapstructure:"MAX_BODY_SIZE"`

	// Reminder engine tuning.
	ReminderHorizonMinutes int     `mapstructure:"REMINDER_HORIZON_MINUTES"`
	AdherenceWindowDays    int     `mapstructure:"ADHERENCE_WINDOW_DAYS"`
	LowAdherenceThreshold  float64 `mapstructure:"LOW_ADHERENCE_THRESHOLD"`
	ScheduleTimezone       string  `mapstructure:"SCHEDULE_TIMEZONE"`
	JobsEnabled            bool    `mapstructure:"JOBS_ENABLED"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("MAX_BODY_SIZE", "1M")
	v.SetDefault("REMINDER_HORIZON_MINUTES", 30)
	v.SetDefault("ADHERENCE_WINDOW_DAYS", 7)
	v.SetDefault("LOW_ADHERENCE_THRESHOLD", 70)
	v.SetDefault("SCHEDULE_TIMEZONE", "UTC")
	v.SetDefault("JOBS_ENABLED", true)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REQUEST_TIMEOUT_SECONDS")
	v.BindEnv("MAX_BODY_SIZE")
	v.BindEnv("REMINDER_HORIZON_MINUTES")
	v.BindEnv("ADHERENCE_WINDOW_DAYS")
	v.BindEnv("LOW_ADHERENCE_THRESHOLD")
	v.BindEnv("SCHEDULE_TIMEZONE")
	v.BindEnv("JOBS_ENABLED")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ScheduleLocation resolves SCHEDULE_TIMEZONE. All dose-slot instants and day
// boundaries are computed in this single location.
func (c *Config) ScheduleLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ScheduleTimezone)
	if err != nil {
		return nil, fmt.Errorf("SCHEDULE_TIMEZONE %q: %w", c.ScheduleTimezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run. Production requires
// a real JWT secret; the reminder tunables must stay in sane ranges because
// the background jobs trust them without re-checking.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.ReminderHorizonMinutes <= 0 {
		return fmt.Errorf("REMINDER_HORIZON_MINUTES must be positive, got %d", c.ReminderHorizonMinutes)
	}
	if c.AdherenceWindowDays <= 0 {
		return fmt.Errorf("ADHERENCE_WINDOW_DAYS must be positive, got %d", c.AdherenceWindowDays)
	}
	if c.LowAdherenceThreshold <= 0 || c.LowAdherenceThreshold > 100 {
		return fmt.Errorf("LOW_ADHERENCE_THRESHOLD must be in (0, 100], got %v", c.LowAdherenceThreshold)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.RequestTimeoutSeconds)
	}
	if _, err := c.ScheduleLocation(); err != nil {
		return err
	}
	return nil
}
