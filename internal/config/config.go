// Package config loads service settings from the environment, an optional
// .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"meeting-scheduler/internal/app"
)

type Config struct {
	App        AppConfig
	Auth       AuthConfig
	Calendar   CalendarConfig
	LLM        LLMConfig
	Redis      RedisConfig
	AMQP       AMQPConfig
	Scheduling SchedulingConfig
	Scoring    ScoringConfig
}

type AppConfig struct {
	Env      string
	Port     string
	LogLevel string
}

type AuthConfig struct {
	StaticTokens  []string
	JWTHMACSecret string
}

type CalendarConfig struct {
	Provider           string // google, postgres or none
	DatabaseURL        string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleTokenDir     string
	FetchConcurrency   int
}

type LLMConfig struct {
	Provider string // openai, genai or none
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Required bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

type SchedulingConfig struct {
	UTCOffset          string
	OpenHour           int
	CloseHour          int
	GranularityMinutes int
	MaxResults         int
	BusyThreshold      int
}

type ScoringConfig struct {
	AvailableBonus  float64
	ConflictPenalty float64
	LunchPenalty    float64
	OffBandPenalty  float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "production")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("static_tokens", "")
	v.SetDefault("jwt_hmac_secret", "")

	v.SetDefault("calendar_provider", "none")
	v.SetDefault("database_url", "")
	v.SetDefault("google_client_id", "")
	v.SetDefault("google_client_secret", "")
	v.SetDefault("google_redirect_url", "")
	v.SetDefault("google_token_dir", "Keys")
	v.SetDefault("calendar_fetch_concurrency", 8)

	v.SetDefault("llm_provider", "none")
	v.SetDefault("llm_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_model", "")
	v.SetDefault("llm_timeout", "30s")
	v.SetDefault("llm_required", false)

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_ttl", "5m")

	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "meetings")
	v.SetDefault("amqp_routing_key", "meeting.scheduled")

	v.SetDefault("scheduling_utc_offset", "+05:30")
	v.SetDefault("scheduling_open_hour", 9)
	v.SetDefault("scheduling_close_hour", 18)
	v.SetDefault("scheduling_granularity_minutes", 15)
	v.SetDefault("scheduling_max_results", 5)
	v.SetDefault("scheduling_busy_threshold", 5)

	v.SetDefault("scoring_available_bonus", 100)
	v.SetDefault("scoring_conflict_penalty", 20)
	v.SetDefault("scoring_lunch_penalty", -15)
	v.SetDefault("scoring_off_band_penalty", -10)
}

// Load reads .env when present, then the config file when path is set, then
// environment variables, which take precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	timeout, err := time.ParseDuration(v.GetString("llm_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT: %w", err)
	}
	ttl, err := time.ParseDuration(v.GetString("redis_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("app_env"),
			Port:     v.GetString("port"),
			LogLevel: v.GetString("log_level"),
		},
		Auth: AuthConfig{
			StaticTokens:  splitList(v.GetString("static_tokens")),
			JWTHMACSecret: strings.TrimSpace(v.GetString("jwt_hmac_secret")),
		},
		Calendar: CalendarConfig{
			Provider:           strings.ToLower(v.GetString("calendar_provider")),
			DatabaseURL:        v.GetString("database_url"),
			GoogleClientID:     v.GetString("google_client_id"),
			GoogleClientSecret: v.GetString("google_client_secret"),
			GoogleRedirectURL:  v.GetString("google_redirect_url"),
			GoogleTokenDir:     v.GetString("google_token_dir"),
			FetchConcurrency:   v.GetInt("calendar_fetch_concurrency"),
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(v.GetString("llm_provider")),
			BaseURL:  v.GetString("llm_base_url"),
			APIKey:   v.GetString("llm_api_key"),
			Model:    v.GetString("llm_model"),
			Timeout:  timeout,
			Required: v.GetBool("llm_required"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
			TTL:      ttl,
		},
		AMQP: AMQPConfig{
			URL:        v.GetString("amqp_url"),
			Exchange:   v.GetString("amqp_exchange"),
			RoutingKey: v.GetString("amqp_routing_key"),
		},
		Scheduling: SchedulingConfig{
			UTCOffset:          v.GetString("scheduling_utc_offset"),
			OpenHour:           v.GetInt("scheduling_open_hour"),
			CloseHour:          v.GetInt("scheduling_close_hour"),
			GranularityMinutes: v.GetInt("scheduling_granularity_minutes"),
			MaxResults:         v.GetInt("scheduling_max_results"),
			BusyThreshold:      v.GetInt("scheduling_busy_threshold"),
		},
		Scoring: ScoringConfig{
			AvailableBonus:  v.GetFloat64("scoring_available_bonus"),
			ConflictPenalty: v.GetFloat64("scoring_conflict_penalty"),
			LunchPenalty:    v.GetFloat64("scoring_lunch_penalty"),
			OffBandPenalty:  v.GetFloat64("scoring_off_band_penalty"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be repaired with a default.
func (c *Config) Validate() error {
	s := c.Scheduling
	if s.OpenHour < 0 || s.CloseHour > 24 || s.OpenHour >= s.CloseHour {
		return fmt.Errorf("invalid business hours %d-%d", s.OpenHour, s.CloseHour)
	}
	if s.GranularityMinutes <= 0 {
		return errors.New("SCHEDULING_GRANULARITY_MINUTES must be positive")
	}
	if _, err := ParseOffset(s.UTCOffset); err != nil {
		return err
	}
	switch c.Calendar.Provider {
	case "none", "google", "postgres":
	default:
		return fmt.Errorf("unknown CALENDAR_PROVIDER %q", c.Calendar.Provider)
	}
	if c.Calendar.Provider == "postgres" && c.Calendar.DatabaseURL == "" {
		return errors.New("DATABASE_URL required for the postgres calendar provider")
	}
	switch c.LLM.Provider {
	case "none", "openai", "genai":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	return nil
}

// ParseOffset parses "+HH:MM" or "-HH:MM" into seconds east of UTC.
func ParseOffset(s string) (int, error) {
	t, err := time.Parse("-07:00", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid SCHEDULING_UTC_OFFSET %q: %w", s, err)
	}
	_, off := t.Zone()
	return off, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Policy builds the business calendar policy from the scheduling and
// scoring settings.
func (c *Config) Policy() app.Policy {
	p := app.DefaultPolicy()
	if off, err := ParseOffset(c.Scheduling.UTCOffset); err == nil {
		p.Location = time.FixedZone(c.Scheduling.UTCOffset, off)
	}
	p.OpenHour = c.Scheduling.OpenHour
	p.CloseHour = c.Scheduling.CloseHour
	p.Granularity = time.Duration(c.Scheduling.GranularityMinutes) * time.Minute
	p.MaxResults = c.Scheduling.MaxResults
	p.BusyThreshold = c.Scheduling.BusyThreshold
	p.Scoring.AvailableBonus = c.Scoring.AvailableBonus
	p.Scoring.ConflictPenalty = c.Scoring.ConflictPenalty
	p.Scoring.LunchPenalty = c.Scoring.LunchPenalty
	p.Scoring.OffBandPenalty = c.Scoring.OffBandPenalty
	return p
}
