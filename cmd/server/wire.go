package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"meeting-scheduler/internal/app"
	"meeting-scheduler/internal/cache"
	"meeting-scheduler/internal/config"
	"meeting-scheduler/internal/llm"
	"meeting-scheduler/internal/metrics"
	"meeting-scheduler/internal/notify"
)

type deps struct {
	app     *app.App
	metrics *metrics.Recorder
	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*deps, error) {
	d := &deps{metrics: metrics.New()}
	policy := cfg.Policy()

	stateKey := []byte(cfg.Auth.JWTHMACSecret)
	if len(stateKey) == 0 {
		stateKey = make([]byte, 32)
		if _, err := rand.Read(stateKey); err != nil {
			return nil, fmt.Errorf("generate oauth state key: %w", err)
		}
	}
	google := app.NewGoogleCalendar(
		cfg.Calendar.GoogleClientID,
		cfg.Calendar.GoogleClientSecret,
		cfg.Calendar.GoogleRedirectURL,
		cfg.Calendar.GoogleTokenDir,
		stateKey, policy, log,
	)

	var provider app.CalendarProvider
	switch cfg.Calendar.Provider {
	case "google":
		if google == nil {
			return nil, errors.New("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL required for the google calendar provider")
		}
		provider = google
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Calendar.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
		pg := app.NewPostgresCalendar(pool, policy)
		if err := pg.EnsureSchema(ctx); err != nil {
			d.Close()
			return nil, err
		}
		provider = pg
	default:
		provider = app.EmptyCalendar{}
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = client.Close() })
		provider = cache.NewProvider(provider, cache.NewRedisStore(client), cfg.Redis.TTL, log)
	}

	mode := app.Unavailable()
	switch cfg.LLM.Provider {
	case "openai":
		c := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:     cfg.LLM.APIKey,
			BaseURL:    cfg.LLM.BaseURL,
			Model:      cfg.LLM.Model,
			MaxRetries: 2,
		})
		mode = app.Ready(llm.NewService(c, cfg.LLM.Timeout, log))
	case "genai":
		c, err := llm.NewGenAIClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			log.Warn("text understanding service unavailable", zap.Error(err))
			break
		}
		mode = app.Ready(llm.NewService(c, cfg.LLM.Timeout, log))
	}

	var notifier app.Notifier
	if cfg.AMQP.URL != "" {
		conn, err := notify.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Warn("meeting notifications disabled", zap.Error(err))
		} else {
			d.closers = append(d.closers, func() { _ = conn.Close() })
			notifier = notify.NewPublisher(conn.Channel(), cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
		}
	}

	orch := app.NewOrchestrator(app.OrchestratorConfig{
		Policy:      policy,
		Provider:    provider,
		Service:     mode,
		Strict:      cfg.LLM.Required,
		Concurrency: cfg.Calendar.FetchConcurrency,
		Notifier:    notifier,
		Metrics:     d.metrics,
		Logger:      log,
	})
	d.app = &app.App{Orchestrator: orch, Google: google, Logger: log}
	return d, nil
}
