package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meeting-scheduler/internal/app"
)

const shutdownTimeout = 15 * time.Second

// NewRouter wires the API. The OAuth callback, health and metrics routes are
// outside the bearer auth group.
func NewRouter(a *app.App, auth gin.HandlerFunc, metrics http.Handler, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/healthz", a.HealthHandler)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	api := router.Group("/api")
	api.Use(auth)
	{
		api.POST("/schedule", a.ScheduleHandler)
		api.POST("/extract", a.ExtractHandler)
		api.POST("/slots", a.SlotsHandler)
		api.GET("/availability", a.AvailabilityHandler)

		calendar := api.Group("/calendar")
		{
			calendar.GET("/auth", a.GoogleAuthHandler)
		}
	}
	return router
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Run serves router on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, router http.Handler, addr string, log *zap.Logger) error {
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
