package app

import "go.uber.org/zap"

// App carries the dependencies of the HTTP handlers.
type App struct {
	Orchestrator *Orchestrator
	Google       *GoogleCalendar
	Logger       *zap.Logger
}

func (a *App) log() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
