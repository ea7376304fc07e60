package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mediagen/internal/domain"
	"mediagen/internal/imagegen"
	"mediagen/internal/infra"
	"mediagen/internal/storage"
)

// ImageGenerator produces images synchronously.
type ImageGenerator interface {
	Generate(ctx context.Context, req imagegen.Request) ([]string, error)
}

// App holds the dependencies shared by HTTP handlers.
type App struct {
	Config *infra.Config
	Logger infra.Logger
	Jobs   domain.JobRepository
	Images ImageGenerator
	// Files is set only when artifacts live on the local filesystem.
	Files *storage.FileStore

	newID func() string
	now   func() time.Time
}

// NewApp wires the handler container.
func NewApp(cfg *infra.Config, logger infra.Logger, jobs domain.JobRepository, images ImageGenerator, files *storage.FileStore) *App {
	return &App{
		Config: cfg,
		Logger: logger,
		Jobs:   jobs,
		Images: images,
		Files:  files,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}

func (a *App) clock() time.Time {
	if a.now == nil {
		return time.Now().UTC()
	}
	return a.now().UTC()
}

func (a *App) id() string {
	if a.newID == nil {
		return uuid.NewString()
	}
	return a.newID()
}
