package main

import (
	"context"

	"stock-scout/chat"
	"stock-scout/config"
	"stock-scout/interpreter"
	"stock-scout/marketdata"
	"stock-scout/models"

	"github.com/google/uuid"
)

// RepositoryInterface defines the repository operations needed by App
type RepositoryInterface interface {
	Close()
	Health(ctx context.Context) error
	GetConversation(ctx context.Context, userID string, conversationID uuid.UUID, limit int) ([]models.ChatEntry, error)
	GetRecentConversations(ctx context.Context, userID string, limit int) ([]uuid.UUID, error)
	GetRecentSnapshotBuilds(ctx context.Context, limit int) ([]models.SnapshotBuild, error)
}

// OrchestratorInterface defines the chat operations needed by the handlers
type OrchestratorInterface interface {
	Respond(ctx context.Context, userID string, conversationID uuid.UUID, message string, history []models.ChatMessage) (*chat.Reply, error)
	Screen(ctx context.Context, spec models.QuerySpecification) (*chat.Reply, error)
}

// App struct holds application dependencies using interfaces for testability
type App struct {
	cfg          *config.Config
	repo         RepositoryInterface
	orchestrator OrchestratorInterface
	interp       *interpreter.Interpreter
	cache        *marketdata.Cache
}

// NewApp creates a new App application struct
func NewApp(cfg *config.Config, repo RepositoryInterface, orchestrator OrchestratorInterface, interp *interpreter.Interpreter, cache *marketdata.Cache) *App {
	return &App{
		cfg:          cfg,
		repo:         repo,
		orchestrator: orchestrator,
		interp:       interp,
		cache:        cache,
	}
}

// Shutdown releases application resources
func (a *App) Shutdown(ctx context.Context) {
	if a.repo != nil {
		a.repo.Close()
	}
}
