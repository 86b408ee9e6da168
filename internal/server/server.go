package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meltforce/trainingdiary/internal/importflow"
	"github.com/meltforce/trainingdiary/internal/models"
	"github.com/meltforce/trainingdiary/internal/storage"
	"github.com/meltforce/trainingdiary/internal/workout"
)

// Store is the read side the handlers query directly.
type Store interface {
	UserResolver
	GetActivePlan(ctx context.Context, userID int) (*models.ActivePlan, error)
	GetWorkoutNewContext(ctx context.Context, userID int) (*models.WorkoutNewContext, error)
	GetSessionDetails(ctx context.Context, userID int, sessionID uuid.UUID) (*models.WorkoutSession, error)
	QueryHistory(ctx context.Context, userID int, q models.HistoryQuery) (*models.HistoryPage, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

// Importer runs the two-step plan import.
type Importer interface {
	Preview(ctx context.Context, userID int, filename string, data []byte, previousTemp string) (*importflow.PreviewResult, error)
	Save(ctx context.Context, userID int, tempPath, filename string) (*importflow.SaveResult, error)
}

// Workouts runs session write actions.
type Workouts interface {
	CreateSession(ctx context.Context, userID int, planDayID, sessionDate string) (uuid.UUID, error)
	SaveSets(ctx context.Context, userID int, sessionID string, payload []byte) (*workout.SaveResult, error)
	CompleteSession(ctx context.Context, userID int, sessionID string) error
}

var (
	_ Store    = (*storage.DB)(nil)
	_ Importer = (*importflow.Service)(nil)
	_ Workouts = (*workout.Service)(nil)
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    Store
	imports  Importer
	workouts Workouts
	log      *slog.Logger
	apiKey   string
	origins  []string
	who      WhoIser
	mcp      http.Handler
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(store Store, imports Importer, workouts Workouts, apiKey string, allowedOrigins []string, log *slog.Logger) *Server {
	s := &Server{
		store:    store,
		imports:  imports,
		workouts: workouts,
		log:      log,
		apiKey:   apiKey,
		origins:  allowedOrigins,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale switches identity from the local dev user to tailnet WhoIs.
func (s *Server) SetTailscale(who WhoIser) {
	s.who = who
}

// SetMCP mounts an MCP handler at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.mcp = h
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS(s.origins))

	s.router.Group(func(r chi.Router) {
		r.Use(s.identify)

		r.Get("/api/v1/me", s.handleMe)
		r.Post("/api/v1/import/preview", s.handleImportPreview)
		r.Post("/api/v1/import/save", s.handleImportSave)
		r.Get("/api/v1/import-logs", s.handleImportLogs)
		r.Get("/api/v1/plan", s.handleGetPlan)
		r.Get("/api/v1/workout/new", s.handleWorkoutNew)
		r.Post("/api/v1/sessions", s.handleCreateSession)
		r.Get("/api/v1/sessions/{id}", s.handleGetSession)
		r.Put("/api/v1/sessions/{id}/sets", s.handleSaveSets)
		r.Post("/api/v1/sessions/{id}/complete", s.handleCompleteSession)
		r.Get("/api/v1/history", s.handleHistory)
	})

	// MCP clients authenticate with the API key on top of the caller identity.
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(s.identify)
		r.Handle("/mcp", http.HandlerFunc(s.handleMCP))
	})
}

// identify resolves the caller via Tailscale when configured, otherwise as
// the local dev user.
func (s *Server) identify(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.who == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.who, s.store, s.log)(next).ServeHTTP(w, r)
	})
}
