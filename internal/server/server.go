package server

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	ironmcp "github.com/claude/ironlog/internal/mcp"
	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/storage"
	"github.com/claude/ironlog/internal/storage/litestore"
	"github.com/claude/ironlog/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Store is the persistence used by the HTTP handlers.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)

	CreateExercise(ctx context.Context, ex *models.Exercise) error
	UpdateExercise(ctx context.Context, ex *models.Exercise) error
	DeleteExercise(ctx context.Context, id uuid.UUID, userID int) error
	GetExercise(ctx context.Context, id uuid.UUID, userID int) (*models.Exercise, error)
	ListExercises(ctx context.Context, userID int) ([]models.Exercise, error)
	ExerciseHistory(ctx context.Context, exerciseID uuid.UUID, limit int, userID int) ([]models.Performance, error)

	CreateRoutineGroup(ctx context.Context, g *models.RoutineGroup) error
	ListRoutineGroups(ctx context.Context, userID int) ([]models.RoutineGroup, error)
	CreateRoutine(ctx context.Context, r *models.Routine) error
	GetRoutine(ctx context.Context, id uuid.UUID, userID int) (*models.Routine, error)
	ListRoutines(ctx context.Context, userID int) ([]models.Routine, error)
	DeleteRoutine(ctx context.Context, id uuid.UUID, userID int) error

	GetWorkout(ctx context.Context, id uuid.UUID, userID int) (*models.WorkoutLog, error)
	ListWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLog, error)
	DeleteWorkout(ctx context.Context, id uuid.UUID, userID int) error
	UpdateEntrySets(ctx context.Context, entryID uuid.UUID, sets []models.WorkoutSet, userID int) error
}

// Compile-time check: both storage backends satisfy Store.
var (
	_ Store = (*storage.DB)(nil)
	_ Store = (*litestore.Store)(nil)
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    Store
	workouts *workout.Service
	log      *slog.Logger
	apiKey   string
	router   chi.Router
	whois    WhoIsClient
	mcp      http.Handler
}

// New creates a new Server with all routes configured.
func New(store Store, workouts *workout.Service, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:    store,
		workouts: workouts,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	// MCP endpoint (API key required)
	s.router.With(APIKeyAuth(s.apiKey)).Handle("/mcp", http.HandlerFunc(s.serveMCP))

	// App API (no auth except backup: tsnet handles access)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.With(APIKeyAuth(s.apiKey)).Get("/backup", s.handleBackup)

		r.Route("/exercises", func(r chi.Router) {
			r.Get("/", s.handleListExercises)
			r.Post("/", s.handleCreateExercise)
			r.Get("/{id}", s.handleGetExercise)
			r.Put("/{id}", s.handleUpdateExercise)
			r.Delete("/{id}", s.handleDeleteExercise)
			r.Get("/{id}/stats", s.handleExerciseStats)
		})

		r.Get("/routine-groups", s.handleListRoutineGroups)
		r.Post("/routine-groups", s.handleCreateRoutineGroup)

		r.Route("/routines", func(r chi.Router) {
			r.Get("/", s.handleListRoutines)
			r.Post("/", s.handleCreateRoutine)
			r.Get("/{id}", s.handleGetRoutine)
			r.Delete("/{id}", s.handleDeleteRoutine)
		})

		r.Route("/workouts", func(r chi.Router) {
			r.Get("/", s.handleListWorkouts)
			r.Post("/", s.handleStartWorkout)
			r.Get("/{id}", s.handleGetWorkout)
			r.Delete("/{id}", s.handleDeleteWorkout)
			r.Post("/{id}/finish", s.handleFinishWorkout)
			r.Post("/{id}/overload", s.handleOverload)
			r.Put("/{id}/entries/{entryID}/sets", s.handleUpdateSets)
			r.Post("/{id}/entries/{entryID}/overload", s.handleOverload)
		})
	})
}

// SetMCP exposes an MCP server over streamable HTTP at /mcp. Tool calls run
// as the user resolved by the identity middleware.
func (s *Server) SetMCP(m *mcpserver.MCPServer) {
	s.mcp = mcpserver.NewStreamableHTTPServer(m,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return ironmcp.WithUserID(ctx, userIDFromContext(r))
		}),
	)
}

func (s *Server) serveMCP(w http.ResponseWriter, r *http.Request) {
	if s.mcp == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "mcp not enabled"})
		return
	}
	s.mcp.ServeHTTP(w, r)
}

// SetFrontend mounts a built SPA filesystem.
// Unmatched routes serve index.html for client-side routing.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		// Try to serve the exact file first
		f, err := webFS.Open(r.URL.Path[1:]) // strip leading /
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		// Fallback to index.html for SPA routing
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
