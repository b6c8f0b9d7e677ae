package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/stats"
	"github.com/claude/ironlog/internal/storage"
	"github.com/claude/ironlog/internal/storage/litestore"
	"github.com/claude/ironlog/internal/workout"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Local (in-process store
// and service) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListExercises(ctx context.Context, userID int) ([]models.Exercise, error)
	ExerciseStats(ctx context.Context, exerciseID uuid.UUID, limit int, userID int) (*stats.Summary, error)
	ListWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLog, error)
	ListRoutines(ctx context.Context, userID int) ([]models.Routine, error)
	PreviewOverload(ctx context.Context, logID uuid.UUID, userID int) ([]workout.EntryResult, error)
}

// Store is the subset of storage that Local reads from.
type Store interface {
	ListExercises(ctx context.Context, userID int) ([]models.Exercise, error)
	ExerciseHistory(ctx context.Context, exerciseID uuid.UUID, limit int, userID int) ([]models.Performance, error)
	ListWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLog, error)
	ListRoutines(ctx context.Context, userID int) ([]models.Routine, error)
}

// Compile-time check: both storage backends satisfy Store.
var (
	_ Store = (*storage.DB)(nil)
	_ Store = (*litestore.Store)(nil)
)

// Local serves MCP requests from the server's own store.
type Local struct {
	store    Store
	workouts *workout.Service
}

var _ DataSource = (*Local)(nil)

// NewLocal creates a DataSource backed by store and the workout service.
func NewLocal(store Store, workouts *workout.Service) *Local {
	return &Local{store: store, workouts: workouts}
}

func (l *Local) ListExercises(ctx context.Context, userID int) ([]models.Exercise, error) {
	return l.store.ListExercises(ctx, userID)
}

func (l *Local) ExerciseStats(ctx context.Context, exerciseID uuid.UUID, limit int, userID int) (*stats.Summary, error) {
	history, err := l.store.ExerciseHistory(ctx, exerciseID, limit, userID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	summary := stats.Summarize(history)
	return &summary, nil
}

func (l *Local) ListWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLog, error) {
	return l.store.ListWorkouts(ctx, start, end, userID)
}

func (l *Local) ListRoutines(ctx context.Context, userID int) ([]models.Routine, error) {
	return l.store.ListRoutines(ctx, userID)
}

func (l *Local) PreviewOverload(ctx context.Context, logID uuid.UUID, userID int) ([]workout.EntryResult, error) {
	return l.workouts.ApplyOverload(ctx, logID, nil, false, userID)
}
