// Package workout runs training sessions: starting a log from a routine,
// applying progressive overload to its entries and finishing it.
package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/progression"
	"github.com/claude/ironlog/internal/storage"
	"github.com/google/uuid"
)

// DefaultSets is the number of blank sets seeded for an exercise whose
// assignment has no usable target set count.
const DefaultSets = 3

// Store is the persistence the service needs. Both storage backends
// satisfy it.
type Store interface {
	GetExercise(ctx context.Context, id uuid.UUID, userID int) (*models.Exercise, error)
	GetRoutine(ctx context.Context, id uuid.UUID, userID int) (*models.Routine, error)
	GetWorkout(ctx context.Context, id uuid.UUID, userID int) (*models.WorkoutLog, error)
	CreateWorkout(ctx context.Context, log *models.WorkoutLog) error
	UpdateEntrySets(ctx context.Context, entryID uuid.UUID, sets []models.WorkoutSet, userID int) error
	FinishWorkout(ctx context.Context, id uuid.UUID, at time.Time, userID int) error
	LastPerformance(ctx context.Context, exerciseID uuid.UUID, routineID *uuid.UUID, excludeLogID uuid.UUID, userID int) ([]models.WorkoutSet, error)
}

// Service coordinates workout sessions.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// New creates a workout service.
func New(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// StartParams describes a new session. Exercises are appended after the
// routine's assignments and may be used without a routine.
type StartParams struct {
	RoutineID *uuid.UUID  `json:"routine_id,omitempty"`
	Name      string      `json:"name,omitempty"`
	IsDeload  bool        `json:"is_deload"`
	Exercises []uuid.UUID `json:"exercises,omitempty"`
}

// EntryResult is the overload outcome for one entry of a log.
type EntryResult struct {
	EntryID    uuid.UUID          `json:"entry_id"`
	ExerciseID uuid.UUID          `json:"exercise_id"`
	Persisted  bool               `json:"persisted"`
	Result     progression.Result `json:"result"`
}

// Start creates an open workout log. Each exercise is seeded with blank
// sets shaped for its modality.
func (s *Service) Start(ctx context.Context, p StartParams, userID int) (*models.WorkoutLog, error) {
	log := &models.WorkoutLog{
		UserID:    userID,
		RoutineID: p.RoutineID,
		Name:      p.Name,
		StartedAt: s.now(),
		IsDeload:  p.IsDeload,
		Entries:   []models.WorkoutEntry{},
	}

	if p.RoutineID != nil {
		r, err := s.store.GetRoutine(ctx, *p.RoutineID, userID)
		if err != nil {
			return nil, fmt.Errorf("loading routine: %w", err)
		}
		if log.Name == "" {
			log.Name = r.Name
		}
		for _, re := range r.Exercises {
			log.Entries = append(log.Entries, models.WorkoutEntry{
				ExerciseID: re.ExerciseID,
				Sets:       emptySets(re.ExerciseType, progression.TargetSetCount(re.TargetSets)),
			})
		}
	}

	for _, id := range p.Exercises {
		ex, err := s.store.GetExercise(ctx, id, userID)
		if err != nil {
			return nil, fmt.Errorf("loading exercise: %w", err)
		}
		log.Entries = append(log.Entries, models.WorkoutEntry{
			ExerciseID: ex.ID,
			Sets:       emptySets(ex.Type, 0),
		})
	}

	if log.Name == "" {
		log.Name = "Workout"
	}

	if err := s.store.CreateWorkout(ctx, log); err != nil {
		return nil, fmt.Errorf("creating workout: %w", err)
	}
	s.log.Info("workout started", "user_id", userID, "workout_id", log.ID, "entries", len(log.Entries))
	return log, nil
}

// ApplyOverload computes the next sets for the entries of a log from each
// exercise's last qualifying session. With entryID set only that entry is
// processed. When persist is true, non-empty results replace the entry's
// sets.
func (s *Service) ApplyOverload(ctx context.Context, logID uuid.UUID, entryID *uuid.UUID, persist bool, userID int) ([]EntryResult, error) {
	log, err := s.store.GetWorkout(ctx, logID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading workout: %w", err)
	}

	entries := log.Entries
	if entryID != nil {
		e := log.Entry(*entryID)
		if e == nil {
			return nil, fmt.Errorf("entry %s: %w", *entryID, storage.ErrNotFound)
		}
		entries = []models.WorkoutEntry{*e}
	}

	routine, err := s.routine(ctx, log, userID)
	if err != nil {
		return nil, err
	}

	results := make([]EntryResult, 0, len(entries))
	for _, e := range entries {
		cfg, err := s.config(ctx, routine, e.ExerciseID, userID)
		if err != nil {
			return nil, err
		}
		last, err := s.store.LastPerformance(ctx, e.ExerciseID, log.RoutineID, log.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("loading last performance: %w", err)
		}

		res := progression.Apply(cfg, last)
		er := EntryResult{EntryID: e.ID, ExerciseID: e.ExerciseID, Result: res}
		if persist && len(res.NewSets) > 0 {
			if err := s.store.UpdateEntrySets(ctx, e.ID, res.NewSets, userID); err != nil {
				return nil, fmt.Errorf("saving sets: %w", err)
			}
			er.Persisted = true
		}
		if res.Diff != nil {
			s.log.Info("overload applied",
				"workout_id", log.ID,
				"exercise", res.Diff.ExerciseName,
				"type", res.Diff.Type,
				"old_weight", res.Diff.OldWeight,
				"new_weight", res.Diff.NewWeight,
				"persisted", er.Persisted,
			)
		} else {
			s.log.Debug("overload skipped", "workout_id", log.ID, "exercise_id", e.ExerciseID, "reason", res.FailureReason)
		}
		results = append(results, er)
	}
	return results, nil
}

// Finish closes an open workout log.
func (s *Service) Finish(ctx context.Context, logID uuid.UUID, userID int) (*models.WorkoutLog, error) {
	if err := s.store.FinishWorkout(ctx, logID, s.now(), userID); err != nil {
		return nil, fmt.Errorf("finishing workout: %w", err)
	}
	log, err := s.store.GetWorkout(ctx, logID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading workout: %w", err)
	}
	s.log.Info("workout finished", "user_id", userID, "workout_id", logID)
	return log, nil
}

// routine loads the log's routine. A routine deleted since the log was
// started yields nil.
func (s *Service) routine(ctx context.Context, log *models.WorkoutLog, userID int) (*models.Routine, error) {
	if log.RoutineID == nil {
		return nil, nil
	}
	r, err := s.store.GetRoutine(ctx, *log.RoutineID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading routine: %w", err)
	}
	return r, nil
}

// config builds the progression input for an exercise. Targets come from
// the routine assignment; exercises outside the routine have none.
func (s *Service) config(ctx context.Context, routine *models.Routine, exerciseID uuid.UUID, userID int) (progression.Exercise, error) {
	if routine != nil {
		if re := routine.Assignment(exerciseID); re != nil {
			return progression.Exercise{
				ID:             re.ExerciseID.String(),
				Name:           re.ExerciseName,
				Type:           re.ExerciseType,
				TargetReps:     re.TargetReps,
				TargetSets:     re.TargetSets,
				IncrementValue: re.IncrementValue,
			}, nil
		}
	}
	ex, err := s.store.GetExercise(ctx, exerciseID, userID)
	if err != nil {
		return progression.Exercise{}, fmt.Errorf("loading exercise: %w", err)
	}
	return progression.Exercise{ID: ex.ID.String(), Name: ex.Name, Type: ex.Type}, nil
}

func emptySets(m models.Modality, n int) []models.WorkoutSet {
	if n <= 0 {
		n = DefaultSets
	}
	sets := make([]models.WorkoutSet, n)
	for i := range sets {
		sets[i] = progression.CreateEmptySet(m)
	}
	return sets
}
