package models

import (
	"time"

	"github.com/google/uuid"
)

// Exercise is a user-defined movement.
type Exercise struct {
	ID        uuid.UUID `json:"id"`
	UserID    int       `json:"-"`
	Name      string    `json:"name"`
	Type      Modality  `json:"type"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RoutineGroup bundles routines into a program (e.g. "Push-Pull-Legs").
type RoutineGroup struct {
	ID        uuid.UUID `json:"id"`
	UserID    int       `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Routine is an ordered list of exercise assignments.
type Routine struct {
	ID        uuid.UUID         `json:"id"`
	UserID    int               `json:"-"`
	GroupID   *uuid.UUID        `json:"group_id,omitempty"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"created_at"`
	Exercises []RoutineExercise `json:"exercises"`
}

// Assignment returns the routine's assignment for an exercise, or nil.
func (r *Routine) Assignment(exerciseID uuid.UUID) *RoutineExercise {
	for i := range r.Exercises {
		if r.Exercises[i].ExerciseID == exerciseID {
			return &r.Exercises[i]
		}
	}
	return nil
}

// RoutineExercise assigns an exercise to a routine together with its
// progression targets. ExerciseName and ExerciseType are filled from the
// exercises table on read.
type RoutineExercise struct {
	ID             uuid.UUID `json:"id"`
	RoutineID      uuid.UUID `json:"routine_id"`
	ExerciseID     uuid.UUID `json:"exercise_id"`
	ExerciseName   string    `json:"exercise_name,omitempty"`
	ExerciseType   Modality  `json:"exercise_type,omitempty"`
	Position       int       `json:"position"`
	TargetReps     *string   `json:"target_reps"`
	TargetSets     *string   `json:"target_sets"`
	IncrementValue *float64  `json:"increment_value"`
}

// WorkoutLog is one training session.
type WorkoutLog struct {
	ID         uuid.UUID      `json:"id"`
	UserID     int            `json:"-"`
	RoutineID  *uuid.UUID     `json:"routine_id,omitempty"`
	Name       string         `json:"name"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	IsDeload   bool           `json:"is_deload"`
	Entries    []WorkoutEntry `json:"entries"`
}

// Finished reports whether the session has been closed.
func (l *WorkoutLog) Finished() bool { return l.FinishedAt != nil }

// Entry returns the entry with the given ID, or nil.
func (l *WorkoutLog) Entry(id uuid.UUID) *WorkoutEntry {
	for i := range l.Entries {
		if l.Entries[i].ID == id {
			return &l.Entries[i]
		}
	}
	return nil
}

// WorkoutEntry is the performance of one exercise within a log.
type WorkoutEntry struct {
	ID         uuid.UUID    `json:"id"`
	LogID      uuid.UUID    `json:"log_id"`
	ExerciseID uuid.UUID    `json:"exercise_id"`
	Position   int          `json:"position"`
	Sets       []WorkoutSet `json:"sets"`
}

// Performance is the set data of one exercise in one finished session.
type Performance struct {
	LogID    uuid.UUID    `json:"log_id"`
	Date     time.Time    `json:"date"`
	IsDeload bool         `json:"is_deload"`
	Sets     []WorkoutSet `json:"sets"`
}
