package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateWorkout inserts a workout log and its entries. IDs, positions and
// the start time are assigned when unset.
func (db *DB) CreateWorkout(ctx context.Context, log *models.WorkoutLog) error {
	PrepareLog(log)

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO workout_logs (id, user_id, routine_id, name, started_at, finished_at, is_deload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.ID, log.UserID, log.RoutineID, log.Name, log.StartedAt, log.FinishedAt, log.IsDeload); err != nil {
		return fmt.Errorf("inserting workout log: %w", err)
	}

	for _, e := range log.Entries {
		sets, err := json.Marshal(e.Sets)
		if err != nil {
			return fmt.Errorf("encoding sets: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO workout_entries (id, log_id, exercise_id, position, sets) VALUES ($1, $2, $3, $4, $5)`,
			e.ID, e.LogID, e.ExerciseID, e.Position, sets); err != nil {
			return fmt.Errorf("inserting workout entry: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// PrepareLog fills IDs, back-references, positions and the start time of a
// log about to be inserted.
func PrepareLog(log *models.WorkoutLog) {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.StartedAt.IsZero() {
		log.StartedAt = time.Now().UTC()
	}
	if log.Entries == nil {
		log.Entries = []models.WorkoutEntry{}
	}
	for i := range log.Entries {
		e := &log.Entries[i]
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.Sets == nil {
			e.Sets = []models.WorkoutSet{}
		}
		e.LogID = log.ID
		e.Position = i
	}
}

const logColumns = `l.id, l.user_id, l.routine_id, l.name, l.started_at, l.finished_at, l.is_deload,
	e.id, e.exercise_id, e.position, e.sets`

// GetWorkout retrieves a single workout log with all entries.
func (db *DB) GetWorkout(ctx context.Context, id uuid.UUID, userID int) (*models.WorkoutLog, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+logColumns+`
		 FROM workout_logs l
		 LEFT JOIN workout_entries e ON e.log_id = l.id
		 WHERE l.id = $1 AND l.user_id = $2
		 ORDER BY e.position ASC`,
		id, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}
	defer rows.Close()

	logs, err := scanLogs(rows)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, fmt.Errorf("workout %s: %w", id, ErrNotFound)
	}
	return &logs[0], nil
}

// ListWorkouts retrieves workout logs started in a time range, newest first.
func (db *DB) ListWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLog, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+logColumns+`
		 FROM workout_logs l
		 LEFT JOIN workout_entries e ON e.log_id = l.id
		 WHERE l.started_at >= $1 AND l.started_at < $2 AND l.user_id = $3
		 ORDER BY l.started_at DESC, l.id, e.position ASC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	return scanLogs(rows)
}

// FinishWorkout stamps finished_at on an open workout.
func (db *DB) FinishWorkout(ctx context.Context, id uuid.UUID, at time.Time, userID int) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_logs SET finished_at = $1 WHERE id = $2 AND user_id = $3 AND finished_at IS NULL`,
		at, id, userID)
	if err != nil {
		return fmt.Errorf("finishing workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open workout %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteWorkout removes a workout log and its entries.
func (db *DB) DeleteWorkout(ctx context.Context, id uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_logs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workout %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateEntrySets replaces the sets of one entry.
func (db *DB) UpdateEntrySets(ctx context.Context, entryID uuid.UUID, sets []models.WorkoutSet, userID int) error {
	if sets == nil {
		sets = []models.WorkoutSet{}
	}
	data, err := json.Marshal(sets)
	if err != nil {
		return fmt.Errorf("encoding sets: %w", err)
	}
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_entries e SET sets = $1
		 FROM workout_logs l
		 WHERE e.id = $2 AND l.id = e.log_id AND l.user_id = $3`,
		data, entryID, userID)
	if err != nil {
		return fmt.Errorf("updating entry sets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	return nil
}

// LastPerformance returns the sets of an exercise from the most recent
// finished, non-deload workout, excluding excludeLogID. When routineID is
// set only logs of that routine qualify. Returns nil without history.
func (db *DB) LastPerformance(ctx context.Context, exerciseID uuid.UUID, routineID *uuid.UUID, excludeLogID uuid.UUID, userID int) ([]models.WorkoutSet, error) {
	var data []byte
	err := db.Pool.QueryRow(ctx,
		`SELECT e.sets
		 FROM workout_entries e
		 JOIN workout_logs l ON l.id = e.log_id
		 WHERE l.user_id = $1 AND e.exercise_id = $2 AND l.id <> $3
		   AND l.finished_at IS NOT NULL AND NOT l.is_deload
		   AND ($4::uuid IS NULL OR l.routine_id = $4::uuid)
		 ORDER BY l.finished_at DESC, e.position ASC
		 LIMIT 1`,
		userID, exerciseID, excludeLogID, routineID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last performance: %w", err)
	}
	var sets []models.WorkoutSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("decoding sets: %w", err)
	}
	return sets, nil
}

// ExerciseHistory returns up to limit finished performances of an exercise,
// newest first. Deload sessions are included and flagged.
func (db *DB) ExerciseHistory(ctx context.Context, exerciseID uuid.UUID, limit int, userID int) ([]models.Performance, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT l.id, l.finished_at, l.is_deload, e.sets
		 FROM workout_entries e
		 JOIN workout_logs l ON l.id = e.log_id
		 WHERE l.user_id = $1 AND e.exercise_id = $2 AND l.finished_at IS NOT NULL
		 ORDER BY l.finished_at DESC, e.position ASC
		 LIMIT $3`,
		userID, exerciseID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()

	result := []models.Performance{}
	for rows.Next() {
		var p models.Performance
		var data []byte
		if err := rows.Scan(&p.LogID, &p.Date, &p.IsDeload, &data); err != nil {
			return nil, fmt.Errorf("scanning performance: %w", err)
		}
		if err := json.Unmarshal(data, &p.Sets); err != nil {
			return nil, fmt.Errorf("decoding sets: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// scanLogs folds joined log/entry rows into logs, preserving row order.
func scanLogs(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.WorkoutLog, error) {
	result := []models.WorkoutLog{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var l models.WorkoutLog
		var entryID, exerciseID *uuid.UUID
		var position *int
		var sets []byte
		if err := rows.Scan(&l.ID, &l.UserID, &l.RoutineID, &l.Name, &l.StartedAt, &l.FinishedAt, &l.IsDeload,
			&entryID, &exerciseID, &position, &sets); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		i, ok := index[l.ID]
		if !ok {
			l.Entries = []models.WorkoutEntry{}
			result = append(result, l)
			i = len(result) - 1
			index[l.ID] = i
		}
		if entryID == nil {
			continue
		}
		e := models.WorkoutEntry{ID: *entryID, LogID: l.ID, ExerciseID: *exerciseID, Position: *position}
		if err := json.Unmarshal(sets, &e.Sets); err != nil {
			return nil, fmt.Errorf("decoding sets: %w", err)
		}
		if e.Sets == nil {
			e.Sets = []models.WorkoutSet{}
		}
		result[i].Entries = append(result[i].Entries, e)
	}
	return result, rows.Err()
}
