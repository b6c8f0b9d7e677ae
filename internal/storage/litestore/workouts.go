package litestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/storage"
	"github.com/google/uuid"
)

// CreateWorkout inserts a workout log and its entries.
func (s *Store) CreateWorkout(ctx context.Context, log *models.WorkoutLog) error {
	storage.PrepareLog(log)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var finished any
	if log.FinishedAt != nil {
		finished = formatTime(*log.FinishedAt)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO workout_logs (id, user_id, routine_id, name, started_at, finished_at, is_deload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.ID.String(), log.UserID, nullUUID(log.RoutineID), log.Name, formatTime(log.StartedAt), finished, log.IsDeload); err != nil {
		return fmt.Errorf("inserting workout log: %w", err)
	}

	for _, e := range log.Entries {
		sets, err := json.Marshal(e.Sets)
		if err != nil {
			return fmt.Errorf("encoding sets: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workout_entries (id, log_id, exercise_id, position, sets) VALUES (?, ?, ?, ?, ?)`,
			e.ID.String(), e.LogID.String(), e.ExerciseID.String(), e.Position, string(sets)); err != nil {
			return fmt.Errorf("inserting workout entry: %w", err)
		}
	}

	return tx.Commit()
}

const logColumns = `l.id, l.user_id, l.routine_id, l.name, l.started_at, l.finished_at, l.is_deload,
	e.id, e.exercise_id, e.position, e.sets`

// GetWorkout retrieves a single workout log with all entries.
func (s *Store) GetWorkout(ctx context.Context, id uuid.UUID, userID int) (*models.WorkoutLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+`
		 FROM workout_logs l
		 LEFT JOIN workout_entries e ON e.log_id = l.id
		 WHERE l.id = ? AND l.user_id = ?
		 ORDER BY e.position ASC`,
		id.String(), userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}
	defer rows.Close()

	logs, err := scanLogs(rows)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, fmt.Errorf("workout %s: %w", id, storage.ErrNotFound)
	}
	return &logs[0], nil
}

// ListWorkouts retrieves workout logs started in [start, end), newest first.
func (s *Store) ListWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+`
		 FROM workout_logs l
		 LEFT JOIN workout_entries e ON e.log_id = l.id
		 WHERE l.started_at >= ? AND l.started_at < ? AND l.user_id = ?
		 ORDER BY l.started_at DESC, l.id, e.position ASC`,
		formatTime(start), formatTime(end), userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	return scanLogs(rows)
}

// FinishWorkout stamps finished_at on an open workout.
func (s *Store) FinishWorkout(ctx context.Context, id uuid.UUID, at time.Time, userID int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE workout_logs SET finished_at = ? WHERE id = ? AND user_id = ? AND finished_at IS NULL`,
		formatTime(at), id.String(), userID)
	if err != nil {
		return fmt.Errorf("finishing workout: %w", err)
	}
	return affected(res, "open workout "+id.String())
}

// DeleteWorkout removes a workout log and its entries.
func (s *Store) DeleteWorkout(ctx context.Context, id uuid.UUID, userID int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workout_logs WHERE id = ? AND user_id = ?`, id.String(), userID)
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	return affected(res, "workout "+id.String())
}

// UpdateEntrySets replaces the sets of one entry.
func (s *Store) UpdateEntrySets(ctx context.Context, entryID uuid.UUID, sets []models.WorkoutSet, userID int) error {
	if sets == nil {
		sets = []models.WorkoutSet{}
	}
	data, err := json.Marshal(sets)
	if err != nil {
		return fmt.Errorf("encoding sets: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE workout_entries SET sets = ?
		 WHERE id = ? AND log_id IN (SELECT id FROM workout_logs WHERE user_id = ?)`,
		string(data), entryID.String(), userID)
	if err != nil {
		return fmt.Errorf("updating entry sets: %w", err)
	}
	return affected(res, "entry "+entryID.String())
}

// LastPerformance returns the sets of an exercise from the most recent
// finished, non-deload workout other than excludeLogID. A non-nil routineID
// restricts the search to that routine's logs. Returns nil without history.
func (s *Store) LastPerformance(ctx context.Context, exerciseID uuid.UUID, routineID *uuid.UUID, excludeLogID uuid.UUID, userID int) ([]models.WorkoutSet, error) {
	routine := nullUUID(routineID)
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT e.sets
		 FROM workout_entries e
		 JOIN workout_logs l ON l.id = e.log_id
		 WHERE l.user_id = ? AND e.exercise_id = ? AND l.id <> ?
		   AND l.finished_at IS NOT NULL AND l.is_deload = 0
		   AND (? IS NULL OR l.routine_id = ?)
		 ORDER BY l.finished_at DESC, e.position ASC
		 LIMIT 1`,
		userID, exerciseID.String(), excludeLogID.String(), routine, routine).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last performance: %w", err)
	}
	var sets []models.WorkoutSet
	if err := json.Unmarshal([]byte(data), &sets); err != nil {
		return nil, fmt.Errorf("decoding sets: %w", err)
	}
	return sets, nil
}

// ExerciseHistory returns up to limit finished performances of an exercise,
// newest first.
func (s *Store) ExerciseHistory(ctx context.Context, exerciseID uuid.UUID, limit int, userID int) ([]models.Performance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.id, l.finished_at, l.is_deload, e.sets
		 FROM workout_entries e
		 JOIN workout_logs l ON l.id = e.log_id
		 WHERE l.user_id = ? AND e.exercise_id = ? AND l.finished_at IS NOT NULL
		 ORDER BY l.finished_at DESC, e.position ASC
		 LIMIT ?`,
		userID, exerciseID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()

	result := []models.Performance{}
	for rows.Next() {
		var p models.Performance
		var finished, data string
		if err := rows.Scan(&p.LogID, &finished, &p.IsDeload, &data); err != nil {
			return nil, fmt.Errorf("scanning performance: %w", err)
		}
		if p.Date, err = parseTime(finished); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &p.Sets); err != nil {
			return nil, fmt.Errorf("decoding sets: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanLogs(rows *sql.Rows) ([]models.WorkoutLog, error) {
	result := []models.WorkoutLog{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var l models.WorkoutLog
		var routine, entryID, exerciseID uuid.NullUUID
		var started string
		var finished, sets sql.NullString
		var position sql.NullInt64
		if err := rows.Scan(&l.ID, &l.UserID, &routine, &l.Name, &started, &finished, &l.IsDeload,
			&entryID, &exerciseID, &position, &sets); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		i, ok := index[l.ID]
		if !ok {
			var err error
			if l.StartedAt, err = parseTime(started); err != nil {
				return nil, err
			}
			if finished.Valid {
				t, err := parseTime(finished.String)
				if err != nil {
					return nil, err
				}
				l.FinishedAt = &t
			}
			if routine.Valid {
				l.RoutineID = &routine.UUID
			}
			l.Entries = []models.WorkoutEntry{}
			result = append(result, l)
			i = len(result) - 1
			index[l.ID] = i
		}
		if !entryID.Valid {
			continue
		}
		e := models.WorkoutEntry{ID: entryID.UUID, LogID: l.ID, ExerciseID: exerciseID.UUID, Position: int(position.Int64)}
		if err := json.Unmarshal([]byte(sets.String), &e.Sets); err != nil {
			return nil, fmt.Errorf("decoding sets: %w", err)
		}
		if e.Sets == nil {
			e.Sets = []models.WorkoutSet{}
		}
		result[i].Entries = append(result[i].Entries, e)
	}
	return result, rows.Err()
}
