package litestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/google/uuid"
)

// CreateRoutineGroup inserts a routine group.
func (s *Store) CreateRoutineGroup(ctx context.Context, g *models.RoutineGroup) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO routine_groups (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		g.ID.String(), g.UserID, g.Name, formatTime(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting routine group: %w", err)
	}
	return nil
}

// ListRoutineGroups returns a user's routine groups ordered by name.
func (s *Store) ListRoutineGroups(ctx context.Context, userID int) ([]models.RoutineGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM routine_groups WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying routine groups: %w", err)
	}
	defer rows.Close()

	result := []models.RoutineGroup{}
	for rows.Next() {
		var g models.RoutineGroup
		var created string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &created); err != nil {
			return nil, fmt.Errorf("scanning routine group: %w", err)
		}
		if g.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// CreateRoutine inserts a routine and its exercise assignments in one
// transaction. Assignment positions follow slice order.
func (s *Store) CreateRoutine(ctx context.Context, r *models.Routine) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO routines (id, user_id, group_id, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID.String(), r.UserID, nullUUID(r.GroupID), r.Name, formatTime(r.CreatedAt)); err != nil {
		return fmt.Errorf("inserting routine: %w", err)
	}

	for i := range r.Exercises {
		re := &r.Exercises[i]
		if re.ID == uuid.Nil {
			re.ID = uuid.New()
		}
		re.RoutineID = r.ID
		re.Position = i
		res, err := tx.ExecContext(ctx,
			`INSERT INTO routine_exercises (id, routine_id, exercise_id, position, target_reps, target_sets, increment_value)
			 SELECT ?, ?, e.id, ?, ?, ?, ? FROM exercises e WHERE e.id = ? AND e.user_id = ?`,
			re.ID.String(), r.ID.String(), re.Position, re.TargetReps, re.TargetSets, re.IncrementValue,
			re.ExerciseID.String(), r.UserID)
		if err != nil {
			return fmt.Errorf("inserting routine exercise %d: %w", i, err)
		}
		if err := affected(res, "exercise "+re.ExerciseID.String()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRoutine retrieves a routine with its assignments.
func (s *Store) GetRoutine(ctx context.Context, id uuid.UUID, userID int) (*models.Routine, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, group_id, name, created_at FROM routines WHERE id = ? AND user_id = ?`,
		id.String(), userID)
	r, err := scanRoutine(row)
	if err != nil {
		return nil, notFound(err, "routine")
	}
	exs, err := s.routineExercises(ctx, `re.routine_id = ?`, r.ID.String())
	if err != nil {
		return nil, err
	}
	r.Exercises = orEmpty(exs[r.ID])
	return r, nil
}

// ListRoutines returns a user's routines with assignments.
func (s *Store) ListRoutines(ctx context.Context, userID int) ([]models.Routine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, group_id, name, created_at FROM routines WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	defer rows.Close()

	result := []models.Routine{}
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		result = append(result, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	exs, err := s.routineExercises(ctx, `r.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Exercises = orEmpty(exs[result[i].ID])
	}
	return result, nil
}

// DeleteRoutine removes a routine. Logs that referenced it keep their data.
func (s *Store) DeleteRoutine(ctx context.Context, id uuid.UUID, userID int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM routines WHERE id = ? AND user_id = ?`, id.String(), userID)
	if err != nil {
		return fmt.Errorf("deleting routine: %w", err)
	}
	return affected(res, "routine "+id.String())
}

func (s *Store) routineExercises(ctx context.Context, where string, arg any) (map[uuid.UUID][]models.RoutineExercise, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT re.id, re.routine_id, re.exercise_id, e.name, e.type, re.position,
		        re.target_reps, re.target_sets, re.increment_value
		 FROM routine_exercises re
		 JOIN routines r ON r.id = re.routine_id
		 JOIN exercises e ON e.id = re.exercise_id
		 WHERE `+where+`
		 ORDER BY re.routine_id, re.position`, arg)
	if err != nil {
		return nil, fmt.Errorf("querying routine exercises: %w", err)
	}
	defer rows.Close()

	result := map[uuid.UUID][]models.RoutineExercise{}
	for rows.Next() {
		var re models.RoutineExercise
		var typ string
		var targetReps, targetSets sql.NullString
		var inc sql.NullFloat64
		if err := rows.Scan(&re.ID, &re.RoutineID, &re.ExerciseID, &re.ExerciseName, &typ, &re.Position,
			&targetReps, &targetSets, &inc); err != nil {
			return nil, fmt.Errorf("scanning routine exercise: %w", err)
		}
		re.ExerciseType = models.Modality(typ)
		if targetReps.Valid {
			re.TargetReps = &targetReps.String
		}
		if targetSets.Valid {
			re.TargetSets = &targetSets.String
		}
		if inc.Valid {
			re.IncrementValue = &inc.Float64
		}
		result[re.RoutineID] = append(result[re.RoutineID], re)
	}
	return result, rows.Err()
}

func scanRoutine(row interface{ Scan(dest ...any) error }) (*models.Routine, error) {
	var r models.Routine
	var group uuid.NullUUID
	var created string
	if err := row.Scan(&r.ID, &r.UserID, &group, &r.Name, &created); err != nil {
		return nil, err
	}
	if group.Valid {
		r.GroupID = &group.UUID
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = t
	return &r, nil
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func orEmpty(exs []models.RoutineExercise) []models.RoutineExercise {
	if exs == nil {
		return []models.RoutineExercise{}
	}
	return exs
}
