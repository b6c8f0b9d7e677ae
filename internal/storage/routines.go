package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateRoutineGroup inserts a routine group.
func (db *DB) CreateRoutineGroup(ctx context.Context, g *models.RoutineGroup) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO routine_groups (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		g.ID, g.UserID, g.Name, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting routine group: %w", err)
	}
	return nil
}

// ListRoutineGroups returns a user's routine groups ordered by name.
func (db *DB) ListRoutineGroups(ctx context.Context, userID int) ([]models.RoutineGroup, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, created_at FROM routine_groups WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying routine groups: %w", err)
	}
	defer rows.Close()

	result := []models.RoutineGroup{}
	for rows.Next() {
		var g models.RoutineGroup
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning routine group: %w", err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// CreateRoutine inserts a routine and its exercise assignments in one
// transaction. Assignment positions follow slice order.
func (db *DB) CreateRoutine(ctx context.Context, r *models.Routine) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO routines (id, user_id, group_id, name, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.UserID, r.GroupID, r.Name, r.CreatedAt); err != nil {
		return fmt.Errorf("inserting routine: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range r.Exercises {
		re := &r.Exercises[i]
		if re.ID == uuid.Nil {
			re.ID = uuid.New()
		}
		re.RoutineID = r.ID
		re.Position = i
		batch.Queue(
			`INSERT INTO routine_exercises (id, routine_id, exercise_id, position, target_reps, target_sets, increment_value)
			 SELECT $1::uuid, $2::uuid, e.id, $4::int, $5::text, $6::text, $7::float8
			 FROM exercises e WHERE e.id = $3 AND e.user_id = $8`,
			re.ID, re.RoutineID, re.ExerciseID, re.Position, re.TargetReps, re.TargetSets, re.IncrementValue, r.UserID)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range r.Exercises {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return fmt.Errorf("inserting routine exercise %d: %w", i, err)
		}
		if tag.RowsAffected() == 0 {
			br.Close()
			return fmt.Errorf("exercise %s: %w", r.Exercises[i].ExerciseID, ErrNotFound)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	return tx.Commit(ctx)
}

// GetRoutine retrieves a routine with its assignments joined to exercise
// name and modality.
func (db *DB) GetRoutine(ctx context.Context, id uuid.UUID, userID int) (*models.Routine, error) {
	var r models.Routine
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, group_id, name, created_at FROM routines WHERE id = $1 AND user_id = $2`,
		id, userID).Scan(&r.ID, &r.UserID, &r.GroupID, &r.Name, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err, "routine")
	}

	exs, err := db.routineExercises(ctx, `re.routine_id = $1`, r.ID)
	if err != nil {
		return nil, err
	}
	r.Exercises = exs[r.ID]
	if r.Exercises == nil {
		r.Exercises = []models.RoutineExercise{}
	}
	return &r, nil
}

// ListRoutines returns a user's routines with assignments.
func (db *DB) ListRoutines(ctx context.Context, userID int) ([]models.Routine, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, group_id, name, created_at FROM routines WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	defer rows.Close()

	result := []models.Routine{}
	for rows.Next() {
		var r models.Routine
		if err := rows.Scan(&r.ID, &r.UserID, &r.GroupID, &r.Name, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	exs, err := db.routineExercises(ctx, `r.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Exercises = exs[result[i].ID]
		if result[i].Exercises == nil {
			result[i].Exercises = []models.RoutineExercise{}
		}
	}
	return result, nil
}

// DeleteRoutine removes a routine. Logs that referenced it keep their data.
func (db *DB) DeleteRoutine(ctx context.Context, id uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM routines WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting routine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("routine %s: %w", id, ErrNotFound)
	}
	return nil
}

// routineExercises loads assignments matching the filter, keyed by routine.
func (db *DB) routineExercises(ctx context.Context, where string, arg any) (map[uuid.UUID][]models.RoutineExercise, error) {
	rows, err := db.Pool.Query(ctx,
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
		if err := rows.Scan(&re.ID, &re.RoutineID, &re.ExerciseID, &re.ExerciseName, &typ, &re.Position,
			&re.TargetReps, &re.TargetSets, &re.IncrementValue); err != nil {
			return nil, fmt.Errorf("scanning routine exercise: %w", err)
		}
		re.ExerciseType = models.Modality(typ)
		result[re.RoutineID] = append(result[re.RoutineID], re)
	}
	return result, rows.Err()
}
