package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/google/uuid"
)

// CreateExercise inserts an exercise, assigning ID and timestamp when unset.
func (db *DB) CreateExercise(ctx context.Context, ex *models.Exercise) error {
	if ex.ID == uuid.Nil {
		ex.ID = uuid.New()
	}
	if ex.Type == "" {
		ex.Type = models.ModalityWeight
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO exercises (id, user_id, name, type, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ex.ID, ex.UserID, ex.Name, string(ex.Type), ex.Notes, ex.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", err)
	}
	return nil
}

// UpdateExercise updates name, type and notes of an exercise.
func (db *DB) UpdateExercise(ctx context.Context, ex *models.Exercise) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE exercises SET name = $1, type = $2, notes = $3 WHERE id = $4 AND user_id = $5`,
		ex.Name, string(ex.Type), ex.Notes, ex.ID, ex.UserID)
	if err != nil {
		return fmt.Errorf("updating exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exercise %s: %w", ex.ID, ErrNotFound)
	}
	return nil
}

// DeleteExercise removes an exercise along with its assignments and entries.
func (db *DB) DeleteExercise(ctx context.Context, id uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM exercises WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exercise %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetExercise retrieves a single exercise.
func (db *DB) GetExercise(ctx context.Context, id uuid.UUID, userID int) (*models.Exercise, error) {
	var ex models.Exercise
	var typ string
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, type, notes, created_at FROM exercises WHERE id = $1 AND user_id = $2`,
		id, userID).Scan(&ex.ID, &ex.UserID, &ex.Name, &typ, &ex.Notes, &ex.CreatedAt)
	if err != nil {
		return nil, notFound(err, "exercise")
	}
	ex.Type = models.Modality(typ)
	return &ex, nil
}

// ListExercises returns a user's exercises ordered by name.
func (db *DB) ListExercises(ctx context.Context, userID int) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, type, notes, created_at FROM exercises
		 WHERE user_id = $1 ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	result := []models.Exercise{}
	for rows.Next() {
		var ex models.Exercise
		var typ string
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.Name, &typ, &ex.Notes, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		ex.Type = models.Modality(typ)
		result = append(result, ex)
	}
	return result, rows.Err()
}
