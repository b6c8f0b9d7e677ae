package litestore

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/google/uuid"
)

// CreateExercise inserts an exercise, assigning ID and timestamp when unset.
func (s *Store) CreateExercise(ctx context.Context, ex *models.Exercise) error {
	if ex.ID == uuid.Nil {
		ex.ID = uuid.New()
	}
	if ex.Type == "" {
		ex.Type = models.ModalityWeight
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exercises (id, user_id, name, type, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ex.ID.String(), ex.UserID, ex.Name, string(ex.Type), ex.Notes, formatTime(ex.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", err)
	}
	return nil
}

// UpdateExercise updates name, type and notes of an exercise.
func (s *Store) UpdateExercise(ctx context.Context, ex *models.Exercise) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE exercises SET name = ?, type = ?, notes = ? WHERE id = ? AND user_id = ?`,
		ex.Name, string(ex.Type), ex.Notes, ex.ID.String(), ex.UserID)
	if err != nil {
		return fmt.Errorf("updating exercise: %w", err)
	}
	return affected(res, "exercise "+ex.ID.String())
}

// DeleteExercise removes an exercise along with its assignments and entries.
func (s *Store) DeleteExercise(ctx context.Context, id uuid.UUID, userID int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exercises WHERE id = ? AND user_id = ?`, id.String(), userID)
	if err != nil {
		return fmt.Errorf("deleting exercise: %w", err)
	}
	return affected(res, "exercise "+id.String())
}

// GetExercise retrieves a single exercise.
func (s *Store) GetExercise(ctx context.Context, id uuid.UUID, userID int) (*models.Exercise, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, notes, created_at FROM exercises WHERE id = ? AND user_id = ?`,
		id.String(), userID)
	ex, err := scanExercise(row)
	if err != nil {
		return nil, notFound(err, "exercise")
	}
	return ex, nil
}

// ListExercises returns a user's exercises ordered by name.
func (s *Store) ListExercises(ctx context.Context, userID int) ([]models.Exercise, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, notes, created_at FROM exercises WHERE user_id = ? ORDER BY name ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	result := []models.Exercise{}
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, *ex)
	}
	return result, rows.Err()
}

func scanExercise(row interface{ Scan(dest ...any) error }) (*models.Exercise, error) {
	var ex models.Exercise
	var typ, created string
	if err := row.Scan(&ex.ID, &ex.UserID, &ex.Name, &typ, &ex.Notes, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	ex.Type = models.Modality(typ)
	ex.CreatedAt = t
	return &ex, nil
}
