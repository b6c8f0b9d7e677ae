package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/claude/ironlog/internal/models"
)

// backupVersion is bumped whenever the export layout changes.
const backupVersion = 1

// Backup is a full export of one user's data.
type Backup struct {
	Version       int                   `json:"version"`
	ExportedAt    time.Time             `json:"exported_at"`
	User          UserInfo              `json:"user"`
	Exercises     []models.Exercise     `json:"exercises"`
	RoutineGroups []models.RoutineGroup `json:"routine_groups"`
	Routines      []models.Routine      `json:"routines"`
	Workouts      []models.WorkoutLog   `json:"workouts"`
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userIDFromContext(r)
	b := Backup{
		Version:    backupVersion,
		ExportedAt: time.Now().UTC(),
		User:       userInfoFromContext(r),
	}

	var err error
	if b.Exercises, err = s.store.ListExercises(ctx, uid); err != nil {
		s.writeError(w, fmt.Errorf("exporting exercises: %w", err))
		return
	}
	if b.RoutineGroups, err = s.store.ListRoutineGroups(ctx, uid); err != nil {
		s.writeError(w, fmt.Errorf("exporting routine groups: %w", err))
		return
	}
	if b.Routines, err = s.store.ListRoutines(ctx, uid); err != nil {
		s.writeError(w, fmt.Errorf("exporting routines: %w", err))
		return
	}
	if b.Workouts, err = s.store.ListWorkouts(ctx, time.Time{}, b.ExportedAt.Add(time.Minute), uid); err != nil {
		s.writeError(w, fmt.Errorf("exporting workouts: %w", err))
		return
	}

	s.log.Info("backup exported", "user_id", uid, "workouts", len(b.Workouts))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ironlog-%s.json"`, b.ExportedAt.Format("2006-01-02")))
	writeJSON(w, http.StatusOK, b)
}
