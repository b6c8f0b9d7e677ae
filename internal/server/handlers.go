package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/progression"
	"github.com/claude/ironlog/internal/stats"
	"github.com/claude/ironlog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

// --- Exercises ---

type exerciseRequest struct {
	Name  string          `json:"name"`
	Type  models.Modality `json:"type"`
	Notes string          `json:"notes"`
}

func (req exerciseRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}
	switch req.Type {
	case "", models.ModalityWeight, models.ModalityCardio:
		return nil
	}
	return errors.New("type must be WEIGHT or CARDIO")
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.store.ListExercises(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ex := &models.Exercise{
		UserID: userIDFromContext(r),
		Name:   strings.TrimSpace(req.Name),
		Type:   req.Type,
		Notes:  req.Notes,
	}
	if err := s.store.CreateExercise(r.Context(), ex); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ex)
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	ex, err := s.store.GetExercise(r.Context(), id, userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req exerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = models.ModalityWeight
	}

	ex := &models.Exercise{
		ID:     id,
		UserID: userIDFromContext(r),
		Name:   strings.TrimSpace(req.Name),
		Type:   req.Type,
		Notes:  req.Notes,
	}
	if err := s.store.UpdateExercise(r.Context(), ex); err != nil {
		s.writeError(w, err)
		return
	}
	updated, err := s.store.GetExercise(r.Context(), id, ex.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteExercise(r.Context(), id, userIDFromContext(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExerciseStats(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	uid := userIDFromContext(r)
	if _, err := s.store.GetExercise(r.Context(), id, uid); err != nil {
		s.writeError(w, err)
		return
	}
	history, err := s.store.ExerciseHistory(r.Context(), id, limit, uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Summarize(history))
}

// --- Routines ---

func (s *Server) handleListRoutineGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListRoutineGroups(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleCreateRoutineGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	g := &models.RoutineGroup{UserID: userIDFromContext(r), Name: strings.TrimSpace(req.Name)}
	if err := s.store.CreateRoutineGroup(r.Context(), g); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

type routineRequest struct {
	Name      string     `json:"name"`
	GroupID   *uuid.UUID `json:"group_id"`
	Exercises []struct {
		ExerciseID     uuid.UUID `json:"exercise_id"`
		TargetReps     *string   `json:"target_reps"`
		TargetSets     *string   `json:"target_sets"`
		IncrementValue *float64  `json:"increment_value"`
	} `json:"exercises"`
}

// validTargetSets accepts a missing or blank value, or an integer in
// [0, MaxTargetSets].
func validTargetSets(v *string) bool {
	if v == nil || strings.TrimSpace(*v) == "" {
		return true
	}
	n, err := strconv.Atoi(strings.TrimSpace(*v))
	return err == nil && n >= 0 && n <= progression.MaxTargetSets
}

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	routines, err := s.store.ListRoutines(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routines)
}

func (s *Server) handleCreateRoutine(w http.ResponseWriter, r *http.Request) {
	var req routineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	for _, e := range req.Exercises {
		if !validTargetSets(e.TargetSets) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "target_sets must be an integer between 0 and " + strconv.Itoa(progression.MaxTargetSets),
			})
			return
		}
	}

	uid := userIDFromContext(r)
	routine := &models.Routine{
		UserID:    uid,
		GroupID:   req.GroupID,
		Name:      strings.TrimSpace(req.Name),
		Exercises: make([]models.RoutineExercise, 0, len(req.Exercises)),
	}
	for _, e := range req.Exercises {
		routine.Exercises = append(routine.Exercises, models.RoutineExercise{
			ExerciseID:     e.ExerciseID,
			TargetReps:     e.TargetReps,
			TargetSets:     e.TargetSets,
			IncrementValue: e.IncrementValue,
		})
	}
	if err := s.store.CreateRoutine(r.Context(), routine); err != nil {
		s.writeError(w, err)
		return
	}

	created, err := s.store.GetRoutine(r.Context(), routine.ID, uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	routine, err := s.store.GetRoutine(r.Context(), id, userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routine)
}

func (s *Server) handleDeleteRoutine(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteRoutine(r.Context(), id, userIDFromContext(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps storage.ErrNotFound to 404 and anything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.log.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}

	if startStr == "" {
		// Default: last 30 days
		start = end.AddDate(0, 0, -30)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return
}
