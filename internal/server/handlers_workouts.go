package server

import (
	"net/http"
	"strconv"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	logs, err := s.store.ListWorkouts(r.Context(), start, end, userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleStartWorkout(w http.ResponseWriter, r *http.Request) {
	var req workout.StartParams
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RoutineID == nil && len(req.Exercises) == 0 && req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "routine_id, exercises or name is required"})
		return
	}

	log, err := s.workouts.Start(r.Context(), req, userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, log)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	log, err := s.store.GetWorkout(r.Context(), id, userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteWorkout(r.Context(), id, userIDFromContext(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFinishWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	log, err := s.workouts.Finish(r.Context(), id, userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

// handleUpdateSets replaces an entry's sets. The entry must belong to the
// workout in the path.
func (s *Server) handleUpdateSets(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	entryID, ok := uuidParam(w, r, "entryID")
	if !ok {
		return
	}
	var sets []models.WorkoutSet
	if !decodeJSON(w, r, &sets) {
		return
	}

	uid := userIDFromContext(r)
	log, err := s.store.GetWorkout(r.Context(), id, uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	entry := log.Entry(entryID)
	if entry == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entry not found"})
		return
	}
	if sets == nil {
		sets = []models.WorkoutSet{}
	}
	if err := s.store.UpdateEntrySets(r.Context(), entryID, sets, uid); err != nil {
		s.writeError(w, err)
		return
	}
	entry.Sets = sets
	writeJSON(w, http.StatusOK, entry)
}

// handleOverload applies progressive overload to every entry of a workout,
// or to one entry when the path names it. ?persist=false previews.
func (s *Server) handleOverload(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var entryID *uuid.UUID
	if chi.URLParam(r, "entryID") != "" {
		eid, ok := uuidParam(w, r, "entryID")
		if !ok {
			return
		}
		entryID = &eid
	}
	persist := true
	if p := r.URL.Query().Get("persist"); p != "" {
		v, err := strconv.ParseBool(p)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid persist value"})
			return
		}
		persist = v
	}

	results, err := s.workouts.ApplyOverload(r.Context(), id, entryID, persist, userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
