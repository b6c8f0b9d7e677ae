package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/progression"
	"github.com/claude/ironlog/internal/stats"
	"github.com/claude/ironlog/internal/storage/litestore"
	"github.com/claude/ironlog/internal/workout"
	"github.com/google/uuid"
)

const testAPIKey = "test-key"

func newTestServer(t *testing.T) (*Server, *litestore.Store) {
	t.Helper()
	store, err := litestore.Open(filepath.Join(t.TempDir(), "ironlog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, workout.New(store, log), testAPIKey, log), store
}

// do sends a JSON request through the full router and decodes the response into out.
func do(t *testing.T, s *Server, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return rec.Code
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeTailscaleUser verifies the /api/v1/me endpoint returns the
// Tailscale user identity when set in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
	if info.DisplayName != "Alice" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Alice")
	}
}

// TestExerciseEndpoints verifies create, get, update, list and delete over HTTP.
func TestExerciseEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	var ex models.Exercise
	if code := do(t, s, http.MethodPost, "/api/v1/exercises", map[string]string{"name": " Squat "}, &ex); code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if ex.Name != "Squat" || ex.Type != models.ModalityWeight {
		t.Errorf("created = %+v", ex)
	}

	path := "/api/v1/exercises/" + ex.ID.String()
	var updated models.Exercise
	if code := do(t, s, http.MethodPut, path, map[string]string{"name": "Front Squat", "notes": "slow"}, &updated); code != http.StatusOK {
		t.Fatalf("update status = %d", code)
	}
	if updated.Name != "Front Squat" || updated.Notes != "slow" {
		t.Errorf("updated = %+v", updated)
	}

	var list []models.Exercise
	if code := do(t, s, http.MethodGet, "/api/v1/exercises", nil, &list); code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list = %d, %+v", code, list)
	}

	if code := do(t, s, http.MethodDelete, path, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete status = %d", code)
	}
	if code := do(t, s, http.MethodGet, path, nil, nil); code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", code)
	}
}

// TestBadRequests verifies malformed IDs, JSON and payloads return 400.
func TestBadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"bad id", http.MethodGet, "/api/v1/exercises/not-a-uuid", ""},
		{"bad json", http.MethodPost, "/api/v1/exercises", "{"},
		{"missing name", http.MethodPost, "/api/v1/exercises", `{"name":""}`},
		{"bad type", http.MethodPost, "/api/v1/exercises", `{"name":"Row","type":"SWIM"}`},
		{"empty start", http.MethodPost, "/api/v1/workouts", `{}`},
		{"bad range", http.MethodGet, "/api/v1/workouts?start=yesterday", ""},
		{"target sets above max", http.MethodPost, "/api/v1/routines",
			`{"name":"Push","exercises":[{"exercise_id":"` + uuid.NewString() + `","target_reps":"8-12","target_sets":"200000000"}]}`},
		{"target sets overflow", http.MethodPost, "/api/v1/routines",
			`{"name":"Push","exercises":[{"exercise_id":"` + uuid.NewString() + `","target_sets":"9223372036854775807"}]}`},
		{"target sets text", http.MethodPost, "/api/v1/routines",
			`{"name":"Push","exercises":[{"exercise_id":"` + uuid.NewString() + `","target_sets":"three"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

// TestWorkoutOverloadFlow verifies start, finish, a second session and the
// overload preview and apply endpoints end to end.
func TestWorkoutOverloadFlow(t *testing.T) {
	s, _ := newTestServer(t)

	var bench models.Exercise
	do(t, s, http.MethodPost, "/api/v1/exercises", map[string]string{"name": "Bench Press"}, &bench)

	var routine models.Routine
	code := do(t, s, http.MethodPost, "/api/v1/routines", map[string]any{
		"name": "Push",
		"exercises": []map[string]any{
			{"exercise_id": bench.ID, "target_reps": "8-12", "target_sets": "3", "increment_value": 5},
		},
	}, &routine)
	if code != http.StatusCreated || len(routine.Exercises) != 1 {
		t.Fatalf("create routine = %d, %+v", code, routine)
	}

	var first models.WorkoutLog
	if code := do(t, s, http.MethodPost, "/api/v1/workouts", map[string]any{"routine_id": routine.ID}, &first); code != http.StatusCreated {
		t.Fatalf("start status = %d", code)
	}
	if len(first.Entries) != 1 || len(first.Entries[0].Sets) != 3 {
		t.Fatalf("first = %+v", first)
	}

	done := []models.WorkoutSet{
		{Weight: models.NumOf(60), Reps: models.NumOf(12), Completed: true},
		{Weight: models.NumOf(60), Reps: models.NumOf(12), Completed: true},
		{Weight: models.NumOf(60), Reps: models.NumOf(12), Completed: true},
	}
	setsPath := "/api/v1/workouts/" + first.ID.String() + "/entries/" + first.Entries[0].ID.String() + "/sets"
	if code := do(t, s, http.MethodPut, setsPath, done, nil); code != http.StatusOK {
		t.Fatalf("update sets status = %d", code)
	}
	if code := do(t, s, http.MethodPost, "/api/v1/workouts/"+first.ID.String()+"/finish", nil, nil); code != http.StatusOK {
		t.Fatalf("finish status = %d", code)
	}

	var second models.WorkoutLog
	do(t, s, http.MethodPost, "/api/v1/workouts", map[string]any{"routine_id": routine.ID}, &second)

	var preview []workout.EntryResult
	if code := do(t, s, http.MethodPost, "/api/v1/workouts/"+second.ID.String()+"/overload?persist=false", nil, &preview); code != http.StatusOK {
		t.Fatalf("preview status = %d", code)
	}
	if len(preview) != 1 || preview[0].Persisted {
		t.Fatalf("preview = %+v", preview)
	}
	if d := preview[0].Result.Diff; d == nil || d.Type != progression.Promotion || d.NewWeight != 65 {
		t.Errorf("preview diff = %+v", d)
	}

	var applied []workout.EntryResult
	entryPath := "/api/v1/workouts/" + second.ID.String() + "/entries/" + second.Entries[0].ID.String() + "/overload"
	if code := do(t, s, http.MethodPost, entryPath, nil, &applied); code != http.StatusOK {
		t.Fatalf("apply status = %d", code)
	}
	if len(applied) != 1 || !applied[0].Persisted {
		t.Fatalf("applied = %+v", applied)
	}

	var stored models.WorkoutLog
	do(t, s, http.MethodGet, "/api/v1/workouts/"+second.ID.String(), nil, &stored)
	if w := stored.Entries[0].Sets[0].Weight.Float(); w != 65 {
		t.Errorf("stored weight = %v, want 65", w)
	}

	var summary stats.Summary
	if code := do(t, s, http.MethodGet, "/api/v1/exercises/"+bench.ID.String()+"/stats", nil, &summary); code != http.StatusOK {
		t.Fatalf("stats status = %d", code)
	}
	if summary.Sessions != 1 || summary.MaxWeight != 60 || summary.MaxReps != 12 {
		t.Errorf("summary = %+v", summary)
	}

	var logs []models.WorkoutLog
	if code := do(t, s, http.MethodGet, "/api/v1/workouts", nil, &logs); code != http.StatusOK || len(logs) != 2 {
		t.Errorf("list = %d, %d logs", code, len(logs))
	}
}

// TestUpdateSetsWrongWorkout verifies an entry cannot be edited through another workout.
func TestUpdateSetsWrongWorkout(t *testing.T) {
	s, _ := newTestServer(t)

	var ex models.Exercise
	do(t, s, http.MethodPost, "/api/v1/exercises", map[string]string{"name": "Row"}, &ex)
	var a, b models.WorkoutLog
	do(t, s, http.MethodPost, "/api/v1/workouts", map[string]any{"exercises": []string{ex.ID.String()}}, &a)
	do(t, s, http.MethodPost, "/api/v1/workouts", map[string]any{"name": "Other"}, &b)

	path := "/api/v1/workouts/" + b.ID.String() + "/entries/" + a.Entries[0].ID.String() + "/sets"
	if code := do(t, s, http.MethodPut, path, []models.WorkoutSet{}, nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

// TestUpdateSetsRejectsNaN verifies a non-finite set value is a client error.
func TestUpdateSetsRejectsNaN(t *testing.T) {
	s, _ := newTestServer(t)

	var ex models.Exercise
	do(t, s, http.MethodPost, "/api/v1/exercises", map[string]string{"name": "Row"}, &ex)
	var log models.WorkoutLog
	do(t, s, http.MethodPost, "/api/v1/workouts", map[string]any{"exercises": []string{ex.ID.String()}}, &log)

	path := "/api/v1/workouts/" + log.ID.String() + "/entries/" + log.Entries[0].ID.String() + "/sets"
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewBufferString(`[{"weight":"NaN","reps":12}]`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestRoutineMaxTargetSets verifies the largest accepted set count seeds a session.
func TestRoutineMaxTargetSets(t *testing.T) {
	s, _ := newTestServer(t)

	var ex models.Exercise
	do(t, s, http.MethodPost, "/api/v1/exercises", map[string]string{"name": "Curl"}, &ex)
	var routine models.Routine
	code := do(t, s, http.MethodPost, "/api/v1/routines", map[string]any{
		"name":      "Arms",
		"exercises": []map[string]any{{"exercise_id": ex.ID, "target_sets": strconv.Itoa(progression.MaxTargetSets)}},
	}, &routine)
	if code != http.StatusCreated {
		t.Fatalf("create routine = %d", code)
	}
	var log models.WorkoutLog
	do(t, s, http.MethodPost, "/api/v1/workouts", map[string]any{"routine_id": routine.ID}, &log)
	if len(log.Entries) != 1 || len(log.Entries[0].Sets) != progression.MaxTargetSets {
		t.Errorf("entries = %+v", log.Entries)
	}
}

// TestFinishTwice verifies a finished workout cannot be finished again.
func TestFinishTwice(t *testing.T) {
	s, _ := newTestServer(t)
	var log models.WorkoutLog
	do(t, s, http.MethodPost, "/api/v1/workouts", map[string]any{"name": "Quick"}, &log)

	path := "/api/v1/workouts/" + log.ID.String() + "/finish"
	if code := do(t, s, http.MethodPost, path, nil, nil); code != http.StatusOK {
		t.Fatalf("first finish = %d", code)
	}
	if code := do(t, s, http.MethodPost, path, nil, nil); code != http.StatusNotFound {
		t.Errorf("second finish = %d, want 404", code)
	}
}

// TestBackupRequiresAPIKey verifies the export is guarded and contains user data.
func TestBackupRequiresAPIKey(t *testing.T) {
	s, store := newTestServer(t)
	if err := store.CreateExercise(context.Background(), &models.Exercise{UserID: 1, Name: "Deadlift"}); err != nil {
		t.Fatal(err)
	}
	at := time.Now().UTC().Add(-time.Hour)
	if err := store.CreateWorkout(context.Background(), &models.WorkoutLog{UserID: 1, Name: "Old", StartedAt: at}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/backup", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/backup", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var b Backup
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatal(err)
	}
	if b.Version != backupVersion || len(b.Exercises) != 1 || len(b.Workouts) != 1 {
		t.Errorf("backup = %+v", b)
	}
	if b.User.Login != "local" {
		t.Errorf("user = %+v", b.User)
	}
}

// TestMCPDisabled verifies /mcp answers 404 until an MCP server is attached.
func TestMCPDisabled(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestFrontendFallback verifies unknown paths serve index.html from the frontend.
func TestFrontendFallback(t *testing.T) {
	s, _ := newTestServer(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>ironlog</html>"), 0644); err != nil {
		t.Fatal(err)
	}
	s.SetFrontend(os.DirFS(dir))

	req := httptest.NewRequest(http.MethodGet, "/workouts/today", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("ironlog")) {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
}
