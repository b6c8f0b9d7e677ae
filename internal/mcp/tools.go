package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultWindow is how far back workout queries reach without a start date.
const defaultWindow = 30

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -defaultWindow)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// resolveExercise matches ref against exercise IDs first, then names
// case-insensitively.
func resolveExercise(exercises []models.Exercise, ref string) *models.Exercise {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		for i := range exercises {
			if exercises[i].ID == id {
				return &exercises[i]
			}
		}
		return nil
	}
	for i := range exercises {
		if strings.EqualFold(exercises[i].Name, ref) {
			return &exercises[i]
		}
	}
	return nil
}

// --- Tool definitions ---

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List all exercises with their IDs and modality (WEIGHT or CARDIO)."),
)

var toolGetExerciseStats = mcp.NewTool("get_exercise_stats",
	mcp.WithDescription("Per-exercise progress: session count, best weight, reps, volume and estimated 1RM, the change since the previous session, and per-session history. Warmup sets are excluded."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise ID or exact name (case-insensitive, e.g. 'bench press')")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of recent sessions to include. Defaults to 20.")),
)

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("Workout logs in a time range with every entry and set (weight, reps, duration, distance, set type)."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolPreviewOverload = mcp.NewTool("preview_overload",
	mcp.WithDescription("Preview the progressive overload for an open workout without saving it. For each entry returns the proposed sets and either a PROMOTION (weight increased), a RESET (targets missed, reps reset) or the reason nothing changed."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Workout log ID")),
)

// --- Tool handlers ---

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(exercises)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	limit := int(req.GetFloat("limit", 20))
	if limit <= 0 {
		limit = 20
	}

	uid := UserIDFromContext(ctx)
	exercises, err := h.ds.ListExercises(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_exercise_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	ex := resolveExercise(exercises, ref)
	if ex == nil {
		return mcp.NewToolResultError("exercise not found: " + ref), nil
	}

	summary, err := h.ds.ExerciseStats(ctx, ex.ID, limit, uid)
	if err != nil {
		h.log.Error("mcp get_exercise_stats", "exercise", ex.Name, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"exercise": ex,
		"stats":    summary,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.ds.ListWorkouts(ctx, start, end, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) previewOverload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid workout_id: " + err.Error()), nil
	}

	results, err := h.ds.PreviewOverload(ctx, id, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp preview_overload", "workout_id", id, "error", err)
		return mcp.NewToolResultError("preview failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(results)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
