// Package stats aggregates an exercise's finished sessions into personal
// bests and session-over-session changes.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/claude/ironlog/internal/models"
)

// SessionStats holds one session's working-set aggregates.
type SessionStats struct {
	Date         string  `json:"date"`
	IsDeload     bool    `json:"is_deload"`
	Sets         int     `json:"sets"`
	TotalReps    int     `json:"total_reps"`
	MaxWeight    float64 `json:"max_weight"`
	VolumeKg     float64 `json:"volume_kg"`
	Estimated1RM float64 `json:"estimated_1rm"`
	Duration     float64 `json:"duration,omitempty"`
	Distance     float64 `json:"distance,omitempty"`
}

// Summary is the all-time view of one exercise.
type Summary struct {
	Sessions         int            `json:"sessions"`
	MaxWeight        float64        `json:"max_weight"`
	MaxReps          int            `json:"max_reps"`
	BestVolumeKg     float64        `json:"best_volume_kg"`
	BestEstimated1RM float64        `json:"best_estimated_1rm"`
	LongestDistance  float64        `json:"longest_distance,omitempty"`
	LastDate         *time.Time     `json:"last_date,omitempty"`
	WeightDiff       *float64       `json:"weight_diff,omitempty"`
	VolumeDiff       *float64       `json:"volume_diff,omitempty"`
	History          []SessionStats `json:"history"`
}

// Session aggregates the working (NORMAL) sets of one performance. Warmup,
// failure, dropset and pain sets are skipped; sets without reps or weight
// contribute nothing to volume.
func Session(p models.Performance) SessionStats {
	s := SessionStats{Date: p.Date.Format("2006-01-02"), IsDeload: p.IsDeload}
	for _, set := range p.Sets {
		if set.Type.Normalize() != models.SetNormal {
			continue
		}
		s.Sets++
		w := set.Weight.Float()
		r := set.Reps.Float()
		s.TotalReps += int(r)
		s.VolumeKg += w * r
		s.MaxWeight = math.Max(s.MaxWeight, w)
		s.Estimated1RM = math.Max(s.Estimated1RM, Epley(w, int(r)))
		s.Duration += set.Duration.Float()
		s.Distance += set.Distance.Float()
	}
	return s
}

// Epley estimates a one-rep max. A single rep is the weight itself.
func Epley(weight float64, reps int) float64 {
	if weight <= 0 || reps <= 0 {
		return 0
	}
	if reps == 1 {
		return weight
	}
	return math.Round(weight*(1+float64(reps)/30)*10) / 10
}

// Summarize builds a Summary from performances in any order. Diffs compare
// the latest session with the one before it.
func Summarize(perfs []models.Performance) Summary {
	sorted := make([]models.Performance, len(perfs))
	copy(sorted, perfs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	sum := Summary{Sessions: len(sorted), History: make([]SessionStats, 0, len(sorted))}
	for _, p := range sorted {
		ss := Session(p)
		sum.History = append(sum.History, ss)
		sum.MaxWeight = math.Max(sum.MaxWeight, ss.MaxWeight)
		sum.BestVolumeKg = math.Max(sum.BestVolumeKg, ss.VolumeKg)
		sum.BestEstimated1RM = math.Max(sum.BestEstimated1RM, ss.Estimated1RM)
		sum.LongestDistance = math.Max(sum.LongestDistance, ss.Distance)
		for _, set := range p.Sets {
			if set.Type.Normalize() != models.SetNormal {
				continue
			}
			if r := int(set.Reps.Float()); r > sum.MaxReps {
				sum.MaxReps = r
			}
		}
	}

	if n := len(sorted); n > 0 {
		last := sorted[n-1].Date
		sum.LastDate = &last
		if n > 1 {
			cur, prev := sum.History[n-1], sum.History[n-2]
			wd := cur.MaxWeight - prev.MaxWeight
			vd := cur.VolumeKg - prev.VolumeKg
			sum.WeightDiff = &wd
			sum.VolumeDiff = &vd
		}
	}
	return sum
}
