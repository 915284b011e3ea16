// Package stats computes derived aggregates from training records. All
// functions are pure and deterministic given (records, weightKg, now).
package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/Mehdi-code-93/fitrun/internal/domain"
)

// Kcal estimates the calories burned by one record:
// MET(category) * weightKg * durationMin/60.
func Kcal(r domain.TrainingRecord, weightKg float64) float64 {
	return domain.MET(r.Category) * weightKg * float64(r.DurationMin) / 60
}

// WeekBucket accumulates one Monday-to-Monday span.
type WeekBucket struct {
	Start   time.Time
	End     time.Time
	Minutes int
	Kcal    float64
	Label   string
}

// StartOfWeek returns the most recent Monday 00:00:00 at or before t, in t's
// location.
func StartOfWeek(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
}

// WeeklyBuckets partitions records into the trailing 8 calendar weeks ending
// with the week containing now, oldest first. Buckets cover Monday 00:00:00
// inclusive to the following Monday exclusive; each record lands in at most
// one bucket and records older than 8 weeks are excluded.
func WeeklyBuckets(records []domain.TrainingRecord, weightKg float64, now time.Time) []WeekBucket {
	buckets := make([]WeekBucket, 0, 8)
	for i := 7; i >= 0; i-- {
		start := StartOfWeek(now.AddDate(0, 0, -i*7))
		end := start.AddDate(0, 0, 7)
		buckets = append(buckets, WeekBucket{
			Start: start,
			End:   end,
			Label: fmt.Sprintf("%d/%d", start.Day(), int(start.Month())),
		})
	}

	for _, r := range records {
		for b := range buckets {
			if !r.Date.Before(buckets[b].Start) && r.Date.Before(buckets[b].End) {
				buckets[b].Minutes += r.DurationMin
				buckets[b].Kcal += Kcal(r, weightKg)
				break
			}
		}
	}
	return buckets
}

// WeekSummary aggregates the records of a single week.
type WeekSummary struct {
	Sessions int
	Minutes  int
	Kcal     float64
}

// CurrentWeek sums the records dated at or after the most recent Monday.
func CurrentWeek(records []domain.TrainingRecord, weightKg float64, now time.Time) WeekSummary {
	monday := StartOfWeek(now)
	var summary WeekSummary
	for _, r := range records {
		if r.Date.Before(monday) {
			continue
		}
		summary.Sessions++
		summary.Minutes += r.DurationMin
		summary.Kcal += Kcal(r, weightKg)
	}
	return summary
}

// GoalProgress compares a week's aggregates against the weekly targets.
type GoalProgress struct {
	Sessions        int
	SessionsTarget  int
	SessionsPercent float64
	SessionsReached bool
	Kcal            float64
	KcalTarget      float64
	KcalPercent     float64
	KcalReached     bool
}

// Progress derives goal completion for the given week. Targets of zero yield
// zero percent and are never reached.
func Progress(goals domain.Goals, week WeekSummary) GoalProgress {
	p := GoalProgress{
		Sessions:       week.Sessions,
		SessionsTarget: goals.WeeklySessions,
		Kcal:           week.Kcal,
		KcalTarget:     goals.WeeklyCalories,
	}
	if goals.WeeklySessions > 0 {
		p.SessionsPercent = math.Min(100, float64(week.Sessions)/float64(goals.WeeklySessions)*100)
		p.SessionsReached = week.Sessions >= goals.WeeklySessions
	}
	if goals.WeeklyCalories > 0 {
		p.KcalPercent = math.Min(100, week.Kcal/goals.WeeklyCalories*100)
		p.KcalReached = week.Kcal >= goals.WeeklyCalories
	}
	return p
}

// CategoryCounts tallies sessions per category across the given records.
func CategoryCounts(records []domain.TrainingRecord) map[domain.Category]int {
	counts := make(map[domain.Category]int)
	for _, r := range records {
		counts[r.Category]++
	}
	return counts
}
