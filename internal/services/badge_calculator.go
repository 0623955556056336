// file: internal/services/badge_calculator.go
package services

import (
	"math"
	"sort"
	"time"

	"platewise/internal/models"
)

// ===============================
// PROGRESS CALCULATOR
// ===============================

// BadgeCalculator scores a user's completed cooking activity against a
// badge's structured criteria. It is a pure read: it never mutates the
// activity slice and never returns an error, because missing or partial
// activity data is a valid score of zero, not a failure.
type BadgeCalculator struct{}

// NewBadgeCalculator creates a new badge calculator
func NewBadgeCalculator() *BadgeCalculator {
	return &BadgeCalculator{}
}

// Calculate returns the badge's overall progress in [0,100]. Each
// criterion contributes its weighted ratio min(actual/target, 1);
// threshold criteria contribute 0 or 1. Badges without criteria score 0.
func (c *BadgeCalculator) Calculate(badge *models.BadgeDefinition, activity []*models.CompletedActivity) int {
	if badge == nil || len(badge.Criteria) == 0 {
		return 0
	}

	var weightSum, score float64
	for i := range badge.Criteria {
		criterion := &badge.Criteria[i]
		weight := criterion.Weight
		if weight <= 0 {
			continue
		}
		weightSum += weight
		score += weight * c.criterionRatio(criterion, activity)
	}

	if weightSum <= 0 {
		return 0
	}

	progress := int(math.Round(score / weightSum * 100))
	if progress > 100 {
		progress = 100
	}
	if progress < 0 {
		progress = 0
	}
	return progress
}

// criterionRatio evaluates one criterion to a ratio in [0,1]
func (c *BadgeCalculator) criterionRatio(criterion *models.BadgeCriterion, activity []*models.CompletedActivity) float64 {
	matching := filterActivity(criterion, activity)

	switch criterion.Type {
	case models.CriterionCount:
		return cappedRatio(float64(len(matching)), criterion.Target)

	case models.CriterionWeekStreak:
		return cappedRatio(float64(longestWeekStreak(matching)), criterion.Target)

	case models.CriterionDistinctServings:
		return cappedRatio(float64(distinctServings(matching)), criterion.Target)

	case models.CriterionAvgCostBelow:
		// Threshold criterion: all or nothing. No qualifying activity
		// means the threshold is not yet demonstrated.
		if len(matching) == 0 {
			return 0
		}
		if averageCost(matching) <= criterion.Target {
			return 1
		}
		return 0

	default:
		return 0
	}
}

// criterionActual returns the raw figure behind a criterion's ratio:
// qualifying matches for counts, the longest run for streaks, distinct
// buckets for serving variety. Threshold criteria report 1 when
// satisfied and 0 otherwise.
func (c *BadgeCalculator) criterionActual(criterion *models.BadgeCriterion, activity []*models.CompletedActivity) int {
	matching := filterActivity(criterion, activity)

	switch criterion.Type {
	case models.CriterionCount:
		return len(matching)

	case models.CriterionWeekStreak:
		return longestWeekStreak(matching)

	case models.CriterionDistinctServings:
		return distinctServings(matching)

	case models.CriterionAvgCostBelow:
		if len(matching) > 0 && averageCost(matching) <= criterion.Target {
			return 1
		}
		return 0

	default:
		return 0
	}
}

// filterActivity keeps the activity rows that qualify under the
// criterion's filters
func filterActivity(criterion *models.BadgeCriterion, activity []*models.CompletedActivity) []*models.CompletedActivity {
	matching := make([]*models.CompletedActivity, 0, len(activity))
	for _, a := range activity {
		if criterion.Matches(a) {
			matching = append(matching, a)
		}
	}
	return matching
}

// cappedRatio is min(actual/target, 1). A nonpositive target contributes
// nothing rather than dividing by zero.
func cappedRatio(actual, target float64) float64 {
	if target <= 0 {
		return 0
	}
	ratio := actual / target
	if ratio > 1 {
		return 1
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}

// weekStart returns the Sunday 00:00 UTC that opens the calendar week
// containing t
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 0, -int(start.Weekday()))
}

// longestWeekStreak returns the longest run of consecutive calendar weeks
// (Sunday start) that each contain at least one qualifying activity
func longestWeekStreak(activity []*models.CompletedActivity) int {
	if len(activity) == 0 {
		return 0
	}

	weeks := make(map[time.Time]struct{}, len(activity))
	for _, a := range activity {
		weeks[weekStart(a.CompletedAt)] = struct{}{}
	}

	starts := make([]time.Time, 0, len(weeks))
	for w := range weeks {
		starts = append(starts, w)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	longest, current := 1, 1
	for i := 1; i < len(starts); i++ {
		if starts[i].Sub(starts[i-1]) == 7*24*time.Hour {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 1
		}
	}
	return longest
}

// distinctServings counts the distinct serving-size buckets cooked
func distinctServings(activity []*models.CompletedActivity) int {
	buckets := make(map[int]struct{}, len(activity))
	for _, a := range activity {
		buckets[a.Servings] = struct{}{}
	}
	return len(buckets)
}

// averageCost returns the mean cost per serving across the activity.
// Callers guard against empty input.
func averageCost(activity []*models.CompletedActivity) float64 {
	var total float64
	for _, a := range activity {
		total += a.CostPerServing
	}
	return total / float64(len(activity))
}
