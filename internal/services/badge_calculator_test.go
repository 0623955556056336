// file: internal/services/badge_calculator_test.go
package services

import (
	"testing"
	"time"

	"platewise/internal/models"

	"github.com/stretchr/testify/assert"
)

func floatPtr(f float64) *float64 { return &f }

func activityAt(t time.Time, cost float64, servings int) *models.CompletedActivity {
	return &models.CompletedActivity{
		RecipeID:       1,
		CompletedAt:    t,
		CostPerServing: cost,
		Servings:       servings,
		TimeMinutes:    30,
	}
}

func TestCalculateNoActivityReturnsZero(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "cook", Type: models.CriterionCount, Target: 10, Weight: 0.5},
			{Name: "cheap", Type: models.CriterionAvgCostBelow, Target: 3.5, Weight: 0.3},
			{Name: "streak", Type: models.CriterionWeekStreak, Target: 4, Weight: 0.2},
		},
	}

	assert.Equal(t, 0, calc.Calculate(badge, nil))
	assert.Equal(t, 0, calc.Calculate(badge, []*models.CompletedActivity{}))
}

func TestCalculateNilOrEmptyBadge(t *testing.T) {
	calc := NewBadgeCalculator()

	assert.Equal(t, 0, calc.Calculate(nil, nil))
	assert.Equal(t, 0, calc.Calculate(&models.BadgeDefinition{}, nil))
}

func TestCalculateZeroTargetNeverDivides(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "broken", Type: models.CriterionCount, Target: 0, Weight: 1},
		},
	}
	activity := []*models.CompletedActivity{
		activityAt(time.Now(), 2.0, 4),
	}

	assert.Equal(t, 0, calc.Calculate(badge, activity))
}

func TestCalculateCountCriterion(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "cook", Type: models.CriterionCount, Target: 4, Weight: 1},
		},
	}

	now := time.Now()
	activity := []*models.CompletedActivity{
		activityAt(now, 2.0, 4),
		activityAt(now.Add(time.Hour), 3.0, 2),
	}

	assert.Equal(t, 50, calc.Calculate(badge, activity))
}

func TestCalculateCountCriterionCapsAtTarget(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "cook", Type: models.CriterionCount, Target: 2, Weight: 1},
		},
	}

	now := time.Now()
	activity := []*models.CompletedActivity{
		activityAt(now, 2.0, 4),
		activityAt(now, 2.0, 4),
		activityAt(now, 2.0, 4),
		activityAt(now, 2.0, 4),
	}

	assert.Equal(t, 100, calc.Calculate(badge, activity))
}

func TestCalculateCostFilter(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{
				Name:              "budget-cook",
				Type:              models.CriterionCount,
				Target:            2,
				Weight:            1,
				MaxCostPerServing: floatPtr(3.5),
			},
		},
	}

	now := time.Now()
	activity := []*models.CompletedActivity{
		activityAt(now, 3.0, 4),  // qualifies
		activityAt(now, 8.0, 4),  // too expensive
		activityAt(now, 3.49, 2), // qualifies
	}

	assert.Equal(t, 100, calc.Calculate(badge, activity))
}

func TestCalculateAvgCostThreshold(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "frugal", Type: models.CriterionAvgCostBelow, Target: 3.5, Weight: 1},
		},
	}

	now := time.Now()
	cheap := []*models.CompletedActivity{
		activityAt(now, 2.0, 4),
		activityAt(now, 4.0, 4), // average 3.0
	}
	expensive := []*models.CompletedActivity{
		activityAt(now, 5.0, 4),
		activityAt(now, 6.0, 4), // average 5.5
	}

	assert.Equal(t, 100, calc.Calculate(badge, cheap))
	assert.Equal(t, 0, calc.Calculate(badge, expensive))
}

func TestCalculateDistinctServings(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "variety", Type: models.CriterionDistinctServings, Target: 4, Weight: 1},
		},
	}

	now := time.Now()
	activity := []*models.CompletedActivity{
		activityAt(now, 2.0, 2),
		activityAt(now, 2.0, 2),
		activityAt(now, 2.0, 4),
	}

	// Two distinct buckets out of four.
	assert.Equal(t, 50, calc.Calculate(badge, activity))
}

func TestCalculateWeekStreak(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "streak", Type: models.CriterionWeekStreak, Target: 3, Weight: 1},
		},
	}

	// Three consecutive Sunday-start weeks, then a gap, then one more.
	week1 := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC) // Sunday
	activity := []*models.CompletedActivity{
		activityAt(week1, 2.0, 4),
		activityAt(week1.AddDate(0, 0, 8), 2.0, 4),  // following week
		activityAt(week1.AddDate(0, 0, 15), 2.0, 4), // third week
		activityAt(week1.AddDate(0, 0, 35), 2.0, 4), // after a gap
	}

	assert.Equal(t, 100, calc.Calculate(badge, activity))
}

func TestCalculateWeekStreakBrokenRun(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "streak", Type: models.CriterionWeekStreak, Target: 4, Weight: 1},
		},
	}

	week1 := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)
	activity := []*models.CompletedActivity{
		activityAt(week1, 2.0, 4),
		activityAt(week1.AddDate(0, 0, 7), 2.0, 4),
		// gap week
		activityAt(week1.AddDate(0, 0, 21), 2.0, 4),
	}

	// Longest run is two weeks out of four.
	assert.Equal(t, 50, calc.Calculate(badge, activity))
}

func TestCalculateSameWeekActivitiesCollapse(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "streak", Type: models.CriterionWeekStreak, Target: 2, Weight: 1},
		},
	}

	sunday := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 8, 8, 23, 59, 0, 0, time.UTC)
	activity := []*models.CompletedActivity{
		activityAt(sunday, 2.0, 4),
		activityAt(saturday, 2.0, 4),
	}

	// Both fall in the same Sunday-start week: streak of one.
	assert.Equal(t, 50, calc.Calculate(badge, activity))
}

func TestCalculateWeightedCombination(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "cook", Type: models.CriterionCount, Target: 2, Weight: 0.6},
			{Name: "frugal", Type: models.CriterionAvgCostBelow, Target: 3.5, Weight: 0.4},
		},
	}

	now := time.Now()
	activity := []*models.CompletedActivity{
		activityAt(now, 2.0, 4), // count ratio 0.5, average cost under threshold
	}

	// 0.6*0.5 + 0.4*1.0 = 0.7
	assert.Equal(t, 70, calc.Calculate(badge, activity))
}

func TestCalculateIgnoresZeroWeightCriteria(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "cook", Type: models.CriterionCount, Target: 1, Weight: 0},
		},
	}

	activity := []*models.CompletedActivity{activityAt(time.Now(), 2.0, 4)}
	assert.Equal(t, 0, calc.Calculate(badge, activity))
}

func TestCalculateTagFilter(t *testing.T) {
	calc := NewBadgeCalculator()

	badge := &models.BadgeDefinition{
		Criteria: models.CriteriaList{
			{Name: "veggie", Type: models.CriterionCount, Target: 1, Weight: 1, Tag: "vegetarian"},
		},
	}

	now := time.Now()
	tagged := activityAt(now, 2.0, 4)
	tagged.Tags = models.StringArray{"Vegetarian", "quick"}
	untagged := activityAt(now, 2.0, 4)

	assert.Equal(t, 100, calc.Calculate(badge, []*models.CompletedActivity{tagged}))
	assert.Equal(t, 0, calc.Calculate(badge, []*models.CompletedActivity{untagged}))
}
