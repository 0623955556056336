// file: internal/models/badge.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ===============================
// BADGE CATALOG
// ===============================

// BadgeCategory classifies a badge in the catalog
type BadgeCategory string

const (
	BadgeCategoryCooking  BadgeCategory = "cooking"
	BadgeCategoryPlanning BadgeCategory = "planning"
	BadgeCategoryBudget   BadgeCategory = "budget"
	BadgeCategoryVariety  BadgeCategory = "variety"
	BadgeCategoryStreak   BadgeCategory = "streak"
)

// BadgeRarity ranks how hard a badge is to earn
type BadgeRarity string

const (
	BadgeRarityCommon    BadgeRarity = "common"
	BadgeRarityRare      BadgeRarity = "rare"
	BadgeRarityEpic      BadgeRarity = "epic"
	BadgeRarityLegendary BadgeRarity = "legendary"
)

// rarityRank orders rarities for sorting; unknown values sort last.
var rarityRank = map[BadgeRarity]int{
	BadgeRarityCommon:    0,
	BadgeRarityRare:      1,
	BadgeRarityEpic:      2,
	BadgeRarityLegendary: 3,
}

// Rank returns the sort position of the rarity
func (r BadgeRarity) Rank() int {
	if rank, ok := rarityRank[r]; ok {
		return rank
	}
	return len(rarityRank)
}

// CriterionType identifies how a badge criterion is evaluated against
// a user's completed activity.
type CriterionType string

const (
	// CriterionCount counts completed sessions matching the criterion filter.
	CriterionCount CriterionType = "count"
	// CriterionWeekStreak measures the longest run of consecutive qualifying
	// calendar weeks (weeks start Sunday).
	CriterionWeekStreak CriterionType = "week_streak"
	// CriterionDistinctServings counts distinct serving-size buckets used.
	CriterionDistinctServings CriterionType = "distinct_servings"
	// CriterionAvgCostBelow is a threshold criterion: 1 when the average
	// cost per serving is at or below the target, 0 otherwise.
	CriterionAvgCostBelow CriterionType = "avg_cost_below"
)

// BadgeCriterion is one structured scoring rule for a badge. Target is the
// numeric goal, Weight its share of the total score (weights sum to 1.0).
// The optional filter fields narrow which activity qualifies.
type BadgeCriterion struct {
	Name   string        `json:"name"`
	Type   CriterionType `json:"type"`
	Target float64       `json:"target"`
	Weight float64       `json:"weight"`

	MaxCostPerServing *float64 `json:"max_cost_per_serving,omitempty"`
	MaxTimeMinutes    *int     `json:"max_time_minutes,omitempty"`
	Tag               string   `json:"tag,omitempty"`
}

// Matches reports whether a single completed activity qualifies under the
// criterion's filters.
func (c *BadgeCriterion) Matches(a *CompletedActivity) bool {
	if a == nil {
		return false
	}
	if c.MaxCostPerServing != nil && a.CostPerServing > *c.MaxCostPerServing {
		return false
	}
	if c.MaxTimeMinutes != nil && a.TimeMinutes > *c.MaxTimeMinutes {
		return false
	}
	if c.Tag != "" && !a.Tags.Contains(c.Tag) {
		return false
	}
	return true
}

// CriteriaList handles the JSONB criteria column
type CriteriaList []BadgeCriterion

// Scan implements sql.Scanner
func (c *CriteriaList) Scan(value interface{}) error {
	if value == nil {
		*c = CriteriaList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into CriteriaList", value)
	}
}

// Value implements driver.Valuer
func (c CriteriaList) Value() (driver.Value, error) {
	if c == nil {
		c = CriteriaList{}
	}
	return json.Marshal(c)
}

// BadgeDefinition is a catalog entry describing one earnable badge.
// Catalog rows are created and updated by administrative tooling only;
// the progress pipeline treats them as read-only.
type BadgeDefinition struct {
	ID          int64         `json:"id" db:"id"`
	Key         string        `json:"key" db:"key" validate:"required,max=100"`
	Name        string        `json:"name" db:"name" validate:"required,max=150"`
	Description string        `json:"description" db:"description" validate:"max=1000"`
	Category    BadgeCategory `json:"category" db:"category" validate:"required,oneof=cooking planning budget variety streak"`
	Rarity      BadgeRarity   `json:"rarity" db:"rarity" validate:"required,oneof=common rare epic legendary"`

	// Requirements are the human-readable milestone descriptions; each one
	// seeds a tracked milestone whose required count is the first integer
	// literal found in the text (1 when the text has no digits).
	Requirements StringArray `json:"requirements" db:"requirements"`

	// Criteria drive the progress calculator with typed targets and weights.
	Criteria CriteriaList `json:"criteria" db:"criteria"`

	XPReward int  `json:"xp_reward" db:"xp_reward" validate:"min=0"`
	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ===============================
// BADGE PROGRESS
// ===============================

// BadgeStatus is the per-user badge state machine. The machine is forward
// biased: only an explicit administrative reset moves a badge backwards.
type BadgeStatus string

const (
	BadgeStatusLocked    BadgeStatus = "LOCKED"
	BadgeStatusHidden    BadgeStatus = "HIDDEN"
	BadgeStatusVisible   BadgeStatus = "VISIBLE"
	BadgeStatusCompleted BadgeStatus = "COMPLETED"
)

// ValidateBadgeStatus validates the badge status enum
func ValidateBadgeStatus(status string) bool {
	switch BadgeStatus(status) {
	case BadgeStatusLocked, BadgeStatusHidden, BadgeStatusVisible, BadgeStatusCompleted:
		return true
	}
	return false
}

// Milestone is one tracked sub-requirement of a badge.
type Milestone struct {
	Description   string `json:"description"`
	RequiredCount int    `json:"required_count"`
	CurrentCount  int    `json:"current_count"`
	Completed     bool   `json:"completed"`
}

// Contribution returns the milestone's progress share in [0,1].
// A zero or negative required count contributes nothing rather than
// dividing by zero.
func (m *Milestone) Contribution() float64 {
	if m.RequiredCount <= 0 {
		return 0
	}
	ratio := float64(m.CurrentCount) / float64(m.RequiredCount)
	if ratio > 1 {
		return 1
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}

// MilestoneList handles the JSONB milestones column
type MilestoneList []Milestone

// Scan implements sql.Scanner
func (m *MilestoneList) Scan(value interface{}) error {
	if value == nil {
		*m = MilestoneList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into MilestoneList", value)
	}
}

// Value implements driver.Valuer
func (m MilestoneList) Value() (driver.Value, error) {
	if m == nil {
		m = MilestoneList{}
	}
	return json.Marshal(m)
}

// BadgeProgress is the central mutable entity of the achievement pipeline:
// one row per (user, badge), unique at the storage layer.
type BadgeProgress struct {
	ID      int64       `json:"id" db:"id"`
	UserID  int64       `json:"user_id" db:"user_id" validate:"required"`
	BadgeID int64       `json:"badge_id" db:"badge_id" validate:"required"`
	Status  BadgeStatus `json:"status" db:"status"`

	// Progress is a denormalized 0-100 summary of milestone completion.
	Progress   int           `json:"progress" db:"progress" validate:"min=0,max=100"`
	Milestones MilestoneList `json:"milestones" db:"milestones"`

	// AchievedAt is set exactly once, in the same write that moves the
	// status to COMPLETED. Only an administrative reset clears it.
	AchievedAt *time.Time `json:"achieved_at,omitempty" db:"achieved_at"`

	// NotifiedAt records that the completion notification was created.
	// It is claimed atomically so the direct and watcher trigger paths
	// can both fire without producing two notifications.
	NotifiedAt *time.Time `json:"-" db:"notified_at"`

	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// Joined catalog fields
	Badge *BadgeDefinition `json:"badge,omitempty" db:"-"`
}

// IsCompleted reports whether the badge has been earned
func (p *BadgeProgress) IsCompleted() bool {
	return p.Status == BadgeStatusCompleted
}

// firstIntegerPattern extracts the first integer literal from a
// requirement sentence; "under €3.50" parses as 3, "a 15-recipe run" as 15.
var firstIntegerPattern = regexp.MustCompile(`\d+`)

// ParseRequiredCount extracts the milestone target from a human-readable
// requirement string. Requirements without any digits default to 1.
func ParseRequiredCount(requirement string) int {
	match := firstIntegerPattern.FindString(requirement)
	if match == "" {
		return 1
	}
	n, err := strconv.Atoi(match)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

// SeedMilestones builds a fresh milestone list from catalog requirement
// strings.
func SeedMilestones(requirements []string) MilestoneList {
	milestones := make(MilestoneList, 0, len(requirements))
	for _, req := range requirements {
		milestones = append(milestones, Milestone{
			Description:   req,
			RequiredCount: ParseRequiredCount(req),
		})
	}
	return milestones
}

// ===============================
// AGGREGATE VIEWS
// ===============================

// CategoryProgress summarises a user's standing within one badge category
type CategoryProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// BadgeStats is the aggregate view exposed to the presentation layer
type BadgeStats struct {
	TotalBadges     int                                `json:"total_badges"`
	CompletedBadges int                                `json:"completed_badges"`
	TotalXP         int                                `json:"total_xp"`
	PerCategory     map[BadgeCategory]CategoryProgress `json:"per_category"`
}

// CategoryBadgeGroup is one category bucket in the conquered/unconquered
// badge listings
type CategoryBadgeGroup struct {
	Category BadgeCategory    `json:"category"`
	Badges   []*BadgeProgress `json:"badges"`
}
