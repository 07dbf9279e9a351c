// Package fitquest defines the core domain types of the zone capture game.
// It has zero external dependencies.
package fitquest

import "time"

const (
	// StepsToCapture is the step count that takes a zone to 100%.
	StepsToCapture = 10000

	// GracePeriod is how long a capturing user may stay outside the zone
	// geofence before the attempt is wiped.
	GracePeriod = 30 * time.Second

	// ChallengeWindow bounds how long after the owner's capture start a
	// challenger may still take the zone over.
	ChallengeWindow = time.Hour

	// PromoCodePrefix starts every generated reward code.
	PromoCodePrefix = "FITQUEST"
)

type ZoneCategory string

const (
	CategoryLandmark ZoneCategory = "landmark"
	CategoryCultural ZoneCategory = "cultural"
	CategoryPark     ZoneCategory = "park"
	CategoryMall     ZoneCategory = "mall"
	CategoryPartner  ZoneCategory = "partner"
)

// CaptureTag is the capture lifecycle stage of a zone.
type CaptureTag string

const (
	TagUncaptured CaptureTag = "uncaptured"
	TagInProgress CaptureTag = "in_progress"
	TagHeld       CaptureTag = "held"
)

type Zone struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	RadiusMeters   float64      `json:"radius"`
	Points         int          `json:"points"`
	Category       ZoneCategory `json:"category"`
	CanCapture     bool         `json:"canCapture"`
	CooldownEndsAt *time.Time   `json:"cooldownEndsAt,omitempty"`
	ImageURL       string       `json:"imageUrl,omitempty"`

	Tag               CaptureTag    `json:"tag"`
	Capture           *CaptureState `json:"captureState,omitempty"`
	LastOwnerTransfer *time.Time    `json:"lastOwnerTransfer,omitempty"`
}

// SetCapture replaces the zone's capture state and keeps Tag in sync with it.
func (z *Zone) SetCapture(cs *CaptureState) {
	z.Capture = cs
	switch {
	case cs == nil:
		z.Tag = TagUncaptured
	case cs.IsCompleted:
		z.Tag = TagHeld
	default:
		z.Tag = TagInProgress
	}
}

type CaptureState struct {
	OwnerID            string    `json:"ownerId"`
	OwnerName          string    `json:"ownerName"`
	StepsAccumulated   int       `json:"stepsAccumulated"`
	CaptureStartTime   time.Time `json:"captureStartTime"`
	ProgressPercentage int       `json:"progressPercentage"`
	IsCompleted        bool      `json:"isCompleted"`
	// CompletedAt is when the capture was credited to its owner. Nil until
	// then, and cleared again if the steps fall back under the threshold.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewCaptureState builds a capture state whose percentage and completion
// are derived from steps.
func NewCaptureState(ownerID, ownerName string, steps int, start time.Time) *CaptureState {
	cs := &CaptureState{
		OwnerID:          ownerID,
		OwnerName:        ownerName,
		CaptureStartTime: start,
	}
	cs.SetSteps(steps)
	return cs
}

// SetSteps sets the accumulated steps and recomputes the derived fields.
// Completion needs the full StepsToCapture; the rounded percentage alone
// can read 100 a few steps earlier.
func (cs *CaptureState) SetSteps(steps int) {
	cs.StepsAccumulated = steps
	cs.ProgressPercentage = Progress(steps)
	cs.IsCompleted = steps >= StepsToCapture
	if !cs.IsCompleted {
		cs.CompletedAt = nil
	}
}

// Credited reports whether a completed capture has already been paid out.
func (cs *CaptureState) Credited() bool {
	return cs.CompletedAt != nil
}

// Progress maps a step count onto the 0-100 display scale, rounded to the
// nearest integer and clamped at both ends.
func Progress(steps int) int {
	switch {
	case steps <= 0:
		return 0
	case steps >= StepsToCapture:
		return 100
	}
	// Integer half-up rounding of steps/StepsToCapture*100.
	return (steps*100 + StepsToCapture/2) / StepsToCapture
}

type UserStats struct {
	TotalDistance    float64 `json:"totalDistance"`
	TotalPoints      int     `json:"totalPoints"`
	MonthlyPoints    int     `json:"monthlyPoints"`
	Rank             int     `json:"rank"`
	ZonesCaptured    int     `json:"zonesCaptured"`
	CurrentStreak    int     `json:"currentStreak"`
	LongestStreak    int     `json:"longestStreak"`
	Level            int     `json:"level"`
	ExperiencePoints int     `json:"experiencePoints"`
	CO2Saved         float64 `json:"co2Saved"`
}

// StatsPatch is a partial UserStats update; nil fields are left alone.
type StatsPatch struct {
	TotalDistance    *float64 `json:"totalDistance,omitempty"`
	TotalPoints      *int     `json:"totalPoints,omitempty"`
	MonthlyPoints    *int     `json:"monthlyPoints,omitempty"`
	Rank             *int     `json:"rank,omitempty"`
	ZonesCaptured    *int     `json:"zonesCaptured,omitempty"`
	CurrentStreak    *int     `json:"currentStreak,omitempty"`
	LongestStreak    *int     `json:"longestStreak,omitempty"`
	Level            *int     `json:"level,omitempty"`
	ExperiencePoints *int     `json:"experiencePoints,omitempty"`
	CO2Saved         *float64 `json:"co2Saved,omitempty"`
}

// Apply merges the non-nil fields of p into s.
func (p StatsPatch) Apply(s *UserStats) {
	if p.TotalDistance != nil {
		s.TotalDistance = *p.TotalDistance
	}
	if p.TotalPoints != nil {
		s.TotalPoints = *p.TotalPoints
	}
	if p.MonthlyPoints != nil {
		s.MonthlyPoints = *p.MonthlyPoints
	}
	if p.Rank != nil {
		s.Rank = *p.Rank
	}
	if p.ZonesCaptured != nil {
		s.ZonesCaptured = *p.ZonesCaptured
	}
	if p.CurrentStreak != nil {
		s.CurrentStreak = *p.CurrentStreak
	}
	if p.LongestStreak != nil {
		s.LongestStreak = *p.LongestStreak
	}
	if p.Level != nil {
		s.Level = *p.Level
	}
	if p.ExperiencePoints != nil {
		s.ExperiencePoints = *p.ExperiencePoints
	}
	if p.CO2Saved != nil {
		s.CO2Saved = *p.CO2Saved
	}
}

type RewardType string

const (
	RewardVoucher  RewardType = "voucher"
	RewardDiscount RewardType = "discount"
	RewardPhysical RewardType = "physical"
)

type Milestone struct {
	ID          string     `json:"id"`
	Distance    float64    `json:"distance"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Reward      string     `json:"reward"`
	RewardType  RewardType `json:"rewardType"`
	IconName    string     `json:"iconName"`
	Unlocked    bool       `json:"unlocked"`
	Redeemed    bool       `json:"redeemed"`
	PromoCode   string     `json:"promoCode,omitempty"`
}

type ActivityType string

const (
	ActivityZoneCapture       ActivityType = "zone_capture"
	ActivityDistanceSync      ActivityType = "distance_sync"
	ActivityMilestoneUnlocked ActivityType = "milestone_unlocked"
	ActivityMilestoneRedeemed ActivityType = "milestone_redeemed"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityZoneCapture, ActivityDistanceSync, ActivityMilestoneUnlocked, ActivityMilestoneRedeemed:
		return true
	}
	return false
}

type Activity struct {
	ID           string            `json:"id"`
	Type         ActivityType      `json:"type"`
	Description  string            `json:"description"`
	PointsEarned int               `json:"pointsEarned"`
	DistanceKm   *float64          `json:"distanceKm,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ActivityInput is an activity before the log assigns its id and timestamp.
type ActivityInput struct {
	Type         ActivityType      `json:"type"`
	Description  string            `json:"description"`
	PointsEarned int               `json:"pointsEarned"`
	DistanceKm   *float64          `json:"distanceKm,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}
