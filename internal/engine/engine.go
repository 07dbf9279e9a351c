// Package engine implements the zone capture and progression engine: the
// capture session cursor, step accumulation, the geofence grace period,
// ownership challenges and milestone evaluation.
//
// An Engine owns one state tree for one local player. Every exported method
// is an atomic action against that tree; none of them block or schedule
// work. Callers that need polling (step sensors, grace checks) drive the
// engine from their own timers.
package engine

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mamadi-exe/Snoofit/internal/fitquest"
)

// Clock supplies the engine's notion of now.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Player identifies the local user acting on the engine.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the process-wide capture cursor. At most one zone is being
// captured at a time.
type Session struct {
	IsCapturing        bool       `json:"isCapturing"`
	ZoneID             string     `json:"capturingZoneId,omitempty"`
	StepsInCurrentZone int        `json:"stepsInCurrentZone"`
	IsOutsideZone      bool       `json:"isOutsideZone"`
	OutsideZoneSince   *time.Time `json:"outsideZoneSince,omitempty"`
}

// Snapshot is a read-only deep copy of the engine state.
type Snapshot struct {
	Player     Player               `json:"player"`
	Zones      []fitquest.Zone      `json:"zones"`
	Session    Session              `json:"session"`
	Stats      fitquest.UserStats   `json:"stats"`
	Milestones []fitquest.Milestone `json:"milestones"`
	Activities []fitquest.Activity  `json:"activities"`
}

type EventType string

const (
	EventCaptureStarted    EventType = "capture_started"
	EventCaptureCancelled  EventType = "capture_cancelled"
	EventStepsAdded        EventType = "steps_added"
	EventLeftZone          EventType = "left_zone"
	EventReturnedToZone    EventType = "returned_to_zone"
	EventCaptureReset      EventType = "capture_reset"
	EventZoneTransferred   EventType = "zone_transferred"
	EventZoneCaptured      EventType = "zone_captured"
	EventMilestoneUnlocked EventType = "milestone_unlocked"
	EventMilestoneRedeemed EventType = "milestone_redeemed"
	EventActivityAdded     EventType = "activity_added"
	EventStatsUpdated      EventType = "stats_updated"
)

// Event describes a state change that has been committed.
type Event struct {
	Type        EventType `json:"type"`
	ZoneID      string    `json:"zoneId,omitempty"`
	MilestoneID string    `json:"milestoneId,omitempty"`
	At          time.Time `json:"at"`
}

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithListener registers fn to receive every committed Event. Listeners run
// after the engine lock is released and must not block.
func WithListener(fn func(Event)) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, fn) }
}

// WithPromoCodes overrides the promo code generator.
func WithPromoCodes(fn func() string) Option {
	return func(e *Engine) { e.newCode = fn }
}

// WithActivityLimit caps the activity log at n entries, dropping the oldest.
// Zero keeps everything.
func WithActivityLimit(n int) Option {
	return func(e *Engine) { e.activityLimit = n }
}

type Engine struct {
	mu sync.Mutex

	player     Player
	zones      []fitquest.Zone
	zoneIndex  map[string]int
	session    Session
	stats      fitquest.UserStats
	milestones []fitquest.Milestone
	activities []fitquest.Activity

	clock         Clock
	logger        *slog.Logger
	listeners     []func(Event)
	newCode       func() string
	newID         func() string
	activityLimit int

	pending []Event
}

// New creates an engine for player seeded from the default catalogs.
func New(player Player, opts ...Option) *Engine {
	stats := fitquest.DefaultStats()
	milestones := fitquest.DefaultMilestones()
	for i := range milestones {
		milestones[i].Unlocked = stats.TotalDistance >= milestones[i].Distance
	}
	return build(Snapshot{
		Player:     player,
		Zones:      fitquest.DefaultZones(),
		Stats:      stats,
		Milestones: milestones,
	}, opts)
}

// Restore recreates an engine from a previously taken snapshot. The capture
// session is not restored: a restarted engine always starts idle.
func Restore(snap Snapshot, opts ...Option) *Engine {
	snap = snap.clone()
	snap.Session = Session{}
	for i := range snap.Zones {
		snap.Zones[i].SetCapture(snap.Zones[i].Capture)
	}
	return build(snap, opts)
}

func build(snap Snapshot, opts []Option) *Engine {
	e := &Engine{
		player:     snap.Player,
		zones:      snap.Zones,
		zoneIndex:  make(map[string]int, len(snap.Zones)),
		session:    snap.Session,
		stats:      snap.Stats,
		milestones: snap.Milestones,
		activities: snap.Activities,
		clock:      systemClock{},
		logger:     slog.Default(),
		newCode:    randomPromoCode,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	for i, z := range e.zones {
		e.zoneIndex[z.ID] = i
	}
	e.logger = e.logger.With("player_id", e.player.ID)
	return e
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Player:     e.player,
		Zones:      e.zones,
		Session:    e.session,
		Stats:      e.stats,
		Milestones: e.milestones,
		Activities: e.activities,
	}.clone()
}

// Session returns a copy of the capture cursor.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.clone()
}

// Zone returns a copy of the zone with the given id.
func (e *Engine) Zone(id string) (fitquest.Zone, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	z := e.zone(id)
	if z == nil {
		return fitquest.Zone{}, false
	}
	return cloneZone(*z), true
}

// Player returns the identity the engine acts for.
func (e *Engine) Player() Player {
	return e.player
}

func (e *Engine) zone(id string) *fitquest.Zone {
	i, ok := e.zoneIndex[id]
	if !ok {
		return nil
	}
	return &e.zones[i]
}

func (e *Engine) milestone(id string) *fitquest.Milestone {
	for i := range e.milestones {
		if e.milestones[i].ID == id {
			return &e.milestones[i]
		}
	}
	return nil
}

// lock must be paired with a deferred unlock so queued events are delivered
// once the state is consistent again.
func (e *Engine) lock() { e.mu.Lock() }

func (e *Engine) unlock() {
	events := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, ev := range events {
		for _, fn := range e.listeners {
			fn(ev)
		}
	}
}

func (e *Engine) emit(t EventType, zoneID, milestoneID string) {
	if len(e.listeners) == 0 {
		return
	}
	e.pending = append(e.pending, Event{
		Type:        t,
		ZoneID:      zoneID,
		MilestoneID: milestoneID,
		At:          e.clock.Now(),
	})
}

func (e *Engine) endSession() {
	e.session = Session{}
}

func (e *Engine) addActivity(in fitquest.ActivityInput) fitquest.Activity {
	a := fitquest.Activity{
		ID:           e.newID(),
		Type:         in.Type,
		Description:  in.Description,
		PointsEarned: in.PointsEarned,
		DistanceKm:   in.DistanceKm,
		CreatedAt:    e.clock.Now(),
		Metadata:     in.Metadata,
	}
	// Newest first.
	e.activities = append([]fitquest.Activity{a}, e.activities...)
	if e.activityLimit > 0 && len(e.activities) > e.activityLimit {
		e.activities = e.activities[:e.activityLimit]
	}
	e.emit(EventActivityAdded, "", "")
	return a
}

const promoAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomPromoCode() string {
	b := make([]byte, 6)
	rand.Read(b)
	for i := range b {
		b[i] = promoAlphabet[int(b[i])%len(promoAlphabet)]
	}
	return fitquest.PromoCodePrefix + string(b)
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Session = s.Session.clone()
	out.Zones = make([]fitquest.Zone, len(s.Zones))
	for i, z := range s.Zones {
		out.Zones[i] = cloneZone(z)
	}
	out.Milestones = append([]fitquest.Milestone(nil), s.Milestones...)
	// Activities are never mutated after creation, a shallow copy suffices.
	out.Activities = append([]fitquest.Activity(nil), s.Activities...)
	return out
}

func (s Session) clone() Session {
	if s.OutsideZoneSince != nil {
		t := *s.OutsideZoneSince
		s.OutsideZoneSince = &t
	}
	return s
}

func cloneZone(z fitquest.Zone) fitquest.Zone {
	if z.Capture != nil {
		cs := *z.Capture
		if cs.CompletedAt != nil {
			t := *cs.CompletedAt
			cs.CompletedAt = &t
		}
		z.Capture = &cs
	}
	if z.LastOwnerTransfer != nil {
		t := *z.LastOwnerTransfer
		z.LastOwnerTransfer = &t
	}
	if z.CooldownEndsAt != nil {
		t := *z.CooldownEndsAt
		z.CooldownEndsAt = &t
	}
	return z
}
