package engine_test

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mamadi-exe/Snoofit/internal/engine"
	"github.com/Mamadi-exe/Snoofit/internal/fitquest"
)

// fakeClock is a controllable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var me = engine.Player{ID: "user_001", Name: "Ahmed Al-Thani"}

func newEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	base := []engine.Option{
		engine.WithClock(clock),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return engine.New(me, append(base, opts...)...), clock
}

func mustZone(t *testing.T, e *engine.Engine, id string) fitquest.Zone {
	t.Helper()
	z, ok := e.Zone(id)
	if !ok {
		t.Fatalf("zone %q not found", id)
	}
	return z
}

func TestStartCaptureInitializesUncapturedZone(t *testing.T) {
	e, clock := newEngine(t)

	e.StartCapture("z1")

	z := mustZone(t, e, "z1")
	if z.Tag != fitquest.TagInProgress {
		t.Errorf("tag = %q, want in_progress", z.Tag)
	}
	if z.Capture == nil {
		t.Fatal("expected capture state")
	}
	if z.Capture.OwnerID != me.ID || z.Capture.OwnerName != me.Name {
		t.Errorf("owner = %s/%s, want %s/%s", z.Capture.OwnerID, z.Capture.OwnerName, me.ID, me.Name)
	}
	if z.Capture.StepsAccumulated != 0 || z.Capture.IsCompleted {
		t.Errorf("capture = %+v, want zero steps and not completed", z.Capture)
	}
	if !z.Capture.CaptureStartTime.Equal(clock.Now()) {
		t.Errorf("start time = %v, want %v", z.Capture.CaptureStartTime, clock.Now())
	}

	s := e.Session()
	if !s.IsCapturing || s.ZoneID != "z1" || s.StepsInCurrentZone != 0 {
		t.Errorf("session = %+v", s)
	}
}

func TestStartCaptureUnknownZoneIsNoop(t *testing.T) {
	e, _ := newEngine(t)

	e.StartCapture("nope")

	if e.Session().IsCapturing {
		t.Error("expected no active session")
	}
}

func TestStartCaptureReusesExistingProgress(t *testing.T) {
	e, _ := newEngine(t)

	e.StartCapture("z1")
	e.AddSteps("z1", 3000, true)
	e.CancelCapture()
	e.StartCapture("z1")

	z := mustZone(t, e, "z1")
	if z.Capture.StepsAccumulated != 3000 {
		t.Errorf("steps = %d, want 3000 kept across restarts", z.Capture.StepsAccumulated)
	}
	if got := e.Session().StepsInCurrentZone; got != 0 {
		t.Errorf("local tally = %d, want 0 after restart", got)
	}
}

func TestStartCaptureReplacesActiveSession(t *testing.T) {
	e, _ := newEngine(t)

	e.StartCapture("z1")
	e.AddSteps("z1", 1200, true)
	e.StartCapture("z2")

	if got := e.Session().ZoneID; got != "z2" {
		t.Errorf("session zone = %q, want z2", got)
	}
	if got := mustZone(t, e, "z1").Capture.StepsAccumulated; got != 1200 {
		t.Errorf("previous zone steps = %d, want 1200 preserved", got)
	}
}

func TestCancelCaptureKeepsBankedSteps(t *testing.T) {
	e, _ := newEngine(t)

	e.StartCapture("z1")
	e.AddSteps("z1", 500, true)
	e.SetOutsideZone(true)
	e.CancelCapture()

	s := e.Session()
	if s.IsCapturing || s.ZoneID != "" || s.StepsInCurrentZone != 0 || s.IsOutsideZone || s.OutsideZoneSince != nil {
		t.Errorf("session after cancel = %+v, want zero", s)
	}
	if got := mustZone(t, e, "z1").Capture.StepsAccumulated; got != 500 {
		t.Errorf("steps = %d, want 500", got)
	}
}

func TestAddStepsProgressScenario(t *testing.T) {
	e, _ := newEngine(t)
	e.StartCapture("z1")

	steps := []int{4000, 4000, 2000}
	wantPct := []int{40, 80, 100}
	wantDone := []bool{false, false, true}

	for i, n := range steps {
		cs, ok := e.AddSteps("z1", n, true)
		if !ok {
			t.Fatalf("call %d: steps not accumulated", i)
		}
		if cs.ProgressPercentage != wantPct[i] {
			t.Errorf("call %d: progress = %d, want %d", i, cs.ProgressPercentage, wantPct[i])
		}
		if cs.IsCompleted != wantDone[i] {
			t.Errorf("call %d: completed = %v, want %v", i, cs.IsCompleted, wantDone[i])
		}
	}

	if got := e.Session().StepsInCurrentZone; got != 10000 {
		t.Errorf("local tally = %d, want 10000", got)
	}
	if tag := mustZone(t, e, "z1").Tag; tag != fitquest.TagHeld {
		t.Errorf("tag = %q, want held", tag)
	}
}

func TestAddStepsMonotonicAndFormula(t *testing.T) {
	e, _ := newEngine(t)
	e.StartCapture("z2")

	prev := 0
	for _, n := range []int{0, 7, 13, 480, 2500, 1, 3999, 5000, 12000} {
		cs, _ := e.AddSteps("z2", n, true)
		if cs.StepsAccumulated < prev {
			t.Fatalf("steps decreased: %d -> %d", prev, cs.StepsAccumulated)
		}
		prev = cs.StepsAccumulated

		if want := fitquest.Progress(cs.StepsAccumulated); cs.ProgressPercentage != want {
			t.Errorf("steps %d: progress = %d, want %d", cs.StepsAccumulated, cs.ProgressPercentage, want)
		}
		if cs.IsCompleted != (cs.StepsAccumulated >= fitquest.StepsToCapture) {
			t.Errorf("steps %d: completed = %v", cs.StepsAccumulated, cs.IsCompleted)
		}
		if cs.IsCompleted && cs.ProgressPercentage != 100 {
			t.Errorf("steps %d: completed with progress %d", cs.StepsAccumulated, cs.ProgressPercentage)
		}
		if cs.ProgressPercentage < 0 || cs.ProgressPercentage > 100 {
			t.Errorf("progress %d out of range", cs.ProgressPercentage)
		}
	}
}

func TestCompletionNeedsFullSteps(t *testing.T) {
	e, _ := newEngine(t)
	e.StartCapture("z1")

	cs, _ := e.AddSteps("z1", 9950, true)
	if cs.ProgressPercentage != 100 || cs.IsCompleted {
		t.Fatalf("9950 steps: progress = %d completed = %v, want 100 false", cs.ProgressPercentage, cs.IsCompleted)
	}
	if tag := mustZone(t, e, "z1").Tag; tag != fitquest.TagInProgress {
		t.Errorf("tag = %q, want in_progress", tag)
	}

	cs, _ = e.AddSteps("z1", 50, true)
	if !cs.IsCompleted {
		t.Errorf("10000 steps not completed")
	}
}

func TestAddStepsOutsideDoesNotAccumulate(t *testing.T) {
	e, clock := newEngine(t)
	e.StartCapture("z1")
	e.AddSteps("z1", 100, true)

	start := clock.Now()
	for _, n := range []int{0, 50, 99999} {
		cs, ok := e.AddSteps("z1", n, false)
		if ok {
			t.Errorf("steps %d accepted while outside", n)
		}
		if cs.StepsAccumulated != 100 {
			t.Errorf("steps = %d, want 100", cs.StepsAccumulated)
		}
		clock.Advance(time.Second)
	}

	s := e.Session()
	if !s.IsOutsideZone {
		t.Error("expected outside flag")
	}
	if s.OutsideZoneSince == nil || !s.OutsideZoneSince.Equal(start) {
		t.Errorf("outsideZoneSince = %v, want first exit %v", s.OutsideZoneSince, start)
	}
}

func TestAddStepsInsideClearsExitStreak(t *testing.T) {
	e, _ := newEngine(t)
	e.StartCapture("z1")
	e.AddSteps("z1", 10, false)

	e.AddSteps("z1", 10, true)

	s := e.Session()
	if s.IsOutsideZone || s.OutsideZoneSince != nil {
		t.Errorf("session = %+v, want exit streak cleared", s)
	}
}

func TestAddStepsPreconditions(t *testing.T) {
	e, _ := newEngine(t)

	if _, ok := e.AddSteps("z1", 100, true); ok {
		t.Error("steps accepted without a session")
	}
	e.StartCapture("z1")
	if _, ok := e.AddSteps("unknown", 100, true); ok {
		t.Error("steps accepted for unknown zone")
	}
	if _, ok := e.AddSteps("z2", 100, true); ok {
		t.Error("steps accepted for zone without capture state")
	}
	if _, ok := e.AddSteps("z1", -5, true); ok {
		t.Error("negative steps accepted")
	}
	if got := mustZone(t, e, "z1").Capture.StepsAccumulated; got != 0 {
		t.Errorf("steps = %d, want 0", got)
	}
}

func TestAddStepsLogsActivity(t *testing.T) {
	e, _ := newEngine(t)
	e.StartCapture("z1")
	e.AddSteps("z1", 250, true)

	acts := e.Snapshot().Activities
	if len(acts) != 1 {
		t.Fatalf("activities = %d, want 1", len(acts))
	}
	a := acts[0]
	if a.Type != fitquest.ActivityDistanceSync {
		t.Errorf("type = %q", a.Type)
	}
	if !strings.Contains(a.Description, "Added 250 steps") || !strings.Contains(a.Description, "(250/10000)") {
		t.Errorf("description = %q", a.Description)
	}
	if a.DistanceKm == nil || *a.DistanceKm != 0.25 {
		t.Errorf("distanceKm = %v, want 0.25", a.DistanceKm)
	}
}

func TestSetOutsideZoneStreak(t *testing.T) {
	e, clock := newEngine(t)
	e.StartCapture("z1")

	e.SetOutsideZone(true)
	first := *e.Session().OutsideZoneSince
	clock.Advance(5 * time.Second)
	e.SetOutsideZone(true)

	if got := *e.Session().OutsideZoneSince; !got.Equal(first) {
		t.Errorf("outsideZoneSince moved from %v to %v", first, got)
	}

	e.SetOutsideZone(false)
	s := e.Session()
	if s.IsOutsideZone || s.OutsideZoneSince != nil {
		t.Errorf("session = %+v, want cleared", s)
	}

	clock.Advance(5 * time.Second)
	e.SetOutsideZone(true)
	if got := *e.Session().OutsideZoneSince; !got.Equal(clock.Now()) {
		t.Errorf("new streak since = %v, want %v", got, clock.Now())
	}
}

func TestGracePeriodScenario(t *testing.T) {
	e, clock := newEngine(t)
	e.StartCapture("z1")
	e.AddSteps("z1", 6000, true)

	e.AddSteps("z1", 10, false) // t0
	clock.Advance(20 * time.Second)

	if e.CheckAndResetProgress("z1") {
		t.Fatal("reset after 20s")
	}
	if got := mustZone(t, e, "z1").Capture.StepsAccumulated; got != 6000 {
		t.Fatalf("steps = %d, want 6000 within grace", got)
	}
	if !e.Session().IsCapturing {
		t.Fatal("session ended within grace")
	}

	clock.Advance(11 * time.Second) // t0+31s
	if !e.CheckAndResetProgress("z1") {
		t.Fatal("no reset after 31s")
	}

	z := mustZone(t, e, "z1")
	if z.Capture.StepsAccumulated != 0 || z.Capture.ProgressPercentage != 0 || z.Capture.IsCompleted {
		t.Errorf("capture = %+v, want wiped", z.Capture)
	}
	if z.Capture.OwnerID != me.ID {
		t.Errorf("owner = %q, want kept", z.Capture.OwnerID)
	}
	if s := e.Session(); s.IsCapturing || s.OutsideZoneSince != nil {
		t.Errorf("session = %+v, want ended", s)
	}
}

func TestGracePeriodBoundary(t *testing.T) {
	e, clock := newEngine(t)
	e.StartCapture("z1")
	e.AddSteps("z1", 100, true)
	e.SetOutsideZone(true)

	clock.Advance(fitquest.GracePeriod)
	if e.CheckAndResetProgress("z1") {
		t.Fatal("reset at exactly the grace period")
	}
	clock.Advance(time.Millisecond)
	if !e.CheckAndResetProgress("z1") {
		t.Fatal("no reset one millisecond past the grace period")
	}
}

func TestCheckAndResetWithoutExitIsNoop(t *testing.T) {
	e, clock := newEngine(t)
	e.StartCapture("z1")
	e.AddSteps("z1", 100, true)
	clock.Advance(time.Hour)

	if e.CheckAndResetProgress("z1") {
		t.Fatal("reset without an exit streak")
	}
}

func TestAttemptTransferScenario(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		steps   int
		want    engine.TransferOutcome
	}{
		{"within window strictly greater", 30 * time.Minute, 6001, engine.TransferSucceeded},
		{"within window tie", 30 * time.Minute, 6000, engine.TransferNotEnoughSteps},
		{"within window fewer", 30 * time.Minute, 10, engine.TransferNotEnoughSteps},
		{"at window edge", time.Hour, 6001, engine.TransferSucceeded},
		{"window expired", 3700 * time.Second, 6001, engine.TransferWindowExpired},
		{"window expired huge steps", 3700 * time.Second, 1_000_000, engine.TransferWindowExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, clock := newEngine(t)
			e.StartCapture("z1")
			e.AddSteps("z1", 6000, true)
			before := e.Snapshot()

			clock.Advance(tt.elapsed)
			got := e.AttemptTransfer("z1", "user_042", "Fatima", tt.steps)
			if got != tt.want {
				t.Fatalf("outcome = %q, want %q", got, tt.want)
			}

			z := mustZone(t, e, "z1")
			if !got.OK() {
				if z.Capture.OwnerID != me.ID || z.Capture.StepsAccumulated != 6000 {
					t.Errorf("capture mutated on rejection: %+v", z.Capture)
				}
				if z.LastOwnerTransfer != nil {
					t.Error("lastOwnerTransfer set on rejection")
				}
				if len(e.Snapshot().Activities) != len(before.Activities) {
					t.Error("activity appended on rejection")
				}
				return
			}

			if z.Capture.OwnerID != "user_042" || z.Capture.OwnerName != "Fatima" {
				t.Errorf("owner = %s/%s", z.Capture.OwnerID, z.Capture.OwnerName)
			}
			if z.Capture.StepsAccumulated != tt.steps {
				t.Errorf("steps = %d, want %d", z.Capture.StepsAccumulated, tt.steps)
			}
			if z.Capture.ProgressPercentage != fitquest.Progress(tt.steps) {
				t.Errorf("progress = %d", z.Capture.ProgressPercentage)
			}
			if !z.Capture.CaptureStartTime.Equal(clock.Now()) {
				t.Errorf("start = %v, want %v", z.Capture.CaptureStartTime, clock.Now())
			}
			if z.LastOwnerTransfer == nil || !z.LastOwnerTransfer.Equal(clock.Now()) {
				t.Errorf("lastOwnerTransfer = %v", z.LastOwnerTransfer)
			}

			a := e.Snapshot().Activities[0]
			if a.Type != fitquest.ActivityZoneCapture || a.PointsEarned != z.Points {
				t.Errorf("activity = %+v", a)
			}
			if !strings.Contains(a.Description, "Fatima outpaced Ahmed Al-Thani") {
				t.Errorf("description = %q", a.Description)
			}
		})
	}
}

func TestAttemptTransferRequiresCapture(t *testing.T) {
	e, _ := newEngine(t)

	if got := e.AttemptTransfer("z1", "user_042", "Fatima", 50000); got != engine.TransferNoCapture {
		t.Errorf("outcome = %q, want no_capture", got)
	}
	if got := e.AttemptTransfer("missing", "user_042", "Fatima", 50000); got != engine.TransferNoCapture {
		t.Errorf("outcome = %q, want no_capture", got)
	}
}

func TestTransferRestartsWindow(t *testing.T) {
	e, clock := newEngine(t)
	e.StartCapture("z1")
	e.AddSteps("z1", 100, true)

	clock.Advance(50 * time.Minute)
	if !e.AttemptTransfer("z1", "user_042", "Fatima", 200).OK() {
		t.Fatal("first transfer failed")
	}
	if !e.Contestable("z1") {
		t.Error("zone not contestable right after transfer")
	}

	clock.Advance(50 * time.Minute)
	if !e.AttemptTransfer("z1", "user_077", "Omar", 201).OK() {
		t.Fatal("second transfer within the new window failed")
	}

	clock.Advance(61 * time.Minute)
	if e.Contestable("z1") {
		t.Error("zone still contestable after window")
	}
}

func TestCompleteZoneCapture(t *testing.T) {
	e, _ := newEngine(t)
	e.StartCapture("z1")
	e.AddSteps("z1", 10000, true)

	e.CompleteZoneCapture("z1")

	snap := e.Snapshot()
	z := mustZone(t, e, "z1")
	if z.Tag != fitquest.TagHeld || !z.Capture.IsCompleted || z.Capture.ProgressPercentage != 100 {
		t.Errorf("zone = %+v", z)
	}
	if snap.Stats.TotalPoints != z.Points || snap.Stats.MonthlyPoints != z.Points {
		t.Errorf("points = %d/%d, want %d", snap.Stats.TotalPoints, snap.Stats.MonthlyPoints, z.Points)
	}
	if snap.Stats.ZonesCaptured != 1 {
		t.Errorf("zonesCaptured = %d, want 1", snap.Stats.ZonesCaptured)
	}
	if snap.Session.IsCapturing {
		t.Error("session still active after completion")
	}
	a := snap.Activities[0]
	if a.Type != fitquest.ActivityZoneCapture || !strings.Contains(a.Description, "Successfully captured") {
		t.Errorf("activity = %+v", a)
	}
}

func TestAdvanceSessionCompletesOnce(t *testing.T) {
	e, _ := newEngine(t)
	if res := e.AdvanceSession(500); res.Accumulated {
		t.Fatal("steps accepted without a session")
	}

	e.StartCapture("z1")
	if res := e.AdvanceSession(9999); !res.Accumulated || res.Completed {
		t.Fatalf("9999 steps: %+v", res)
	}
	res := e.AdvanceSession(1)
	if !res.Completed || res.Capture.CompletedAt == nil {
		t.Fatalf("10000 steps: %+v", res)
	}
	if e.Session().IsCapturing {
		t.Error("session still active after completion")
	}

	e.StartCapture("z1")
	if res := e.AdvanceSession(300); res.Completed {
		t.Error("held zone credited again")
	}
	if got := e.Snapshot().Stats.ZonesCaptured; got != 1 {
		t.Errorf("zonesCaptured = %d, want 1", got)
	}
}

func TestAdvanceSessionOutsideZone(t *testing.T) {
	e, _ := newEngine(t)
	e.StartCapture("z1")
	e.SetOutsideZone(true)

	if res := e.AdvanceSession(12000); res.Accumulated || res.Completed {
		t.Errorf("steps counted outside the zone: %+v", res)
	}
}

func TestCompleteActiveCapture(t *testing.T) {
	e, _ := newEngine(t)

	e.StartCapture("z1")
	e.AddSteps("z1", 9999, true)
	if e.CompleteActiveCapture("z1") {
		t.Fatal("completed below the threshold")
	}
	e.AddSteps("z1", 1, true)
	if e.CompleteActiveCapture("z2") {
		t.Fatal("completed a zone outside the session")
	}
	if !e.CompleteActiveCapture("z1") {
		t.Fatal("completion refused at 10000 steps")
	}
	if e.CompleteActiveCapture("z1") {
		t.Error("second completion accepted without a session")
	}

	e.StartCapture("z1")
	if e.CompleteActiveCapture("z1") {
		t.Error("credited zone completed again")
	}
	snap := e.Snapshot()
	if snap.Stats.ZonesCaptured != 1 {
		t.Errorf("zonesCaptured = %d, want 1", snap.Stats.ZonesCaptured)
	}
}

func TestGraceResetMakesZoneCreditableAgain(t *testing.T) {
	e, clock := newEngine(t)
	e.StartCapture("z1")
	e.AddSteps("z1", 10000, true)
	e.CompleteActiveCapture("z1")

	e.StartCapture("z1")
	e.SetOutsideZone(true)
	clock.Advance(fitquest.GracePeriod + time.Second)
	if !e.CheckAndResetProgress("z1") {
		t.Fatal("grace period did not reset")
	}
	if z := mustZone(t, e, "z1"); z.Capture.Credited() || z.Tag != fitquest.TagInProgress {
		t.Fatalf("zone after reset = %+v", z)
	}

	e.StartCapture("z1")
	e.AddSteps("z1", 10000, true)
	if !e.CompleteActiveCapture("z1") {
		t.Error("rebuilt capture not creditable")
	}
	if got := e.Snapshot().Stats.ZonesCaptured; got != 2 {
		t.Errorf("zonesCaptured = %d, want 2", got)
	}
}

func TestCompleteZoneCaptureWithoutCaptureIsNoop(t *testing.T) {
	e, _ := newEngine(t)

	e.CompleteZoneCapture("z1")

	if got := e.Snapshot().Stats.TotalPoints; got != 0 {
		t.Errorf("points = %d, want 0", got)
	}
}

func TestCompleteZoneCaptureRunsMilestones(t *testing.T) {
	e, _ := newEngine(t)
	dist := 6.0
	e.UpdateUserStats(fitquest.StatsPatch{TotalDistance: &dist})
	e.StartCapture("z1")
	e.AddSteps("z1", 10000, true)

	e.CompleteZoneCapture("z1")

	for _, m := range e.Snapshot().Milestones {
		if m.ID == "m1" && !m.Unlocked {
			t.Error("5 km milestone not unlocked by completion")
		}
	}
}

func TestCheckAndUnlockMilestones(t *testing.T) {
	e, _ := newEngine(t)

	if got := e.CheckAndUnlockMilestones(); len(got) != 0 {
		t.Fatalf("unlocked %d at zero distance", len(got))
	}

	dist := 30.0
	e.UpdateUserStats(fitquest.StatsPatch{TotalDistance: &dist})
	got := e.CheckAndUnlockMilestones()
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "m2" {
		t.Fatalf("newly unlocked = %+v, want m1 and m2", got)
	}
	for _, m := range got {
		if !m.Unlocked {
			t.Errorf("returned milestone %s not marked unlocked", m.ID)
		}
	}

	if again := e.CheckAndUnlockMilestones(); len(again) != 0 {
		t.Errorf("re-emitted %d milestones", len(again))
	}

	// Lowering the distance never re-locks.
	zero := 0.0
	e.UpdateUserStats(fitquest.StatsPatch{TotalDistance: &zero})
	e.CheckAndUnlockMilestones()
	for _, m := range e.Snapshot().Milestones {
		if (m.ID == "m1" || m.ID == "m2") && !m.Unlocked {
			t.Errorf("milestone %s re-locked", m.ID)
		}
	}

	unlockActs := 0
	for _, a := range e.Snapshot().Activities {
		if a.Type == fitquest.ActivityMilestoneUnlocked {
			unlockActs++
		}
	}
	if unlockActs != 2 {
		t.Errorf("milestone activities = %d, want 2", unlockActs)
	}
}

func TestRedeemMilestone(t *testing.T) {
	codes := []string{"FITQUESTAAAAAA", "FITQUESTBBBBBB"}
	next := 0
	e, _ := newEngine(t, engine.WithPromoCodes(func() string {
		c := codes[next]
		next++
		return c
	}))

	if _, ok := e.RedeemMilestone("m1"); ok {
		t.Fatal("redeemed a locked milestone")
	}

	e.UnlockMilestone("m1")
	code, ok := e.RedeemMilestone("m1")
	if !ok || code != "FITQUESTAAAAAA" {
		t.Fatalf("redeem = %q, %v", code, ok)
	}

	again, ok := e.RedeemMilestone("m1")
	if !ok || again != code {
		t.Errorf("second redeem = %q, want original %q", again, code)
	}
	if next != 1 {
		t.Errorf("code generator called %d times, want 1", next)
	}

	var m fitquest.Milestone
	for _, x := range e.Snapshot().Milestones {
		if x.ID == "m1" {
			m = x
		}
	}
	if !m.Unlocked || !m.Redeemed || m.PromoCode != code {
		t.Errorf("milestone = %+v", m)
	}

	if _, ok := e.RedeemMilestone("missing"); ok {
		t.Error("redeemed unknown milestone")
	}
}

func TestDefaultPromoCodeFormat(t *testing.T) {
	e, _ := newEngine(t)
	e.UnlockMilestone("m2")

	code, ok := e.RedeemMilestone("m2")
	if !ok {
		t.Fatal("redeem failed")
	}
	rest, found := strings.CutPrefix(code, fitquest.PromoCodePrefix)
	if !found || len(rest) != 6 {
		t.Fatalf("code = %q, want prefix + 6 chars", code)
	}
	for _, r := range rest {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			t.Errorf("code %q has invalid char %q", code, r)
		}
	}
}

func TestSyncDistance(t *testing.T) {
	e, _ := newEngine(t)

	for _, bad := range []float64{0, -1} {
		if _, ok := e.SyncDistance(bad); ok {
			t.Errorf("SyncDistance(%v) accepted", bad)
		}
	}

	unlocked, ok := e.SyncDistance(5.5)
	if !ok {
		t.Fatal("SyncDistance rejected")
	}
	if len(unlocked) != 1 || unlocked[0].ID != "m1" {
		t.Errorf("unlocked = %+v, want m1", unlocked)
	}
	if got := e.Snapshot().Stats.TotalDistance; got != 5.5 {
		t.Errorf("distance = %v, want 5.5", got)
	}
}

func TestActivityLogNewestFirstAndLimited(t *testing.T) {
	e, _ := newEngine(t, engine.WithActivityLimit(3))

	for _, d := range []string{"a", "b", "c", "d"} {
		e.AddActivity(fitquest.ActivityInput{Type: fitquest.ActivityDistanceSync, Description: d})
	}

	acts := e.Snapshot().Activities
	if len(acts) != 3 {
		t.Fatalf("activities = %d, want 3", len(acts))
	}
	if acts[0].Description != "d" || acts[2].Description != "b" {
		t.Errorf("order = %s,%s,%s", acts[0].Description, acts[1].Description, acts[2].Description)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	e, _ := newEngine(t)
	e.StartCapture("z1")
	e.AddSteps("z1", 100, true)

	snap := e.Snapshot()
	snap.Zones[0].Capture.StepsAccumulated = 9999
	snap.Milestones[0].Unlocked = true

	if got := mustZone(t, e, "z1").Capture.StepsAccumulated; got != 100 {
		t.Errorf("engine steps = %d after mutating snapshot", got)
	}
	if e.Snapshot().Milestones[0].Unlocked {
		t.Error("engine milestone changed through snapshot")
	}
}

func TestRestoreDropsSession(t *testing.T) {
	e, clock := newEngine(t)
	e.StartCapture("z1")
	e.AddSteps("z1", 4200, true)

	restored := engine.Restore(e.Snapshot(), engine.WithClock(clock))

	if restored.Session().IsCapturing {
		t.Error("restored engine has an active session")
	}
	z := mustZone(t, restored, "z1")
	if z.Tag != fitquest.TagInProgress || z.Capture.StepsAccumulated != 4200 {
		t.Errorf("restored zone = %+v", z)
	}
	if restored.Player() != me {
		t.Errorf("player = %+v", restored.Player())
	}
}

func TestListenerReceivesEvents(t *testing.T) {
	var got []engine.EventType
	e, _ := newEngine(t, engine.WithListener(func(ev engine.Event) {
		got = append(got, ev.Type)
	}))

	e.StartCapture("z1")
	e.AddSteps("z1", 10, false)
	e.AddSteps("z1", 10, false)
	e.AddSteps("z1", 10, true)

	want := []engine.EventType{
		engine.EventCaptureStarted,
		engine.EventLeftZone,
		engine.EventActivityAdded,
		engine.EventReturnedToZone,
		engine.EventStepsAdded,
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestConcurrentActions(t *testing.T) {
	e, _ := newEngine(t)
	e.StartCapture("z1")

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				e.AddSteps("z1", 1, true)
				e.Snapshot()
			}
		}()
	}
	wg.Wait()

	if got := mustZone(t, e, "z1").Capture.StepsAccumulated; got != 1000 {
		t.Errorf("steps = %d, want 1000", got)
	}
}
