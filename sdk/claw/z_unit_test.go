package claw

import (
	"testing"
	"time"

	"github.com/zintix-labs/clawlab/sdk/core"
	"github.com/zintix-labs/clawlab/sdk/event"
	"github.com/zintix-labs/clawlab/sdk/field"
	"github.com/zintix-labs/clawlab/sdk/grab"
	"github.com/zintix-labs/clawlab/sdk/progress"
	"github.com/zintix-labs/clawlab/sdk/sched"
	"github.com/zintix-labs/clawlab/spec"
)

type roll float64

func (r roll) Float64() float64 { return float64(r) }
func (r roll) Uint64() uint64   { return 0 }
func (r roll) UintN(uint) uint  { return 0 }
func (r roll) IntN(int) int     { return 0 }

type harness struct {
	ms     *spec.MachineSetting
	clk    *sched.Manual
	f      *field.Field
	tr     *progress.Tracker
	claw   *StateMachine
	events []event.Event
	plays  []Play
}

// newHarness 場上獎品全部移到右下角，抓取判定固定擲出 r
func newHarness(t *testing.T, coins int, r float64) *harness {
	t.Helper()
	ms := spec.Default()
	ms.Progress.StartCoins = coins
	ms.Progress.ConsolationChance = 0
	c := core.New(core.Default().New(5))
	clk := sched.NewManual(time.Time{})
	f, err := field.New(ms, c)
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	f.Reset()
	for _, p := range f.Uncollected() {
		f.Release(p.ID, field.Position{X: 90, Y: 90})
	}
	tr := progress.New(ms, c, clk)
	bus := event.NewBus()
	h := &harness{ms: ms, clk: clk, f: f, tr: tr}
	bus.Subscribe(func(e event.Event) { h.events = append(h.events, e) })
	h.claw = New(ms.Claw, Deps{
		Field:    f,
		Tracker:  tr,
		Resolver: grab.New(ms, f, tr, roll(r)),
		Bus:      bus,
		Sched:    clk,
	})
	h.claw.OnPlay = func(p Play) { h.plays = append(h.plays, p) }
	return h
}

func (h *harness) kinds() []event.Kind {
	out := make([]event.Kind, len(h.events))
	for i, e := range h.events {
		out[i] = e.Kind
	}
	return out
}

func (h *harness) grabDur() time.Duration { return h.ms.Claw.GrabDuration() }

func frac(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}

func TestMoveStaysInBounds(t *testing.T) {
	h := newHarness(t, 5, 0.99)
	dirs := []Direction{Left, Left, Up, Down, Right, Down, Down, Left}
	lo, hi := h.ms.Claw.MinBound, h.ms.Claw.MaxBound
	for i := 0; i < 200; i++ {
		h.claw.Move(dirs[i%len(dirs)])
		h.clk.Advance(h.ms.Claw.MoveDuration())
		p := h.claw.Position()
		if p.X < lo || p.X > hi || p.Y < lo || p.Y > hi {
			t.Fatalf("position out of bounds: %+v", p)
		}
	}
	if h.tr.Snapshot().Coins != 5 {
		t.Fatalf("moving must not spend coins")
	}
}

func TestMoveRejections(t *testing.T) {
	h := newHarness(t, 5, 0.99)
	if out := h.claw.Move(Up); out.Accepted || out.Reason != ReasonAtBoundary {
		t.Fatalf("move into boundary got %+v", out)
	}
	if out := h.claw.Move(Left); !out.Accepted || h.claw.Phase() != Moving {
		t.Fatalf("move left got %+v phase %v", out, h.claw.Phase())
	}
	pos := h.claw.Position()
	if out := h.claw.Move(Left); out.Accepted || out.Reason != ReasonBusy {
		t.Fatalf("move while moving got %+v", out)
	}
	if out := h.claw.Grab(); out.Accepted || out.Reason != ReasonBusy {
		t.Fatalf("grab while moving got %+v", out)
	}
	if h.claw.Position() != pos || h.tr.Snapshot().Coins != 5 {
		t.Fatalf("rejected command changed state")
	}
	h.clk.Advance(h.ms.Claw.MoveDuration())
	if h.claw.Phase() != Idle || h.tr.InFlight() {
		t.Fatalf("should be idle after move duration")
	}
	if out := h.claw.Move(Direction(99)); out.Accepted {
		t.Fatalf("unknown direction accepted")
	}
}

func TestGrabNothingInReach(t *testing.T) {
	h := newHarness(t, 5, 0)
	if out := h.claw.Grab(); !out.Accepted {
		t.Fatalf("grab rejected: %+v", out)
	}
	if got := h.tr.Snapshot().Coins; got != 4 {
		t.Fatalf("coins got %d want 4", got)
	}
	h.clk.Advance(h.grabDur())
	s := h.tr.Snapshot()
	if s.Streak != 0 || s.Combo != 0 || s.Misses != 1 || s.Coins != 4 {
		t.Fatalf("after miss got %+v", s)
	}
	var resolved *event.Event
	for i := range h.events {
		if h.events[i].Kind == event.GrabResolved {
			resolved = &h.events[i]
		}
	}
	if resolved == nil || resolved.Success || resolved.Reason != grab.ReasonNothingInReach {
		t.Fatalf("grab-resolved got %+v", resolved)
	}
	if len(h.plays) != 1 || h.plays[0].Miss == nil {
		t.Fatalf("play summary got %+v", h.plays)
	}
}

func TestGrabPhaseTimeline(t *testing.T) {
	h := newHarness(t, 5, 0)
	home := h.claw.Position()
	h.f.Release(1, home)
	g := h.grabDur()

	h.claw.Grab()
	steps := []struct {
		at   time.Duration
		want Phase
	}{
		{frac(g, 0.4) - time.Millisecond, Lowering},
		{frac(g, 0.4), Grabbing},
		{frac(g, 0.6), Rising},
		{frac(g, 0.8), Returning},
		{g, Idle},
	}
	elapsed := time.Duration(0)
	for _, s := range steps {
		h.clk.Advance(s.at - elapsed)
		elapsed = s.at
		if h.claw.Phase() != s.want {
			t.Fatalf("at %v phase got %v want %v", s.at, h.claw.Phase(), s.want)
		}
	}

	p, _ := h.f.Get(1)
	if !p.Collected {
		t.Fatalf("prize should be collected")
	}
	if got := h.claw.Position(); got != field.Position(h.ms.Claw.DropZone) {
		t.Fatalf("claw should rest at drop zone, got %+v", got)
	}
	s := h.tr.Snapshot()
	if s.Points < 50 || s.Points > 100 || s.Wins != 1 {
		t.Fatalf("plush win got points=%d wins=%d", s.Points, s.Wins)
	}
	if len(h.f.PrizesInRange(home, 100)) != h.ms.TotalCount()-1 {
		t.Fatalf("collected prize still in range")
	}
	if h.claw.Move(Left).Accepted {
		t.Fatalf("move during settle should be rejected")
	}
	h.clk.Advance(h.ms.Claw.SettleDelay())
	if h.claw.Position() != home || h.claw.Busy() {
		t.Fatalf("settle should return home, got %+v busy=%v", h.claw.Position(), h.claw.Busy())
	}
	want := []event.Kind{event.GrabStarted, event.GrabResolved, event.ClawMoved, event.PrizeCollected, event.ClawMoved}
	got := h.kinds()
	if len(got) != len(want) {
		t.Fatalf("events got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events got %v want %v", got, want)
		}
	}
}

func TestGrabRejectedWithoutCoins(t *testing.T) {
	h := newHarness(t, 0, 0)
	out := h.claw.Grab()
	if out.Accepted || out.Reason != ReasonNoCoins {
		t.Fatalf("grab with 0 coins got %+v", out)
	}
	if h.claw.Phase() != Idle || h.tr.Snapshot().Plays != 0 || len(h.events) != 0 {
		t.Fatalf("rejected grab had side effects")
	}
	if h.claw.Move(Left).Accepted {
		t.Fatalf("move without coins should be rejected")
	}
}

func TestDropWhileHolding(t *testing.T) {
	h := newHarness(t, 5, 0)
	h.f.Release(1, h.claw.Position())
	if out := h.claw.Drop(); !out.Accepted || out.Changed || out.Reason != ReasonNothingHeld {
		t.Fatalf("idle drop got %+v", out)
	}
	h.claw.Grab()
	h.clk.Advance(frac(h.grabDur(), 0.6))
	if _, ok := h.claw.Held(); !ok {
		t.Fatalf("should hold a prize")
	}
	if out := h.claw.Drop(); !out.Accepted || !out.Changed {
		t.Fatalf("drop got %+v", out)
	}
	if out := h.claw.Drop(); out.Changed {
		t.Fatalf("second drop should be a no-op")
	}
	h.clk.Advance(h.grabDur())
	p, _ := h.f.Get(1)
	if p.Collected || p.Grabbed {
		t.Fatalf("dropped prize should be back in play: %+v", p)
	}
	s := h.tr.Snapshot()
	if s.Drops != 1 || s.Misses != 0 || s.Wins != 0 || s.Points != 0 {
		t.Fatalf("drop bookkeeping got %+v", s)
	}
	if h.claw.Position() != field.Position(h.ms.Claw.Home) {
		t.Fatalf("empty claw should return home")
	}
}

func TestEmergencyStopMidGrab(t *testing.T) {
	h := newHarness(t, 5, 0)
	h.f.Release(1, h.claw.Position())
	orig, _ := h.f.Get(1)
	h.claw.Grab()
	h.clk.Advance(frac(h.grabDur(), 0.7))
	before := h.tr.Snapshot()

	out := h.claw.EmergencyStop()
	if !out.Accepted || !out.Changed {
		t.Fatalf("stop got %+v", out)
	}
	n := len(h.events)
	h.clk.Advance(10 * h.grabDur())
	if len(h.events) != n {
		t.Fatalf("stale callbacks fired: %v", h.kinds()[n:])
	}
	p, _ := h.f.Get(1)
	if p.Collected || p.Grabbed || p.Pos != orig.Pos {
		t.Fatalf("prize not restored: %+v", p)
	}
	after := h.tr.Snapshot()
	if after.Coins != before.Coins || after.Points != before.Points || after.Misses != 0 || after.InFlight {
		t.Fatalf("stop changed progression: %+v", after)
	}
	if h.claw.Phase() != Idle || h.clk.Pending() != 0 {
		t.Fatalf("phase %v pending %d", h.claw.Phase(), h.clk.Pending())
	}
	if h.events[n-1].Kind != event.EmergencyStop {
		t.Fatalf("last event got %v", h.events[n-1].Kind)
	}
	if !h.claw.Grab().Accepted {
		t.Fatalf("should accept a new grab after stop")
	}
}

func TestComboAndStreakEvents(t *testing.T) {
	h := newHarness(t, 10, 0)
	ids := []int{1, 2}
	for _, id := range ids {
		h.f.Release(id, h.claw.Position())
		h.claw.Grab()
		h.clk.Advance(h.grabDur() + h.ms.Claw.SettleDelay())
	}
	var combo, milestone bool
	for _, e := range h.events {
		switch e.Kind {
		case event.ComboAchieved:
			combo = e.Level == 2
		case event.StreakMilestone:
			milestone = true
		}
	}
	if !combo {
		t.Fatalf("two quick wins should raise combo-achieved level 2: %v", h.kinds())
	}
	if milestone {
		t.Fatalf("streak 2 is not a multiple of %d", h.ms.Progress.StreakMilestone)
	}
}
