package field

import (
	"testing"

	"github.com/zintix-labs/clawlab/sdk/core"
	"github.com/zintix-labs/clawlab/spec"
)

func newTestField(t *testing.T, ms *spec.MachineSetting, seed int64) *Field {
	t.Helper()
	f, err := New(ms, core.New(core.Default().New(seed)))
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	return f
}

// place 直接把獎品中心放在 (x,y)
func place(f *Field, id int, x, y float64) {
	p := f.byID[id]
	p.Pos = Position{X: x - p.W/2, Y: y - p.H/2}
}

func TestGenerateBounds(t *testing.T) {
	ms := spec.Default()
	f := newTestField(t, ms, 1)
	f.Generate()
	if got := len(f.Uncollected()); got != ms.TotalCount() {
		t.Fatalf("generated %d want %d", got, ms.TotalCount())
	}
	m := ms.Field.Margin
	for _, p := range f.Uncollected() {
		if p.Pos.X < m || p.Pos.X+p.W > spec.FieldSize-m || p.Pos.Y < m || p.Pos.Y+p.H > spec.FieldSize-m {
			t.Fatalf("prize %d out of bounds: %+v", p.ID, p)
		}
	}
	for i, p := range f.Uncollected() {
		if p.ID != i+1 {
			t.Fatalf("ids should be sequential, got %d at %d", p.ID, i)
		}
	}
}

func TestResolveOverlapsInvariant(t *testing.T) {
	ms := spec.Default()
	for seed := int64(0); seed < 20; seed++ {
		f := newTestField(t, ms, seed)
		passes, clean := f.Reset()
		if clean && f.Overlapping() != 0 {
			t.Fatalf("seed %d: clean reported with %d overlaps", seed, f.Overlapping())
		}
		if !clean && passes != ms.Field.MaxAttempts {
			t.Fatalf("seed %d: dirty result before exhausting attempts (%d)", seed, passes)
		}
	}
}

func TestResolveOverlapsEscapeHatch(t *testing.T) {
	ms := spec.Default()
	ms.Field.MaxAttempts = 5
	ms.Prizes = []spec.PrizeSetting{{
		Kind: "ball", KindID: spec.KindBall, BaseRate: 0.5, Count: 10, Width: 40, Height: 40,
	}}
	f := newTestField(t, ms, 3)
	passes, clean := f.Reset()
	if clean {
		t.Fatalf("10 prizes of size 40 cannot fit without overlap")
	}
	if passes != 5 {
		t.Fatalf("passes got %d want 5", passes)
	}
}

func TestPrizesInRangeOrder(t *testing.T) {
	f := newTestField(t, spec.Default(), 2)
	f.Generate()
	for _, p := range f.prizes {
		place(f, p.ID, 90, 90)
	}
	place(f, 3, 50, 50)
	place(f, 1, 55, 50)
	place(f, 2, 45, 50)
	place(f, 4, 60, 50)

	got := f.PrizesInRange(Position{X: 50, Y: 50}, 10)
	want := []int{3, 1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("in range got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("order at %d got %d want %d", i, got[i].ID, want[i])
		}
	}

	f.MarkCollected(3)
	f.SetGrabbed(1, true)
	got = f.PrizesInRange(Position{X: 50, Y: 50}, 10)
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 4 {
		t.Fatalf("collected/grabbed should be excluded, got %d", len(got))
	}
	if len(f.PrizesInRange(Position{X: 20, Y: 20}, 5)) != 0 {
		t.Fatalf("empty area should return nothing")
	}
}

func TestMarkCollectedIdempotent(t *testing.T) {
	f := newTestField(t, spec.Default(), 4)
	f.Generate()
	f.MarkCollected(2)
	f.MarkCollected(2)
	f.MarkCollected(999)
	p, _ := f.Get(2)
	if !p.Collected {
		t.Fatalf("prize 2 should be collected")
	}
	if f.SetGrabbed(2, true) {
		t.Fatalf("collected prize cannot be grabbed")
	}
	if f.Release(2, Position{X: 50, Y: 50}) {
		t.Fatalf("collected prize cannot be released")
	}
	if got := len(f.Uncollected()); got != spec.Default().TotalCount()-1 {
		t.Fatalf("uncollected got %d", got)
	}
}

func TestReleaseClamps(t *testing.T) {
	f := newTestField(t, spec.Default(), 5)
	f.Generate()
	f.SetGrabbed(1, true)
	if !f.Release(1, Position{X: 0, Y: 100}) {
		t.Fatalf("release failed")
	}
	p, _ := f.Get(1)
	if p.Grabbed {
		t.Fatalf("release should clear grabbed")
	}
	m := f.fs.Margin
	if p.Pos.X != m || p.Pos.Y != spec.FieldSize-p.H-m {
		t.Fatalf("release not clamped: %+v", p.Pos)
	}
}

func TestRestock(t *testing.T) {
	ms := spec.Default()
	f := newTestField(t, ms, 6)
	f.Reset()
	for _, p := range f.Uncollected() {
		f.MarkCollected(p.ID)
	}
	added := f.RestockIfLow()
	if added != ms.TotalCount() {
		t.Fatalf("restock added %d want %d", added, ms.TotalCount())
	}
	if f.Remaining() != ms.TotalCount() {
		t.Fatalf("remaining got %d", f.Remaining())
	}
	if f.RestockIfLow() != 0 {
		t.Fatalf("full field should not restock")
	}
	last := f.Uncollected()[f.Remaining()-1]
	if last.ID != 2*ms.TotalCount() {
		t.Fatalf("restocked ids should continue, got %d", last.ID)
	}
}

func TestRestockKeepsExistingPositions(t *testing.T) {
	ms := spec.Default()
	ms.Field.RestockBelow = 100
	f := newTestField(t, ms, 7)
	f.Reset()
	p1, _ := f.Get(1)
	// 放回的獎品與 1 號重疊
	f.SetGrabbed(2, true)
	f.Release(2, p1.Center())
	f.MarkCollected(3)

	before := make(map[int]Position)
	for _, p := range f.Uncollected() {
		before[p.ID] = p.Pos
	}
	if added := f.RestockIfLow(); added != 1 {
		t.Fatalf("restock added %d want 1", added)
	}
	for _, p := range f.Uncollected() {
		pos, ok := before[p.ID]
		if ok && pos != p.Pos {
			t.Fatalf("existing prize %d moved %+v -> %+v", p.ID, pos, p.Pos)
		}
	}
	if f.Remaining() != ms.TotalCount() {
		t.Fatalf("remaining got %d want %d", f.Remaining(), ms.TotalCount())
	}
}
