package progress

import (
	"testing"
	"time"

	"github.com/zintix-labs/clawlab/sdk/core"
	"github.com/zintix-labs/clawlab/sdk/sched"
	"github.com/zintix-labs/clawlab/spec"
)

func newTestTracker(ms *spec.MachineSetting) (*Tracker, *sched.Manual) {
	clk := sched.NewManual(time.Time{})
	return New(ms, core.New(core.Default().New(11)), clk), clk
}

func TestSpendCoin(t *testing.T) {
	ms := spec.Default()
	ms.Progress.StartCoins = 1
	tr, _ := newTestTracker(ms)
	if !tr.CanPlay() {
		t.Fatalf("should be able to play with 1 coin")
	}
	if !tr.SpendCoin() {
		t.Fatalf("spend should succeed")
	}
	s := tr.Snapshot()
	if s.Coins != 0 || s.Plays != 1 {
		t.Fatalf("after spend got coins=%d plays=%d", s.Coins, s.Plays)
	}
	if tr.SpendCoin() {
		t.Fatalf("spend with 0 coins must fail")
	}
	if after := tr.Snapshot(); after != s {
		t.Fatalf("failed spend changed state: %+v", after)
	}
	tr.AddCoins(2)
	tr.SetInFlight(true)
	if tr.CanPlay() {
		t.Fatalf("in-flight should block play")
	}
}

func TestRecordWinPlushRange(t *testing.T) {
	ms := spec.Default()
	tr, _ := newTestTracker(ms)
	w := tr.RecordWin(spec.KindPlush)
	if w.Points < 50 || w.Points > 100 {
		t.Fatalf("plush reward got %d want [50,100]", w.Points)
	}
	if w.Combo != 1 || w.Streak != 1 || w.ComboAchieved {
		t.Fatalf("first win got %+v", w)
	}
	if tr.Snapshot().Points != w.Points {
		t.Fatalf("points not applied")
	}
}

func TestComboWindow(t *testing.T) {
	ms := spec.Default()
	tr, clk := newTestTracker(ms)
	tr.RecordWin(spec.KindBall)
	clk.Advance(ms.Progress.ComboTimeout())
	w := tr.RecordWin(spec.KindBall)
	if w.Combo != 2 || !w.ComboAchieved {
		t.Fatalf("second win inside window got combo %d", w.Combo)
	}
	if w.Points < 2*20 || w.Points > 2*40 {
		t.Fatalf("combo x2 ball reward got %d", w.Points)
	}
	clk.Advance(ms.Progress.ComboTimeout() + time.Millisecond)
	if tr.Snapshot().Combo != 0 {
		t.Fatalf("expired combo should read 0")
	}
	w = tr.RecordWin(spec.KindBall)
	if w.Combo != 1 {
		t.Fatalf("win after timeout got combo %d want 1", w.Combo)
	}
	if w.Streak != 3 || w.StreakMilestone != true {
		t.Fatalf("third win streak got %d milestone=%v", w.Streak, w.StreakMilestone)
	}
	if s := tr.Snapshot(); s.BestCombo != 2 || s.BestStreak != 3 {
		t.Fatalf("bests got %+v", s)
	}
}

func TestMissResetsAndConsolation(t *testing.T) {
	ms := spec.Default()
	ms.Progress.ConsolationChance = 1
	tr, _ := newTestTracker(ms)
	tr.RecordWin(spec.KindCoin)
	tr.RecordWin(spec.KindCoin)
	before := tr.Snapshot().Points
	m := tr.RecordMiss()
	s := tr.Snapshot()
	if s.Streak != 0 || s.Combo != 0 {
		t.Fatalf("miss should reset streak/combo, got %+v", s)
	}
	if m.Consolation != ms.Progress.ConsolationPoints || s.Points != before+m.Consolation {
		t.Fatalf("consolation got %d points %d", m.Consolation, s.Points)
	}
	w := tr.RecordWin(spec.KindCoin)
	if w.Combo != 1 {
		t.Fatalf("win after miss got combo %d want 1", w.Combo)
	}
}

func TestStreakCapAndMultiplier(t *testing.T) {
	ms := spec.Default()
	ms.Progress.MaxStreak = 3
	tr, _ := newTestTracker(ms)
	var w Win
	for i := 0; i < 5; i++ {
		w = tr.RecordWin(spec.KindToken)
	}
	if w.Streak != 3 {
		t.Fatalf("streak cap got %d want 3", w.Streak)
	}
	if w.Multiplier != 1+ms.Progress.StreakStep*2 {
		t.Fatalf("streak multiplier got %v", w.Multiplier)
	}
	coinWin := tr.RecordWin(spec.KindCoin)
	if coinWin.Coins != 2 || coinWin.Points != 0 {
		t.Fatalf("coin prize got %+v", coinWin)
	}
}

func TestModifiers(t *testing.T) {
	ms := spec.Default()
	ms.Progress.StartCoins = 2
	tr, _ := newTestTracker(ms)
	m := tr.Modifiers()
	if m.StreakBonus != 0 || m.LowCoinPenalty != ms.Grab.LowCoinPenalty {
		t.Fatalf("low coin modifiers got %+v", m)
	}
	tr.AddCoins(10)
	for i := 0; i < 10; i++ {
		tr.RecordWin(spec.KindCoin)
	}
	m = tr.Modifiers()
	if m.StreakBonus != ms.Grab.BonusCap || m.LowCoinPenalty != 0 {
		t.Fatalf("capped modifiers got %+v", m)
	}
	tr.RecordDrop()
	if tr.Snapshot().Drops != 1 {
		t.Fatalf("drop not counted")
	}
}
