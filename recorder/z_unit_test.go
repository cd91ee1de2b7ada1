package recorder

import (
	"testing"

	"github.com/zintix-labs/clawlab/sdk/claw"
	"github.com/zintix-labs/clawlab/sdk/field"
	"github.com/zintix-labs/clawlab/sdk/grab"
	"github.com/zintix-labs/clawlab/sdk/progress"
	"github.com/zintix-labs/clawlab/spec"
)

func winPlay(kind spec.PrizeKind, points, coins int, combo bool) claw.Play {
	return claw.Play{
		Grab: grab.Result{Success: true, Reason: grab.ReasonCaught, Prize: &field.Prize{ID: 1, Kind: kind}},
		Kind: kind,
		Win:  &progress.Win{Kind: kind, Points: points, Coins: coins, Combo: 2, Streak: 2, ComboAchieved: combo},
	}
}

func missPlay(kind spec.PrizeKind, consolation int) claw.Play {
	return claw.Play{
		Grab: grab.Result{Reason: grab.ReasonSlipped, Prize: &field.Prize{ID: 2, Kind: kind}},
		Miss: &progress.Miss{Consolation: consolation},
	}
}

func emptyPlay() claw.Play {
	return claw.Play{Grab: grab.Result{Reason: grab.ReasonNothingInReach, Roll: -1}, Miss: &progress.Miss{}}
}

func TestRecordAndDone(t *testing.T) {
	r, err := NewPlayRecorder("m", 7, 5)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	r.Record(winPlay(spec.KindPlush, 80, 0, false))
	r.Record(winPlay(spec.KindCoin, 0, 2, true))
	r.Record(missPlay(spec.KindPlush, 5))
	r.Record(emptyPlay())
	r.Record(claw.Play{Grab: grab.Result{Success: true, Prize: &field.Prize{Kind: spec.KindBall}}, Dropped: true})

	rep := r.Done()
	s := rep.Summary
	if s.Plays != 5 || s.Wins != 2 || s.Misses != 2 || s.Drops != 1 || s.NothingInReach != 1 {
		t.Fatalf("summary counts got %+v", s)
	}
	if s.TotalPoints != 85 || s.CoinsWon != 2 || s.CoinsSpent != 5 || s.Consolations != 1 || s.Combos != 1 {
		t.Fatalf("summary totals got %+v", s)
	}
	if s.PointsSqSum != 80*80+5*5 {
		t.Fatalf("sq sum got %v", s.PointsSqSum)
	}
	if len(rep.Kinds) != 3 || rep.Kinds[0].Kind != "ball" || rep.Kinds[2].Kind != "plush" {
		t.Fatalf("kinds got %+v", rep.Kinds)
	}
	if p := rep.Kinds[2]; p.Attempts != 2 || p.Wins != 1 {
		t.Fatalf("plush got %+v", p)
	}
	sum := 0
	for _, c := range rep.Dist.Collect {
		sum += c
	}
	if sum != 5 || rep.Dist.Collect[0] != 3 {
		t.Fatalf("dist got %v", rep.Dist.Collect)
	}
	if _, err := NewPlayRecorder("m", 7, -1); err == nil {
		t.Fatalf("negative start coins should fail")
	}
}

func TestRecordWithPlayer(t *testing.T) {
	r, _ := NewPlayRecorder("m", 1, 2)
	if r.RecordWithPlayer(winPlay(spec.KindCoin, 0, 2, false), progress.State{Coins: 3, Plays: 1}) {
		t.Fatalf("player with coins should keep playing")
	}
	if !r.RecordWithPlayer(missPlay(spec.KindCoin, 0), progress.State{Coins: 0, Plays: 2}) {
		t.Fatalf("player without coins should leave")
	}
	rep := r.Done()
	if !rep.Player.Bust || rep.Player.Alive || rep.Player.MaxCoins != 3 || rep.Player.Plays != 2 {
		t.Fatalf("player got %+v", rep.Player)
	}
}

func TestMerge(t *testing.T) {
	a, _ := NewPlayRecorder("m", 1, 5)
	b, _ := NewPlayRecorder("m", 1, 5)
	a.Record(winPlay(spec.KindPlush, 60, 0, false))
	b.Record(winPlay(spec.KindPlush, 40, 0, false))
	b.Record(emptyPlay())
	b.Finish(progress.State{Coins: 3, BestStreak: 4})

	m, err := MergePlayRecorder([]*PlayRecorder{a, b})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	rep := m.Done()
	if rep.Summary.Players != 2 || rep.Summary.Plays != 3 || rep.Summary.TotalPoints != 100 || rep.Summary.BestStreak != 4 {
		t.Fatalf("merged got %+v", rep.Summary)
	}
	if rep.Player != nil {
		t.Fatalf("merged report should not carry player")
	}
	if k := rep.Kinds[0]; k.Attempts != 2 || k.Wins != 2 {
		t.Fatalf("merged kind got %+v", k)
	}

	c, _ := NewPlayRecorder("other", 2, 5)
	if _, err := MergePlayRecorder([]*PlayRecorder{a, c}); err == nil {
		t.Fatalf("merging different machines should fail")
	}
	if _, err := MergePlayRecorder(nil); err == nil {
		t.Fatalf("empty merge should fail")
	}
}
