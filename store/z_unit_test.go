package store

import (
	"context"
	"testing"
	"time"

	"github.com/zintix-labs/clawlab"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/progress"
	"github.com/zintix-labs/clawlab/stats"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id, err := s.SaveSession(ctx, &SessionRecord{MachineID: 1001, MachineName: "classic", Player: "ann", Seed: 7, Coins: 10})
	if err != nil || id == "" {
		t.Fatalf("save got id=%q err=%v", id, err)
	}
	got, err := s.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ClosedAt != nil || got.Seed != 7 || got.MachineID != 1001 {
		t.Fatalf("open session got %+v", got)
	}
	st := progress.State{Coins: 2, Points: 180, Plays: 9, Wins: 3, BestStreak: 2, BestCombo: 2}
	if err := s.FinishSession(ctx, id, st, "snap"); err != nil {
		t.Fatalf("finish: %v", err)
	}
	got, _ = s.GetSession(ctx, id)
	if got.ClosedAt == nil || got.Points != 180 || got.CoreB64U != "snap" {
		t.Fatalf("finished session got %+v", got)
	}
	if err := s.FinishSession(ctx, "nope", st, ""); !errs.IsNotFound(err) {
		t.Fatalf("finish unknown got %v want not found", err)
	}
	if _, err := s.GetSession(ctx, "nope"); !errs.IsNotFound(err) {
		t.Fatalf("get unknown got %v want not found", err)
	}
}

func TestJournalRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id, _ := s.SaveSession(ctx, &SessionRecord{MachineID: 1, MachineName: "m", Seed: 1})
	cmds := []clawlab.Command{
		{Op: clawlab.OpMove, Dir: "left", Accepted: true},
		{Op: clawlab.OpGrab, At: 200 * time.Millisecond, Accepted: true},
		{Op: clawlab.OpCoins, N: 5, At: time.Second, Accepted: true},
	}
	if err := s.SaveJournal(ctx, id, cmds); err != nil {
		t.Fatalf("save journal: %v", err)
	}
	if err := s.SaveJournal(ctx, id, cmds[:2]); err != nil {
		t.Fatalf("overwrite journal: %v", err)
	}
	got, err := s.LoadJournal(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[1] != cmds[1] {
		t.Fatalf("journal got %+v", got)
	}
	if _, err := s.LoadJournal(ctx, "missing"); !errs.IsNotFound(err) {
		t.Fatalf("missing journal got %v", err)
	}
	if err := s.SaveJournal(ctx, "no-such-session", cmds); !errs.IsNotFound(err) {
		t.Fatalf("journal for unknown session got %v want not found", err)
	}
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	players := []struct {
		name   string
		points int
		plays  int
		finish bool
	}{
		{"a", 100, 10, true},
		{"b", 300, 12, true},
		{"c", 300, 8, true},
		{"d", 999, 5, false},
	}
	for _, p := range players {
		id, _ := s.SaveSession(ctx, &SessionRecord{MachineID: 1001, MachineName: "classic", Player: p.name})
		if p.finish {
			if err := s.FinishSession(ctx, id, progress.State{Points: p.points, Plays: p.plays}, ""); err != nil {
				t.Fatalf("finish: %v", err)
			}
		}
	}
	other, _ := s.SaveSession(ctx, &SessionRecord{MachineID: 1002, MachineName: "tokenrush", Player: "z"})
	s.FinishSession(ctx, other, progress.State{Points: 5000}, "")

	lb, err := s.Leaderboard(ctx, 1001, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []string{"c", "b", "a"}
	if len(lb) != len(want) {
		t.Fatalf("leaderboard got %+v", lb)
	}
	for i, w := range want {
		if lb[i].Player != w || lb[i].Rank != i+1 {
			t.Fatalf("rank %d got %+v want %s", i+1, lb[i], w)
		}
	}
	lb, _ = s.Leaderboard(ctx, 1001, 1)
	if len(lb) != 1 {
		t.Fatalf("limit 1 got %d", len(lb))
	}
}

func TestSimRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if _, err := s.SaveSimRun(ctx, &SimRun{MachineID: 1}); err == nil {
		t.Fatalf("missing report should fail")
	}
	rep := &stats.StatReport{Summary: &stats.SummaryReport{Players: 3, Plays: 30, Wins: 12}}
	rep.Done()
	id, err := s.SaveSimRun(ctx, &SimRun{MachineID: 1001, Strategy: "nearest", Seed: 42, UsedMs: 15, Report: rep})
	if err != nil || id == "" {
		t.Fatalf("save sim run got %q err=%v", id, err)
	}
	runs, err := s.ListSimRuns(ctx, 1001, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || runs[0].Plays != 30 || runs[0].WinRate != 0.4 || runs[0].Strategy != "nearest" {
		t.Fatalf("runs got %+v", runs)
	}
	if runs, _ := s.ListSimRuns(ctx, 7, 5); len(runs) != 0 {
		t.Fatalf("other machine got %+v", runs)
	}
}
