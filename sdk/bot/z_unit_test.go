package bot

import (
	"strings"
	"testing"

	"github.com/zintix-labs/clawlab/errs"
)

func sampleView() View {
	return View{
		X: 50, Y: 10, Phase: "idle", Coins: 3,
		Step: 5, MinBound: 10, MaxBound: 90, Tolerance: 15,
		Prizes: []PrizeView{
			{ID: 1, Kind: "plush", X: 80, Y: 60},
			{ID: 2, Kind: "coin", X: 40, Y: 20},
		},
	}
}

func TestRegistry(t *testing.T) {
	r := Default()
	if got := strings.Join(r.Names(), ","); got != "nearest,random,script" {
		t.Fatalf("names got %s", got)
	}
	if err := r.Register("nearest", buildNearest); err == nil {
		t.Fatalf("duplicate register should fail")
	}
	if _, err := r.Build("missing", Env{}); err == nil {
		t.Fatalf("unknown strategy should fail")
	}
	extra := NewStrategyRegistry()
	if err := extra.Register("idle", func(Env) (Strategy, error) { return nil, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	merged, err := MergeStrategyRegistry(r, nil, extra)
	if err != nil || !merged.IsExist("idle") || !merged.IsExist("nearest") {
		t.Fatalf("merge got err=%v", err)
	}
	if _, err := MergeStrategyRegistry(r, Default()); err == nil {
		t.Fatalf("merge with duplicates should fail")
	}
}

func TestNearestWalksThenGrabs(t *testing.T) {
	s, err := Default().Build("nearest", Env{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	v := sampleView()
	var path []Action
	for i := 0; i < 20; i++ {
		a, err := s.Next(v)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		path = append(path, a)
		if a == ActGrab {
			break
		}
		switch a {
		case ActLeft:
			v.X -= v.Step
		case ActRight:
			v.X += v.Step
		case ActUp:
			v.Y -= v.Step
		case ActDown:
			v.Y += v.Step
		}
	}
	want := []Action{ActLeft, ActLeft, ActDown, ActDown, ActGrab}
	if len(path) != len(want) {
		t.Fatalf("path got %v want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("path got %v want %v", path, want)
		}
	}
	v.Coins = 0
	if a, _ := s.Next(v); a != ActQuit {
		t.Fatalf("no coins should quit, got %s", a)
	}
}

func TestNearestKindsFilter(t *testing.T) {
	s, err := Default().Build("nearest", Env{Params: map[string]any{"kinds": []any{"plush"}}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a, _ := s.Next(sampleView())
	if a != ActRight {
		t.Fatalf("plush-only should head right, got %s", a)
	}
	if _, err := Default().Build("nearest", Env{Params: map[string]any{"bogus": 1}}); err == nil {
		t.Fatalf("unknown param should fail")
	}
}

func TestRandomDeterministic(t *testing.T) {
	r1, _ := Default().Build("random", Env{Seed: 9})
	r2, _ := Default().Build("random", Env{Seed: 9})
	v := sampleView()
	for i := 0; i < 50; i++ {
		a1, _ := r1.Next(v)
		a2, _ := r2.Next(v)
		if a1 != a2 {
			t.Fatalf("same seed diverged at %d", i)
		}
	}
}

func TestScriptStrategy(t *testing.T) {
	src := `
function next(v) {
  log("coins", v.coins, v.prizes.length);
  if (v.coins <= 0) return "quit";
  return v.prizes[0].x > v.x ? "right" : "grab";
}`
	s, err := Default().Build("script", Env{Params: map[string]any{"strategy": "script", "source": src}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a, err := s.Next(sampleView())
	if err != nil || a != ActRight {
		t.Fatalf("next got %s err=%v", a, err)
	}
	if logs := s.(*Script).Logs(); len(logs) != 1 || logs[0] != "coins 3 2" {
		t.Fatalf("logs got %v", logs)
	}
}

func TestScriptFromAsset(t *testing.T) {
	asset := func(name string) ([]byte, error) {
		if name != "picky.js" {
			return nil, errs.NotFoundf("asset %q not found", name)
		}
		return []byte(`function next(v){ return rand() < 2 ? "grab" : "quit" }`), nil
	}
	s, err := Default().Build("script", Env{Params: map[string]any{"script": "picky.js"}, Asset: asset})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if a, _ := s.Next(sampleView()); a != ActGrab {
		t.Fatalf("got %s want grab", a)
	}
	if _, err := Default().Build("script", Env{Params: map[string]any{"script": "none.js"}, Asset: asset}); err == nil {
		t.Fatalf("missing script should fail")
	}
}

func TestScriptSandboxAndErrors(t *testing.T) {
	cases := map[string]string{
		"no next":    `var x = 1;`,
		"syntax":     `function next( {`,
		"require":    `require("fs"); function next(){ return "grab" }`,
		"init loop":  `while (true) {}`,
		"not a func": `var next = 3;`,
	}
	for name, src := range cases {
		if _, err := NewScript(src, 1); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	s, err := NewScript(`function next(v){ return "dance" }`, 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := s.Next(sampleView()); err == nil {
		t.Fatalf("unknown action should fail")
	}
	loop, err := NewScript(`function next(v){ for(;;){} }`, 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := loop.Next(sampleView()); err == nil {
		t.Fatalf("runaway next should time out")
	}
}
