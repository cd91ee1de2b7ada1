package bot

import (
	"math"
	"slices"

	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/core"
	"github.com/zintix-labs/clawlab/spec"
)

// Params 機台設定中 bot 區段的完整欄位（嚴格解碼，未知欄位報錯）
//   - kinds：nearest 只鎖定這些種類，空代表全部
//   - grab_chance：random 每步下爪的機率
//   - script / source：script 策略的腳本檔名或原始碼
//   - max_actions：模擬時每位玩家的動作上限
type Params struct {
	Strategy   string   `yaml:"strategy"`
	Kinds      []string `yaml:"kinds"`
	GrabChance float64  `yaml:"grab_chance"`
	Script     string   `yaml:"script"`
	Source     string   `yaml:"source"`
	MaxActions int      `yaml:"max_actions"`
}

// DecodeParams 先填預設值再嚴格解碼
func DecodeParams(m map[string]any) (Params, error) {
	p := Params{Strategy: "nearest", GrabChance: 0.25, MaxActions: 500}
	if err := spec.DecodeStrict(m, &p); err != nil {
		return Params{}, err
	}
	if p.GrabChance < 0 || p.GrabChance > 1 || p.MaxActions <= 0 {
		return Params{}, errs.Warnf("invalid bot params: grab_chance=%v max_actions=%d", p.GrabChance, p.MaxActions)
	}
	return p, nil
}

// nearest 走到最近的獎品中心後下爪；X 軸先對齊再對齊 Y 軸。
type nearest struct {
	kinds []string
}

func buildNearest(env Env) (Strategy, error) {
	p, err := DecodeParams(env.Params)
	if err != nil {
		return nil, err
	}
	return &nearest{kinds: p.Kinds}, nil
}

func (n *nearest) Next(v View) (Action, error) {
	if v.Coins <= 0 {
		return ActQuit, nil
	}
	best, ok := n.target(v)
	if !ok {
		return ActGrab, nil
	}
	tx := clamp(best.X, v.MinBound, v.MaxBound)
	ty := clamp(best.Y, v.MinBound, v.MaxBound)
	half := v.Step / 2
	switch {
	case tx-v.X > half:
		return ActRight, nil
	case v.X-tx > half:
		return ActLeft, nil
	case ty-v.Y > half:
		return ActDown, nil
	case v.Y-ty > half:
		return ActUp, nil
	}
	return ActGrab, nil
}

func (n *nearest) target(v View) (PrizeView, bool) {
	var best PrizeView
	bestD := math.Inf(1)
	for _, p := range v.Prizes {
		if len(n.kinds) > 0 && !slices.Contains(n.kinds, p.Kind) {
			continue
		}
		d := math.Hypot(p.X-v.X, p.Y-v.Y)
		if d < bestD || (d == bestD && p.ID < best.ID) {
			best, bestD = p, d
		}
	}
	return best, !math.IsInf(bestD, 1)
}

// random 每一步以 grab_chance 下爪，否則隨機移動
type random struct {
	c      *core.Core
	chance float64
}

var moves = []Action{ActLeft, ActRight, ActUp, ActDown}

func buildRandom(env Env) (Strategy, error) {
	p, err := DecodeParams(env.Params)
	if err != nil {
		return nil, err
	}
	return &random{c: core.New(core.Default().New(env.Seed)), chance: p.GrabChance}, nil
}

func (r *random) Next(v View) (Action, error) {
	if v.Coins <= 0 {
		return ActQuit, nil
	}
	if r.c.Chance(r.chance) {
		return ActGrab, nil
	}
	return moves[r.c.IntN(len(moves))], nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
