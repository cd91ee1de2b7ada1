// Package grab 決定一次抓取的結果。
//
// 有效機率 = clamp(base_rate + streakBonus − lowCoinPenalty, floor, ceiling)，只在最後夾一次；
// 範圍內沒有候選獎品時不擲骰。
package grab

import (
	"math"

	"github.com/zintix-labs/clawlab/sdk/core"
	"github.com/zintix-labs/clawlab/sdk/field"
	"github.com/zintix-labs/clawlab/sdk/progress"
	"github.com/zintix-labs/clawlab/spec"
)

const (
	ReasonNothingInReach = "nothing in reach"
	ReasonSlipped        = "slipped"
	ReasonCaught         = "caught"
)

// ModifierSource 通常是 *progress.Tracker
type ModifierSource interface {
	Modifiers() progress.Modifiers
}

// Result 抓取結果。沒有候選時 Prize 為 nil、Roll 為 -1。
type Result struct {
	Success     bool         `json:"success"`
	Prize       *field.Prize `json:"prize,omitempty"`
	Reason      string       `json:"reason"`
	Probability float64      `json:"probability"`
	Roll        float64      `json:"roll"`
	Distance    float64      `json:"distance"`
}

type Resolver struct {
	cfg   spec.GrabSetting
	base  map[spec.PrizeKind]float64
	field *field.Field
	mods  ModifierSource
	rng   core.RAND
}

// New rng 可替換成固定序列以便測試。
func New(ms *spec.MachineSetting, f *field.Field, mods ModifierSource, rng core.RAND) *Resolver {
	base := make(map[spec.PrizeKind]float64, len(ms.Prizes))
	for _, p := range ms.Prizes {
		base[p.KindID] = p.BaseRate
	}
	return &Resolver{cfg: ms.Grab, base: base, field: f, mods: mods, rng: rng}
}

// Probability 該種類目前的有效成功機率
func (r *Resolver) Probability(kind spec.PrizeKind) float64 {
	m := r.mods.Modifiers()
	p := r.base[kind] + m.StreakBonus - m.LowCoinPenalty
	return math.Max(r.cfg.Floor, math.Min(r.cfg.Ceiling, p))
}

// Resolve 取 tolerance 內最近的獎品（同距離取小 ID），擲一次 [0,1)。
// 不修改場上狀態，由呼叫端決定是否標記抓住。
func (r *Resolver) Resolve(pos field.Position) Result {
	cands := r.field.PrizesInRange(pos, r.cfg.Tolerance)
	if len(cands) == 0 {
		return Result{Reason: ReasonNothingInReach, Roll: -1}
	}
	target := cands[0]
	p := r.Probability(target.Kind)
	roll := r.rng.Float64()
	res := Result{
		Probability: p,
		Roll:        roll,
		Distance:    pos.Dist(target.Center()),
	}
	if roll < p {
		res.Success = true
		res.Prize = target
		res.Reason = ReasonCaught
		return res
	}
	res.Reason = ReasonSlipped
	return res
}
