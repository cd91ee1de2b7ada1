// Package progress 追蹤代幣、點數、連勝（streak）與 combo。
//
// 每個方法從呼叫端看都是原子的：狀態一次更新完才返回，不會有「扣了幣但還沒記局數」的中間態。
// Tracker 本身不加鎖，由 session 鎖序列化。
package progress

import (
	"math"
	"time"

	"github.com/zintix-labs/clawlab/sdk/core"
	"github.com/zintix-labs/clawlab/spec"
)

// Clock 取得目前時間（通常是 sched.Scheduler）
type Clock interface {
	Now() time.Time
}

// State 進度狀態與累計
type State struct {
	Coins        int       `json:"coins"`
	Points       int       `json:"points"`
	Streak       int       `json:"streak"`
	Combo        int       `json:"combo"`
	LastWin      time.Time `json:"last_win"`
	Plays        int       `json:"plays"`
	Wins         int       `json:"wins"`
	Misses       int       `json:"misses"`
	Drops        int       `json:"drops"`
	Consolations int       `json:"consolations"`
	CoinsWon     int       `json:"coins_won"`
	BestStreak   int       `json:"best_streak"`
	BestCombo    int       `json:"best_combo"`
	InFlight     bool      `json:"in_flight"`
}

// Win RecordWin 的結果
type Win struct {
	Kind            spec.PrizeKind `json:"kind"`
	Points          int            `json:"points"`
	Coins           int            `json:"coins"`
	Multiplier      float64        `json:"multiplier"`
	Combo           int            `json:"combo"`
	Streak          int            `json:"streak"`
	ComboAchieved   bool           `json:"combo_achieved"`
	StreakMilestone bool           `json:"streak_milestone"`
}

// Miss RecordMiss 的結果；Consolation 為安慰分（多半是 0）
type Miss struct {
	Consolation int `json:"consolation"`
}

// Modifiers 提供給抓取判定的加成與懲罰
type Modifiers struct {
	StreakBonus    float64 `json:"streak_bonus"`
	LowCoinPenalty float64 `json:"low_coin_penalty"`
}

type Tracker struct {
	cfg   spec.ProgressSetting
	grab  spec.GrabSetting
	kinds map[spec.PrizeKind]spec.PrizeSetting
	core  *core.Core
	clock Clock
	st    State
}

func New(ms *spec.MachineSetting, c *core.Core, clock Clock) *Tracker {
	kinds := make(map[spec.PrizeKind]spec.PrizeSetting, len(ms.Prizes))
	for _, p := range ms.Prizes {
		kinds[p.KindID] = p
	}
	t := &Tracker{
		cfg:   ms.Progress,
		grab:  ms.Grab,
		kinds: kinds,
		core:  c,
		clock: clock,
	}
	t.Reset()
	return t
}

// Reset 回到初始代幣，累計歸零
func (t *Tracker) Reset() {
	t.st = State{Coins: t.cfg.StartCoins}
}

// CanPlay coins > 0 且沒有進行中的動作
func (t *Tracker) CanPlay() bool {
	return t.st.Coins > 0 && !t.st.InFlight
}

func (t *Tracker) SetInFlight(v bool) {
	t.st.InFlight = v
}

func (t *Tracker) InFlight() bool {
	return t.st.InFlight
}

func (t *Tracker) Coins() int {
	return t.st.Coins
}

// SpendCoin 扣一枚幣並記一局；沒有幣時回傳 false 且不改任何狀態。
func (t *Tracker) SpendCoin() bool {
	if t.st.Coins <= 0 {
		return false
	}
	t.st.Coins--
	t.st.Plays++
	return true
}

// AddCoins 投幣；n <= 0 忽略
func (t *Tracker) AddCoins(n int) {
	if n > 0 {
		t.st.Coins += n
	}
}

func (t *Tracker) comboAlive(now time.Time) bool {
	return t.st.Combo > 0 && !t.st.LastWin.IsZero() && now.Sub(t.st.LastWin) <= t.cfg.ComboTimeout()
}

// RecordWin 更新 combo / streak 並發放獎勵。
//
// 獎勵 = (reward_min~reward_max 均勻整數 + coin_grant) × 倍率，倍率依獎品設定：
//   - combo：目前 combo 數
//   - streak：1 + streak_step*(streak-1)
//   - none：1
func (t *Tracker) RecordWin(kind spec.PrizeKind) Win {
	now := t.clock.Now()
	if t.comboAlive(now) {
		t.st.Combo++
	} else {
		t.st.Combo = 1
	}
	t.st.LastWin = now
	t.st.Streak = min(t.st.Streak+1, t.cfg.MaxStreak)

	ps := t.kinds[kind]
	mult := 1.0
	switch ps.MultiplyBy {
	case spec.MultCombo:
		mult = float64(t.st.Combo)
	case spec.MultStreak:
		mult = 1 + t.cfg.StreakStep*float64(t.st.Streak-1)
	}
	base := t.core.IntRange(ps.RewardMin, ps.RewardMax)
	w := Win{
		Kind:            kind,
		Points:          int(math.Round(float64(base) * mult)),
		Coins:           int(math.Round(float64(ps.CoinGrant) * mult)),
		Multiplier:      mult,
		Combo:           t.st.Combo,
		Streak:          t.st.Streak,
		ComboAchieved:   t.st.Combo >= 2,
		StreakMilestone: t.st.Streak%t.cfg.StreakMilestone == 0,
	}

	t.st.Points += w.Points
	t.st.Coins += w.Coins
	t.st.CoinsWon += w.Coins
	t.st.Wins++
	t.st.BestStreak = max(t.st.BestStreak, t.st.Streak)
	t.st.BestCombo = max(t.st.BestCombo, t.st.Combo)
	return w
}

// RecordMiss streak 與 combo 歸零；以固定低機率給安慰分，不影響之後的機率。
func (t *Tracker) RecordMiss() Miss {
	t.st.Streak = 0
	t.st.Combo = 0
	t.st.Misses++
	var m Miss
	if t.core.Chance(t.cfg.ConsolationChance) {
		m.Consolation = t.cfg.ConsolationPoints
		t.st.Points += m.Consolation
		t.st.Consolations++
	}
	return m
}

// RecordDrop 只計數，不算贏也不算輸
func (t *Tracker) RecordDrop() {
	t.st.Drops++
}

// Modifiers streak 加成 min(streak*bonus_per_streak, bonus_cap)，低於門檻時加上低幣懲罰。
func (t *Tracker) Modifiers() Modifiers {
	m := Modifiers{
		StreakBonus: math.Min(float64(t.st.Streak)*t.grab.BonusPerStreak, t.grab.BonusCap),
	}
	if t.st.Coins < t.grab.LowCoinThreshold {
		m.LowCoinPenalty = t.grab.LowCoinPenalty
	}
	return m
}

// Snapshot 回傳目前狀態；combo 逾時後讀作 0。
func (t *Tracker) Snapshot() State {
	s := t.st
	if !t.comboAlive(t.clock.Now()) {
		s.Combo = 0
	}
	return s
}
