package spec

import (
	"time"

	"github.com/zintix-labs/clawlab/errs"
)

// GrabSetting 抓取判定參數。
//
// 有效機率 = clamp(base_rate + streak 加成 − 低幣懲罰, floor, ceiling)，只在最後夾一次。
type GrabSetting struct {
	Tolerance        float64 `yaml:"tolerance"          json:"tolerance"`
	Floor            float64 `yaml:"floor"              json:"floor"`
	Ceiling          float64 `yaml:"ceiling"            json:"ceiling"`
	BonusPerStreak   float64 `yaml:"bonus_per_streak"   json:"bonus_per_streak"`
	BonusCap         float64 `yaml:"bonus_cap"          json:"bonus_cap"`
	LowCoinThreshold int     `yaml:"low_coin_threshold" json:"low_coin_threshold"`
	LowCoinPenalty   float64 `yaml:"low_coin_penalty"   json:"low_coin_penalty"`
}

func DefaultGrabSetting() GrabSetting {
	return GrabSetting{
		Tolerance:        15,
		Floor:            0.3,
		Ceiling:          0.9,
		BonusPerStreak:   0.05,
		BonusCap:         0.2,
		LowCoinThreshold: 3,
		LowCoinPenalty:   0.1,
	}
}

func (g GrabSetting) valid() error {
	if g.Tolerance <= 0 {
		return errs.NewFatal("grab tolerance must be positive")
	}
	if g.Floor < 0 || g.Ceiling > 1 || g.Floor > g.Ceiling {
		return errs.Fatalf("invalid probability clamp [%v,%v]", g.Floor, g.Ceiling)
	}
	if g.BonusPerStreak < 0 || g.BonusCap < 0 || g.LowCoinPenalty < 0 || g.LowCoinThreshold < 0 {
		return errs.NewFatal("grab modifiers must be non-negative")
	}
	return nil
}

// ProgressSetting 代幣、連勝與 combo 參數。
//   - StreakStep：multiplier=streak 時，倍率 = 1 + StreakStep*(streak-1)
//   - StreakMilestone：streak 為其倍數時發出里程碑事件
type ProgressSetting struct {
	StartCoins        int     `yaml:"start_coins"        json:"start_coins"`
	MaxStreak         int     `yaml:"max_streak"         json:"max_streak"`
	ComboTimeoutMs    int     `yaml:"combo_timeout_ms"   json:"combo_timeout_ms"`
	StreakStep        float64 `yaml:"streak_step"        json:"streak_step"`
	StreakMilestone   int     `yaml:"streak_milestone"   json:"streak_milestone"`
	ConsolationChance float64 `yaml:"consolation_chance" json:"consolation_chance"`
	ConsolationPoints int     `yaml:"consolation_points" json:"consolation_points"`
}

func DefaultProgressSetting() ProgressSetting {
	return ProgressSetting{
		StartCoins:        10,
		MaxStreak:         10,
		ComboTimeoutMs:    5000,
		StreakStep:        0.5,
		StreakMilestone:   3,
		ConsolationChance: 0.1,
		ConsolationPoints: 5,
	}
}

func (p ProgressSetting) ComboTimeout() time.Duration {
	return time.Duration(p.ComboTimeoutMs) * time.Millisecond
}

func (p ProgressSetting) valid() error {
	if p.StartCoins < 0 {
		return errs.NewFatal("negative start_coins")
	}
	if p.MaxStreak < 1 || p.StreakMilestone < 1 {
		return errs.NewFatal("max_streak and streak_milestone must be >= 1")
	}
	if p.ComboTimeoutMs < 0 || p.StreakStep < 0 {
		return errs.NewFatal("negative combo_timeout_ms or streak_step")
	}
	if p.ConsolationChance < 0 || p.ConsolationChance > 1 || p.ConsolationPoints < 0 {
		return errs.NewFatal("invalid consolation setting")
	}
	return nil
}
