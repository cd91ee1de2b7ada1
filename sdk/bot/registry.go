// Package bot 提供自動遊玩策略，給模擬器與壓測使用。
//
// 策略只看 View（爪子與場上狀態的唯讀快照）回傳下一個 Action，
// 不直接接觸 session，因此同一份紀錄可以用 Replay 重跑驗證。
package bot

import (
	"fmt"
	"sort"

	"github.com/zintix-labs/clawlab/errs"
)

// Action 策略輸出的下一步
type Action string

const (
	ActLeft  Action = "left"
	ActRight Action = "right"
	ActUp    Action = "up"
	ActDown  Action = "down"
	ActGrab  Action = "grab"
	ActDrop  Action = "drop"
	ActQuit  Action = "quit"
)

var actions = map[Action]struct{}{
	ActLeft: {}, ActRight: {}, ActUp: {}, ActDown: {}, ActGrab: {}, ActDrop: {}, ActQuit: {},
}

func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := actions[a]
	return a, ok
}

// IsMove 是否為移動
func (a Action) IsMove() bool {
	return a == ActLeft || a == ActRight || a == ActUp || a == ActDown
}

// PrizeView 策略看得到的獎品資訊（中心座標）
type PrizeView struct {
	ID     int     `json:"id"`
	Kind   string  `json:"kind"`
	Rarity string  `json:"rarity"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// View 策略的輸入
type View struct {
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Phase     string      `json:"phase"`
	Busy      bool        `json:"busy"`
	Coins     int         `json:"coins"`
	Points    int         `json:"points"`
	Streak    int         `json:"streak"`
	Combo     int         `json:"combo"`
	Step      float64     `json:"step"`
	MinBound  float64     `json:"min_bound"`
	MaxBound  float64     `json:"max_bound"`
	Tolerance float64     `json:"tolerance"`
	Prizes    []PrizeView `json:"prizes"`
}

// Strategy 自動遊玩策略。實作不需 goroutine-safe，每位模擬玩家各自 Build 一份。
type Strategy interface {
	Next(v View) (Action, error)
}

// Env Build 時提供的環境
//   - Seed：策略自己的亂數種子（與遊戲核心分開）
//   - Params：機台設定的 bot 區段
//   - Asset：讀取設定來源中的附檔（例如腳本），可為 nil
type Env struct {
	Seed   int64
	Params map[string]any
	Asset  func(name string) ([]byte, error)
}

// Builder 建立一份策略實例
type Builder func(env Env) (Strategy, error)

type StrategyRegistry struct {
	builders map[string]Builder
}

func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		builders: make(map[string]Builder, 8),
	}
}

// Default 內建 nearest / random / script
func Default() *StrategyRegistry {
	r := NewStrategyRegistry()
	_ = r.Register("nearest", buildNearest)
	_ = r.Register("random", buildRandom)
	_ = r.Register("script", buildScript)
	return r
}

func (r *StrategyRegistry) Register(name string, b Builder) error {
	if name == "" || b == nil {
		return errs.NewFatal("strategy name and builder required")
	}
	if _, ok := r.builders[name]; ok {
		return errs.NewFatal(fmt.Sprintf("duplicate strategy: %s", name))
	}
	r.builders[name] = b
	return nil
}

func (r *StrategyRegistry) Build(name string, env Env) (Strategy, error) {
	b, ok := r.builders[name]
	if !ok {
		return nil, errs.Warnf("strategy does not exist: %s", name)
	}
	return b(env)
}

func (r *StrategyRegistry) IsExist(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names 排序後的策略名稱
func (r *StrategyRegistry) Names() []string {
	out := make([]string, 0, len(r.builders))
	for k := range r.builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MergeStrategyRegistry 合併多個 registry；重複名稱一律視為錯誤。
func MergeStrategyRegistry(regs ...*StrategyRegistry) (*StrategyRegistry, error) {
	sr := NewStrategyRegistry()
	origin := make(map[string]int, 8)
	for i, r := range regs {
		if r == nil {
			continue
		}
		for name, b := range r.builders {
			if _, ok := sr.builders[name]; ok {
				return nil, errs.NewFatal(fmt.Sprintf("duplicate strategy %s (registry #%d and #%d)", name, origin[name], i))
			}
			sr.builders[name] = b
			origin[name] = i
		}
	}
	return sr, nil
}
