package spec

import (
	"fmt"
	"time"

	"github.com/zintix-labs/clawlab/errs"
)

// FieldSize 場地邊長（百分比座標）
const FieldSize = 100.0

// MID 機台編號
type MID uint

// Point 百分比座標
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// MachineSetting 包含啟動一台娃娃機所需的所有設定。
//
// 解碼前會先填入預設值，設定檔只需寫出要覆寫的欄位；prizes 必填。
type MachineSetting struct {
	MachineName string          `yaml:"machine_name" json:"machine_name"`
	MachineID   MID             `yaml:"machine_id"   json:"machine_id"`
	Field       FieldSetting    `yaml:"field"        json:"field"`
	Claw        ClawSetting     `yaml:"claw"         json:"claw"`
	Grab        GrabSetting     `yaml:"grab"         json:"grab"`
	Progress    ProgressSetting `yaml:"progress"     json:"progress"`
	Prizes      []PrizeSetting  `yaml:"prizes"       json:"prizes"`
	Bot         map[string]any  `yaml:"bot"          json:"bot"`
}

// FieldSetting 佈場參數
//   - RestockBelow：收走獎品後場上剩餘數量低於此值就補貨回初始總數，0 代表不補
type FieldSetting struct {
	Margin        float64 `yaml:"margin"         json:"margin"`
	OverlapBuffer float64 `yaml:"overlap_buffer" json:"overlap_buffer"`
	MaxAttempts   int     `yaml:"max_attempts"   json:"max_attempts"`
	RestockBelow  int     `yaml:"restock_below"  json:"restock_below"`
}

// ClawSetting 爪子移動與時序參數（毫秒）
type ClawSetting struct {
	Step     float64 `yaml:"step"      json:"step"`
	MinBound float64 `yaml:"min_bound" json:"min_bound"`
	MaxBound float64 `yaml:"max_bound" json:"max_bound"`
	Home     Point   `yaml:"home"      json:"home"`
	DropZone Point   `yaml:"drop_zone" json:"drop_zone"`
	MoveMs   int     `yaml:"move_ms"   json:"move_ms"`
	GrabMs   int     `yaml:"grab_ms"   json:"grab_ms"`
	SettleMs int     `yaml:"settle_ms" json:"settle_ms"`
}

func (c ClawSetting) MoveDuration() time.Duration {
	return time.Duration(c.MoveMs) * time.Millisecond
}

func (c ClawSetting) GrabDuration() time.Duration {
	return time.Duration(c.GrabMs) * time.Millisecond
}

func (c ClawSetting) SettleDelay() time.Duration {
	return time.Duration(c.SettleMs) * time.Millisecond
}

func DefaultFieldSetting() FieldSetting {
	return FieldSetting{Margin: 5, OverlapBuffer: 2, MaxAttempts: 50, RestockBelow: 2}
}

func DefaultClawSetting() ClawSetting {
	return ClawSetting{
		Step:     5,
		MinBound: 10,
		MaxBound: 90,
		Home:     Point{X: 50, Y: 10},
		DropZone: Point{X: 10, Y: 10},
		MoveMs:   200,
		GrabMs:   3000,
		SettleMs: 500,
	}
}

// Default 回傳一份可直接使用的預設機台（四種獎品各數個）。
func Default() *MachineSetting {
	ms := &MachineSetting{
		MachineName: "classic",
		MachineID:   1,
		Field:       DefaultFieldSetting(),
		Claw:        DefaultClawSetting(),
		Grab:        DefaultGrabSetting(),
		Progress:    DefaultProgressSetting(),
		Prizes: []PrizeSetting{
			{Kind: "plush", Rarity: "common", BaseRate: 0.5, RewardMin: 50, RewardMax: 100, Multiplier: "combo", Count: 4, RestockWeight: 40, Width: 8, Height: 8},
			{Kind: "coin", Rarity: "common", BaseRate: 0.6, CoinGrant: 2, Multiplier: "none", Count: 3, RestockWeight: 30, Width: 5, Height: 5},
			{Kind: "token", Rarity: "rare", BaseRate: 0.4, RewardMin: 100, RewardMax: 200, Multiplier: "streak", Count: 2, RestockWeight: 20, Width: 6, Height: 6},
			{Kind: "ball", Rarity: "uncommon", BaseRate: 0.45, RewardMin: 20, RewardMax: 40, Multiplier: "combo", Count: 3, RestockWeight: 10, Width: 7, Height: 7},
		},
	}
	if err := ms.init(); err != nil {
		panic(err)
	}
	return ms
}

// newWithDefaults 解碼前的起點：各段預設值已填好，prizes 為空。
func newWithDefaults() *MachineSetting {
	return &MachineSetting{
		Field:    DefaultFieldSetting(),
		Claw:     DefaultClawSetting(),
		Grab:     DefaultGrabSetting(),
		Progress: DefaultProgressSetting(),
	}
}

// Prize 依種類取得獎品設定
func (ms *MachineSetting) Prize(k PrizeKind) (*PrizeSetting, bool) {
	for i := range ms.Prizes {
		if ms.Prizes[i].KindID == k {
			return &ms.Prizes[i], true
		}
	}
	return nil, false
}

// init
func (ms *MachineSetting) init() error {
	for i := range ms.Prizes {
		if err := ms.Prizes[i].init(); err != nil {
			return err
		}
	}
	return ms.valid()
}

// valid 執行基本的設定檔檢查
func (ms *MachineSetting) valid() error {
	if ms.MachineName == "" {
		return errs.NewFatal("empty machine_name")
	}
	name := fmt.Sprintf("machine_name: %s", ms.MachineName)

	f := ms.Field
	if f.Margin < 0 || f.Margin*2 >= FieldSize || f.OverlapBuffer < 0 || f.MaxAttempts < 0 || f.RestockBelow < 0 {
		return errs.NewWithExtra(errs.Fatal, "invalid field setting", name)
	}

	c := ms.Claw
	if c.Step <= 0 || c.MinBound < 0 || c.MaxBound > FieldSize || c.MinBound >= c.MaxBound {
		return errs.NewWithExtra(errs.Fatal, fmt.Sprintf("invalid claw bounds [%v,%v] step %v", c.MinBound, c.MaxBound, c.Step), name)
	}
	if !c.inBounds(c.Home) || !c.inBounds(c.DropZone) {
		return errs.NewWithExtra(errs.Fatal, "home and drop_zone must lie inside claw bounds", name)
	}
	if c.MoveMs < 0 || c.GrabMs <= 0 || c.SettleMs < 0 {
		return errs.NewWithExtra(errs.Fatal, "invalid claw timing", name)
	}

	if err := ms.Grab.valid(); err != nil {
		return errs.WrapWithExtra(err, "invalid grab setting", name)
	}
	if err := ms.Progress.valid(); err != nil {
		return errs.WrapWithExtra(err, "invalid progress setting", name)
	}

	if len(ms.Prizes) == 0 {
		return errs.NewWithExtra(errs.Fatal, "empty prizes", name)
	}
	seen := map[PrizeKind]struct{}{}
	for i := range ms.Prizes {
		p := &ms.Prizes[i]
		if _, ok := seen[p.KindID]; ok {
			return errs.NewWithExtra(errs.Fatal, fmt.Sprintf("duplicate prize kind: %s", p.Kind), name)
		}
		seen[p.KindID] = struct{}{}
		if err := p.valid(f); err != nil {
			return errs.WrapWithExtra(err, "invalid prize setting", name)
		}
	}
	return nil
}

func (c ClawSetting) inBounds(p Point) bool {
	return p.X >= c.MinBound && p.X <= c.MaxBound && p.Y >= c.MinBound && p.Y <= c.MaxBound
}

// TotalCount 一次佈場的獎品總數
func (ms *MachineSetting) TotalCount() int {
	n := 0
	for _, p := range ms.Prizes {
		n += p.Count
	}
	return n
}
