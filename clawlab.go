// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package clawlab 是娃娃機引擎的組裝入口。
//
// Clawlab 把機台目錄（catalog）、自動遊玩策略註冊表（bot）與亂數工廠（PRNGFactory）組在一起，
// 依機台 ID 產生 session（Machine）、模擬器（Simulator）或線上服務用的 Arcade。
package clawlab

import (
	"crypto/rand"
	"io/fs"
	"math"
	"math/big"
	"strings"
	"sync"

	"github.com/zintix-labs/clawlab/catalog"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/bot"
	"github.com/zintix-labs/clawlab/sdk/core"
	"github.com/zintix-labs/clawlab/sdk/sched"
	"github.com/zintix-labs/clawlab/spec"
)

// Configs 把一或多個設定來源打包成 New() 需要的參數。
func Configs(fsys ...fs.FS) []fs.FS {
	cfgs := make([]fs.FS, 0, len(fsys))
	for _, f := range fsys {
		if f != nil {
			cfgs = append(cfgs, f)
		}
	}
	return cfgs
}

// Strategies 把一或多個策略註冊表打包成 New() 需要的參數；重複名稱會在 New() 失敗。
func Strategies(regs ...*bot.StrategyRegistry) []*bot.StrategyRegistry {
	return regs
}

// Clawlab 是「組裝器（assembler）」與「運行入口（runtime entry）」：
//  1. Catalog：機台目錄，定義有哪些機台以及各自的設定檔。
//  2. StrategyRegistry：模擬用的自動遊玩策略。
//  3. PRNGFactory：亂數核心工廠，相同 seed 必須得到相同的遊戲。
//
// 使用流程分成兩階段：註冊（RegisterAll / Register）後 Freeze，之後才能建立 Machine。
//
//	lab, _ := clawlab.NewAuto(core.Default(), clawlab.Configs(demo.Configs), nil)
//	m, _ := lab.NewMachine(1001)
//	m.Move(claw.Left)
//	m.Grab()
type Clawlab struct {
	cat  *catalog.Catalog
	bots *bot.StrategyRegistry
	cf   core.PRNGFactory

	sumMu sync.Mutex
	sum   []catalog.Summary
}

// New 建立一個 Clawlab instance。bots 為空時使用 bot.Default()。
func New(cf core.PRNGFactory, cfgs []fs.FS, bots []*bot.StrategyRegistry) (*Clawlab, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	if len(bots) == 0 {
		bots = Strategies(bot.Default())
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	reg, err := bot.MergeStrategyRegistry(bots...)
	if err != nil {
		return nil, err
	}
	return &Clawlab{cat: cata, bots: reg, cf: cf}, nil
}

// NewAuto 註冊所有設定檔並 Freeze，直接進入執行階段。
func NewAuto(cf core.PRNGFactory, cfgs []fs.FS, bots []*bot.StrategyRegistry) (*Clawlab, error) {
	lab, err := New(cf, cfgs, bots)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (c *Clawlab) Register(ents ...catalog.Entry) error {
	return c.cat.Register(ents...)
}

// RegisterAll 解析所有設定來源中的機台設定後一次註冊。
//
//  1. Fail-fast：任何檔案解析或檢查失敗就回傳 error。
//  2. 原子性：全部通過才呼叫一次 Register，不會留下半套目錄。
//  3. 設定中 bot.strategy 指定的策略必須已註冊。
func (c *Clawlab) RegisterAll() error {
	found, err := c.cat.Discover()
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return errs.NewFatal("no config files found to register")
	}
	byID := map[spec.MID]string{}
	byName := map[string]string{}
	entries := make([]catalog.Entry, 0, len(found))
	for _, f := range found {
		cfg := f.Entry.ConfigName
		if prev, ok := byID[f.Entry.MID]; ok {
			return errs.Fatalf("duplicate machine id: %d (config=%s and %s)", f.Entry.MID, prev, cfg)
		}
		if _, ok := c.cat.GetByID(f.Entry.MID); ok {
			return errs.Fatalf("machine id already registered: %d (config=%s)", f.Entry.MID, cfg)
		}
		key := strings.ToLower(f.Entry.Name)
		if prev, ok := byName[key]; ok {
			return errs.Fatalf("duplicate machine name: %s (config=%s and %s)", key, prev, cfg)
		}
		if _, ok := c.cat.GetByName(key); ok {
			return errs.Fatalf("machine name already registered: %s (config=%s)", key, cfg)
		}
		if err := c.validBot(f.Setting); err != nil {
			return errs.WrapWithExtra(err, "invalid bot section", cfg)
		}
		byID[f.Entry.MID], byName[key] = cfg, cfg
		entries = append(entries, f.Entry)
	}
	return c.cat.Register(entries...)
}

func (c *Clawlab) validBot(ms *spec.MachineSetting) error {
	p, err := bot.DecodeParams(ms.Bot)
	if err != nil {
		return err
	}
	if !c.bots.IsExist(p.Strategy) {
		return errs.Fatalf("strategy not registered: %s", p.Strategy)
	}
	return nil
}

func (c *Clawlab) Freeze() {
	c.cat.Freeze()
}

func (c *Clawlab) EntryByID(id spec.MID) (catalog.Entry, bool) {
	return c.cat.GetByID(id)
}

func (c *Clawlab) EntryByName(name string) (catalog.Entry, bool) {
	return c.cat.GetByName(name)
}

func (c *Clawlab) IDs() []spec.MID {
	return c.cat.IDs()
}

func (c *Clawlab) All() []catalog.Entry {
	return c.cat.All()
}

// Strategies 已註冊的策略名稱
func (c *Clawlab) Strategies() []string {
	return c.bots.Names()
}

// Summary 所有機台的摘要；Freeze 後才可呼叫，結果會快取。
func (c *Clawlab) Summary() ([]catalog.Summary, error) {
	if !c.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	c.sumMu.Lock()
	defer c.sumMu.Unlock()
	if c.sum != nil {
		return c.sum, nil
	}
	sum, err := c.cat.Summaries()
	if err != nil {
		return nil, err
	}
	c.sum = sum
	return c.sum, nil
}

// Setting 依 ID 讀出機台設定
func (c *Clawlab) Setting(id spec.MID) (*spec.MachineSetting, error) {
	if !c.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return c.cat.MachineSettingByID(id)
}

// Asset 讀取設定來源中的附檔（例如 bot 腳本）
func (c *Clawlab) Asset(name string) ([]byte, error) {
	return c.cat.Cfg().ReadAsset(name)
}

// NewMachine 以 crypto/rand 產生的 seed 建立一個線上 session（真實時鐘）。
func (c *Clawlab) NewMachine(id spec.MID) (*Machine, error) {
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return c.NewMachineWithSeed(id, seed)
}

// NewMachineWithSeed 同一份設定 + 同一個 seed 得到相同的佈場與抓取結果。
func (c *Clawlab) NewMachineWithSeed(id spec.MID, seed int64) (*Machine, error) {
	ms, err := c.Setting(id)
	if err != nil {
		return nil, err
	}
	return newMachineWithSeed(ms, c.cf, sched.Real{}, seed)
}

// NewMachineByYAML 以外部設定建立 session；設定的 ID 與名稱必須對應目錄中的同一台機台。
func (c *Clawlab) NewMachineByYAML(raw []byte, seed int64) (*Machine, error) {
	ms, err := c.externalSetting(raw, false)
	if err != nil {
		return nil, err
	}
	return newMachineWithSeed(ms, c.cf, sched.Real{}, seed)
}

func (c *Clawlab) NewMachineByJSON(raw []byte, seed int64) (*Machine, error) {
	ms, err := c.externalSetting(raw, true)
	if err != nil {
		return nil, err
	}
	return newMachineWithSeed(ms, c.cf, sched.Real{}, seed)
}

func (c *Clawlab) externalSetting(raw []byte, isJSON bool) (*spec.MachineSetting, error) {
	if !c.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	var (
		ms  *spec.MachineSetting
		err error
	)
	if isJSON {
		ms, err = spec.GetMachineSettingByJSON(raw)
	} else {
		ms, err = spec.GetMachineSettingByYAML(raw)
	}
	if err != nil {
		return nil, errs.WrapWithExtra(errs.NewWarn("invalid machine setting"), "parse machine setting failed", err.Error())
	}
	if err := c.validCfg(ms); err != nil {
		return nil, err
	}
	return ms, nil
}

func (c *Clawlab) validCfg(ms *spec.MachineSetting) error {
	ent, ok := c.cat.GetByID(ms.MachineID)
	if !ok {
		return errs.NewWarn("machine id not exist")
	}
	ent2, ok := c.cat.GetByName(ms.MachineName)
	if !ok {
		return errs.NewWarn("machine name not exist")
	}
	if ent.MID != ent2.MID {
		return errs.NewWarn("machine id is not matched machine name")
	}
	if err := c.validBot(ms); err != nil {
		return errs.NewWithExtra(errs.Warn, "invalid bot section", err.Error())
	}
	return nil
}

func (c *Clawlab) NewSimulator(id spec.MID) (*Simulator, error) {
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return c.NewSimulatorWithSeed(id, seed)
}

func (c *Clawlab) NewSimulatorWithSeed(id spec.MID, seed int64) (*Simulator, error) {
	ms, err := c.Setting(id)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ms, c.bots, c.cf, c.Asset, seed)
}

func (c *Clawlab) NewSimulatorByYAML(raw []byte, seed int64) (*Simulator, error) {
	ms, err := c.externalSetting(raw, false)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ms, c.bots, c.cf, c.Asset, seed)
}

func (c *Clawlab) NewSimulatorByJSON(raw []byte, seed int64) (*Simulator, error) {
	ms, err := c.externalSetting(raw, true)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ms, c.bots, c.cf, c.Asset, seed)
}

// BuildArcade 進入線上服務階段：Freeze 目錄並建立 session 管理器。
func (c *Clawlab) BuildArcade(capacity int) (*Arcade, error) {
	c.Freeze()
	if len(c.cat.IDs()) == 0 {
		return nil, errs.NewFatal("no machines registered")
	}
	return newArcade(c, max(1, capacity), sched.Real{}), nil
}

func cryptoSeed() (int64, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return seed.Int64(), nil
}
