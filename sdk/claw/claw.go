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

// Package claw 實作爪子的狀態機：移動、抓取流程、放開與緊急停止。
//
// 流程：
//   - 移動：Idle → Moving → Idle
//   - 抓取：Idle → Lowering → Grabbing → Rising → Returning → Idle → (settle) 回到 home
//
// 所有階段轉換都是透過 sched.Scheduler 排程的回呼，StateMachine 本身不加鎖；
// 持有者需以同一把鎖序列化指令與回呼（見 sched.Locked）。
package claw

import (
	"time"

	"github.com/zintix-labs/clawlab/sdk/event"
	"github.com/zintix-labs/clawlab/sdk/field"
	"github.com/zintix-labs/clawlab/sdk/grab"
	"github.com/zintix-labs/clawlab/sdk/progress"
	"github.com/zintix-labs/clawlab/sdk/sched"
	"github.com/zintix-labs/clawlab/spec"
)

// PhaseBoundaries 抓取流程各段在 GrabDuration 中的結束比例：
// 判定（→Grabbing）、→Rising、→Returning、抵達目標。
var PhaseBoundaries = [4]float64{0.4, 0.6, 0.8, 1.0}

const (
	ReasonOK          = "ok"
	ReasonBusy        = "busy"
	ReasonCannotPlay  = "cannot play"
	ReasonNoCoins     = "no coins"
	ReasonAtBoundary  = "at boundary"
	ReasonBadDir      = "unknown direction"
	ReasonNothingHeld = "nothing held"
	ReasonStopped     = "stopped"
)

// Outcome 指令結果。被拒絕不是錯誤：Accepted=false 並附上原因。
type Outcome struct {
	Accepted bool   `json:"accepted"`
	Changed  bool   `json:"changed"`
	Reason   string `json:"reason,omitempty"`
}

func reject(reason string) Outcome {
	return Outcome{Reason: reason}
}

var accepted = Outcome{Accepted: true, Changed: true, Reason: ReasonOK}

// Play 一次抓取流程結束時的彙整
type Play struct {
	Grab    grab.Result    `json:"grab"`
	Kind    spec.PrizeKind `json:"kind"`
	Win     *progress.Win  `json:"win,omitempty"`
	Miss    *progress.Miss `json:"miss,omitempty"`
	Dropped bool           `json:"dropped"`
}

// Deps StateMachine 需要的協作者，全部由 session 持有並傳入
type Deps struct {
	Field    *field.Field
	Tracker  *progress.Tracker
	Resolver *grab.Resolver
	Bus      *event.Bus
	Sched    sched.Scheduler
}

type StateMachine struct {
	cfg spec.ClawSetting
	d   Deps

	pos     field.Position
	phase   Phase
	target  field.Position
	held    *field.Prize
	dropped bool
	play    Play

	gen    uint64
	timers []sched.Timer

	// OnPlay 每次抓取流程走完時呼叫（緊急停止中斷的流程不算）
	OnPlay func(Play)
}

func New(cfg spec.ClawSetting, d Deps) *StateMachine {
	return &StateMachine{
		cfg:   cfg,
		d:     d,
		pos:   home(cfg),
		phase: Idle,
	}
}

func home(cfg spec.ClawSetting) field.Position {
	return field.Position(cfg.Home)
}

func (c *StateMachine) Position() field.Position { return c.pos }

func (c *StateMachine) Phase() Phase { return c.phase }

// Held 目前抓住的獎品 ID
func (c *StateMachine) Held() (int, bool) {
	if c.held == nil {
		return 0, false
	}
	return c.held.ID, true
}

// Busy 是否有排程中的流程（包含抓取後回 home 的 settle）
func (c *StateMachine) Busy() bool {
	return c.phase != Idle || c.d.Tracker.InFlight()
}

func (c *StateMachine) emit(e event.Event) {
	e.At = c.d.Sched.Now()
	e.X, e.Y = c.pos.X, c.pos.Y
	e.Phase = c.phase.String()
	c.d.Bus.Publish(e)
}

// after 排程一個屬於目前世代的回呼；世代變更（緊急停止、重置）後回呼一律失效。
func (c *StateMachine) after(d time.Duration, fn func()) {
	gen := c.gen
	t := c.d.Sched.AfterFunc(d, func() {
		if c.gen != gen {
			return
		}
		fn()
	})
	c.timers = append(c.timers, t)
}

func (c *StateMachine) cancelAll() {
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
	c.gen++
}

func (c *StateMachine) clamp(v float64) float64 {
	return max(c.cfg.MinBound, min(c.cfg.MaxBound, v))
}

// Move 沿單一軸移動一步。非 Idle、不能玩、或夾限後位置不變時拒絕。
func (c *StateMachine) Move(dir Direction) Outcome {
	if c.phase != Idle {
		return reject(ReasonBusy)
	}
	if !c.d.Tracker.CanPlay() {
		return reject(ReasonCannotPlay)
	}
	next := c.pos
	switch dir {
	case Left:
		next.X = c.clamp(next.X - c.cfg.Step)
	case Right:
		next.X = c.clamp(next.X + c.cfg.Step)
	case Up:
		next.Y = c.clamp(next.Y - c.cfg.Step)
	case Down:
		next.Y = c.clamp(next.Y + c.cfg.Step)
	default:
		return reject(ReasonBadDir)
	}
	if next == c.pos {
		return reject(ReasonAtBoundary)
	}
	c.pos = next
	c.phase = Moving
	c.d.Tracker.SetInFlight(true)
	c.emit(event.Event{Kind: event.ClawMoved})
	c.after(c.cfg.MoveDuration(), func() {
		c.phase = Idle
		c.timers = nil
		c.d.Tracker.SetInFlight(false)
	})
	return accepted
}

// Grab 扣一枚幣並啟動抓取流程。
func (c *StateMachine) Grab() Outcome {
	if c.phase != Idle {
		return reject(ReasonBusy)
	}
	if !c.d.Tracker.CanPlay() {
		if c.d.Tracker.Coins() <= 0 {
			return reject(ReasonNoCoins)
		}
		return reject(ReasonCannotPlay)
	}
	if !c.d.Tracker.SpendCoin() {
		return reject(ReasonNoCoins)
	}
	c.phase = Lowering
	c.dropped = false
	c.play = Play{}
	c.d.Tracker.SetInFlight(true)
	c.emit(event.Event{Kind: event.GrabStarted, Coins: c.d.Tracker.Coins()})

	total := c.cfg.GrabDuration()
	at := func(i int) time.Duration {
		return time.Duration(float64(total) * PhaseBoundaries[i])
	}
	c.after(at(0), c.resolve)
	c.after(at(1), func() { c.phase = Rising })
	c.after(at(2), c.startReturn)
	c.after(at(3), c.finish)
	return accepted
}

func (c *StateMachine) resolve() {
	res := c.d.Resolver.Resolve(c.pos)
	c.phase = Grabbing
	e := event.Event{Kind: event.GrabResolved, Success: res.Success, Reason: res.Reason}
	if res.Success && c.d.Field.SetGrabbed(res.Prize.ID, true) {
		c.held = res.Prize
		e.PrizeID = res.Prize.ID
		e.PrizeKind = res.Prize.Kind.String()
		c.play.Kind = res.Prize.Kind
	}
	c.play.Grab = res
	if res.Prize != nil {
		cp := *res.Prize
		c.play.Grab.Prize = &cp
	}
	c.emit(e)
}

func (c *StateMachine) startReturn() {
	c.phase = Returning
	if c.held != nil {
		c.target = field.Position(c.cfg.DropZone)
	} else {
		c.target = home(c.cfg)
	}
}

func (c *StateMachine) finish() {
	c.pos = c.target
	c.emit(event.Event{Kind: event.ClawMoved})

	play := c.play
	play.Dropped = c.dropped
	switch {
	case c.held != nil:
		p := c.held
		c.held = nil
		c.d.Field.MarkCollected(p.ID)
		w := c.d.Tracker.RecordWin(p.Kind)
		play.Win = &w
		c.emit(event.Event{
			Kind: event.PrizeCollected, PrizeID: p.ID, PrizeKind: p.Kind.String(),
			Points: w.Points, Coins: w.Coins, Level: w.Combo,
		})
		if w.ComboAchieved {
			c.emit(event.Event{Kind: event.ComboAchieved, Level: w.Combo})
		}
		if w.StreakMilestone {
			c.emit(event.Event{Kind: event.StreakMilestone, Level: w.Streak})
		}
		c.d.Field.RestockIfLow()
	case !c.dropped:
		m := c.d.Tracker.RecordMiss()
		play.Miss = &m
	}

	c.phase = Idle
	c.dropped = false
	c.after(c.cfg.SettleDelay(), c.settle)
	if c.OnPlay != nil {
		c.OnPlay(play)
	}
}

func (c *StateMachine) settle() {
	c.timers = nil
	c.d.Tracker.SetInFlight(false)
	h := home(c.cfg)
	if c.pos != h {
		c.pos = h
		c.emit(event.Event{Kind: event.ClawMoved})
	}
}

// Drop 放開抓住的獎品：原地放回場上、不給分，進度只記一次 drop。
// 沒抓東西時為成功的 no-op。
func (c *StateMachine) Drop() Outcome {
	if c.held == nil {
		return Outcome{Accepted: true, Reason: ReasonNothingHeld}
	}
	p := c.held
	c.held = nil
	c.dropped = true
	c.d.Field.Release(p.ID, c.pos)
	c.d.Tracker.RecordDrop()
	c.emit(event.Event{Kind: event.PrizeDropped, PrizeID: p.ID, PrizeKind: p.Kind.String()})
	return accepted
}

// EmergencyStop 任何狀態都可呼叫：取消所有排程、獎品放回原位（不算收取）、回到 Idle。
// 不改代幣與點數。
func (c *StateMachine) EmergencyStop() Outcome {
	changed := c.halt()
	c.emit(event.Event{Kind: event.EmergencyStop, Reason: ReasonStopped})
	return Outcome{Accepted: true, Changed: changed, Reason: ReasonStopped}
}

// Reset 不發事件的緊急停止，並把爪子放回 home。
func (c *StateMachine) Reset() {
	c.halt()
	c.pos = home(c.cfg)
}

func (c *StateMachine) halt() bool {
	changed := c.Busy() || c.held != nil
	c.cancelAll()
	if c.held != nil {
		c.d.Field.SetGrabbed(c.held.ID, false)
		c.held = nil
	}
	c.phase = Idle
	c.dropped = false
	c.play = Play{}
	c.d.Tracker.SetInFlight(false)
	return changed
}
