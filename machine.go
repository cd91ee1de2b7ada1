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

package clawlab

import (
	"sync"
	"time"

	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/bot"
	"github.com/zintix-labs/clawlab/sdk/claw"
	"github.com/zintix-labs/clawlab/sdk/core"
	"github.com/zintix-labs/clawlab/sdk/event"
	"github.com/zintix-labs/clawlab/sdk/field"
	"github.com/zintix-labs/clawlab/sdk/grab"
	"github.com/zintix-labs/clawlab/sdk/progress"
	"github.com/zintix-labs/clawlab/sdk/sched"
	"github.com/zintix-labs/clawlab/spec"
)

// Op 指令種類（記錄在 Journal 中）
type Op string

const (
	OpMove  Op = "move"
	OpGrab  Op = "grab"
	OpDrop  Op = "drop"
	OpReset Op = "reset"
	OpStop  Op = "stop"
	OpCoins Op = "coins"
)

// Command 一筆玩家指令。At 為相對於 session 開始的時間，Accepted 為當時的結果。
type Command struct {
	Op       Op            `json:"op"`
	Dir      string        `json:"dir,omitempty"`
	N        int           `json:"n,omitempty"`
	At       time.Duration `json:"at"`
	Accepted bool          `json:"accepted"`
}

// SessionState 對外的完整狀態快照
type SessionState struct {
	MachineID   spec.MID       `json:"machine_id"`
	MachineName string         `json:"machine_name"`
	Seed        int64          `json:"seed"`
	Position    field.Position `json:"position"`
	Phase       claw.Phase     `json:"phase"`
	Busy        bool           `json:"busy"`
	HeldID      int            `json:"held_id,omitempty"`
	Progress    progress.State `json:"progress"`
	Prizes      []field.Prize  `json:"prizes"`
	Remaining   int            `json:"remaining"`
}

// Machine 封裝一台娃娃機 session。
//
// 你可以把 Machine 視為四個核心元件的「外殼（shell）」：
//   - 對外：提供指令（Move/Grab/Drop/Reset/EmergencyStop/InsertCoins）與查詢。
//   - 對內：持有 RNG（Core）、PrizeField、ProgressionTracker、GrabResolver 與 ClawStateMachine。
//
// 並發語意：
//   - 所有公開方法都會取得 session 鎖；排程器以 sched.Locked 包裝，階段回呼也取同一把鎖。
//   - 因此任何時刻只有一個 mutator，查詢看到的一定是完整更新後的狀態。
//   - Subscribe 的 handler 在鎖內同步執行，不可回頭呼叫 Machine 的方法。
//
// initseed 記錄出生時的 seed；搭配 Journal 可以用 Replay 完整重現一個 session。
type Machine struct {
	name     string
	id       spec.MID
	ms       *spec.MachineSetting
	mu       sync.Mutex
	sc       sched.Scheduler
	start    time.Time
	core     *core.Core
	field    *field.Field
	tracker  *progress.Tracker
	resolver *grab.Resolver
	claw     *claw.StateMachine
	bus      *event.Bus
	initseed int64
	journal  []Command
	hook     func(claw.Play, progress.State)
}

// newMachineWithSeed 以指定 seed 與排程器建立 session。
//
// 同一份 MachineSetting + 同一個 seed + 同一串指令時序，會得到一致的佈場與抓取結果。
func newMachineWithSeed(ms *spec.MachineSetting, cf core.PRNGFactory, clock sched.Scheduler, seed int64) (*Machine, error) {
	if ms == nil {
		return nil, errs.NewFatal("machine setting required")
	}
	if clock == nil {
		return nil, errs.NewFatal("scheduler required")
	}
	m := &Machine{
		name:     ms.MachineName,
		id:       ms.MachineID,
		ms:       ms,
		core:     core.New(cf.New(seed)),
		bus:      event.NewBus(),
		initseed: seed,
	}
	m.sc = sched.Locked(clock, &m.mu)
	m.start = clock.Now()

	var err error
	m.field, err = field.New(ms, m.core)
	if err != nil {
		return nil, err
	}
	m.field.Reset()
	m.tracker = progress.New(ms, m.core, m.sc)
	m.resolver = grab.New(ms, m.field, m.tracker, m.core)
	m.claw = claw.New(ms.Claw, claw.Deps{
		Field:    m.field,
		Tracker:  m.tracker,
		Resolver: m.resolver,
		Bus:      m.bus,
		Sched:    m.sc,
	})
	m.claw.OnPlay = func(p claw.Play) {
		if m.hook != nil {
			m.hook(p, m.tracker.Snapshot())
		}
	}
	return m, nil
}

func (m *Machine) log(op Op, dir string, n int, accepted bool) {
	m.journal = append(m.journal, Command{
		Op:       op,
		Dir:      dir,
		N:        n,
		At:       m.sc.Now().Sub(m.start),
		Accepted: accepted,
	})
}

// Move 沿單一軸移動一步
func (m *Machine) Move(dir claw.Direction) claw.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.claw.Move(dir)
	m.log(OpMove, dir.String(), 0, out.Accepted)
	return out
}

// Grab 扣一枚幣並開始抓取
func (m *Machine) Grab() claw.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.claw.Grab()
	m.log(OpGrab, "", 0, out.Accepted)
	return out
}

// Drop 放開抓住的獎品；沒抓東西時為成功的 no-op
func (m *Machine) Drop() claw.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.claw.Drop()
	m.log(OpDrop, "", 0, out.Accepted)
	return out
}

// EmergencyStop 任何狀態都可呼叫
func (m *Machine) EmergencyStop() claw.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.claw.EmergencyStop()
	m.log(OpStop, "", 0, out.Accepted)
	return out
}

// Reset 停止所有流程、重新佈場並還原進度，發出 game-reset。
func (m *Machine) Reset() claw.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claw.Reset()
	m.field.Reset()
	m.tracker.Reset()
	pos := m.claw.Position()
	m.bus.Publish(event.Event{
		Kind:  event.GameReset,
		At:    m.sc.Now(),
		X:     pos.X,
		Y:     pos.Y,
		Phase: m.claw.Phase().String(),
		Coins: m.tracker.Coins(),
	})
	m.log(OpReset, "", 0, true)
	return claw.Outcome{Accepted: true, Changed: true, Reason: claw.ReasonOK}
}

// InsertCoins 投幣。n 必須為正數。
func (m *Machine) InsertCoins(n int) error {
	if n <= 0 {
		return errs.Warnf("coins must be positive, got %d", n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracker.AddCoins(n)
	m.log(OpCoins, "", n, true)
	return nil
}

// Apply 依 Command 分派指令（Replay 與 HTTP 共用）
func (m *Machine) Apply(c Command) (claw.Outcome, error) {
	switch c.Op {
	case OpMove:
		dir, ok := claw.ParseDirection(c.Dir)
		if !ok {
			return claw.Outcome{}, errs.Warnf("unknown direction %q", c.Dir)
		}
		return m.Move(dir), nil
	case OpGrab:
		return m.Grab(), nil
	case OpDrop:
		return m.Drop(), nil
	case OpStop:
		return m.EmergencyStop(), nil
	case OpReset:
		return m.Reset(), nil
	case OpCoins:
		if err := m.InsertCoins(c.N); err != nil {
			return claw.Outcome{}, err
		}
		return claw.Outcome{Accepted: true, Changed: true, Reason: claw.ReasonOK}, nil
	}
	return claw.Outcome{}, errs.Warnf("unknown op %q", c.Op)
}

// ApplyAction 把 bot 的動作轉成指令；quit 不是指令，回傳 false。
func (m *Machine) ApplyAction(a bot.Action) (claw.Outcome, bool) {
	switch {
	case a.IsMove():
		dir, _ := claw.ParseDirection(string(a))
		return m.Move(dir), true
	case a == bot.ActGrab:
		return m.Grab(), true
	case a == bot.ActDrop:
		return m.Drop(), true
	}
	return claw.Outcome{}, false
}

func (m *Machine) Position() field.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claw.Position()
}

func (m *Machine) Phase() claw.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claw.Phase()
}

// Progress 進度快照
func (m *Machine) Progress() progress.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.Snapshot()
}

// Prizes 未收取的獎品（依 ID 排序）
func (m *Machine) Prizes() []field.Prize {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.field.Uncollected()
}

func (m *Machine) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := SessionState{
		MachineID:   m.id,
		MachineName: m.name,
		Seed:        m.initseed,
		Position:    m.claw.Position(),
		Phase:       m.claw.Phase(),
		Busy:        m.claw.Busy(),
		Progress:    m.tracker.Snapshot(),
		Prizes:      m.field.Uncollected(),
		Remaining:   m.field.Remaining(),
	}
	if id, ok := m.claw.Held(); ok {
		st.HeldID = id
	}
	return st
}

// View 給 bot 的唯讀輸入；被抓住中的獎品不列入。
func (m *Machine) View() bot.View {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := m.claw.Position()
	st := m.tracker.Snapshot()
	v := bot.View{
		X:         pos.X,
		Y:         pos.Y,
		Phase:     m.claw.Phase().String(),
		Busy:      m.claw.Busy(),
		Coins:     st.Coins,
		Points:    st.Points,
		Streak:    st.Streak,
		Combo:     st.Combo,
		Step:      m.ms.Claw.Step,
		MinBound:  m.ms.Claw.MinBound,
		MaxBound:  m.ms.Claw.MaxBound,
		Tolerance: m.ms.Grab.Tolerance,
	}
	ps := m.field.Uncollected()
	v.Prizes = make([]bot.PrizeView, 0, len(ps))
	for i := range ps {
		if ps[i].Grabbed {
			continue
		}
		c := ps[i].Center()
		v.Prizes = append(v.Prizes, bot.PrizeView{
			ID:     ps[i].ID,
			Kind:   ps[i].Kind.String(),
			Rarity: ps[i].Rarity.String(),
			X:      c.X,
			Y:      c.Y,
		})
	}
	return v
}

// Subscribe 訂閱事件；handler 在 session 鎖內同步執行。
func (m *Machine) Subscribe(h event.Handler) (cancel func()) {
	return m.bus.Subscribe(h)
}

// SetPlayHook 每次抓取流程結束時呼叫（鎖內），st 為結算後的進度。
func (m *Machine) SetPlayHook(fn func(p claw.Play, st progress.State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = fn
}

// Journal 到目前為止的指令紀錄（拷貝）
func (m *Machine) Journal() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.journal...)
}

func (m *Machine) Seed() int64 {
	return m.initseed
}

func (m *Machine) MachineID() spec.MID {
	return m.id
}

func (m *Machine) MachineName() string {
	return m.name
}

// Setting 機台設定（唯讀，請勿修改）
func (m *Machine) Setting() *spec.MachineSetting {
	return m.ms
}

// SnapshotCore 取得 Core 狀態暫存
func (m *Machine) SnapshotCore() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.core.Snapshot()
}

// RestoreCore 恢復 Core 狀態暫存；只影響之後的抽樣，不回溯場上與進度。
func (m *Machine) RestoreCore(src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.core.Restore(src)
}
