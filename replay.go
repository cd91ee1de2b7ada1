package clawlab

import (
	"fmt"
	"time"

	"github.com/zintix-labs/clawlab/corefmt"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/claw"
	"github.com/zintix-labs/clawlab/sdk/field"
	"github.com/zintix-labs/clawlab/sdk/progress"
	"github.com/zintix-labs/clawlab/sdk/sched"
	"github.com/zintix-labs/clawlab/spec"
)

// maxReplayCommands 單次重播的指令上限
const maxReplayCommands = 100_000

// Mismatch 重播時結果與紀錄不一致的指令
type Mismatch struct {
	Index   int          `json:"index"`
	Command Command      `json:"command"`
	Got     claw.Outcome `json:"got"`
}

// ReplayResult 重播結束後的狀態；CoreSnap 為 base64url 的 Core 快照。
type ReplayResult struct {
	MachineID spec.MID       `json:"machine_id"`
	Seed      int64          `json:"seed"`
	Progress  progress.State `json:"progress"`
	Position  field.Position `json:"position"`
	Remaining int            `json:"remaining"`
	CoreSnap  string         `json:"core_snap_b64u"`
	Applied   int            `json:"applied"`
	Skipped   int            `json:"skipped"`
	Mismatch  []Mismatch     `json:"mismatch,omitempty"`
}

// Verify 比對預期的 Core 快照；快照不同或有不一致的指令都回傳 Warn。
func (r *ReplayResult) Verify(expectB64U string) error {
	if len(r.Mismatch) > 0 {
		m := r.Mismatch[0]
		return errs.Warnf("replay diverged at command #%d (%s): got %+v", m.Index, m.Command.Op, m.Got)
	}
	if expectB64U != "" && expectB64U != r.CoreSnap {
		return errs.NewWarn("replay core snapshot mismatch")
	}
	return nil
}

// Replay 以 seed 在 Manual 時鐘上重跑一串指令。
//
// 被拒絕的指令當時沒有任何副作用，直接略過；其餘依 At 推進時間後套用，結果不同就記為 Mismatch。
// 最後把剩餘排程全部跑完，回傳結算狀態。
func (c *Clawlab) Replay(mid spec.MID, seed int64, cmds []Command) (*ReplayResult, error) {
	if len(cmds) > maxReplayCommands {
		return nil, errs.Warnf("too many commands: %d (max %d)", len(cmds), maxReplayCommands)
	}
	ms, err := c.Setting(mid)
	if err != nil {
		return nil, err
	}
	clk := sched.NewManual(time.Time{})
	m, err := newMachineWithSeed(ms, c.cf, clk, seed)
	if err != nil {
		return nil, err
	}

	res := &ReplayResult{MachineID: mid, Seed: seed}
	start := clk.Now()
	for i, cmd := range cmds {
		if !cmd.Accepted {
			res.Skipped++
			continue
		}
		if d := cmd.At - clk.Now().Sub(start); d > 0 {
			clk.Advance(d)
		}
		out, err := m.Apply(cmd)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Sprintf("replay command #%d", i))
		}
		res.Applied++
		if !out.Accepted {
			res.Mismatch = append(res.Mismatch, Mismatch{Index: i, Command: cmd, Got: out})
		}
	}
	clk.Drain(drainLimit * 4)

	snap, err := m.SnapshotCore()
	if err != nil {
		return nil, err
	}
	st := m.State()
	res.Progress = st.Progress
	res.Position = st.Position
	res.Remaining = st.Remaining
	res.CoreSnap = corefmt.EncodeBase64URL(snap)
	return res, nil
}

// CoreSnapB64U 目前 Core 快照的 base64url 字串（與 ReplayResult.CoreSnap 同格式）
func (m *Machine) CoreSnapB64U() (string, error) {
	snap, err := m.SnapshotCore()
	if err != nil {
		return "", err
	}
	return corefmt.EncodeBase64URL(snap), nil
}
