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

// Package dto 定義 HTTP 層的請求解碼與回應結構。
package dto

import (
	"time"

	"github.com/zintix-labs/clawlab"
	"github.com/zintix-labs/clawlab/corefmt"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/claw"
	"github.com/zintix-labs/clawlab/sdk/event"
	"github.com/zintix-labs/clawlab/stats"
)

// Session 對外的 session 狀態。core_b64u 為目前 Core 快照，可用於審計。
type Session struct {
	ID       string               `json:"id"`
	OpenedAt time.Time            `json:"opened_at"`
	State    clawlab.SessionState `json:"state"`
	CoreB64U string               `json:"core_b64u"`
}

// CommandResult 指令回應：被拒絕不是錯誤，看 outcome.accepted。
type CommandResult struct {
	Op      clawlab.Op           `json:"op"`
	Outcome claw.Outcome         `json:"outcome"`
	State   clawlab.SessionState `json:"state"`
}

// Closed session 結束時的回應
type Closed struct {
	ID          string               `json:"id"`
	State       clawlab.SessionState `json:"state"`
	Commands    int                  `json:"commands"`
	JournalB64U string               `json:"journal_b64u"`
	CoreB64U    string               `json:"core_b64u"`
}

// SimResult 模擬回應；有設定 store 時 run_id 為保存後的紀錄 id。
type SimResult struct {
	RunID    string                  `json:"run_id,omitempty"`
	Seed     int64                   `json:"seed"`
	Strategy string                  `json:"strategy"`
	UsedMs   int64                   `json:"used_ms"`
	Report   *stats.StatReport       `json:"report"`
	Players  *stats.EstimatorPlayers `json:"players"`
}

// ReplayResult 重播回應；verified=false 時 reason 說明原因。
type ReplayResult struct {
	Verified bool                  `json:"verified"`
	Reason   string                `json:"reason,omitempty"`
	Result   *clawlab.ReplayResult `json:"result"`
}

// StreamFrame websocket 事件串流的單一訊息
//   - state：連線後第一筆，目前狀態
//   - event：一筆遊戲事件；dropped 為目前為止因客戶端太慢而丟棄的事件數
//   - closed：session 已結束，伺服器接著關閉連線
type StreamFrame struct {
	Type    string                `json:"type"`
	Event   *event.Event          `json:"event,omitempty"`
	State   *clawlab.SessionState `json:"state,omitempty"`
	Dropped uint64                `json:"dropped,omitempty"`
	Reason  string                `json:"reason,omitempty"`
}

const (
	FrameState  = "state"
	FrameEvent  = "event"
	FrameClosed = "closed"
)

func NewSession(s *clawlab.Session) (Session, error) {
	if s == nil || s.Machine == nil {
		return Session{}, errs.NewWarn("session is nil")
	}
	snap, err := s.Machine.CoreSnapB64U()
	if err != nil {
		return Session{}, err
	}
	return Session{
		ID:       s.ID,
		OpenedAt: s.OpenedAt,
		State:    s.Machine.State(),
		CoreB64U: snap,
	}, nil
}

// NewClosed 把 journal 壓成 zstd JSON-lines 後以 base64url 輸出
func NewClosed(s *clawlab.Session) (Closed, error) {
	if s == nil || s.Machine == nil {
		return Closed{}, errs.NewWarn("session is nil")
	}
	j := s.Machine.Journal()
	blob, err := corefmt.EncodeJournal(j)
	if err != nil {
		return Closed{}, err
	}
	snap, err := s.Machine.CoreSnapB64U()
	if err != nil {
		return Closed{}, err
	}
	return Closed{
		ID:          s.ID,
		State:       s.Machine.State(),
		Commands:    len(j),
		JournalB64U: corefmt.EncodeBase64URL(blob),
		CoreB64U:    snap,
	}, nil
}

func NewReplayResult(res *clawlab.ReplayResult, expect string) ReplayResult {
	out := ReplayResult{Verified: true, Result: res}
	if err := res.Verify(expect); err != nil {
		out.Verified = false
		out.Reason = err.Error()
	}
	return out
}
