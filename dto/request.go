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

package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/zintix-labs/clawlab"
	"github.com/zintix-labs/clawlab/corefmt"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/spec"
)

// 防止 body 過大（預設 1MiB）
const maxBody = 1 << 20

const (
	MaxSimPlayers = 100_000
	MaxSimWorkers = 64
)

// OpenRequest 開 session。
//   - machine_id 與 machine 擇一；兩者都給時以 machine_id 為準。
//   - seed 可選：缺省時由引擎以 crypto/rand 產生。
type OpenRequest struct {
	MachineID   spec.MID `json:"machine_id,omitempty"`
	MachineName string   `json:"machine,omitempty"`
	Player      string   `json:"player,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
}

// CommandRequest move 需要 dir，coins 需要 n，其餘指令 body 可省略。
type CommandRequest struct {
	Dir string `json:"dir,omitempty"`
	N   int    `json:"n,omitempty"`
}

// SimRequest 模擬參數
type SimRequest struct {
	MachineID spec.MID `json:"machine_id"`
	Players   int      `json:"players"`
	Workers   int      `json:"workers"`
	Strategy  string   `json:"strategy,omitempty"`
	Seed      *int64   `json:"seed,omitempty"`
}

// ReplayRequest 重播驗證。commands 與 journal_b64u（zstd JSON-lines 的 base64url）擇一。
type ReplayRequest struct {
	MachineID   spec.MID          `json:"machine_id"`
	Seed        int64             `json:"seed"`
	Commands    []clawlab.Command `json:"commands,omitempty"`
	JournalB64U string            `json:"journal_b64u,omitempty"`
	ExpectB64U  string            `json:"expect_b64u,omitempty"`
}

// DecodeOpenRequest 會把 HTTP 請求解碼成 OpenRequest。
//
// 支援：
//   - GET：從 query string 讀取（machine_id/machine/player/seed）。
//   - POST：從 JSON body 反序列化，未知欄位一律拒絕。
//
// 這裡只負責解碼與基本型別轉換；機台是否存在由上層（Arcade）決定。
func DecodeOpenRequest(r *http.Request) (*OpenRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := new(OpenRequest)
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.MachineName = q.Get("machine")
		req.Player = q.Get("player")
		id, err := queryUint(q, "machine_id")
		if err != nil {
			return nil, err
		}
		req.MachineID = spec.MID(id)
		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid seed: %v", err))
			}
			req.Seed = &v
		}
	case http.MethodPost:
		if err := decodeJSON(r, req, false); err != nil {
			return nil, err
		}
	default:
		return nil, errs.NewWarn("method not allowed")
	}
	if req.MachineID == 0 && req.MachineName == "" {
		return nil, errs.NewWarn("machine_id or machine is required")
	}
	return req, nil
}

// DecodeCommandRequest 依 op 解碼並組成 Command（At/Accepted 由 session 填）
func DecodeCommandRequest(r *http.Request, op clawlab.Op) (clawlab.Command, error) {
	if r == nil {
		return clawlab.Command{}, errs.NewWarn("nil request")
	}
	req := new(CommandRequest)
	if r.Method == http.MethodPost {
		if err := decodeJSON(r, req, true); err != nil {
			return clawlab.Command{}, err
		}
	}
	q := r.URL.Query()
	if s := q.Get("dir"); s != "" && req.Dir == "" {
		req.Dir = s
	}
	if s := q.Get("n"); s != "" && req.N == 0 {
		v, err := strconv.Atoi(s)
		if err != nil {
			return clawlab.Command{}, errs.NewWarn(fmt.Sprintf("invalid n: %v", err))
		}
		req.N = v
	}

	cmd := clawlab.Command{Op: op}
	switch op {
	case clawlab.OpMove:
		if req.Dir == "" {
			return clawlab.Command{}, errs.NewWarn("dir is required")
		}
		cmd.Dir = req.Dir
	case clawlab.OpCoins:
		if req.N <= 0 {
			return clawlab.Command{}, errs.NewWarn("n must be positive")
		}
		cmd.N = req.N
	case clawlab.OpGrab, clawlab.OpDrop, clawlab.OpReset, clawlab.OpStop:
	default:
		return clawlab.Command{}, errs.Warnf("unknown op %q", op)
	}
	return cmd, nil
}

// DecodeSimRequest GET 讀 query（machine_id/players/workers/strategy/seed），POST 讀 JSON。
// players 預設 100、workers 預設 1。
func DecodeSimRequest(r *http.Request) (*SimRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := &SimRequest{Players: 100, Workers: 1}
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		id, err := queryUint(q, "machine_id")
		if err != nil {
			return nil, err
		}
		req.MachineID = spec.MID(id)
		if req.Players, err = queryInt(q, "players", req.Players); err != nil {
			return nil, err
		}
		if req.Workers, err = queryInt(q, "workers", req.Workers); err != nil {
			return nil, err
		}
		req.Strategy = q.Get("strategy")
		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid seed: %v", err))
			}
			req.Seed = &v
		}
	case http.MethodPost:
		if err := decodeJSON(r, req, false); err != nil {
			return nil, err
		}
	default:
		return nil, errs.NewWarn("method not allowed")
	}
	if req.MachineID == 0 {
		return nil, errs.NewWarn("machine_id is required")
	}
	if req.Players < 1 || req.Players > MaxSimPlayers {
		return nil, errs.Warnf("players must be between 1 and %d", MaxSimPlayers)
	}
	if req.Workers < 1 || req.Workers > MaxSimWorkers {
		return nil, errs.Warnf("workers must be between 1 and %d", MaxSimWorkers)
	}
	return req, nil
}

// DecodeReplayRequest 只接受 POST；journal_b64u 會先還原成 commands。
func DecodeReplayRequest(r *http.Request) (*ReplayRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	if r.Method != http.MethodPost {
		return nil, errs.NewWarn("method not allowed")
	}
	req := new(ReplayRequest)
	if err := decodeJSON(r, req, false); err != nil {
		return nil, err
	}
	if req.MachineID == 0 {
		return nil, errs.NewWarn("machine_id is required")
	}
	if len(req.Commands) > 0 && req.JournalB64U != "" {
		return nil, errs.NewWarn("commands and journal_b64u are mutually exclusive")
	}
	if req.JournalB64U != "" {
		blob, err := corefmt.DecodeBase64URL(req.JournalB64U)
		if err != nil {
			return nil, err
		}
		cmds, err := corefmt.DecodeJournal[clawlab.Command](blob)
		if err != nil {
			return nil, err
		}
		req.Commands = cmds
		req.JournalB64U = ""
	}
	return req, nil
}

func decodeJSON[T any](r *http.Request, out *T, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return errs.NewWarn("empty body")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if err == io.EOF && allowEmpty {
			return nil
		}
		return errs.NewWithExtra(errs.Warn, "invalid json", err.Error())
	}
	return nil
}

func queryUint(q url.Values, key string) (uint64, error) {
	s := q.Get(key)
	if s == "" {
		return 0, nil
	}
	u, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return 0, errs.NewWarn(fmt.Sprintf("invalid %s: %v", key, err))
	}
	return u, nil
}

func queryInt(q url.Values, key string, def int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.NewWarn(fmt.Sprintf("invalid %s: %v", key, err))
	}
	return v, nil
}
