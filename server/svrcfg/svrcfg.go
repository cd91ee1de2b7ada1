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

// Package svrcfg 服務組裝所需的依賴與參數，由 cmd/svr 的 flag 填入。
package svrcfg

import (
	"log/slog"
	"time"

	"github.com/zintix-labs/clawlab"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/server/logger"
	"github.com/zintix-labs/clawlab/store"
)

const (
	DefaultCapacity   = 256
	MaxCapacity       = 10_000
	DefaultCmdTimeout = 5 * time.Second
	DefaultSimTimeout = 2 * time.Minute
)

// SvrCfg
//   - Lab：必填，需已 Freeze（NewAuto 會處理）。
//   - Store：可為 nil；nil 時不保存 session / 模擬紀錄，排行榜回 404。
//   - Capacity：同時在線的 session 上限（1..MaxCapacity）。
//   - Addr：空字串時使用 netsvr.DefaultAddr。
type SvrCfg struct {
	Log        *slog.Logger
	Addr       string
	Capacity   int
	CmdTimeout time.Duration
	SimTimeout time.Duration
	Lab        *clawlab.Clawlab
	Store      *store.Store
}

// Valid 補預設值並檢查必要依賴
func (sc *SvrCfg) Valid() error {
	if sc == nil {
		return errs.NewFatal("svr config is nil")
	}
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	if sc.Capacity <= 0 {
		sc.Capacity = DefaultCapacity
	}
	sc.Capacity = min(MaxCapacity, sc.Capacity)
	if sc.CmdTimeout <= 0 {
		sc.CmdTimeout = DefaultCmdTimeout
	}
	if sc.SimTimeout <= 0 {
		sc.SimTimeout = DefaultSimTimeout
	}
	if sc.Lab == nil {
		return errs.NewFatal("clawlab is required")
	}
	return nil
}
