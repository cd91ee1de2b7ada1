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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/zintix-labs/clawlab/demo"
	"github.com/zintix-labs/clawlab/server"
	"github.com/zintix-labs/clawlab/server/logger"
	"github.com/zintix-labs/clawlab/server/netsvr"
	"github.com/zintix-labs/clawlab/server/svrcfg"
	"github.com/zintix-labs/clawlab/store"
)

// 示範機台的服務入口。正式部署請另建專案組裝自己的設定來源，並使用 -log-mode prod。
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type config struct {
	Addr       string
	LogMode    string
	Capacity   int
	DB         string
	CmdTimeout time.Duration
	SimTimeout time.Duration
}

func run() error {
	cfg := new(config)
	flag.StringVar(&cfg.Addr, "addr", netsvr.DefaultAddr, "listen address")
	flag.StringVar(&cfg.LogMode, "log-mode", "dev", "log mode: dev|prod|silence")
	flag.IntVar(&cfg.Capacity, "capacity", svrcfg.DefaultCapacity, "max online sessions")
	flag.StringVar(&cfg.DB, "db", "clawlab.db", "sqlite path (':memory:' for ephemeral, '' to disable)")
	flag.DurationVar(&cfg.CmdTimeout, "cmd-timeout", svrcfg.DefaultCmdTimeout, "timeout for session requests")
	flag.DurationVar(&cfg.SimTimeout, "sim-timeout", svrcfg.DefaultSimTimeout, "timeout for /v1/sim")
	flag.Parse()

	mode, err := logger.ParseMode(cfg.LogMode)
	if err != nil {
		return err
	}
	log, ah := logger.NewAsync(4096, mode)
	defer ah.Close()

	lab, err := demo.NewClawlab()
	if err != nil {
		return err
	}
	sCfg := &svrcfg.SvrCfg{
		Log:        log,
		Addr:       cfg.Addr,
		Capacity:   cfg.Capacity,
		CmdTimeout: cfg.CmdTimeout,
		SimTimeout: cfg.SimTimeout,
		Lab:        lab,
	}
	if cfg.DB != "" {
		st, err := store.Open(context.Background(), cfg.DB)
		if err != nil {
			return err
		}
		defer st.Close()
		sCfg.Store = st
	}
	return server.Run(sCfg)
}
