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

// Package server 是預設的服務組裝：SvrCfg → Arcade → chi server → app.App。
//
// 需要自訂路由或生命週期時，直接持有 Clawlab / Arcade 並呼叫 api.RegisterRoutes 即可，
// 不必經過 Run。
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/clawlab"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/server/api"
	"github.com/zintix-labs/clawlab/server/app"
	"github.com/zintix-labs/clawlab/server/netsvr"
	"github.com/zintix-labs/clawlab/server/svrcfg"
)

// Run 以內建 ChiAdapter（監聽 sCfg.Addr）啟動服務，阻塞到收到 SIGINT/SIGTERM。
func Run(sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Valid(); err != nil {
		// logger 可能就是問題本身
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return RunWithSvr(sCfg, netsvr.NewChiServer(sCfg.Addr, netsvr.DefaultTimeouts))
}

// RunWithSvr 與 Run 相同，但使用呼叫端提供的 NetSvr（例如自訂 listener、TLS、timeout）。
// 內建 ChiAdapter 必須 Ready。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		err := errs.NewFatal("svr is required")
		sCfg.Log.Error(err.Error())
		return err
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		err := errs.NewFatal("default server is not ready")
		sCfg.Log.Error(err.Error())
		return err
	}

	arcade, err := sCfg.Lab.BuildArcade(sCfg.Capacity)
	if err != nil {
		sCfg.Log.Error("build arcade failed", slog.Any("err", err))
		return err
	}
	if err := api.RegisterRoutes(svr, sCfg, arcade); err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return err
	}

	a := app.NewWith(svr, &arcadeComponent{arcade: arcade})
	a.SetLogger(sCfg.Log)
	msg := "[clawlab] listening"
	if c, ok := svr.(*netsvr.ChiAdapter); ok {
		msg += " on http://localhost" + c.Address()
	}
	sCfg.Log.Info(msg, slog.Int("capacity", arcade.Capacity()), slog.Bool("store", sCfg.Store != nil))
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
		return err
	}
	sCfg.Log.Info("[clawlab] stopped", slog.String("reason", arcade.ClosedReason()))
	return nil
}

// arcadeComponent 讓 Arcade 跟著 app 停機：Shutdown 時對所有在線 session 緊急停止。
type arcadeComponent struct {
	arcade *clawlab.Arcade
}

func (c *arcadeComponent) Run() error {
	<-c.arcade.Done()
	return nil
}

func (c *arcadeComponent) Shutdown(ctx context.Context) error {
	c.arcade.Shutdown("server shutdown")
	return ctx.Err()
}
