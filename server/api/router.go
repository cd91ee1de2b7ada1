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

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/clawlab"
	v1 "github.com/zintix-labs/clawlab/server/api/v1"
	"github.com/zintix-labs/clawlab/server/netsvr"
	"github.com/zintix-labs/clawlab/server/netsvr/middleware"
	"github.com/zintix-labs/clawlab/server/svrcfg"
)

// RegisterRoutes 註冊 middleware、首頁與 /v1。sCfg 需先通過 Valid。
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg, arcade *clawlab.Arcade) error {
	registerMiddleware(svr, sCfg.Log)
	svr.Get("/", index)
	return registerV1API(svr, sCfg, arcade)
}

func registerMiddleware(svr netsvr.NetRouter, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover)
	svr.Use(middleware.Compression)
}

var routes = []string{
	"GET    /v1/machines",
	"GET    /v1/sessions",
	"POST   /v1/sessions",
	"GET    /v1/sessions/{id}",
	"DELETE /v1/sessions/{id}",
	"POST   /v1/sessions/{id}/move|grab|drop|reset|stop|coins",
	"GET    /v1/sessions/{id}/events (websocket)",
	"GET    /v1/sessions/{id}/journal",
	"GET    /v1/sim",
	"POST   /v1/sim",
	"GET    /v1/sim/runs",
	"GET    /v1/leaderboard",
	"POST   /v1/replay",
}

// index 列出可用路由
func index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Service string   `json:"service"`
		Routes  []string `json:"routes"`
	}{"clawlab", routes})
}

func registerV1API(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg, arcade *clawlab.Arcade) error {
	sh, err := v1.NewSessionHandler(sCfg, arcade)
	if err != nil {
		return err
	}
	lh, err := v1.NewLabHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Use(middleware.NoCache)
		vOne.Get("/machines", lh.Machines)

		vOne.Get("/sessions", sh.List)
		vOne.Post("/sessions", sh.Open)
		vOne.Get("/sessions/{id}", sh.Get)
		vOne.Delete("/sessions/{id}", sh.Close)
		vOne.Get("/sessions/{id}/events", sh.Events)
		vOne.Get("/sessions/{id}/journal", sh.Journal)
		for _, op := range []clawlab.Op{
			clawlab.OpMove, clawlab.OpGrab, clawlab.OpDrop,
			clawlab.OpReset, clawlab.OpStop, clawlab.OpCoins,
		} {
			vOne.Post("/sessions/{id}/"+string(op), sh.Command(op))
		}

		vOne.Get("/sim", lh.Sim)
		vOne.Post("/sim", lh.Sim)
		vOne.Get("/sim/runs", lh.SimRuns)
		vOne.Get("/leaderboard", lh.Leaderboard)
		vOne.Post("/replay", lh.Replay)
	})
	return nil
}
