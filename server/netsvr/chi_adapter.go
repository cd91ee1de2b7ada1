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

package netsvr

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const DefaultAddr string = ":5808"

// Timeouts http.Server 的逾時設定。
// WriteTimeout 對 websocket 無效：升級後由連線自己設定 write deadline。
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

var DefaultTimeouts = Timeouts{
	Read:  10 * time.Second,
	Write: 60 * time.Second, // 模擬請求可能跑較久
	Idle:  120 * time.Second,
}

// ChiAdapter 以 chi 實作 NetSvr；handler / middleware 都是標準 net/http 介面。
type ChiAdapter struct {
	router chi.Router
	server *http.Server
	addr   string
}

// NewChiServer addr 為空時使用 DefaultAddr；零值 Timeouts 欄位使用預設值。
func NewChiServer(addr string, to Timeouts) *ChiAdapter {
	if addr == "" {
		addr = DefaultAddr
	}
	if to.Read <= 0 {
		to.Read = DefaultTimeouts.Read
	}
	if to.Write <= 0 {
		to.Write = DefaultTimeouts.Write
	}
	if to.Idle <= 0 {
		to.Idle = DefaultTimeouts.Idle
	}
	cr := chi.NewRouter()
	return &ChiAdapter{
		router: cr,
		server: &http.Server{
			Addr:         addr,
			Handler:      cr,
			ReadTimeout:  to.Read,
			WriteTimeout: to.Write,
			IdleTimeout:  to.Idle,
		},
		addr: addr,
	}
}

func NewChiServerDefault() *ChiAdapter {
	return NewChiServer(DefaultAddr, DefaultTimeouts)
}

// -----------------------------------------------------------------------------
//  NetSvr
// -----------------------------------------------------------------------------

func (c *ChiAdapter) Ready() bool {
	return (c != nil) && (c.router != nil) && (c.server != nil) &&
		strings.Contains(c.addr, ":") &&
		(c.server.Handler != nil) && (c.server.Handler == c.router)
}

// Run 阻塞到 server 停止；正常 Shutdown 不視為錯誤。
func (c *ChiAdapter) Run() error {
	err := c.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (c *ChiAdapter) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

func (c *ChiAdapter) Use(mw func(http.Handler) http.Handler) {
	c.router.Use(mw)
}

func (c *ChiAdapter) Get(path string, h http.HandlerFunc) {
	c.router.Get(path, h)
}

func (c *ChiAdapter) Post(path string, h http.HandlerFunc) {
	c.router.Post(path, h)
}

func (c *ChiAdapter) Put(path string, h http.HandlerFunc) {
	c.router.Put(path, h)
}

func (c *ChiAdapter) Delete(path string, h http.HandlerFunc) {
	c.router.Delete(path, h)
}

func (c *ChiAdapter) Group(path string, fn func(subRouter NetRouter)) {
	c.router.Route(path, func(r chi.Router) {
		fn(&ChiAdapter{router: r})
	})
}

// -----------------------------------------------------------------------------
//  其他
// -----------------------------------------------------------------------------

func (c *ChiAdapter) Address() string {
	return c.addr
}

// Handler 給 httptest 使用
func (c *ChiAdapter) Handler() http.Handler {
	return c.router
}

// Param 取得路由參數，例如 /sessions/{id} 的 id
func Param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
