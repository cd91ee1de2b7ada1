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

// Package logger 組裝服務使用的 *slog.Logger。
//
// 兩種注入方式：
//   - 直接拿 *slog.Logger：NewDefaultLogger / NewAsync。
//   - 自己組 slog.Handler（JSON/Text/ReplaceAttr/LevelVar...）再用 NewLogger 包起來。
//
// AsyncHandler 可以把任何 slog.Handler 變成非阻塞：session 指令路徑上的
// "session.open" / "session.close" / "http.access" 都不會被 I/O 拖慢。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/clawlab/errs"
)

type LogMode uint8

const (
	ModeDev     LogMode = iota // text, stderr, debug
	ModeProd                   // JSON, stdout, info
	ModeSilence                // 全部丟棄
)

// ParseMode 給 CLI flag 使用：dev / prod / silence
func ParseMode(s string) (LogMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dev":
		return ModeDev, nil
	case "prod":
		return ModeProd, nil
	case "silence", "silent", "off":
		return ModeSilence, nil
	}
	return ModeDev, errs.Warnf("unknown log mode %q (dev|prod|silence)", s)
}

func (m LogMode) String() string {
	switch m {
	case ModeProd:
		return "prod"
	case ModeSilence:
		return "silence"
	default:
		return "dev"
	}
}

// NewDefaultLogger 同步 logger
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(buildHandler(mode))
}

// NewDefaultAsyncLogger 非同步 logger（buffer 8192）
func NewDefaultAsyncLogger(mode LogMode) *slog.Logger {
	return slog.New(NewAsyncHandler(buildHandler(mode), 8192))
}

// NewLogger 以呼叫者組好的 Handler 建立 logger；nil 時退回 ModeDev。
func NewLogger(h slog.Handler) *slog.Logger {
	if h == nil {
		h = buildHandler(ModeDev)
	}
	return slog.New(h)
}

// NewAsync 以 LogMode 預設 handler 包一層 AsyncHandler；回傳的 *AsyncHandler 用來在停機時 Close。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(mode), buf)
	return slog.New(ah), ah
}

// AsyncHandler 是 slog.Handler wrapper：
//   - Handle 只做 enqueue，背景 goroutine 逐筆交給 next 寫出。
//   - 佇列滿或已 Close 時直接丟棄並計數，延遲不會傳回請求路徑。
//
// slog.Logger 會忽略 Handle 的 error；需要處理 I/O error 請包在 next 裡。
type AsyncHandler struct {
	next slog.Handler
	d    *dispatcher
}

type dispatcher struct {
	ch      chan item
	closed  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

type item struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// NewAsyncHandler buf <= 0 時使用 1024
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = buildHandler(ModeDev)
	}
	if buf <= 0 {
		buf = 1024
	}
	d := &dispatcher{
		ch:     make(chan item, buf),
		closed: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return &AsyncHandler{next: next, d: d}
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.d != nil
}

// Dropped 因佇列滿或已關閉而丟棄的筆數
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.d.dropped.Load()
}

// Close 停止接收並把佇列寫完；可重複呼叫。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.d.once.Do(func() { close(h.d.closed) })
	h.d.wg.Wait()
}

func (d *dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case it := <-d.ch:
			it.write()
		case <-d.closed:
			for {
				select {
				case it := <-d.ch:
					it.write()
				default:
					return
				}
			}
		}
	}
}

func (it item) write() {
	if it.h != nil {
		_ = it.h.Handle(it.ctx, it.rec)
	}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.d.closed:
		h.d.dropped.Add(1)
		return nil
	default:
	}
	// Record 內含可變引用，跨 goroutine 前必須 Clone
	select {
	case h.d.ch <- item{ctx: ctx, rec: r.Clone(), h: h.next}:
	default:
		h.d.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), d: h.d}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), d: h.d}
}

func buildHandler(mode LogMode) slog.Handler {
	switch mode {
	case ModeProd:
		return handlerTo(mode, os.Stdout)
	case ModeSilence:
		return handlerTo(mode, io.Discard)
	default:
		return handlerTo(mode, os.Stderr)
	}
}

// handlerTo 依模式建立寫到 w 的 handler
func handlerTo(mode LogMode, w io.Writer) slog.Handler {
	switch mode {
	case ModeProd:
		// JSON 給 Loki / Promtail
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, nil)
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
