package v1

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zintix-labs/clawlab/dto"
	"github.com/zintix-labs/clawlab/sdk/event"
	"github.com/zintix-labs/clawlab/server/httperr"
	"github.com/zintix-labs/clawlab/server/netsvr"
)

const (
	eventBuffer = 256
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsReadLimit = 4 << 10
)

// 測試可調短
var wsPingEvery = 25 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// TODO: 上線前改為檢查 Origin 白名單（svrcfg 增加 AllowedOrigins）
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Events GET /v1/sessions/{id}/events
//
// 事件在 session 鎖內同步發佈，訂閱函式只做非阻塞轉送；
// 客戶端太慢時丟棄事件並在下一筆 frame 的 dropped 回報，遊戲進度不受影響。
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	s, err := h.arcade.Get(netsvr.Param(r, "id"))
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已寫回錯誤回應
		h.log.Warn("session.events", slog.String("sid", s.ID), slog.Any("err", err))
		return
	}
	defer conn.Close()

	ch := make(chan event.Event, eventBuffer)
	var dropped atomic.Uint64
	cancel := s.Machine.Subscribe(func(e event.Event) {
		select {
		case ch <- e:
		default:
			dropped.Add(1)
		}
	})
	defer cancel()

	// 讀端只處理 pong 與 close；客戶端送來的資料一律忽略
	gone := make(chan struct{})
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	write := func(f dto.StreamFrame) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(f)
	}

	st := s.Machine.State()
	if err := write(dto.StreamFrame{Type: dto.FrameState, State: &st}); err != nil {
		return
	}
	h.log.Debug("session.events", slog.String("sid", s.ID), slog.String("remote", r.RemoteAddr))

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case e := <-ch:
			if err := write(dto.StreamFrame{Type: dto.FrameEvent, Event: &e, Dropped: dropped.Load()}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done():
			// 先送完關閉前的事件（例如 emergency-stop）
		drain:
			for {
				select {
				case e := <-ch:
					if err := write(dto.StreamFrame{Type: dto.FrameEvent, Event: &e, Dropped: dropped.Load()}); err != nil {
						return
					}
				default:
					break drain
				}
			}
			_ = write(dto.StreamFrame{Type: dto.FrameClosed, Reason: "session closed", Dropped: dropped.Load()})
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
				time.Now().Add(wsWriteWait))
			return
		case <-gone:
			return
		}
	}
}
