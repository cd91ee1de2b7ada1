// Package event 定義遊戲狀態轉換時發出的通知與同步廣播匯流排。
//
// 通知只給呈現層（畫面、音效、websocket、紀錄器）觀察用，遊戲結果從不依賴它們。
package event

import (
	"sync"
	"time"
)

type Kind string

const (
	ClawMoved       Kind = "claw-moved"
	GrabStarted     Kind = "grab-started"
	GrabResolved    Kind = "grab-resolved"
	PrizeCollected  Kind = "prize-collected"
	ComboAchieved   Kind = "combo-achieved"
	StreakMilestone Kind = "streak-milestone"
	GameReset       Kind = "game-reset"
	PrizeDropped    Kind = "prize-dropped"
	EmergencyStop   Kind = "emergency-stop"
)

// Event 單一通知。依 Kind 只會填入相關欄位。
type Event struct {
	Seq       uint64    `json:"seq"`
	Kind      Kind      `json:"kind"`
	At        time.Time `json:"at"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Phase     string    `json:"phase,omitempty"`
	Success   bool      `json:"success,omitempty"`
	PrizeID   int       `json:"prize_id,omitempty"`
	PrizeKind string    `json:"prize_kind,omitempty"`
	Level     int       `json:"level,omitempty"`
	Points    int       `json:"points,omitempty"`
	Coins     int       `json:"coins,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Handler 在發佈者的 goroutine 同步執行，且發佈時 session 鎖仍被持有：
// 不可回頭呼叫 session 的方法，耗時工作請自行轉送到 channel。
type Handler func(Event)

// Bus 同步廣播，依訂閱順序呼叫。零值不可用，請用 NewBus。
type Bus struct {
	mu    sync.Mutex
	seq   uint64
	next  int
	order []int
	subs  map[int]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe 註冊 handler，回傳取消函式（可重複呼叫）。
func (b *Bus) Subscribe(h Handler) (cancel func()) {
	if h == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish 指派序號後廣播，回傳帶序號的事件。
func (b *Bus) Publish(e Event) Event {
	b.mu.Lock()
	b.seq++
	e.Seq = b.seq
	hs := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		hs = append(hs, b.subs[id])
	}
	b.mu.Unlock()
	for _, h := range hs {
		h(e)
	}
	return e
}

// Subscribers 目前訂閱數
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}
