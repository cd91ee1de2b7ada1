package clawlab

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/sched"
	"github.com/zintix-labs/clawlab/spec"
)

// Session 線上 session：uuid + 機台外殼
type Session struct {
	ID       string    `json:"id"`
	OpenedAt time.Time `json:"opened_at"`
	Machine  *Machine  `json:"-"`

	done chan struct{}
	once sync.Once
}

// Done 在 session 被關閉（或 Arcade 關閉）時關閉
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) finish() {
	s.once.Do(func() {
		s.Machine.EmergencyStop()
		if s.done != nil {
			close(s.done)
		}
	})
}

// Arcade 線上服務的 session 管理器，以 uuid 為鍵。
//
// Arcade 只負責生命週期（開、查、關、容量）；每個 session 的並發安全由 Machine 自己保證。
type Arcade struct {
	lab      *Clawlab
	clock    sched.Scheduler
	capacity int

	mu       sync.RWMutex
	sessions map[string]*Session

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string
}

func newArcade(lab *Clawlab, capacity int, clock sched.Scheduler) *Arcade {
	return &Arcade{
		lab:      lab,
		clock:    clock,
		capacity: capacity,
		sessions: make(map[string]*Session, capacity),
		done:     make(chan struct{}),
	}
}

func (a *Arcade) check(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errs.NewWarn("arcade canceled/timeout: " + ctx.Err().Error())
	case <-a.done:
		a.closed.Store(true)
		return errs.NewFatal("arcade closed: " + a.ClosedReason())
	default:
	}
	return nil
}

// Open 以 crypto/rand 的 seed 開一個新 session
func (a *Arcade) Open(ctx context.Context, mid spec.MID) (*Session, error) {
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return a.OpenWithSeed(ctx, mid, seed)
}

// OpenWithSeed 以指定 seed 開 session（測試、重現用）
func (a *Arcade) OpenWithSeed(ctx context.Context, mid spec.MID, seed int64) (*Session, error) {
	if err := a.check(ctx); err != nil {
		return nil, err
	}
	ms, err := a.lab.Setting(mid)
	if err != nil {
		return nil, err
	}
	m, err := newMachineWithSeed(ms, a.lab.cf, a.clock, seed)
	if err != nil {
		return nil, err
	}
	s := &Session{ID: uuid.NewString(), OpenedAt: a.clock.Now(), Machine: m, done: make(chan struct{})}

	a.mu.Lock()
	defer a.mu.Unlock()
	// check 之後可能已被關閉
	if a.closed.Load() {
		return nil, errs.NewFatal("arcade closed: " + a.ClosedReason())
	}
	if len(a.sessions) >= a.capacity {
		return nil, errs.Warnf("arcade is full (capacity %d)", a.capacity)
	}
	a.sessions[s.ID] = s
	return s, nil
}

// Get 依 id 取得 session；不存在回傳 NotFound
func (a *Arcade) Get(id string) (*Session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.sessions[id]
	if !ok {
		return nil, errs.NotFoundf("session %s not found", id)
	}
	return s, nil
}

// CloseSession 緊急停止後移出 Arcade，回傳被關閉的 session 供呼叫端保存。
func (a *Arcade) CloseSession(id string) (*Session, error) {
	a.mu.Lock()
	s, ok := a.sessions[id]
	if ok {
		delete(a.sessions, id)
	}
	a.mu.Unlock()
	if !ok {
		return nil, errs.NotFoundf("session %s not found", id)
	}
	s.finish()
	return s, nil
}

// List 依開啟時間排序的 session
func (a *Arcade) List() []*Session {
	a.mu.RLock()
	out := make([]*Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		out = append(out, s)
	}
	a.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

func (a *Arcade) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

func (a *Arcade) Capacity() int {
	return a.capacity
}

// Lab 建立此 Arcade 的 Clawlab
func (a *Arcade) Lab() *Clawlab {
	return a.lab
}

// Close transitions the arcade into a closed state and stops every session. It is safe to call multiple times.
func (a *Arcade) Close() {
	a.closeWithReason("closed")
}

// closeWithReason closes the arcade and records the reason (written once).
func (a *Arcade) closeWithReason(reason string) {
	a.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		a.reason.Store(reason)
		a.closed.Store(true)
		close(a.done)

		a.mu.Lock()
		ss := a.sessions
		a.sessions = map[string]*Session{}
		a.mu.Unlock()
		for _, s := range ss {
			s.finish()
		}
	})
}

// Shutdown 以指定原因關閉（服務停機時使用）
func (a *Arcade) Shutdown(reason string) {
	a.closeWithReason(reason)
}

// Done 在 Arcade 關閉時關閉
func (a *Arcade) Done() <-chan struct{} {
	return a.done
}

// Closed reports whether the arcade has been closed.
func (a *Arcade) Closed() bool {
	return a.closed.Load()
}

func (a *Arcade) ClosedReason() string {
	if v := a.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
