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

// Package sched 提供可注入的時鐘與排程器。
//
// 爪子的每個階段都是延遲回呼；遊戲核心只透過 Scheduler 取得時間與排程，
// 因此測試與模擬可以用 Manual 決定性地推進時間，線上服務則用 Real。
package sched

import (
	"container/heap"
	"sync"
	"time"
)

// Timer 代表一個已排程的回呼
type Timer interface {
	// Stop 取消回呼；回傳 false 代表回呼已執行或已取消。
	Stop() bool
}

// Scheduler 時鐘 + 延遲回呼
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real 使用 time.AfterFunc，回呼在獨立 goroutine 執行。
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Locked 讓所有回呼在執行前取得 mu，與持有同一把鎖的呼叫端互斥。
func Locked(s Scheduler, mu sync.Locker) Scheduler {
	return &locked{inner: s, mu: mu}
}

type locked struct {
	inner Scheduler
	mu    sync.Locker
}

func (l *locked) Now() time.Time { return l.inner.Now() }

func (l *locked) AfterFunc(d time.Duration, f func()) Timer {
	return l.inner.AfterFunc(d, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		f()
	})
}

// Manual 手動推進的排程器。
//
// 回呼只會在 Advance / Drain 中、於呼叫端 goroutine 依 (到期時間, 排程順序) 執行；
// 回呼內可再排程，若新回呼仍在推進範圍內會在同一次 Advance 中執行。
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	queue timerQueue
}

// Epoch Manual 預設的起始時間
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func NewManual(start time.Time) *Manual {
	if start.IsZero() {
		start = Epoch
	}
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{owner: m, when: m.now.Add(d), seq: m.seq, fn: f, index: -1}
	heap.Push(&m.queue, t)
	return t
}

// Pending 尚未執行的回呼數
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// Advance 推進時間 d，依序執行到期回呼，回傳執行數。
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	fired := 0
	for {
		t := m.popDue(target, true)
		if t == nil {
			break
		}
		t.fn()
		fired++
	}
	m.mu.Lock()
	if m.now.Before(target) {
		m.now = target
	}
	m.mu.Unlock()
	return fired
}

// Drain 不限時間地執行所有回呼（含回呼內新排的），最多 limit 個；回傳執行數。
func (m *Manual) Drain(limit int) int {
	fired := 0
	for fired < limit {
		t := m.popDue(time.Time{}, false)
		if t == nil {
			break
		}
		t.fn()
		fired++
	}
	return fired
}

func (m *Manual) popDue(target time.Time, bounded bool) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queue.Len() == 0 {
		return nil
	}
	t := m.queue[0]
	if bounded && t.when.After(target) {
		return nil
	}
	heap.Pop(&m.queue)
	if t.when.After(m.now) {
		m.now = t.when
	}
	return t
}

type manualTimer struct {
	owner *Manual
	when  time.Time
	seq   uint64
	fn    func()
	index int
}

func (t *manualTimer) Stop() bool {
	m := t.owner
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&m.queue, t.index)
	return true
}

// timerQueue 實作 heap.Interface，依 (when, seq) 排序的 Min-Heap。
type timerQueue []*manualTimer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].when.Equal(q[j].when) {
		return q[i].seq < q[j].seq
	}
	return q[i].when.Before(q[j].when)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*manualTimer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
