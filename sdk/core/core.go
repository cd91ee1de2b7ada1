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

package core

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
//
// 遊戲內所有「影響結果」的抽樣（擺放位置、抓取判定、獎勵金額、安慰分、補貨）都只能經過 PRNG，
// 才能在相同 seed 下完整重現一個 session。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	Snapshot() ([]byte, error)
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
type RAND interface {
	// Uint64 回傳 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

// PRNGFactory 以 seed 建立 PRNG。
//
// 合約：同一實作、同一版本下 New(seed) 必須是決定性的。
// Clawlab 只會以 seed 呼叫 New；seed 由 Clawlab 產生或由呼叫端指定。
type PRNGFactory interface {
	New(int64) PRNG
}

// DefaultPRNG 以 PCG64 實作 PRNGFactory。
type DefaultPRNG struct{}

func (d *DefaultPRNG) New(seed int64) PRNG {
	return newPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// Core 封裝 PRNG，並提供遊戲常用的取樣工具。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// IntRange 回傳 [lo,hi] 閉區間整數；hi < lo 時回傳 lo。
func (c *Core) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + c.IntN(hi-lo+1)
}

// FloatRange 回傳 [lo,hi) 浮點數；hi <= lo 時回傳 lo。
func (c *Core) FloatRange(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + c.Float64()*(hi-lo)
}

// Chance 以機率 p 回傳 true。p <= 0 不消耗亂數直接回傳 false。
func (c *Core) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	return c.Float64() < p
}
