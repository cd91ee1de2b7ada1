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

// Package field 管理場上的獎品：佈場、重疊排除、鄰近查詢與收取。
//
// 座標皆為場地百分比。Prize.Pos 是左上角，距離一律以獎品中心計算。
package field

import (
	"math"
	"sort"

	"github.com/zintix-labs/clawlab/sdk/core"
	"github.com/zintix-labs/clawlab/sdk/sampler"
	"github.com/zintix-labs/clawlab/spec"
)

// Position 百分比座標
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist 歐氏距離
func (p Position) Dist(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Prize 場上的一個獎品。Collected 只會 false→true。
type Prize struct {
	ID        int            `json:"id"`
	Kind      spec.PrizeKind `json:"kind"`
	Rarity    spec.Rarity    `json:"rarity"`
	Pos       Position       `json:"pos"`
	W         float64        `json:"w"`
	H         float64        `json:"h"`
	Collected bool           `json:"collected"`
	Grabbed   bool           `json:"grabbed"`
}

// Center 獎品中心
func (p *Prize) Center() Position {
	return Position{X: p.Pos.X + p.W/2, Y: p.Pos.Y + p.H/2}
}

func (p *Prize) inPlay() bool {
	return !p.Collected && !p.Grabbed
}

// Field 獎品場。不自帶鎖，由持有者（session）序列化存取。
type Field struct {
	fs      spec.FieldSetting
	kinds   []spec.PrizeSetting
	core    *core.Core
	prizes  []*Prize
	byID    map[int]*Prize
	nextID  int
	restock *sampler.AliasTable
	total   int
}

// New 建立空場；restock_weight 全為 0 時不啟用補貨。
func New(ms *spec.MachineSetting, c *core.Core) (*Field, error) {
	f := &Field{
		fs:     ms.Field,
		kinds:  ms.Prizes,
		core:   c,
		byID:   make(map[int]*Prize, ms.TotalCount()),
		nextID: 1,
		total:  ms.TotalCount(),
	}
	weights := make([]int, len(ms.Prizes))
	sum := 0
	for i, p := range ms.Prizes {
		weights[i] = p.RestockWeight
		sum += p.RestockWeight
	}
	if sum > 0 {
		at, err := sampler.NewAliasTable(weights)
		if err != nil {
			return nil, err
		}
		f.restock = at
	}
	return f, nil
}

// Generate 依設定為每種獎品產生 count 個，位置在 [margin, 100-size-margin] 均勻分佈（可能重疊）。
func (f *Field) Generate() {
	for i := range f.kinds {
		for n := 0; n < f.kinds[i].Count; n++ {
			f.add(&f.kinds[i])
		}
	}
}

func (f *Field) add(ps *spec.PrizeSetting) *Prize {
	p := &Prize{
		ID:     f.nextID,
		Kind:   ps.KindID,
		Rarity: ps.RarityID,
		W:      ps.Width,
		H:      ps.Height,
	}
	f.nextID++
	f.place(p)
	f.prizes = append(f.prizes, p)
	f.byID[p.ID] = p
	return p
}

func (f *Field) place(p *Prize) {
	m := f.fs.Margin
	p.Pos.X = f.core.FloatRange(m, spec.FieldSize-p.W-m)
	p.Pos.Y = f.core.FloatRange(m, spec.FieldSize-p.H-m)
}

func (f *Field) overlaps(a, b *Prize) bool {
	ca, cb := a.Center(), b.Center()
	buf := f.fs.OverlapBuffer
	return math.Abs(ca.X-cb.X) < (a.W+b.W)/2+buf &&
		math.Abs(ca.Y-cb.Y) < (a.H+b.H)/2+buf
}

// ResolveOverlaps 最多掃描 MaxAttempts 輪，每對重疊的 (i<j) 重新擺放 j。
// 一輪乾淨即提前結束；用完次數仍重疊時接受殘留並回報 clean=false。
func (f *Field) ResolveOverlaps() (passes int, clean bool) {
	return f.resolve(nil)
}

// resolve 只重新擺放 movable 內的獎品（nil 代表全部可動）。
// 兩者皆不可動的配對保持原位。
func (f *Field) resolve(movable map[*Prize]bool) (passes int, clean bool) {
	live := f.live()
	canMove := func(p *Prize) bool { return movable == nil || movable[p] }
	for passes < f.fs.MaxAttempts {
		passes++
		moved := false
		for i := 0; i < len(live); i++ {
			for j := i + 1; j < len(live); j++ {
				if !f.overlaps(live[i], live[j]) {
					continue
				}
				switch {
				case canMove(live[j]):
					f.place(live[j])
				case canMove(live[i]):
					f.place(live[i])
				default:
					continue
				}
				moved = true
			}
		}
		if !moved {
			return passes, true
		}
	}
	return passes, f.countOverlaps(live) == 0
}

// Overlapping 目前在場獎品中重疊的配對數
func (f *Field) Overlapping() int {
	return f.countOverlaps(f.live())
}

func (f *Field) countOverlaps(live []*Prize) int {
	n := 0
	for i := 0; i < len(live); i++ {
		for j := i + 1; j < len(live); j++ {
			if f.overlaps(live[i], live[j]) {
				n++
			}
		}
	}
	return n
}

func (f *Field) live() []*Prize {
	out := make([]*Prize, 0, len(f.prizes))
	for _, p := range f.prizes {
		if p.inPlay() {
			out = append(out, p)
		}
	}
	return out
}

// PrizesInRange 回傳未收取、未被抓住、中心距離 <= tolerance 的獎品，
// 依距離由近到遠，同距離依 ID。
func (f *Field) PrizesInRange(pos Position, tolerance float64) []*Prize {
	type hit struct {
		p *Prize
		d float64
	}
	hits := make([]hit, 0, 4)
	for _, p := range f.prizes {
		if !p.inPlay() {
			continue
		}
		if d := pos.Dist(p.Center()); d <= tolerance {
			hits = append(hits, hit{p, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].d == hits[j].d {
			return hits[i].p.ID < hits[j].p.ID
		}
		return hits[i].d < hits[j].d
	})
	out := make([]*Prize, len(hits))
	for i, h := range hits {
		out[i] = h.p
	}
	return out
}

// MarkCollected 冪等；未知 ID 或已收取皆為 no-op。
func (f *Field) MarkCollected(id int) {
	if p, ok := f.byID[id]; ok && !p.Collected {
		p.Collected = true
		p.Grabbed = false
	}
}

// SetGrabbed 設定暫時的抓住旗標；已收取或未知 ID 回傳 false。
func (f *Field) SetGrabbed(id int, v bool) bool {
	p, ok := f.byID[id]
	if !ok || p.Collected {
		return false
	}
	p.Grabbed = v
	return true
}

// Release 把被抓住的獎品放回場上，中心落在 at（夾在佈場範圍內）。
func (f *Field) Release(id int, at Position) bool {
	p, ok := f.byID[id]
	if !ok || p.Collected {
		return false
	}
	m := f.fs.Margin
	p.Pos.X = clamp(at.X-p.W/2, m, spec.FieldSize-p.W-m)
	p.Pos.Y = clamp(at.Y-p.H/2, m, spec.FieldSize-p.H-m)
	p.Grabbed = false
	return true
}

// Get 以值回傳獎品
func (f *Field) Get(id int) (Prize, bool) {
	p, ok := f.byID[id]
	if !ok {
		return Prize{}, false
	}
	return *p, true
}

// Uncollected 依 ID 排序回傳未收取的獎品（值拷貝，含被抓住中的）
func (f *Field) Uncollected() []Prize {
	out := make([]Prize, 0, len(f.prizes))
	for _, p := range f.prizes {
		if !p.Collected {
			out = append(out, *p)
		}
	}
	return out
}

// Remaining 在場（未收取且未被抓住）的獎品數
func (f *Field) Remaining() int {
	return len(f.live())
}

// Reset 清空後重新佈場，ID 從 1 開始。
func (f *Field) Reset() (passes int, clean bool) {
	f.prizes = f.prizes[:0]
	clear(f.byID)
	f.nextID = 1
	f.Generate()
	return f.ResolveOverlaps()
}

// Restock 依 restock_weight 抽種類補上 n 個；排除重疊時只移動新補的獎品，
// 場上原有的位置不變。未啟用補貨回傳 0。
func (f *Field) Restock(n int) int {
	if f.restock == nil || n <= 0 {
		return 0
	}
	fresh := make(map[*Prize]bool, n)
	for i := 0; i < n; i++ {
		fresh[f.add(&f.kinds[f.restock.Pick(f.core)])] = true
	}
	f.resolve(fresh)
	return n
}

// RestockIfLow 在場數量低於 restock_below 時補回初始總數，回傳補上的數量。
func (f *Field) RestockIfLow() int {
	if f.fs.RestockBelow <= 0 {
		return 0
	}
	remain := f.Remaining()
	if remain >= f.fs.RestockBelow {
		return 0
	}
	return f.Restock(f.total - remain)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
