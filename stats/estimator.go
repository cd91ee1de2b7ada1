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

package stats

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// EstimatorPlayers 玩家體驗評估：以「每位玩家一份 StatReport」為樣本
type EstimatorPlayers struct {
	Players     int         `json:"Players"`
	PointsStat  PointsStat  `json:"PointsStat"`
	EventStat   EventStat   `json:"EventStat"`
	SessionStat SessionStat `json:"SessionStat"`
}

// PointsStat 整場得分的敘事
type PointsStat struct {
	Median PointStat   `json:"Median"`
	Perc   PointsPerc  `json:"Perc"`
	Below  PointsBelow `json:"Below"`
}

// 用玩家分位數看：最差 10% 玩家拿到幾分 ...
type PointsPerc struct {
	P10 PointStat `json:"P10"`
	P33 PointStat `json:"P33"`
	P67 PointStat `json:"P67"`
	P90 PointStat `json:"P90"`
}

// 用分數門檻看：有多少比例的玩家整場 ≤ N 分
type PointsBelow struct {
	Thresholds []int       `json:"Thresholds"`
	Share      []PointStat `json:"Share"`
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64 `json:"Hat"`
	CI  CI      `json:"CI"`
}

// 事件敘事
type EventStat struct {
	Combo     EventCount `json:"Combo"`
	Milestone EventCount `json:"Milestone"`
}

// 事件點估計：每位玩家發生 0/1/2/3+ 次的比例
type EventCount struct {
	Zero PointStat `json:"Zero"`
	One  PointStat `json:"One"`
	Two  PointStat `json:"Two"`
	More PointStat `json:"More"`
}

// 對應結果敘事
type SessionStat struct {
	Bust  PointStat `json:"Bust"`  // 代幣用完
	Alive PointStat `json:"Alive"` // 動作額度用完時還有代幣
}

// PointsThresholds 預設的分數門檻
var PointsThresholds = []int{0, 100, 250, 500, 1000}

// ============================================================
// ** 對外 : 玩家體驗評估 **
// ============================================================

// EstimatorPlayerExp 玩家體驗評估
//
// 1. 得分敘事：整場得分的中位數與分位數，以及低於門檻的玩家比例
//
// 2. 事件敘事：每位玩家觸發 combo 與連勝里程碑的次數分布
//
// 3. Session 敘事：破產離場與撐到最後的比例
func EstimatorPlayerExp(sts []*StatReport) *EstimatorPlayers {
	n := len(sts)
	out := &EstimatorPlayers{Players: n}
	if n == 0 {
		return out
	}

	// ------------------------------------------------------------
	// 1) 得分敘事
	// ------------------------------------------------------------
	pts := make([]float64, n)
	for i, s := range sts {
		pts[i] = float64(s.Summary.TotalPoints)
	}
	out.PointsStat = PointsStat{
		Median: quantileStat(pts, 0.5),
		Perc: PointsPerc{
			P10: quantileStat(pts, 0.10),
			P33: quantileStat(pts, 1.0/3.0),
			P67: quantileStat(pts, 2.0/3.0),
			P90: quantileStat(pts, 0.90),
		},
		Below: PointsBelow{
			Thresholds: PointsThresholds,
			Share:      make([]PointStat, len(PointsThresholds)),
		},
	}
	for i, th := range PointsThresholds {
		hat, ci := percentileCIForValue(pts, float64(th), 0.95)
		out.PointsStat.Below.Share[i] = PointStat{Hat: hat, CI: ci}
	}

	// ------------------------------------------------------------
	// 2) 事件敘事
	// ------------------------------------------------------------
	out.EventStat.Combo = eventCount(sts, func(s *StatReport) int { return s.Summary.Combos })
	out.EventStat.Milestone = eventCount(sts, func(s *StatReport) int { return s.Summary.Milestones })

	// ------------------------------------------------------------
	// 3) Session 敘事
	// ------------------------------------------------------------
	var bustK, aliveK int
	for _, s := range sts {
		if s.Player == nil {
			continue
		}
		if s.Player.Bust {
			bustK++
		}
		if s.Player.Alive {
			aliveK++
		}
	}
	bustHat, bustCI := proportionCICP(bustK, n, 0.95)
	aliveHat, aliveCI := proportionCICP(aliveK, n, 0.95)
	out.SessionStat = SessionStat{
		Bust:  PointStat{Hat: bustHat, CI: bustCI},
		Alive: PointStat{Hat: aliveHat, CI: aliveCI},
	}
	return out
}

func quantileStat(data []float64, q float64) PointStat {
	lo, hi := quantileCI(data, q, 0.95)
	return PointStat{Hat: quantilePoint(data, q), CI: CI{Lo: lo, Hi: hi}}
}

func eventCount(sts []*StatReport, count func(*StatReport) int) EventCount {
	n := len(sts)
	var c0, c1, c2, c3p int
	for _, s := range sts {
		switch t := count(s); {
		case t <= 0:
			c0++
		case t == 1:
			c1++
		case t == 2:
			c2++
		default:
			c3p++
		}
	}
	point := func(k int) PointStat {
		hat, ci := proportionCICP(k, n, 0.95)
		return PointStat{Hat: hat, CI: ci}
	}
	return EventCount{Zero: point(c0), One: point(c1), Two: point(c2), More: point(c3p)}
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 問題：給定樣本 data 與門檻 x0，估計 p = P(X ≤ x0) 的點估計與 CI 區間
// 回傳 (pHat, CI)
func percentileCIForValue(data []float64, x0 float64, confidence float64) (pHat float64, ci CI) {
	n := len(data)
	if n == 0 {
		return 0, CI{Lo: 0, Hi: 0}
	}
	// k = 數到 <= x0 的個數
	k := 0
	for _, v := range data {
		if v <= x0 {
			k++
		}
	}
	return proportionCICP(k, n, confidence)
}

// 想估「第 q 分位」的上下界。做法：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
// 回傳 (loValue, hiValue)
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	if n < 2 {
		return cp[0], cp[0]
	}

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	// 以 CP 思想反推 p 範圍
	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	if li < 0 {
		li = 0
	}
	if li > n-1 {
		li = n - 1
	}
	if ui < 0 {
		ui = 0
	}
	if ui > n-1 {
		ui = n - 1
	}
	return cp[li], cp[ui]
}

// quantilePoint returns the empirical quantile point estimate at q.
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	// 最近秩法
	idx := int(q * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return cp[idx]
}

// ============================================================
// ** 輸出函數 **
// ============================================================

func (est *EstimatorPlayers) Out() {
	_ = est.writeTable(os.Stdout)
}

func (est *EstimatorPlayers) writeTable(w io.Writer) error {
	ps := est.PointsStat
	keys := []string{"Median", "P10", "P33", "P67", "P90"}
	msg := map[string]string{
		"Median": fmtHatCI(ps.Median),
		"P10":    fmtHatCI(ps.Perc.P10),
		"P33":    fmtHatCI(ps.Perc.P33),
		"P67":    fmtHatCI(ps.Perc.P67),
		"P90":    fmtHatCI(ps.Perc.P90),
	}
	for i, th := range ps.Below.Thresholds {
		k := fmt.Sprintf("<=%d points (players)", th)
		keys = append(keys, k)
		msg[k] = fmtHatCIpct01(ps.Below.Share[i].Hat, ps.Below.Share[i].CI)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Players: %d ===\n", est.Players)
	writeList(&sb, "Session Points", keys, msg)
	fmt.Fprintf(&sb, "\n%-20s : %s\n", "Combos", fmtEventCount(est.EventStat.Combo))
	fmt.Fprintf(&sb, "%-20s : %s\n\n", "Streak milestones", fmtEventCount(est.EventStat.Milestone))
	writeList(&sb, "Session Outcome", []string{"Bust", "Alive"}, map[string]string{
		"Bust":  fmtHatCIpct01(est.SessionStat.Bust.Hat, est.SessionStat.Bust.CI),
		"Alive": fmtHatCIpct01(est.SessionStat.Alive.Hat, est.SessionStat.Alive.CI),
	})
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeList(sb *strings.Builder, title string, keys []string, msg map[string]string) {
	sb.WriteString(title + "\n")
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	for _, k := range keys {
		fmt.Fprintf(sb, "  %-*s : %s\n", width, k, msg[k])
	}
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}

func fmtHatCI(ps PointStat) string {
	return fmt.Sprintf("%.0f [%.0f, %.0f]", ps.Hat, ps.CI.Lo, ps.CI.Hi)
}

func fmtEventCount(ec EventCount) string {
	return fmt.Sprintf("0x: %s | 1x: %s | 2x: %s | 3+x: %s",
		fmtHatCIpct01(ec.Zero.Hat, ec.Zero.CI),
		fmtHatCIpct01(ec.One.Hat, ec.One.CI),
		fmtHatCIpct01(ec.Two.Hat, ec.Two.CI),
		fmtHatCIpct01(ec.More.Hat, ec.More.CI),
	)
}
