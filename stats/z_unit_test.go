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

package stats_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/zintix-labs/clawlab/stats"
)

// buildStatReport 以每局得分建出報告；得分 > 0 視為收取成功。
func buildStatReport(points []int) *stats.StatReport {
	L := len(stats.Buckets.Labels())
	collect := make([]int, L)
	var total, wins int
	var sq float64
	for _, p := range points {
		collect[stats.Buckets.Index(p)]++
		total += p
		sq += float64(p * p)
		if p > 0 {
			wins++
		}
	}
	report := &stats.StatReport{
		Summary: &stats.SummaryReport{
			MachineName: "TestMachine",
			Players:     1,
			Plays:       len(points),
			Wins:        wins,
			Misses:      len(points) - wins,
			TotalPoints: total,
			PointsSqSum: sq,
			CoinsSpent:  len(points),
		},
		Kinds: []stats.KindReport{{Kind: "plush", Attempts: len(points), Wins: wins}},
		Dist: &stats.DistReport{
			PointBucket: stats.Buckets.Labels(),
			Collect:     collect,
		},
		Player: &stats.PlayerReport{},
	}
	report.Done()
	return report
}

func TestPointBuckets(t *testing.T) {
	b := stats.Buckets
	labels := b.Labels()
	if labels[0] != "[0,0]" || labels[1] != "(0,10)" || labels[len(labels)-1] != "[500,+inf)" {
		t.Fatalf("labels got %v", labels)
	}
	cases := map[int]string{0: "[0,0]", -3: "[0,0]", 1: "(0,10)", 9: "(0,10)", 10: "[10,25)", 99: "[50,100)", 200: "[200,500)", 499: "[200,500)", 500: "[500,+inf)", 9999: "[500,+inf)"}
	for p, want := range cases {
		if got := labels[b.Index(p)]; got != want {
			t.Fatalf("points %d got %s want %s", p, got, want)
		}
	}
}

func TestStatReportCoreMetrics(t *testing.T) {
	rep := buildStatReport([]int{0, 50, 100, 0})

	if got := rep.WinRate(); got != 0.5 {
		t.Fatalf("win rate got %v want 0.5", got)
	}
	ci := rep.Summary.WinRateCI
	if ci.Lo <= 0 || ci.Hi >= 1 || ci.Lo > 0.5 || ci.Hi < 0.5 {
		t.Fatalf("win rate CI got %+v", ci)
	}
	if got := rep.PointsPerCoin(); got != 37.5 {
		t.Fatalf("points per coin got %v want 37.5", got)
	}

	mean := 37.5
	variance := ((0-mean)*(0-mean) + (50-mean)*(50-mean) + (100-mean)*(100-mean) + (0-mean)*(0-mean)) / 3
	if got := rep.Std(); math.Abs(got-math.Sqrt(variance)) > 1e-9 {
		t.Fatalf("std got %v want %v", got, math.Sqrt(variance))
	}
	if k := rep.Kinds[0]; k.Rate != 0.5 || k.CI.Lo >= k.CI.Hi {
		t.Fatalf("kind report got %+v", k)
	}

	sum := 0.0
	for _, d := range rep.Dist.Dist {
		sum += d
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("dist sums to %v", sum)
	}
	if !rep.Player.Alive {
		t.Fatalf("player without bust should be alive")
	}

	rep.Done()
	if rep.WinRate() != 0.5 {
		t.Fatalf("win rate changed after second Done")
	}
}

func TestEmptyReport(t *testing.T) {
	rep := buildStatReport(nil)
	if rep.WinRate() != 0 || rep.Std() != 0 || rep.Summary.WinRateCI != (stats.CI{Lo: 0, Hi: 1}) {
		t.Fatalf("empty report got %+v", rep.Summary)
	}
}

func TestRenderers(t *testing.T) {
	rep := buildStatReport([]int{0, 30})
	for _, name := range []string{"json", "yaml", "table"} {
		r, err := stats.RenderByName(name)
		if err != nil {
			t.Fatalf("render %s: %v", name, err)
		}
		var buf bytes.Buffer
		if err := rep.WriteWith(&buf, r); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if !strings.Contains(buf.String(), "TestMachine") {
			t.Fatalf("%s output missing machine name:\n%s", name, buf.String())
		}
	}
	var buf bytes.Buffer
	_ = rep.WriteWith(&buf, &stats.JsonStatReportRender{})
	var back map[string]any
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil || back["Summary"] == nil {
		t.Fatalf("json output not decodable: %v", err)
	}
	if _, err := stats.RenderByName("xml"); err == nil {
		t.Fatalf("unknown format should fail")
	}
}

func TestEstimatorPointsAndSession(t *testing.T) {
	reports := make([]*stats.StatReport, 0, 100)
	for i := 0; i < 100; i++ {
		r := buildStatReport([]int{i * 10})
		r.Summary.Combos = i % 4
		reports = append(reports, r)
	}
	est := stats.EstimatorPlayerExp(reports)
	if est.Players != 100 {
		t.Fatalf("players got %d", est.Players)
	}
	if math.Abs(est.PointsStat.Median.Hat-500) > 20 {
		t.Fatalf("median expected ~500, got %.1f", est.PointsStat.Median.Hat)
	}
	if math.Abs(est.PointsStat.Perc.P90.Hat-900) > 20 {
		t.Fatalf("P90 expected ~900, got %.1f", est.PointsStat.Perc.P90.Hat)
	}
	ci := est.PointsStat.Median.CI
	if ci.Lo > est.PointsStat.Median.Hat || ci.Hi < est.PointsStat.Median.Hat {
		t.Fatalf("median CI %+v does not cover %.1f", ci, est.PointsStat.Median.Hat)
	}
	if got := est.EventStat.Combo.Zero.Hat; got != 0.25 {
		t.Fatalf("zero combo share got %v want 0.25", got)
	}
	if got := est.PointsStat.Below.Share[0].Hat; got != 0.01 {
		t.Fatalf("<=0 points share got %v want 0.01", got)
	}

	sessions := make([]*stats.StatReport, 10)
	for i := range sessions {
		r := buildStatReport([]int{0})
		if i < 3 {
			r.Player.Bust = true
			r.Player.Alive = false
		}
		sessions[i] = r
	}
	est2 := stats.EstimatorPlayerExp(sessions)
	if est2.SessionStat.Bust.Hat != 0.3 || est2.SessionStat.Alive.Hat != 0.7 {
		t.Fatalf("session outcome got bust=%.2f alive=%.2f", est2.SessionStat.Bust.Hat, est2.SessionStat.Alive.Hat)
	}

	one := stats.EstimatorPlayerExp(reports[:1])
	if one.PointsStat.Median.Hat != 0 {
		t.Fatalf("single player median got %v", one.PointsStat.Median.Hat)
	}
}

func TestEstimatorRenderers(t *testing.T) {
	reports := []*stats.StatReport{buildStatReport([]int{10}), buildStatReport([]int{0})}
	est := stats.EstimatorPlayerExp(reports)
	for _, name := range []string{"json", "yaml", "table"} {
		r, err := stats.EstimatorRenderByName(name)
		if err != nil {
			t.Fatalf("render %s: %v", name, err)
		}
		var buf bytes.Buffer
		if err := r.Write(&buf, est); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if buf.Len() == 0 {
			t.Fatalf("%s output is empty", name)
		}
	}
	var buf bytes.Buffer
	_ = (&stats.TableEstimatorRender{}).Write(&buf, est)
	if !strings.Contains(buf.String(), "=== Players: 2 ===") {
		t.Fatalf("table output got:\n%s", buf.String())
	}
}
