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

package sampler

import (
	"math"
	"testing"

	"github.com/zintix-labs/clawlab/sdk/core"
)

// checkDistribution 驗證抽樣結果的分佈是否符合預期權重
func checkDistribution(t *testing.T, weights []int, samples []int, tolerance float64) {
	t.Helper()
	totalW := 0
	for _, w := range weights {
		totalW += w
	}
	counts := make(map[int]int)
	for _, idx := range samples {
		counts[idx]++
	}
	for i, w := range weights {
		if w == 0 {
			if counts[i] > 0 {
				t.Fatalf("index %d has weight 0 but got %d samples", i, counts[i])
			}
			continue
		}
		want := float64(w) / float64(totalW)
		got := float64(counts[i]) / float64(len(samples))
		if math.Abs(want-got) > tolerance {
			t.Fatalf("index %d: got prob %.3f want %.3f", i, got, want)
		}
	}
}

func TestAliasTableDistribution(t *testing.T) {
	weights := []int{60, 25, 10, 5, 0}
	at, err := NewAliasTable(weights)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	c := core.New(core.Default().New(42))
	samples := make([]int, 200000)
	for i := range samples {
		samples[i] = at.Pick(c)
	}
	checkDistribution(t, weights, samples, 0.01)
}

func TestAliasTableRejectsBadWeights(t *testing.T) {
	cases := map[string][]int{
		"empty":    nil,
		"negative": {3, -1},
		"zero":     {0, 0, 0},
	}
	for name, w := range cases {
		if _, err := NewAliasTable(w); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestAliasTableSingle(t *testing.T) {
	at, err := NewAliasTable([]int{9})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	c := core.New(core.Default().New(1))
	for i := 0; i < 100; i++ {
		if got := at.Pick(c); got != 0 {
			t.Fatalf("single-entry pick got %d want 0", got)
		}
	}
	var empty *AliasTable
	if empty.Pick(c) != -1 {
		t.Fatalf("nil table should return -1")
	}
}
