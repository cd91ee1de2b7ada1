// Package sampler 提供加權抽樣工具。
//
// 本檔案實作 Vose's Alias Method（整數版）：建表 O(N)、抽樣 O(1)，
// 全程整數運算以避免浮點誤差。clawlab 用它依 restock_weight 決定補貨的獎品種類。

package sampler

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/core"
)

// AliasTable 是整數 scaling 的 alias 表。
//   - Prob：scaled 後的留存機率（與 Total 比較）
//   - Aliases：機率不足時改取的索引
type AliasTable struct {
	Prob    []int
	Aliases []int
	Size    int
	Total   int
}

// NewAliasTable 依非負整數權重建表。
//
// 錯誤（Fatal，屬於設定問題）：
//   - 空權重
//   - 出現負權重
//   - 權重總和為 0
//   - total * n 溢位
func NewAliasTable(weights []int) (*AliasTable, error) {
	n := len(weights)
	if n == 0 {
		return nil, errs.NewFatal("alias table: empty weights")
	}
	total := uint64(0)
	for i, w := range weights {
		if w < 0 {
			return nil, errs.Fatalf("alias table: negative weight at %d", i)
		}
		if total > uint64(math.MaxInt)-uint64(w) {
			return nil, errs.NewFatal("alias table: total weight overflow")
		}
		total += uint64(w)
	}
	if total == 0 {
		return nil, errs.NewFatal("alias table: all weights are zero")
	}
	if !isSafeMultiply(int(total), n) {
		return nil, errs.NewFatal(fmt.Sprintf("alias table: weights too large (total=%d n=%d)", total, n))
	}

	t := int(total)
	prob := make([]int, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)

	for i, w := range weights {
		prob[i] = w * n
		aliases[i] = i
		if prob[i] < t {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		// 維持 sum(prob) = total * n
		prob[l] = prob[l] + prob[s] - t
		if prob[l] < t {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	return &AliasTable{Prob: prob, Aliases: aliases, Size: n, Total: t}, nil
}

func isSafeMultiply(a, b int) bool {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return hi == 0 && lo <= math.MaxInt64
}

// Pick 抽出一個索引（固定消耗兩次 IntN）；空表回傳 -1。
func (at *AliasTable) Pick(c *core.Core) int {
	if at == nil || at.Size == 0 {
		return -1
	}
	idx := c.IntN(at.Size)
	if c.IntN(at.Total) < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}
