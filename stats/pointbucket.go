package stats

import "fmt"

// PointBuckets 單局得分的分桶。第一桶固定是 [0,0]，最後一桶是最後邊界以上。
type PointBuckets struct {
	bounds []int
	labels []string
	lut    []int
}

// Buckets 預設分桶
var Buckets = NewPointBuckets([]int{0, 10, 25, 50, 100, 200, 500})

// NewPointBuckets bounds 需從 0 開始並嚴格遞增
func NewPointBuckets(bounds []int) *PointBuckets {
	b := &PointBuckets{bounds: append([]int(nil), bounds...)}
	last := len(bounds) - 1
	b.labels = make([]string, 0, len(bounds)+1)
	b.labels = append(b.labels, "[0,0]")
	if len(bounds) > 1 {
		b.labels = append(b.labels, fmt.Sprintf("(0,%d)", bounds[1]))
	}
	for i := 1; i < last; i++ {
		b.labels = append(b.labels, fmt.Sprintf("[%d,%d)", bounds[i], bounds[i+1]))
	}
	if last >= 1 {
		b.labels = append(b.labels, fmt.Sprintf("[%d,+inf)", bounds[last]))
	}

	// lut[p] = idx，只建到最後邊界
	top := bounds[last]
	b.lut = make([]int, top)
	idx := 1
	for p := 1; p < top; p++ {
		for idx < last && p >= bounds[idx] {
			idx++
		}
		b.lut[p] = idx
	}
	return b
}

func (b *PointBuckets) Labels() []string {
	return b.labels
}

// Index 得分所屬的桶；負分視為 0。
func (b *PointBuckets) Index(points int) int {
	if points <= 0 {
		return 0
	}
	if points >= len(b.lut) {
		return len(b.labels) - 1
	}
	return b.lut[points]
}
