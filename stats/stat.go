package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/clawlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo" yaml:"Lo"`
	Hi float64 `json:"Hi" yaml:"Hi"`
}

// StatReport 機台統計報告
type StatReport struct {
	Summary *SummaryReport `json:"Summary"`
	Kinds   []KindReport   `json:"Kinds"`
	Dist    *DistReport    `json:"Dist"`
	Player  *PlayerReport  `json:"Player,omitzero"`
	isDone  bool
}

// SummaryReport 每一次抓取都花一枚代幣，所以 PointsPerCoin 也就是單局平均得分。
type SummaryReport struct {
	MachineName        string   `json:"MachineName"`
	MachineID          spec.MID `json:"MachineID"`
	Players            int      `json:"Players"`
	Plays              int      `json:"Plays"`
	Wins               int      `json:"Wins"`
	Misses             int      `json:"Misses"`
	Drops              int      `json:"Drops"`
	NothingInReach     int      `json:"NothingInReach"`
	Consolations       int      `json:"Consolations"`
	WinRate            float64  `json:"WinRate"`
	WinRateCI          CI       `json:"WinRateCI"`
	NothingInReachRate float64  `json:"NothingInReachRate"`
	TotalPoints        int      `json:"TotalPoints"`
	PointsSqSum        float64  `json:"PointsSqSum"` // 平方和
	PointsPerCoin      float64  `json:"PointsPerCoin"`
	PointsCI           CI       `json:"PointsCI"`
	Std                float64  `json:"Std"`
	Cv                 float64  `json:"Cv"`
	CoinsSpent         int      `json:"CoinsSpent"`
	CoinsWon           int      `json:"CoinsWon"`
	Combos             int      `json:"Combos"`
	Milestones         int      `json:"Milestones"`
	BestStreak         int      `json:"BestStreak"`
	BestCombo          int      `json:"BestCombo"`
}

// KindReport 依獎品種類：爪子範圍內最近的是這個種類時算一次 attempt
type KindReport struct {
	Kind     string  `json:"Kind"`
	Attempts int     `json:"Attempts"`
	Wins     int     `json:"Wins"`
	Rate     float64 `json:"Rate"`
	CI       CI      `json:"CI"`
}

// DistReport 單局得分落點
type DistReport struct {
	PointBucket []string  `json:"PointBucket"`
	Collect     []int     `json:"Collect"`
	Dist        []float64 `json:"Dist"`
}

// PlayerReport 玩家統計
//
// 只有模擬單一玩家時才有意義；Bust 代表代幣用完離場，Alive 代表動作額度用完時還有代幣。
type PlayerReport struct {
	StartCoins int  `json:"StartCoins"`
	Coins      int  `json:"Coins"`
	MaxCoins   int  `json:"MaxCoins"`
	Points     int  `json:"Points"`
	Plays      int  `json:"Plays"`
	Combos     int  `json:"Combos"`
	Bust       bool `json:"Bust"`
	Alive      bool `json:"Alive"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 把累積計數轉成比例與信賴區間，只會計算一次。
func (s *StatReport) Done() {
	if s.isDone {
		return
	}
	sum := s.Summary
	sum.WinRate, sum.WinRateCI = proportionCICP(sum.Wins, sum.Plays, 0.95)
	if sum.Plays > 0 {
		sum.NothingInReachRate = float64(sum.NothingInReach) / float64(sum.Plays)
	}
	sum.PointsPerCoin = s.PointsPerCoin()
	sum.Std = s.Std()
	sum.Cv = s.Cv()
	sum.PointsCI = s.Ci()

	for i := range s.Kinds {
		k := &s.Kinds[i]
		k.Rate, k.CI = proportionCICP(k.Wins, k.Attempts, 0.95)
	}

	if s.Dist != nil {
		s.Dist.Dist = make([]float64, len(s.Dist.Collect))
		if sum.Plays > 0 {
			for i, c := range s.Dist.Collect {
				s.Dist.Dist[i] = float64(c) / float64(sum.Plays)
			}
		}
	}

	if s.Player != nil {
		s.Player.Alive = !s.Player.Bust
	}
	s.isDone = true
}

// WinRate 成功收取 / 抓取次數
func (s *StatReport) WinRate() float64 {
	if s.Summary.Plays == 0 {
		return 0
	}
	return float64(s.Summary.Wins) / float64(s.Summary.Plays)
}

// PointsPerCoin 每枚代幣（每局）的平均得分
func (s *StatReport) PointsPerCoin() float64 {
	if s.Summary.Plays == 0 {
		return 0
	}
	return float64(s.Summary.TotalPoints) / float64(s.Summary.Plays)
}

// Std 單局得分的樣本標準差
func (s *StatReport) Std() float64 {
	n := float64(s.Summary.Plays)
	if n < 2 {
		return 0
	}
	total := float64(s.Summary.TotalPoints)
	variance := (s.Summary.PointsSqSum - total*total/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Cv 單局得分的變異係數
func (s *StatReport) Cv() float64 {
	mean := s.PointsPerCoin()
	if mean <= 0 {
		return 0
	}
	return s.Std() / mean
}

// Ci 單局平均得分的 95% 信賴區間（常態近似）
func (s *StatReport) Ci() CI {
	mean := s.PointsPerCoin()
	se := 0.0
	if s.Summary.Plays > 1 {
		se = s.Std() / math.Sqrt(float64(s.Summary.Plays))
	}
	return CI{
		Lo: max(mean-1.96*se, 0.0),
		Hi: mean + 1.96*se,
	}
}

func (s *StatReport) WriteWith(w io.Writer, rep StatReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

func (s *StatReport) StdOut(ut time.Duration) {
	s.Done()
	formatDuration(ut, s.Summary.Plays)
	for _, t := range s.tables() {
		fmt.Println(t)
	}
}

func (s *StatReport) tables() []string {
	s.Done()
	sk, sm := s.fmtBasic()
	out := []string{fmtTable(s.Summary.MachineName, sk, sm)}
	if len(s.Kinds) > 0 {
		kk, km := s.fmtKinds()
		out = append(out, fmtTable("Prize Kinds", kk, km))
	}
	if s.Dist != nil {
		dk, dm := s.fmtDist()
		out = append(out, fmtTable("Points Per Play", dk, dm))
	}
	return out
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, plays int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	pps := int(float64(plays) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\npps : %d plays/sec\n", sec, pps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		p.Printf("used: %dm %ds\npps : %d plays/sec\n", m, s, pps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\npps : %d plays/sec\n", h, m, s, pps)
}

func (s *StatReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	sum := s.Summary
	basic := map[string]string{
		"Machine Name":     p.Sprintf("%s", sum.MachineName),
		"Machine ID":       fmt.Sprintf("%d", sum.MachineID),
		"Players":          p.Sprintf("%d", sum.Players),
		"Total Plays":      p.Sprintf("%d", sum.Plays),
		"Wins":             p.Sprintf("%d", sum.Wins),
		"Win Rate":         p.Sprintf("%.2f %%", 100.0*sum.WinRate),
		"Win Rate 95% CI":  p.Sprintf("[%.2f%%,%.2f%%]", 100.0*sum.WinRateCI.Lo, 100.0*sum.WinRateCI.Hi),
		"Nothing In Reach": p.Sprintf("%.2f %%", 100.0*sum.NothingInReachRate),
		"Drops":            p.Sprintf("%d", sum.Drops),
		"Consolations":     p.Sprintf("%d", sum.Consolations),
		"Total Points":     p.Sprintf("%d", sum.TotalPoints),
		"Points / Coin":    p.Sprintf("%.3f", sum.PointsPerCoin),
		"Points 95% CI":    p.Sprintf("[%.3f,%.3f]", sum.PointsCI.Lo, sum.PointsCI.Hi),
		"Coins Spent/Won":  p.Sprintf("%d / %d", sum.CoinsSpent, sum.CoinsWon),
		"Combos":           p.Sprintf("%d (best %d)", sum.Combos, sum.BestCombo),
		"Best Streak":      p.Sprintf("%d", sum.BestStreak),
		"STD":              p.Sprintf("%.3f", sum.Std),
		"CV":               p.Sprintf("%.3f", sum.Cv),
	}
	keys := []string{"Machine Name", "Machine ID", "Players", "Total Plays", "Wins", "Win Rate", "Win Rate 95% CI",
		"Nothing In Reach", "Drops", "Consolations", "Total Points", "Points / Coin", "Points 95% CI",
		"Coins Spent/Won", "Combos", "Best Streak", "STD", "CV"}
	return keys, basic
}

func (s *StatReport) fmtKinds() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	keys := make([]string, 0, len(s.Kinds))
	msg := make(map[string]string, len(s.Kinds))
	for _, k := range s.Kinds {
		keys = append(keys, k.Kind)
		msg[k.Kind] = p.Sprintf("%d/%d  %.2f%% [%.2f%%,%.2f%%]", k.Wins, k.Attempts, 100*k.Rate, 100*k.CI.Lo, 100*k.CI.Hi)
	}
	return keys, msg
}

func (s *StatReport) fmtDist() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	keys := make([]string, 0, len(s.Dist.PointBucket))
	msg := make(map[string]string, len(s.Dist.PointBucket))
	for i, label := range s.Dist.PointBucket {
		keys = append(keys, label)
		msg[label] = p.Sprintf("%d (%.2f%%)", s.Dist.Collect[i], 100*s.Dist.Dist[i])
	}
	return keys, msg
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := max((totalInner-titleW)/2, 0)
	right := max(totalInner-titleW-left, 0)

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
