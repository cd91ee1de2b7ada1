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

package recorder

import (
	"sort"

	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/claw"
	"github.com/zintix-labs/clawlab/sdk/grab"
	"github.com/zintix-labs/clawlab/sdk/progress"
	"github.com/zintix-labs/clawlab/spec"
	"github.com/zintix-labs/clawlab/stats"
)

// PlayRecorder 遊戲紀錄員
// PlayRecorder 負責紀錄每一次抓取的結果，並透過 Done 輸出統計報表
type PlayRecorder struct {
	MachineName string
	MachineID   spec.MID
	StartCoins  int
	Players     int
	Basic       *BasicRecord
	Kinds       map[string]*KindRecord
	Dist        *DistRecord
	Player      *PlayerRecord
}

// BasicRecord 基本遊戲資料紀錄
type BasicRecord struct {
	Plays          int
	Wins           int
	Misses         int
	Drops          int
	NothingInReach int
	Consolations   int
	Points         int
	PointsSqSum    int // 平方和
	CoinsSpent     int
	CoinsWon       int
	Combos         int
	Milestones     int
	BestStreak     int
	BestCombo      int
}

// KindRecord 依種類的嘗試與成功次數
type KindRecord struct {
	Attempts int
	Wins     int
}

// DistRecord 單局得分落點
type DistRecord struct {
	Bucket  *stats.PointBuckets
	Collect []int
}

// PlayerRecord 玩家統計
type PlayerRecord struct {
	StartCoins int
	Coins      int
	MaxCoins   int
	Points     int
	Plays      int
	Bust       bool
}

func NewPlayRecorder(name string, id spec.MID, startCoins int) (*PlayRecorder, error) {
	s := new(PlayRecorder)
	if startCoins < 0 {
		return s, errs.Fatalf("start coins must not be negative, got: %d", startCoins)
	}
	s.MachineName = name
	s.MachineID = id
	s.StartCoins = startCoins
	s.Players = 1
	s.Basic = new(BasicRecord)
	s.Kinds = make(map[string]*KindRecord, 4)
	s.Dist = newDistRecord()
	s.Player = &PlayerRecord{StartCoins: startCoins, Coins: startCoins, MaxCoins: startCoins}
	return s, nil
}

// MergePlayRecorder 合併多位玩家的紀錄；玩家層級的欄位不合併。
func MergePlayRecorder(r []*PlayRecorder) (*PlayRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge play record err : empty input")
	}
	r0 := r[0]
	s, err := NewPlayRecorder(r0.MachineName, r0.MachineID, r0.StartCoins)
	if err != nil {
		return s, err
	}
	s.Players = 0
	s.Player = nil
	for _, v := range r {
		if v.MachineName != r0.MachineName || v.MachineID != r0.MachineID {
			return s, errs.NewFatal("merge play record err : different machine")
		}
		if v.StartCoins != r0.StartCoins {
			return s, errs.NewFatal("merge play record err : different start coins")
		}
		s.Players += v.Players
		b, vb := s.Basic, v.Basic
		b.Plays += vb.Plays
		b.Wins += vb.Wins
		b.Misses += vb.Misses
		b.Drops += vb.Drops
		b.NothingInReach += vb.NothingInReach
		b.Consolations += vb.Consolations
		b.Points += vb.Points
		b.PointsSqSum += vb.PointsSqSum
		b.CoinsSpent += vb.CoinsSpent
		b.CoinsWon += vb.CoinsWon
		b.Combos += vb.Combos
		b.Milestones += vb.Milestones
		b.BestStreak = max(b.BestStreak, vb.BestStreak)
		b.BestCombo = max(b.BestCombo, vb.BestCombo)

		for k, kr := range v.Kinds {
			dst := s.kind(k)
			dst.Attempts += kr.Attempts
			dst.Wins += kr.Wins
		}
		for i := range v.Dist.Collect {
			s.Dist.Collect[i] += v.Dist.Collect[i]
		}
	}
	return s, nil
}

// Record 以單次抓取更新統計（不含玩家）
func (s *PlayRecorder) Record(p claw.Play) {
	pts := s.recordBasic(p)
	s.recordKind(p)
	s.Dist.Collect[s.Dist.Bucket.Index(pts)]++
}

// RecordWithPlayer 在 Record 的基礎上更新玩家狀態，回傳玩家是否該離場（代幣用完）。
func (s *PlayRecorder) RecordWithPlayer(p claw.Play, st progress.State) bool {
	s.Record(p)
	pl := s.Player
	pl.Coins = st.Coins
	pl.Points = st.Points
	pl.Plays = st.Plays
	pl.MaxCoins = max(pl.MaxCoins, st.Coins)
	if st.Coins <= 0 {
		pl.Bust = true
		return true
	}
	return false
}

// Finish 以最終狀態收尾（動作額度用完、玩家主動離場時）
func (s *PlayRecorder) Finish(st progress.State) {
	if s.Player == nil {
		return
	}
	s.Player.Coins = st.Coins
	s.Player.Points = st.Points
	s.Player.Plays = st.Plays
	s.Player.Bust = st.Coins <= 0
	s.Basic.BestStreak = max(s.Basic.BestStreak, st.BestStreak)
	s.Basic.BestCombo = max(s.Basic.BestCombo, st.BestCombo)
}

func (s *PlayRecorder) Done() *stats.StatReport {
	b := s.Basic
	report := &stats.StatReport{
		Summary: &stats.SummaryReport{
			MachineName:    s.MachineName,
			MachineID:      s.MachineID,
			Players:        s.Players,
			Plays:          b.Plays,
			Wins:           b.Wins,
			Misses:         b.Misses,
			Drops:          b.Drops,
			NothingInReach: b.NothingInReach,
			Consolations:   b.Consolations,
			TotalPoints:    b.Points,
			PointsSqSum:    float64(b.PointsSqSum),
			CoinsSpent:     b.CoinsSpent,
			CoinsWon:       b.CoinsWon,
			Combos:         b.Combos,
			Milestones:     b.Milestones,
			BestStreak:     b.BestStreak,
			BestCombo:      b.BestCombo,
		},
		Kinds: s.kindReports(),
		Dist: &stats.DistReport{
			PointBucket: s.Dist.Bucket.Labels(),
			Collect:     append([]int(nil), s.Dist.Collect...),
		},
	}
	if s.Player != nil {
		p := s.Player
		report.Player = &stats.PlayerReport{
			StartCoins: p.StartCoins,
			Coins:      p.Coins,
			MaxCoins:   p.MaxCoins,
			Points:     p.Points,
			Plays:      p.Plays,
			Combos:     b.Combos,
			Bust:       p.Bust,
		}
	}
	report.Done()
	return report
}

func (s *PlayRecorder) kind(k string) *KindRecord {
	kr, ok := s.Kinds[k]
	if !ok {
		kr = new(KindRecord)
		s.Kinds[k] = kr
	}
	return kr
}

func (s *PlayRecorder) kindReports() []stats.KindReport {
	keys := make([]string, 0, len(s.Kinds))
	for k := range s.Kinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]stats.KindReport, 0, len(keys))
	for _, k := range keys {
		kr := s.Kinds[k]
		out = append(out, stats.KindReport{Kind: k, Attempts: kr.Attempts, Wins: kr.Wins})
	}
	return out
}

// recordBasic 回傳這一局的得分
func (s *PlayRecorder) recordBasic(p claw.Play) int {
	b := s.Basic
	b.Plays++
	b.CoinsSpent++
	if p.Grab.Reason == grab.ReasonNothingInReach {
		b.NothingInReach++
	}
	if p.Dropped {
		b.Drops++
	}
	pts := 0
	switch {
	case p.Win != nil:
		w := p.Win
		pts = w.Points
		b.Wins++
		b.CoinsWon += w.Coins
		if w.ComboAchieved {
			b.Combos++
		}
		if w.StreakMilestone {
			b.Milestones++
		}
		b.BestStreak = max(b.BestStreak, w.Streak)
		b.BestCombo = max(b.BestCombo, w.Combo)
	case p.Miss != nil:
		b.Misses++
		if p.Miss.Consolation > 0 {
			b.Consolations++
			pts = p.Miss.Consolation
		}
	}
	b.Points += pts
	b.PointsSqSum += pts * pts
	return pts
}

func (s *PlayRecorder) recordKind(p claw.Play) {
	if p.Grab.Prize == nil {
		return
	}
	kr := s.kind(p.Grab.Prize.Kind.String())
	kr.Attempts++
	if p.Win != nil {
		kr.Wins++
	}
}

func newDistRecord() *DistRecord {
	return &DistRecord{
		Bucket:  stats.Buckets,
		Collect: make([]int, len(stats.Buckets.Labels())),
	}
}
