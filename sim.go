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

package clawlab

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/recorder"
	"github.com/zintix-labs/clawlab/sdk/bot"
	"github.com/zintix-labs/clawlab/sdk/claw"
	"github.com/zintix-labs/clawlab/sdk/core"
	"github.com/zintix-labs/clawlab/sdk/progress"
	"github.com/zintix-labs/clawlab/sdk/sched"
	"github.com/zintix-labs/clawlab/spec"
	"github.com/zintix-labs/clawlab/stats"
	"golang.org/x/sync/errgroup"
)

// drainLimit 每個動作後最多執行的排程回呼數（一次抓取約 5 個）
const drainLimit = 64

// Simulator 以 bot 策略自動遊玩，平行模擬多位玩家並產出統計。
//
// 每位玩家有自己的 Manual 時鐘、Machine、策略實例與紀錄員；
// 玩家 seed 事先依序產生，所以結果與 worker 數無關。
type Simulator struct {
	MachineName string
	MachineID   spec.MID
	ms          *spec.MachineSetting
	bots        *bot.StrategyRegistry
	cf          core.PRNGFactory
	asset       func(string) ([]byte, error)
	params      bot.Params
	strategy    string
	initSeed    int64
	seedmaker   *seedMaker
}

func newSimulatorWithSeed(ms *spec.MachineSetting, bots *bot.StrategyRegistry, cf core.PRNGFactory, asset func(string) ([]byte, error), seed int64) (*Simulator, error) {
	p, err := bot.DecodeParams(ms.Bot)
	if err != nil {
		return nil, err
	}
	if !bots.IsExist(p.Strategy) {
		return nil, errs.Warnf("strategy not registered: %s", p.Strategy)
	}
	return &Simulator{
		MachineName: ms.MachineName,
		MachineID:   ms.MachineID,
		ms:          ms,
		bots:        bots,
		cf:          cf,
		asset:       asset,
		params:      p,
		strategy:    p.Strategy,
		initSeed:    seed,
		seedmaker:   newSeedMaker(seed),
	}, nil
}

// SetStrategy 改用其他已註冊的策略（參數仍取自機台設定的 bot 區段）
func (s *Simulator) SetStrategy(name string) error {
	if !s.bots.IsExist(name) {
		return errs.Warnf("strategy not registered: %s", name)
	}
	s.strategy = name
	return nil
}

func (s *Simulator) Strategy() string {
	return s.strategy
}

func (s *Simulator) Seed() int64 {
	return s.initSeed
}

// Sim 單線模擬 players 位玩家
func (s *Simulator) Sim(players int, showpb bool) (*stats.StatReport, *stats.EstimatorPlayers, time.Duration, error) {
	return s.SimPlayers(context.Background(), 1, players, showpb)
}

// SimPlayers 以 workers 個 goroutine 模擬 players 位玩家，
// 回傳合併後的機台報表、玩家估計與用時。任一玩家出錯即整體取消。
func (s *Simulator) SimPlayers(ctx context.Context, workers int, players int, showpb bool) (*stats.StatReport, *stats.EstimatorPlayers, time.Duration, error) {
	if workers < 1 || players < 1 {
		return nil, nil, 0, errs.NewWarn("workers and players must > 0")
	}
	workers = min(workers, players)

	seeds := make([]int64, players)
	recs := make([]*recorder.PlayRecorder, players)
	for i := range players {
		seeds[i] = s.seedmaker.next()
		r, err := recorder.NewPlayRecorder(s.MachineName, s.MachineID, s.ms.Progress.StartCoins)
		if err != nil {
			return nil, nil, 0, err
		}
		recs[i] = r
	}

	bar := pb.New(players)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	bar.Start()

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int, min(players, 2048))
	g.Go(func() error {
		defer close(jobs)
		for i := range players {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for range workers {
		g.Go(func() error {
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := s.play(seeds[i], recs[i]); err != nil {
					return err
				}
				bar.Increment()
			}
			return nil
		})
	}
	err := g.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if err != nil {
		return nil, nil, used, errs.Wrap(err, "simulation aborted")
	}

	merged, err := recorder.MergePlayRecorder(recs)
	if err != nil {
		return nil, nil, used, err
	}
	report := merged.Done()

	per := make([]*stats.StatReport, players)
	for i, r := range recs {
		per[i] = r.Done()
	}
	return report, stats.EstimatorPlayerExp(per), used, nil
}

// play 一位玩家的完整歷程：看 View → 策略決定 → 下指令 → 推進時鐘，
// 直到策略離場、代幣用完或動作額度用完。
func (s *Simulator) play(seed int64, rec *recorder.PlayRecorder) error {
	clk := sched.NewManual(time.Time{})
	m, err := newMachineWithSeed(s.ms, s.cf, clk, seed)
	if err != nil {
		return err
	}
	strat, err := s.bots.Build(s.strategy, bot.Env{
		Seed:   int64(mix63(uint64(seed) + 1)),
		Params: s.ms.Bot,
		Asset:  s.asset,
	})
	if err != nil {
		return err
	}

	bust := false
	m.SetPlayHook(func(p claw.Play, st progress.State) {
		if rec.RecordWithPlayer(p, st) {
			bust = true
		}
	})
	for range s.params.MaxActions {
		if bust {
			break
		}
		a, err := strat.Next(m.View())
		if err != nil {
			return err
		}
		if _, ok := m.ApplyAction(a); !ok {
			break
		}
		clk.Drain(drainLimit)
	}
	clk.Drain(drainLimit)
	rec.Finish(m.Progress())
	return nil
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// 注意：此方法可能在併發環境下被多 goroutines 同時呼叫，
// 因此 state 的推進使用 CAS 迴圈，每次呼叫都會取得唯一的下一個 state。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
