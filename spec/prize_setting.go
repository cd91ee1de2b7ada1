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

package spec

import (
	"fmt"

	"github.com/zintix-labs/clawlab/errs"
)

// PrizeKind 獎品種類
type PrizeKind uint8

const (
	KindPlush PrizeKind = iota
	KindCoin
	KindToken
	KindBall
	kindCount
)

var prizeKindMap = map[string]PrizeKind{
	"plush": KindPlush,
	"coin":  KindCoin,
	"token": KindToken,
	"ball":  KindBall,
}

var prizeKindName = [...]string{"plush", "coin", "token", "ball"}

func ParsePrizeKind(s string) (PrizeKind, bool) {
	k, ok := prizeKindMap[s]
	return k, ok
}

func (k PrizeKind) String() string {
	if k < kindCount {
		return prizeKindName[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k PrizeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PrizeKind) UnmarshalText(b []byte) error {
	v, ok := ParsePrizeKind(string(b))
	if !ok {
		return errs.Warnf("unknown prize kind: %q", string(b))
	}
	*k = v
	return nil
}

// Rarity 稀有度，只供展示與統計分組，不影響機率
type Rarity uint8

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
)

var rarityMap = map[string]Rarity{
	"common":   RarityCommon,
	"uncommon": RarityUncommon,
	"rare":     RarityRare,
	"epic":     RarityEpic,
}

var rarityName = [...]string{"common", "uncommon", "rare", "epic"}

func ParseRarity(s string) (Rarity, bool) {
	r, ok := rarityMap[s]
	return r, ok
}

func (r Rarity) String() string {
	if int(r) < len(rarityName) {
		return rarityName[r]
	}
	return fmt.Sprintf("rarity(%d)", uint8(r))
}

func (r Rarity) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rarity) UnmarshalText(b []byte) error {
	v, ok := ParseRarity(string(b))
	if !ok {
		return errs.Warnf("unknown rarity: %q", string(b))
	}
	*r = v
	return nil
}

// Multiplier 決定獎勵的倍率來源
type Multiplier uint8

const (
	MultNone Multiplier = iota
	MultCombo
	MultStreak
)

var multiplierMap = map[string]Multiplier{
	"":       MultNone,
	"none":   MultNone,
	"combo":  MultCombo,
	"streak": MultStreak,
}

func ParseMultiplier(s string) (Multiplier, bool) {
	m, ok := multiplierMap[s]
	return m, ok
}

func (m Multiplier) String() string {
	switch m {
	case MultCombo:
		return "combo"
	case MultStreak:
		return "streak"
	default:
		return "none"
	}
}

// PrizeSetting 單一獎品種類的設定。
//   - RewardMin/RewardMax：抓中時的點數區間（閉區間）
//   - CoinGrant：抓中時額外發放的代幣（coin 類）
//   - Count：每次佈場產生的數量
//   - RestockWeight：補貨時的權重，0 代表不補貨
type PrizeSetting struct {
	Kind          string  `yaml:"kind"           json:"kind"`
	Rarity        string  `yaml:"rarity"         json:"rarity"`
	BaseRate      float64 `yaml:"base_rate"      json:"base_rate"`
	RewardMin     int     `yaml:"reward_min"     json:"reward_min"`
	RewardMax     int     `yaml:"reward_max"     json:"reward_max"`
	CoinGrant     int     `yaml:"coin_grant"     json:"coin_grant"`
	Multiplier    string  `yaml:"multiplier"     json:"multiplier"`
	Count         int     `yaml:"count"          json:"count"`
	RestockWeight int     `yaml:"restock_weight" json:"restock_weight"`
	Width         float64 `yaml:"width"          json:"width"`
	Height        float64 `yaml:"height"         json:"height"`

	KindID     PrizeKind  `yaml:"-" json:"-"`
	RarityID   Rarity     `yaml:"-" json:"-"`
	MultiplyBy Multiplier `yaml:"-" json:"-"`
}

func (ps *PrizeSetting) init() error {
	k, ok := ParsePrizeKind(ps.Kind)
	if !ok {
		return errs.Fatalf("unknown prize kind: %q", ps.Kind)
	}
	ps.KindID = k
	if ps.Rarity == "" {
		ps.Rarity = "common"
	}
	r, ok := ParseRarity(ps.Rarity)
	if !ok {
		return errs.Fatalf("prize %s: unknown rarity %q", ps.Kind, ps.Rarity)
	}
	ps.RarityID = r
	m, ok := ParseMultiplier(ps.Multiplier)
	if !ok {
		return errs.Fatalf("prize %s: unknown multiplier %q", ps.Kind, ps.Multiplier)
	}
	ps.MultiplyBy = m
	return nil
}

func (ps *PrizeSetting) valid(fs FieldSetting) error {
	if ps.BaseRate < 0 || ps.BaseRate > 1 {
		return errs.Fatalf("prize %s: base_rate %v out of [0,1]", ps.Kind, ps.BaseRate)
	}
	if ps.RewardMin < 0 || ps.RewardMax < ps.RewardMin {
		return errs.Fatalf("prize %s: invalid reward range [%d,%d]", ps.Kind, ps.RewardMin, ps.RewardMax)
	}
	if ps.CoinGrant < 0 {
		return errs.Fatalf("prize %s: negative coin_grant", ps.Kind)
	}
	if ps.Count < 0 || ps.RestockWeight < 0 {
		return errs.Fatalf("prize %s: negative count or restock_weight", ps.Kind)
	}
	span := FieldSize - 2*fs.Margin
	if ps.Width <= 0 || ps.Height <= 0 || ps.Width > span || ps.Height > span {
		return errs.Fatalf("prize %s: size %vx%v does not fit field span %v", ps.Kind, ps.Width, ps.Height, span)
	}
	return nil
}
