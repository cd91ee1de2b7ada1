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

// Package demo 內建三台示範機台（classic、tokenrush、scripted）的組裝捷徑。
package demo

import (
	"github.com/zintix-labs/clawlab"
	"github.com/zintix-labs/clawlab/catalog"
	"github.com/zintix-labs/clawlab/demo/demo_configs"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/core"
	"github.com/zintix-labs/clawlab/server/logger"
	"github.com/zintix-labs/clawlab/server/svrcfg"
)

// New 只掛上設定來源的空目錄；登錄由 Clawlab.RegisterAll 負責
func New() (*catalog.Catalog, error) {
	return catalog.New(demo_configs.FS)
}

// NewClawlab 已 Freeze，可直接建 Arcade 或模擬器
func NewClawlab() (*clawlab.Clawlab, error) {
	return clawlab.NewAuto(
		core.Default(),
		clawlab.Configs(demo_configs.FS),
		nil,
	)
}

// NewServerConfig 不帶 store 的開發用設定
func NewServerConfig() (*svrcfg.SvrCfg, error) {
	lab, err := NewClawlab()
	if err != nil {
		return nil, errs.Wrap(err, "new clawlab failed")
	}
	scfg := &svrcfg.SvrCfg{
		Log:      logger.NewDefaultAsyncLogger(logger.ModeDev),
		Capacity: 16,
		Lab:      lab,
	}
	return scfg, nil
}
