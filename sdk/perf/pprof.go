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

// Package perf 包裝 runtime/pprof，給 cmd/run 的模擬壓測使用。
//
//	go run ./cmd/run -machine 1001 -player 100000 -worker 8 -p cpu
//	go tool pprof build/profiling/cpu.pprof
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/clawlab/errs"
)

// DefaultDir pprof 輸出目錄
const DefaultDir = "build/profiling"

// RunPProf 依 mode 執行 exe：
//   - ""：直接執行
//   - cpu：整段 CPU profile（也可作為 PGO 的 default.pgo）
//   - heap：執行後 GC 再寫出 in-use heap
//   - allocs：執行後寫出累積配置
func RunPProf(exe func(), mode string, dir string) error {
	switch mode {
	case "":
		exe()
		return nil
	case "cpu":
		return PProfCPU(exe, dir)
	case "heap":
		return PProfHeap(exe, dir)
	case "allocs":
		return PProfAllocs(exe, dir)
	}
	return errs.Warnf("unknown pprof mode %q (cpu|heap|allocs)", mode)
}

func create(dir, name string) (*os.File, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "create pprof dir")
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, errs.Wrap(err, "create "+name)
	}
	return f, nil
}

func PProfCPU(exe func(), dir string) error {
	f, err := create(dir, "cpu.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "start cpu profile")
	}
	defer pprof.StopCPUProfile()
	exe()
	return nil
}

// PProfHeap 先執行再拍快照；寫出前 GC 一次讓 live objects 較準確。
func PProfHeap(exe func(), dir string) error {
	exe()
	f, err := create(dir, "heap.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return errs.Wrap(err, "write heap profile")
	}
	return nil
}

// PProfAllocs 搭配 -alloc_space / -alloc_objects 查看分配熱點
func PProfAllocs(exe func(), dir string) error {
	exe()
	f, err := create(dir, "allocs.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if prof := pprof.Lookup("allocs"); prof != nil {
		if err := prof.WriteTo(f, 0); err != nil {
			return errs.Wrap(err, "write allocs profile")
		}
	}
	return nil
}
