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

// ops 開發用的任務入口：go run ./scripts <task> [args...]
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type task struct {
	desc string
	run  func(args []string) error
}

var tasks = map[string]task{
	"test":        {"go test ./... -cover（只顯示 ok/FAIL）", runTest},
	"test-detail": {"go test ./... -v（略過沒有測試的套件）", runTestDetail},
	"test-race":   {"go test -race ./...", runTestRace},
	"serve":       {"啟動 clawlab 服務（參數轉給 cmd/svr）", runServe},
	"sim":         {"跑一次模擬（參數轉給 cmd/run）", runSim},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	t, ok := tasks[os.Args[1]]
	if !ok {
		PrintYellow(fmt.Sprintf("unknown task: %s", os.Args[1]))
		usage()
		os.Exit(1)
	}
	if err := t.run(os.Args[2:]); err != nil {
		PrintRed(err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: go run ./scripts <task> [args...]")
	names := make([]string, 0, len(tasks))
	for k := range tasks {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Printf("  %-12s %s\n", n, tasks[n].desc)
	}
}

func cleanCache() {
	if err := exec.Command("go", "clean", "-testcache").Run(); err != nil {
		PrintYellow("go clean -testcache: " + err.Error())
	}
}

// passthrough 直接接上終端輸出
func passthrough(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd.Run()
}

// filtered 合併 stdout/stderr 後逐行交給 keep 決定要不要印
func filtered(keep func(line string) bool, args ...string) error {
	cmd := exec.Command("go", args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return err
	}
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		line := sc.Text()
		if !keep(line) {
			continue
		}
		switch {
		case strings.HasPrefix(line, "ok"):
			PrintGreen(line)
		case strings.HasPrefix(line, "FAIL"), strings.Contains(line, "build failed"):
			PrintRed(line)
		default:
			PrintDefault(line)
		}
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("go %s: %w", args[0], err)
	}
	return nil
}

func runTest([]string) error {
	PrintGreen("running tests")
	cleanCache()
	return filtered(func(l string) bool {
		return strings.HasPrefix(l, "ok") || strings.HasPrefix(l, "FAIL") ||
			strings.Contains(l, "build failed") || strings.Contains(l, "setup failed")
	}, "test", "./...", "-cover", "-count=1")
}

func runTestDetail([]string) error {
	PrintGreen("running tests (detail)")
	cleanCache()
	return filtered(func(l string) bool {
		return !strings.Contains(l, "[no test files]")
	}, "test", "./...", "-v", "-count=1")
}

func runTestRace([]string) error {
	PrintGreen("running tests (race)")
	return passthrough("go", "test", "-race", "-count=1", "./...")
}

func runServe(args []string) error {
	return passthrough("go", append([]string{"run", "./cmd/svr"}, args...)...)
}

func runSim(args []string) error {
	return passthrough("go", append([]string{"run", "./cmd/run"}, args...)...)
}
