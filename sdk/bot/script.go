package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/core"
)

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
	maxScriptLogs     = 200
)

// Script 以 goja 執行的策略。腳本需定義 next(view) 並回傳動作字串：
//
//	function next(v) { return v.coins > 0 ? "grab" : "quit" }
//
// 可用的全域函式：log(...)、rand()（以策略種子決定的 [0,1)）。
// require / eval / Function / fetch 皆被移除。
type Script struct {
	runtime *goja.Runtime
	next    goja.Callable
	rng     *core.Core
	logs    []string
}

func buildScript(env Env) (Strategy, error) {
	p, err := DecodeParams(env.Params)
	if err != nil {
		return nil, err
	}
	src := p.Source
	if src == "" && p.Script != "" {
		if env.Asset == nil {
			return nil, errs.NewWarn("script strategy: no asset loader for " + p.Script)
		}
		raw, err := env.Asset(p.Script)
		if err != nil {
			return nil, errs.Wrap(err, "script strategy: load script failed")
		}
		src = string(raw)
	}
	if strings.TrimSpace(src) == "" {
		return nil, errs.NewWarn("script strategy: empty source")
	}
	s, err := NewScript(src, env.Seed)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewScript 建立沙盒並執行一次腳本本體，確認 next 存在。
func NewScript(source string, seed int64) (*Script, error) {
	s := &Script{
		runtime: goja.New(),
		rng:     core.New(core.Default().New(seed)),
	}
	s.runtime.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	s.inject()

	err := s.runWithTimeout(scriptInitTimeout, func() error {
		_, err := s.runtime.RunString(source)
		return err
	})
	if err != nil {
		return nil, errs.NewWithExtra(errs.Warn, "script execution error", err.Error())
	}
	fn := s.runtime.Get("next")
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return nil, errs.NewWarn("next() function is not defined")
	}
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, errs.NewWarn("next is not a function")
	}
	s.next = callable
	return s, nil
}

func (s *Script) inject() {
	s.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		if len(s.logs) >= maxScriptLogs {
			s.logs = s.logs[1:]
		}
		s.logs = append(s.logs, strings.Join(parts, " "))
		return goja.Undefined()
	})
	s.runtime.Set("rand", func(goja.FunctionCall) goja.Value {
		return s.runtime.ToValue(s.rng.Float64())
	})
	s.runtime.Set("require", goja.Undefined())
	s.runtime.Set("fetch", goja.Undefined())
	s.runtime.Set("eval", goja.Undefined())
	s.runtime.Set("Function", goja.Undefined())
}

// Next 呼叫腳本的 next(view)
func (s *Script) Next(v View) (Action, error) {
	var out goja.Value
	err := s.runWithTimeout(scriptCallTimeout, func() error {
		res, err := s.next(goja.Undefined(), s.runtime.ToValue(v))
		out = res
		return err
	})
	if err != nil {
		return "", errs.NewWithExtra(errs.Warn, "next() error", err.Error())
	}
	if out == nil || goja.IsUndefined(out) || goja.IsNull(out) {
		return "", errs.NewWarn("next() returned nothing")
	}
	a, ok := ParseAction(out.String())
	if !ok {
		return "", errs.Warnf("next() returned unknown action %q", out.String())
	}
	return a, nil
}

// Logs 腳本 log() 的輸出
func (s *Script) Logs() []string {
	return append([]string(nil), s.logs...)
}

func (s *Script) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		s.runtime.Interrupt("script execution timeout")
		err := <-done
		s.runtime.ClearInterrupt()
		if err != nil {
			return fmt.Errorf("script timed out: %w", err)
		}
		return fmt.Errorf("script timed out")
	}
}
