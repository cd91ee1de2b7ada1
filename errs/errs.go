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

// Package errs 定義 clawlab 全域共用的分級錯誤。
//
// 注意：遊戲核心（sdk/claw、sdk/field ...）的「操作被拒絕」不是錯誤，
// 它們一律以 claw.Outcome 回報；本包只處理設定、組裝、儲存、傳輸層的錯誤。
package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : 錯誤分級，讓邊界層（HTTP / CLI）決定如何回應
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
	NotFound
)

var errLvMap = map[ErrLevel]string{
	None:     "",
	Fatal:    "fatal",
	Warn:     "warn",
	Log:      "log",
	NotFound: "notfound",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// E 是統一的錯誤型別。
//   - Message：主訊息
//   - Extra：呼叫端附加的上下文（例如 session id、設定檔名）
//   - Cause：下層錯誤
//   - ErrLv：嚴重度
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
}

func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", ErrLv(e.ErrLv), e.Message)
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

func (e *E) Unwrap() error { return e.Cause }

func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

// NewNotFound 用於「查無資源」：session id、machine id、儲存紀錄等。
func NewNotFound(msg string) *E {
	return &E{Message: msg, ErrLv: NotFound}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

func Logf(format string, a ...any) *E {
	return NewLog(fmt.Sprintf(format, a...))
}

func NotFoundf(format string, a ...any) *E {
	return NewNotFound(fmt.Sprintf(format, a...))
}

func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Wrap 以 msg 包裝 cause。
//
// 分級規則：
//   - cause 鏈上已有 *E：沿用其 ErrLv。
//   - 否則（標準庫、sqlite、goja 等三方錯誤）：一律 Fatal。
//
// 可預期且可處理的情境請直接 New 一個帶正確分級的 *E，不要 Wrap。
func Wrap(cause error, msg string) *E {
	r := New(LevelOf(cause), msg)
	r.Cause = cause
	return r
}

// WrapWithExtra 與 Wrap 相同，另外附加上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := NewWithExtra(LevelOf(cause), msg, extra)
	r.Cause = cause
	return r
}

// LevelOf 取出錯誤鏈上第一個 *E 的分級；非 *E 視為 Fatal，nil 回傳 None。
func LevelOf(err error) ErrLevel {
	if err == nil {
		return None
	}
	var e *E
	if errors.As(err, &e) {
		return e.ErrLv
	}
	return Fatal
}

// IsNotFound 回報錯誤鏈是否屬於查無資源。
func IsNotFound(err error) bool {
	return err != nil && LevelOf(err) == NotFound
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}
