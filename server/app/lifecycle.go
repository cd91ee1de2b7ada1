// Package app 管理服務內長期運行的元件（HTTP server、Arcade）的啟動與優雅關閉。
package app

import "context"

// Component 可啟動、可關閉的長期元件。
//   - Run 阻塞到元件停止；正常停止回傳 nil。
//   - Shutdown 要求停止，需尊重 ctx 的期限。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}
