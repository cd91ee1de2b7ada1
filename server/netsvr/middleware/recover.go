package middleware

import (
	"net/http"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// Recover handler panic 時回 500，websocket 升級後的 panic 只會中斷該連線。
func Recover(next http.Handler) http.Handler {
	return chimid.Recoverer(next)
}

// NoCache 給會變動的 session 狀態使用
func NoCache(next http.Handler) http.Handler {
	return chimid.NoCache(next)
}
