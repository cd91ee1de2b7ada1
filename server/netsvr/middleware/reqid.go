package middleware

import (
	"net/http"
	"strings"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// RequestID 沿用上游的 X-Request-Id；沒有時由 chi 產生 "host/prefix-000123"。
func RequestID(next http.Handler) http.Handler {
	return chimid.RequestID(next)
}

func GetReqId(r *http.Request) string {
	return chimid.GetReqID(r.Context())
}

// GetReqIdNumPart 最後一個 '-' 之後的序號；上游自帶且沒有 '-' 的 id 原樣回傳。
func GetReqIdNumPart(r *http.Request) string {
	id := GetReqId(r)
	if i := strings.LastIndexByte(id, '-'); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}
	return id
}
