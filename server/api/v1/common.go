// Package v1 /v1 路由的 handler。
//
// 每個 handler 只做三件事：解碼請求（dto）、呼叫 Arcade / Clawlab / Store、寫回 JSON。
// 錯誤一律交給 httperr 依分級映射狀態碼；指令被拒絕不是錯誤，會以 200 + outcome.accepted=false 回傳。
package v1

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/zintix-labs/clawlab/errs"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// header 已送出，編碼失敗也無法改寫狀態碼
	_ = json.NewEncoder(w).Encode(v)
}

// queryInt 缺省回傳 def
func queryInt(q url.Values, key string, def int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.Warnf("%s must be integer", key)
	}
	return v, nil
}
