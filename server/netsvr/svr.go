package netsvr

import (
	"net/http"

	"github.com/zintix-labs/clawlab/server/app"
)

// NetSvr 路由 + 啟停。只有組裝層（server.Run）持有；api 只看得到 NetRouter。
// NetSvr 同時是 app.Component，可以直接交給 app.App 管理。
type NetSvr interface {
	NetRouter
	app.Component
}

// NetRouter 純路由行為；Group 回呼只拿得到 NetRouter。
// 路徑參數以 chi 語法表示（/sessions/{id}），用 Param 取值。
type NetRouter interface {
	// middleware
	Use(middleware func(http.Handler) http.Handler)

	// 註冊路由
	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Put(path string, h http.HandlerFunc)
	Delete(path string, h http.HandlerFunc)

	// 群組路由
	Group(path string, fn func(NetRouter))
}
