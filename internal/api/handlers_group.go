package api

import "Switchboard/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	InboxHandler *handler.InboxHandler
	WSHandler    *handler.WsHandler
}
