package handler

import (
	"Switchboard/internal/api/dto"
	"Switchboard/internal/service"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second

	EventConversationsChanged = "conversations.changed"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	syncService service.SyncService
	viewService service.ViewService
}

func NewWsHandler(syncService service.SyncService, viewService service.ViewService) *WsHandler {
	return &WsHandler{syncService: syncService, viewService: viewService}
}

// Connect 向界面推送会话列表变化与滚动事件
func (s *WsHandler) Connect(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(ctx, "WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	changes, cancelSync := s.syncService.Subscribe()
	defer cancelSync()
	viewEvents, cancelView := s.viewService.Subscribe()
	defer cancelView()

	log.InfoContext(ctx, "界面 WS 连接已建立", "remote", c.ClientIP())

	stopChan := make(chan struct{})

	// 读循环：监听客户端主动断开
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(stopChan)
				return
			}
		}
	}()

	// 连接建立后先推送一次当前状态
	if err := s.write(conn, dto.WSEvent{Type: EventConversationsChanged, Data: s.syncService.State()}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-changes:
			err = s.write(conn, dto.WSEvent{Type: EventConversationsChanged, Data: s.syncService.State()})
		case ev := <-viewEvents:
			err = s.write(conn, dto.WSEvent{Type: string(ev.Type), Data: ev})
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
		case <-stopChan:
			log.InfoContext(ctx, "界面 WS 连接已断开")
			return
		}
		if err != nil {
			log.WarnContext(ctx, "WS 推送失败", "err", err)
			return
		}
	}
}

func (s *WsHandler) write(conn *websocket.Conn, ev dto.WSEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
