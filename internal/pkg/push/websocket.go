package push

import (
	"context"
	"errors"
	log "log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsInitialBackoff = time.Second
	wsMaxBackoff     = 30 * time.Second
	wsPongWait       = 60 * time.Second
)

// WSChannel 通过 WebSocket 订阅推送，断线后指数退避重连
type WSChannel struct {
	endpoint string
	dialer   *websocket.Dialer
}

func NewWSChannel(endpoint string) *WSChannel {
	return &WSChannel{
		endpoint: endpoint,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (s *WSChannel) Run(ctx context.Context, companyID string, sink Sink) error {
	target, err := url.Parse(s.endpoint)
	if err != nil {
		return err
	}
	q := target.Query()
	q.Set("companyId", companyID)
	target.RawQuery = q.Encode()

	backoff := wsInitialBackoff
	for {
		connected, err := s.session(ctx, target.String(), companyID, sink)
		sink.OnStatus(false)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = wsInitialBackoff
		}
		log.Warn("push websocket disconnected, retrying", "backoff", backoff, "err", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > wsMaxBackoff {
			backoff = wsMaxBackoff
		}
	}
}

// session 单次连接的读循环，返回是否曾成功建立连接
func (s *WSChannel) session(ctx context.Context, target, companyID string, sink Sink) (bool, error) {
	conn, _, err := s.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = conn.Close()
	}()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	sink.OnStatus(true)
	log.Info("push websocket connected", "companyID", companyID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(ctx.Err(), context.Canceled) {
				return true, nil
			}
			return true, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		ev, ok, err := Decode(data, companyID)
		if err != nil {
			log.Warn("drop malformed push event", "err", err)
			continue
		}
		if ok {
			sink.OnEvent(ev)
		}
	}
}
