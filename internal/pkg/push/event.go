package push

import (
	"Switchboard/internal/model"
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

type EventType string

const (
	EventConversationUpdated EventType = "conversation.updated"
	EventMessageCreated      EventType = "message.created"
	EventResync              EventType = "resync"
)

// Event 推送通道送达的变更事件，至少一次、无序
type Event struct {
	Type           EventType           `json:"type"`
	CompanyID      string              `json:"companyId"`
	ConversationID string              `json:"conversationId,omitempty"`
	Conversation   *model.Conversation `json:"conversation,omitempty"`
}

// Sink 接收事件与连接状态
type Sink interface {
	OnEvent(ev Event)
	OnStatus(connected bool)
}

// Channel 按公司订阅的长连接，Run 阻塞直到 ctx 结束
type Channel interface {
	Run(ctx context.Context, companyID string, sink Sink) error
}

// Decode 解析事件，忽略其他公司的事件
func Decode(data []byte, companyID string) (Event, bool, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, false, fmt.Errorf("decode push event: %w", err)
	}
	if ev.CompanyID != "" && ev.CompanyID != companyID {
		return ev, false, nil
	}
	if ev.Conversation != nil && ev.ConversationID == "" {
		ev.ConversationID = ev.Conversation.ID
	}
	return ev, true, nil
}

// noneChannel 未配置推送时使用，仅依赖轮询与发送后刷新
type noneChannel struct{}

func NewNoneChannel() Channel { return noneChannel{} }

func (noneChannel) Run(ctx context.Context, _ string, sink Sink) error {
	sink.OnStatus(false)
	<-ctx.Done()
	return nil
}
