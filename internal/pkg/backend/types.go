package backend

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

type envelope[T any] struct {
	Success   bool   `json:"success"`
	Data      T      `json:"data"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// conversationWire 后端会话列表项
type conversationWire struct {
	ID                  string     `json:"id"`
	CompanyID           string     `json:"companyId"`
	Channel             string     `json:"channel"`
	CustomerName        string     `json:"customerName"`
	CustomerExternalID  string     `json:"customerId"`
	LastMessage         string     `json:"lastMessage" copier:"LastMessageText"`
	Status              string     `json:"status"`
	Priority            string     `json:"priority"`
	UnreadCount         int        `json:"unreadCount"`
	RecentMessagesCount int        `json:"recentMessagesCount"`
	LastMessageAt       *time.Time `json:"lastMessageAt"`
}

// SendRequest 发送能力的请求体，ImageData 为 data URI
type SendRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	CompanyID      string `json:"companyId" validate:"required"`
	Text           string `json:"text,omitempty"`
	Type           string `json:"type" validate:"oneof=text image"`
	ImageData      string `json:"imageData,omitempty"`
	ImageName      string `json:"imageName,omitempty"`
}

type SendResult struct {
	MessageID string `json:"messageId"`
}
