package model

import (
	"errors"
	"strings"
	"time"
)

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

type MessageStatus string

const (
	MessagePending   MessageStatus = "pending"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
	MessageFailed    MessageStatus = "failed"
)

var ErrMessageEmpty = errors.New("message has neither text nor image")

// Message 会话内的一条消息，文本与图片可同时存在
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversationId"`
	Direction      Direction     `json:"direction"`
	Text           string        `json:"text,omitempty"`
	ImageURL       string        `json:"imageUrl,omitempty"`
	Status         MessageStatus `json:"status,omitempty"` // 仅 outgoing
	FailureReason  string        `json:"failureReason,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Validate 文本和图片至少有一个
func (m *Message) Validate() error {
	if strings.TrimSpace(m.Text) == "" && m.ImageURL == "" {
		return ErrMessageEmpty
	}
	return nil
}
