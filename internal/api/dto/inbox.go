package dto

import "time"

// ConversationItem 会话列表项，附带实时计算的分类标签
type ConversationItem struct {
	ID                  string     `json:"id"`
	Channel             string     `json:"channel"`
	CustomerName        string     `json:"customerName"`
	CustomerExternalID  string     `json:"customerId"`
	LastMessageText     string     `json:"lastMessage"`
	Status              string     `json:"status"`
	Priority            string     `json:"priority"`
	UnreadCount         int        `json:"unreadCount"`
	RecentMessagesCount int        `json:"recentMessagesCount"`
	LastMessageAt       *time.Time `json:"lastMessageAt"`
	LastMessageLabel    string     `json:"lastMessageLabel"`
	Tags                []string   `json:"tags"`
}

type InboxResp struct {
	Tab           string             `json:"tab"`
	Filters       FiltersReq         `json:"filters"`
	Counts        map[string]int     `json:"counts"`
	Conversations []ConversationItem `json:"conversations"`
	Connected     bool               `json:"connected"`
	Loaded        bool               `json:"loaded"`
	LastError     string             `json:"lastError,omitempty"`
	LastSyncAt    time.Time          `json:"lastSyncAt"`
}

type SetTabReq struct {
	Tab string `json:"tab" validate:"required,oneof=needs-reply bulk-messages all"`
}

type FiltersReq struct {
	Search   string `json:"search" form:"search" validate:"max=200"`
	Status   string `json:"status" form:"status"`
	Priority string `json:"priority" form:"priority"`
}

type DraftTextReq struct {
	Text string `json:"text" validate:"max=4096"`
}

// SendReq 发送时可一并提交草稿文本，未提交时使用已保存的草稿
type SendReq struct {
	Text *string `json:"text" validate:"omitempty,max=4096"`
}

// WSEvent 推送给界面的事件
type WSEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
