package model

import "time"

// Conversation 会话（客户 + 渠道唯一），由服务端在首次接触时创建
type Conversation struct {
	ID                  string     `json:"id"`
	CompanyID           string     `json:"companyId"`
	Channel             string     `json:"channel"` // facebook, whatsapp ...
	CustomerName        string     `json:"customerName"`
	CustomerExternalID  string     `json:"customerExternalId"`
	LastMessageText     string     `json:"lastMessageText"`
	Status              string     `json:"status"`
	Priority            string     `json:"priority"`
	UnreadCount         int        `json:"unreadCount"`         // 客户发来且未读的消息数
	RecentMessagesCount int        `json:"recentMessagesCount"` // 滑动窗口内的消息数（双向）
	LastMessageAt       *time.Time `json:"lastMessageAt"`
}

// Clone 返回浅拷贝，LastMessageAt 单独复制
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	if c.LastMessageAt != nil {
		ts := *c.LastMessageAt
		out.LastMessageAt = &ts
	}
	return &out
}

// NewerThan 判断 c 的最后消息时间是否不早于 other（last-writer-wins）
// 空时间戳视为最旧
func (c *Conversation) NewerThan(other *Conversation) bool {
	if other == nil || other.LastMessageAt == nil {
		return true
	}
	if c.LastMessageAt == nil {
		return false
	}
	return !c.LastMessageAt.Before(*other.LastMessageAt)
}
