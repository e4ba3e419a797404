package triage

import (
	"Switchboard/internal/model"
	"Switchboard/internal/pkg/timeutil"
	"time"
)

type Tag string

const (
	TagNeedsReply    Tag = "needs-reply"
	TagBulkBroadcast Tag = "bulk-broadcast"
)

const (
	NeedsReplyWindowHours = 6
	BulkWindowHours       = 24
)

// NeedsReply 有未读，或近期有消息且最后一条在 6 小时内
func NeedsReply(c *model.Conversation, now time.Time) bool {
	if c == nil {
		return false
	}
	if c.UnreadCount > 0 {
		return true
	}
	return c.RecentMessagesCount > 0 && timeutil.IsWithinHours(c.LastMessageAt, NeedsReplyWindowHours, now)
}

// IsBulkBroadcast 近期有消息、无未读、最后一条在 24 小时内
func IsBulkBroadcast(c *model.Conversation, now time.Time) bool {
	if c == nil {
		return false
	}
	return c.RecentMessagesCount > 0 &&
		c.UnreadCount == 0 &&
		timeutil.IsWithinHours(c.LastMessageAt, BulkWindowHours, now)
}

// Tags 两个判定独立计算，不保证互斥
func Tags(c *model.Conversation, now time.Time) []Tag {
	tags := make([]Tag, 0, 2)
	if NeedsReply(c, now) {
		tags = append(tags, TagNeedsReply)
	}
	if IsBulkBroadcast(c, now) {
		tags = append(tags, TagBulkBroadcast)
	}
	return tags
}
