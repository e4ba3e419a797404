package service

import (
	"Switchboard/internal/model"
	"Switchboard/internal/pkg/backend"
	"context"
	"sync"
	"time"
)

// fakeClient 可编程的后端，记录每一次调用
type fakeClient struct {
	mu sync.Mutex

	conversations []*model.Conversation
	listErr       error
	listCalls     int

	messages     map[bool][]*model.Message
	messagesErr  error
	messageCalls []bool

	sendFn func(req *backend.SendRequest) (*backend.SendResult, error)
	sent   []backend.SendRequest
}

func newFakeClient() *fakeClient {
	return &fakeClient{messages: make(map[bool][]*model.Message)}
}

func (f *fakeClient) ListConversations(_ context.Context, _ string) ([]*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*model.Conversation, len(f.conversations))
	for i, c := range f.conversations {
		out[i] = c.Clone()
	}
	return out, nil
}

func (f *fakeClient) ListMessages(_ context.Context, _, _ string, recentOnly bool) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageCalls = append(f.messageCalls, recentOnly)
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	return f.messages[recentOnly], nil
}

func (f *fakeClient) Send(_ context.Context, req *backend.SendRequest) (*backend.SendResult, error) {
	f.mu.Lock()
	f.sent = append(f.sent, *req)
	fn := f.sendFn
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &backend.SendResult{MessageID: "m-1"}, nil
}

func (f *fakeClient) setConversations(list ...*model.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations = list
}

func (f *fakeClient) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeClient) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeClient) Sent() []backend.SendRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.SendRequest(nil), f.sent...)
}

func (f *fakeClient) MessageCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.messageCalls...)
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func conv(id string, unread, recent int, ago time.Duration) *model.Conversation {
	return &model.Conversation{
		ID:                  id,
		CompanyID:           "c1",
		CustomerName:        "customer " + id,
		UnreadCount:         unread,
		RecentMessagesCount: recent,
		LastMessageAt:       at(ago),
	}
}

func ids(list []*model.Conversation) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}
