package service

import (
	"Switchboard/internal/model"
	"Switchboard/internal/pkg/push"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestView(t *testing.T) (*fakeClient, SyncService, ViewService) {
	t.Helper()
	client := newFakeClient()
	client.setConversations(conv("a", 1, 1, time.Hour), conv("b", 0, 0, time.Hour))
	client.messages[true] = []*model.Message{{ID: "m2", Text: "recent"}}
	client.messages[false] = []*model.Message{{ID: "m1", Text: "old"}, {ID: "m2", Text: "recent"}}
	s := loadedSync(t, client)
	return client, s, NewViewService(client, s)
}

func TestViewService_OpenResetsToRecent(t *testing.T) {
	client, _, view := newTestView(t)
	ctx := context.Background()

	st, err := view.Open(ctx, "a")
	require.NoError(t, err)
	require.True(t, st.RecentOnly)
	require.Len(t, st.Messages, 1)
	selected, ok := view.Selected()
	require.True(t, ok)
	require.Equal(t, "a", selected.ID)

	st, err = view.ToggleHistory(ctx)
	require.NoError(t, err)
	require.False(t, st.RecentOnly)
	require.Len(t, st.Messages, 2)

	// 重新打开回到仅最近消息
	st, err = view.Open(ctx, "b")
	require.NoError(t, err)
	require.True(t, st.RecentOnly)
	require.Equal(t, "b", st.ConversationID)
	require.Equal(t, []bool{true, false, true}, client.MessageCalls())
}

func TestViewService_OpenErrors(t *testing.T) {
	_, _, view := newTestView(t)
	_, err := view.Open(context.Background(), "")
	require.ErrorIs(t, err, ErrNoConversation)
	_, err = view.Open(context.Background(), "missing")
	require.ErrorIs(t, err, ErrConversationNotFound)
	_, err = view.ToggleHistory(context.Background())
	require.ErrorIs(t, err, ErrNoConversation)
}

func TestViewService_FetchFailureKeepsMessages(t *testing.T) {
	client, _, view := newTestView(t)
	_, err := view.Open(context.Background(), "a")
	require.NoError(t, err)

	client.mu.Lock()
	client.messagesErr = errors.New("timeout")
	client.mu.Unlock()

	st, err := view.Reload(context.Background())
	require.ErrorIs(t, err, ErrMessagesFetchFailed)
	require.Len(t, st.Messages, 1)
	require.NotEmpty(t, st.LastError)
}

func TestViewService_ScrollOnEveryChange(t *testing.T) {
	_, _, view := newTestView(t)
	events, cancel := view.Subscribe()
	defer cancel()

	st, err := view.Open(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, uint64(1), st.ScrollSeq)

	ev := <-events
	require.Equal(t, ViewEventScrollToLatest, ev.Type)
	require.Equal(t, "a", ev.ConversationID)

	view.AppendPending("a", &model.Message{ID: "local-1", Text: "hi"})
	ev = <-events
	require.Equal(t, uint64(2), ev.Seq)

	view.MarkFailed("a", "local-1", "网络异常")
	ev = <-events
	require.Equal(t, uint64(3), ev.Seq)

	msgs := view.State().Messages
	last := msgs[len(msgs)-1]
	require.Equal(t, model.MessageFailed, last.Status)
	require.Equal(t, "网络异常", last.FailureReason)
}

func TestViewService_PendingIgnoredForOtherConversation(t *testing.T) {
	_, _, view := newTestView(t)
	_, err := view.Open(context.Background(), "a")
	require.NoError(t, err)

	view.AppendPending("b", &model.Message{ID: "local-1", Text: "hi"})
	require.Len(t, view.State().Messages, 1)

	view.AppendPending("a", &model.Message{ID: "local-2", Text: "hi"})
	require.Len(t, view.State().Messages, 2)
	view.MarkSent("a", "local-2")
	require.Len(t, view.State().Messages, 1)
}

func TestViewService_RunReloadsOnNewMessage(t *testing.T) {
	client, s, view := newTestView(t)
	_, err := view.Open(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = view.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// 其他会话的变化不触发拉取
	s.OnPushEvent(push.Event{Type: push.EventMessageCreated, Conversation: conv("b", 1, 1, 0)})
	time.Sleep(50 * time.Millisecond)
	require.Len(t, client.MessageCalls(), 1)

	s.OnPushEvent(push.Event{Type: push.EventMessageCreated, Conversation: conv("a", 2, 2, 0)})
	require.Eventually(t, func() bool {
		return len(client.MessageCalls()) == 2
	}, time.Second, 10*time.Millisecond)
}
