package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	status []bool
}

func (r *recordingSink) OnEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) OnStatus(connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = append(r.status, connected)
}

func (r *recordingSink) snapshot() ([]Event, []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...), append([]bool(nil), r.status...)
}

func TestDecode(t *testing.T) {
	ev, ok, err := Decode([]byte(`{"type":"conversation.updated","companyId":"acme","conversation":{"id":"c1","unreadCount":1}}`), "acme")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "c1", ev.ConversationID)
	require.Equal(t, 1, ev.Conversation.UnreadCount)

	_, ok, err = Decode([]byte(`{"type":"conversation.updated","companyId":"other"}`), "acme")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = Decode([]byte(`not json`), "acme")
	require.Error(t, err)
}

func TestWSChannel_DeliversEventsAndStatus(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("companyId") != "acme" {
			http.Error(w, "company", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"conversation.updated","companyId":"acme","conversation":{"id":"c1"}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"resync","companyId":"acme"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{}
	done := make(chan error, 1)
	ch := NewWSChannel("ws" + strings.TrimPrefix(srv.URL, "http"))
	go func() { done <- ch.Run(ctx, "acme", sink) }()

	require.Eventually(t, func() bool {
		events, _ := sink.snapshot()
		return len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)

	events, status := sink.snapshot()
	require.Equal(t, EventConversationUpdated, events[0].Type)
	require.Equal(t, EventResync, events[1].Type)
	require.Equal(t, []bool{true}, status)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not stop")
	}
	_, status = sink.snapshot()
	require.False(t, status[len(status)-1])
}

func TestNoneChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &recordingSink{}
	require.NoError(t, NewNoneChannel().Run(ctx, "acme", sink))
	_, status := sink.snapshot()
	require.Equal(t, []bool{false}, status)
}
