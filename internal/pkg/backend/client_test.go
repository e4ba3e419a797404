package backend

import (
	"Switchboard/internal/api/config"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.BackendConfig{BaseURL: srv.URL, Token: "secret", Timeout: 5, SendTimeout: 5})
}

func TestListConversations_MapsWireFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations", r.URL.Path)
		assert.Equal(t, "acme", r.URL.Query().Get("companyId"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"data":[
			{"id":"c1","customerName":"Ana","customerId":"wa-1","lastMessage":"hi","unreadCount":2,"recentMessagesCount":3,"lastMessageAt":"2026-05-04T10:00:00Z"},
			{"id":"c2","customerName":"Bo","lastMessageAt":null}
		]}`)
	})

	list, err := c.ListConversations(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "c1", list[0].ID)
	require.Equal(t, "wa-1", list[0].CustomerExternalID)
	require.Equal(t, "hi", list[0].LastMessageText)
	require.Equal(t, 2, list[0].UnreadCount)
	require.NotNil(t, list[0].LastMessageAt)
	require.Equal(t, "acme", list[0].CompanyID)
	require.Nil(t, list[1].LastMessageAt)
}

func TestListConversations_EmptyAndFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	list, err := c.ListConversations(context.Background(), "acme")
	require.NoError(t, err)
	require.Empty(t, list)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":false,"message":"boom"}`)
	})
	_, err = c.ListConversations(context.Background(), "acme")
	require.ErrorIs(t, err, ErrUnsuccessful)
}

func TestListMessages_RecentFlag(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations/c9/messages", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("recent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"data":[{"id":"m1","direction":"incoming","text":"yo"}]}`)
	})
	msgs, err := c.ListMessages(context.Background(), "c9", "acme", false)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "c9", msgs[0].ConversationID)
}

func TestSend_PostsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req SendRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "c1", req.ConversationID)
		assert.Equal(t, MessageTypeText, req.Type)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"data":{"messageId":"m42"}}`)
	})
	res, err := c.Send(context.Background(), &SendRequest{ConversationID: "c1", CompanyID: "acme", Text: "hello", Type: MessageTypeText})
	require.NoError(t, err)
	require.Equal(t, "m42", res.MessageID)
}

func TestSend_ErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"success":false,"message":"expired"}`, KindToken},
		{"too large", http.StatusRequestEntityTooLarge, `{"success":false}`, KindUpload},
		{"error code", http.StatusBadRequest, `{"success":false,"errorCode":"upload_failed"}`, KindUpload},
		{"legacy message", http.StatusOK, `{"success":false,"message":"Network unreachable"}`, KindNetwork},
		{"unknown", http.StatusInternalServerError, `{"success":false,"message":"oops"}`, KindGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.Send(context.Background(), &SendRequest{ConversationID: "c1", CompanyID: "acme", Text: "x", Type: MessageTypeText})
			require.Error(t, err)
			require.Equal(t, tc.want, KindOf(err))
		})
	}
}

func TestSend_TransportFailureIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c := NewClient(config.BackendConfig{BaseURL: srv.URL, Timeout: 1, SendTimeout: 1})
	_, err := c.Send(context.Background(), &SendRequest{ConversationID: "c1", CompanyID: "acme", Text: "x", Type: MessageTypeText})
	require.Equal(t, KindNetwork, KindOf(err))
}
