package push

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
	"github.com/stretchr/testify/require"
)

// fakeRedis 只实现 SUBSCRIBE/PING 的 RESP2 服务端，PUBLISH 由测试直接推送
type fakeRedis struct {
	ln net.Listener

	// dropSubscribes 前 N 次 SUBSCRIBE 直接断开连接
	dropSubscribes int

	mu         sync.Mutex
	subscribes int
	channels   []string
	subs       map[net.Conn]*sync.Mutex
}

func newFakeRedis(t *testing.T, dropSubscribes int) *fakeRedis {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeRedis{ln: ln, dropSubscribes: dropSubscribes, subs: make(map[net.Conn]*sync.Mutex)}
	go f.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		f.mu.Lock()
		defer f.mu.Unlock()
		for conn := range f.subs {
			_ = conn.Close()
		}
	})
	return f
}

func (f *fakeRedis) addr() string { return f.ln.Addr().String() }

func (f *fakeRedis) client(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:            f.addr(),
		Protocol:        2,
		DisableIdentity: true,
		MaxRetries:      -1,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func (f *fakeRedis) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeRedis) handle(conn net.Conn) {
	wmu := &sync.Mutex{}
	defer func() {
		f.mu.Lock()
		delete(f.subs, conn)
		f.mu.Unlock()
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		var reply string
		switch strings.ToUpper(args[0]) {
		case "SUBSCRIBE":
			f.mu.Lock()
			f.subscribes++
			drop := f.subscribes <= f.dropSubscribes
			if !drop {
				f.subs[conn] = wmu
				f.channels = append(f.channels, args[1:]...)
			}
			f.mu.Unlock()
			if drop {
				return
			}
			for i, ch := range args[1:] {
				reply += fmt.Sprintf("*3\r\n$9\r\nsubscribe\r\n$%d\r\n%s\r\n:%d\r\n", len(ch), ch, i+1)
			}
		case "PING":
			reply = "*2\r\n$4\r\npong\r\n$0\r\n\r\n"
		default:
			reply = "-ERR unknown command '" + args[0] + "'\r\n"
		}
		wmu.Lock()
		_, err = io.WriteString(conn, reply)
		wmu.Unlock()
		if err != nil {
			return
		}
	}
}

// publish 推送给所有已订阅的连接
func (f *fakeRedis) publish(channel, payload string) {
	msg := fmt.Sprintf("*3\r\n$7\r\nmessage\r\n$%d\r\n%s\r\n$%d\r\n%s\r\n", len(channel), channel, len(payload), payload)
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn, wmu := range f.subs {
		wmu.Lock()
		_, _ = io.WriteString(conn, msg)
		wmu.Unlock()
	}
}

func (f *fakeRedis) stats() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes, append([]string(nil), f.channels...)
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "*") {
		return nil, errors.New("expected array")
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil || n <= 0 {
		return nil, errors.New("bad array length")
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		head, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimRight(head, "\r\n")[1:])
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func hasStatus(sink *recordingSink, want bool) bool {
	_, status := sink.snapshot()
	for _, s := range status {
		if s == want {
			return true
		}
	}
	return false
}

func TestRedisChannel_FiltersCompanyAndReportsStatus(t *testing.T) {
	srv := newFakeRedis(t, 0)
	ch := NewRedisChannel(srv.client(t), "inbox:events:")
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx, "acme", sink) }()

	require.Eventually(t, func() bool { return hasStatus(sink, true) }, 2*time.Second, 10*time.Millisecond)
	_, channels := srv.stats()
	require.Equal(t, []string{"inbox:events:acme"}, channels)

	srv.publish("inbox:events:acme", `{"type":"conversation.updated","companyId":"other","conversation":{"id":"x"}}`)
	srv.publish("inbox:events:acme", `not json`)
	srv.publish("inbox:events:acme", `{"type":"conversation.updated","companyId":"acme","conversation":{"id":"c1","unreadCount":2}}`)
	srv.publish("inbox:events:acme", `{"type":"resync"}`)

	require.Eventually(t, func() bool {
		events, _ := sink.snapshot()
		return len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)
	events, _ := sink.snapshot()
	require.Equal(t, "c1", events[0].Conversation.ID)
	require.Equal(t, 2, events[0].Conversation.UnreadCount)
	require.Equal(t, EventResync, events[1].Type)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	_, status := sink.snapshot()
	require.Equal(t, []bool{true, false}, status)
}

func TestRedisChannel_RetriesAfterSubscribeFailure(t *testing.T) {
	srv := newFakeRedis(t, 1)
	ch := NewRedisChannel(srv.client(t), "inbox:events:")
	ch.backoff = 10 * time.Millisecond
	ch.maxBackoff = 50 * time.Millisecond
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx, "acme", sink) }()

	require.Eventually(t, func() bool { return hasStatus(sink, true) }, 3*time.Second, 10*time.Millisecond)
	subscribes, _ := srv.stats()
	require.GreaterOrEqual(t, subscribes, 2)
	_, status := sink.snapshot()
	require.False(t, status[0])

	srv.publish("inbox:events:acme", `{"type":"message.created","companyId":"acme","conversationId":"c1"}`)
	require.Eventually(t, func() bool {
		events, _ := sink.snapshot()
		return len(events) == 1 && events[0].Type == EventMessageCreated
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
