package service

import (
	"Switchboard/internal/model"
	"Switchboard/internal/pkg/backend"
	"Switchboard/internal/pkg/push"
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// SyncState 会话列表的同步状态，供界面展示
type SyncState struct {
	CompanyID  string    `json:"companyId"`
	Connected  bool      `json:"connected"`
	Loaded     bool      `json:"loaded"`
	Count      int       `json:"count"`
	LastError  string    `json:"lastError,omitempty"`
	LastSyncAt time.Time `json:"lastSyncAt"`
}

// SyncService 维护唯一、去重的会话列表
// 列表只能通过 Load（整体替换）与 OnPushEvent（按 ID 合并）修改
type SyncService interface {
	push.Sink
	Load(ctx context.Context, companyID string) ([]*model.Conversation, error)
	OnPushEvent(ev push.Event)
	Refresh(ctx context.Context) error
	RefreshAfterSend()
	Connected() bool
	Snapshot() []*model.Conversation
	Get(id string) (*model.Conversation, bool)
	State() SyncState
	Subscribe() (<-chan struct{}, func())
	Close()
}

type SyncOptions struct {
	RefreshDelay time.Duration // 发送后第二次拉取的延迟
	FetchTimeout time.Duration
}

type syncServiceImpl struct {
	client backend.Client
	opts   SyncOptions

	mu         sync.RWMutex
	companyID  string
	list       []*model.Conversation
	loaded     bool
	lastErr    error
	lastSyncAt time.Time
	appliedSeq uint64

	loadSeq   atomic.Uint64
	connected atomic.Bool

	subsMu  sync.Mutex
	subs    map[int]chan struct{}
	nextSub int

	lifeMu   sync.Mutex
	wg       sync.WaitGroup
	closed   bool
	stopChan chan struct{}
}

func NewSyncService(client backend.Client, opts SyncOptions) SyncService {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	return &syncServiceImpl{
		client:   client,
		opts:     opts,
		subs:     make(map[int]chan struct{}),
		stopChan: make(chan struct{}),
	}
}

// Load 整体替换本地列表；失败时保留上一次的数据
func (s *syncServiceImpl) Load(ctx context.Context, companyID string) ([]*model.Conversation, error) {
	seq := s.loadSeq.Add(1)

	s.mu.Lock()
	if s.companyID != companyID {
		s.companyID = companyID
		s.list = nil
		s.loaded = false
		s.lastErr = nil
		s.appliedSeq = 0
	}
	s.mu.Unlock()

	fetched, err := s.client.ListConversations(ctx, companyID)

	s.mu.Lock()
	if s.companyID != companyID {
		// 拉取期间切换了公司，丢弃结果
		s.mu.Unlock()
		return s.Snapshot(), nil
	}
	if seq < s.appliedSeq {
		// 更晚发起的拉取已经生效，本次结果（包括失败）作废
		s.mu.Unlock()
		return s.Snapshot(), nil
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		log.WarnContext(ctx, "会话列表拉取失败，保留旧数据", "companyID", companyID, "err", err)
		return s.Snapshot(), fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	s.appliedSeq = seq
	s.list = dedupe(fetched)
	s.loaded = true
	s.lastErr = nil
	s.lastSyncAt = time.Now()
	count := len(s.list)
	s.mu.Unlock()

	log.DebugContext(ctx, "会话列表已刷新", "companyID", companyID, "count", count)
	s.notify()
	return s.Snapshot(), nil
}

// OnPushEvent 按会话 ID 合并，lastMessageAt 较新者胜出
func (s *syncServiceImpl) OnPushEvent(ev push.Event) {
	if ev.Type == push.EventResync || ev.Conversation == nil || ev.Conversation.ID == "" {
		s.refreshAsync("push:" + string(ev.Type))
		return
	}

	incoming := ev.Conversation.Clone()
	changed := false

	s.mu.Lock()
	if incoming.CompanyID == "" {
		incoming.CompanyID = s.companyID
	}
	idx := s.indexLocked(incoming.ID)
	switch {
	case idx < 0:
		s.list = append([]*model.Conversation{incoming}, s.list...)
		changed = true
	case incoming.NewerThan(s.list[idx]):
		s.list[idx] = incoming
		changed = true
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *syncServiceImpl) OnEvent(ev push.Event) { s.OnPushEvent(ev) }

func (s *syncServiceImpl) OnStatus(connected bool) {
	if s.connected.Swap(connected) != connected {
		log.Info("推送通道状态变化", "connected", connected)
		s.notify()
	}
}

func (s *syncServiceImpl) Connected() bool { return s.connected.Load() }

// Refresh 重新拉取当前公司
func (s *syncServiceImpl) Refresh(ctx context.Context) error {
	s.mu.RLock()
	companyID := s.companyID
	s.mu.RUnlock()
	if companyID == "" {
		return ErrNotLoaded
	}
	_, err := s.Load(ctx, companyID)
	return err
}

// RefreshAfterSend 发送后立即拉取一次，延迟后再拉取一次，用于吸收服务端的异步传播延迟
func (s *syncServiceImpl) RefreshAfterSend() {
	s.refreshAsync("send")
	if s.opts.RefreshDelay <= 0 {
		return
	}
	s.spawn(func() {
		timer := time.NewTimer(s.opts.RefreshDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
			s.refreshNow("send-delayed")
		case <-s.stopChan:
		}
	})
}

func (s *syncServiceImpl) refreshAsync(reason string) {
	s.spawn(func() {
		s.refreshNow(reason)
	})
}

// spawn 关闭后不再启动新的后台拉取
func (s *syncServiceImpl) spawn(fn func()) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *syncServiceImpl) refreshNow(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.FetchTimeout)
	defer cancel()
	if err := s.Refresh(ctx); err != nil {
		log.Warn("会话列表刷新失败", "reason", reason, "err", err)
	}
}

func (s *syncServiceImpl) Snapshot() []*model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Conversation, len(s.list))
	for i, c := range s.list {
		out[i] = c.Clone()
	}
	return out
}

func (s *syncServiceImpl) Get(id string) (*model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, false
	}
	return s.list[idx].Clone(), true
}

func (s *syncServiceImpl) State() SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := SyncState{
		CompanyID:  s.companyID,
		Connected:  s.connected.Load(),
		Loaded:     s.loaded,
		Count:      len(s.list),
		LastSyncAt: s.lastSyncAt,
	}
	if s.lastErr != nil {
		st.LastError = ErrFetchFailed.Error()
	}
	return st
}

// Subscribe 返回变更通知，通知会合并，不保证每次变更都单独送达
func (s *syncServiceImpl) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *syncServiceImpl) Close() {
	s.lifeMu.Lock()
	if s.closed {
		s.lifeMu.Unlock()
		return
	}
	s.closed = true
	close(s.stopChan)
	s.lifeMu.Unlock()

	s.wg.Wait()
	log.Info("SyncService shut down gracefully")
}

func (s *syncServiceImpl) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *syncServiceImpl) indexLocked(id string) int {
	for i, c := range s.list {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// dedupe 保持服务端顺序，重复 ID 只保留第一条
func dedupe(list []*model.Conversation) []*model.Conversation {
	seen := make(map[string]struct{}, len(list))
	out := make([]*model.Conversation, 0, len(list))
	for _, c := range list {
		if c == nil {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c.Clone())
	}
	return out
}
