package service

import (
	"Switchboard/internal/model"
	"Switchboard/internal/pkg/backend"
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"
)

type ViewEventType string

const (
	// ViewEventScrollToLatest 消息列表发生变化，界面应滚动到最新一条
	ViewEventScrollToLatest ViewEventType = "scroll-to-latest"
)

type ViewEvent struct {
	Type           ViewEventType `json:"type"`
	ConversationID string        `json:"conversationId"`
	Seq            uint64        `json:"seq"`
}

// ViewState 当前打开的会话及其消息
type ViewState struct {
	ConversationID string           `json:"conversationId"`
	RecentOnly     bool             `json:"recentOnly"`
	Messages       []*model.Message `json:"messages"`
	ScrollSeq      uint64           `json:"scrollSeq"`
	LastError      string           `json:"lastError,omitempty"`
}

// ViewService 打开会话、切换"最近/全部"消息窗口，并在消息变化时发出滚动信号
type ViewService interface {
	Open(ctx context.Context, conversationID string) (ViewState, error)
	ToggleHistory(ctx context.Context) (ViewState, error)
	Reload(ctx context.Context) (ViewState, error)
	State() ViewState
	Selected() (*model.Conversation, bool)
	AppendPending(conversationID string, msg *model.Message)
	MarkSent(conversationID, localID string)
	MarkFailed(conversationID, localID, reason string)
	Subscribe() (<-chan ViewEvent, func())
	Run(ctx context.Context) error
}

type viewServiceImpl struct {
	client backend.Client
	sync   SyncService

	mu         sync.RWMutex
	convID     string
	recentOnly bool
	messages   []*model.Message
	pending    []*model.Message
	lastErr    error
	seenAt     *time.Time
	gen        uint64
	scrollSeq  uint64

	subsMu  sync.Mutex
	subs    map[int]chan ViewEvent
	nextSub int
}

func NewViewService(client backend.Client, syncer SyncService) ViewService {
	return &viewServiceImpl{
		client:     client,
		sync:       syncer,
		recentOnly: true,
		subs:       make(map[int]chan ViewEvent),
	}
}

// Open 选中会话，窗口重置为仅最近消息
func (s *viewServiceImpl) Open(ctx context.Context, conversationID string) (ViewState, error) {
	if conversationID == "" {
		return s.State(), ErrNoConversation
	}
	if _, ok := s.sync.Get(conversationID); !ok {
		return s.State(), ErrConversationNotFound
	}

	s.mu.Lock()
	if s.convID != conversationID {
		s.messages = nil
		s.pending = nil
	}
	s.convID = conversationID
	s.recentOnly = true
	s.lastErr = nil
	s.mu.Unlock()

	return s.fetch(ctx)
}

// ToggleHistory 在最近消息与完整历史之间切换，由服务端按 recent 参数过滤
func (s *viewServiceImpl) ToggleHistory(ctx context.Context) (ViewState, error) {
	s.mu.Lock()
	if s.convID == "" {
		s.mu.Unlock()
		return s.State(), ErrNoConversation
	}
	s.recentOnly = !s.recentOnly
	s.mu.Unlock()

	return s.fetch(ctx)
}

func (s *viewServiceImpl) Reload(ctx context.Context) (ViewState, error) {
	s.mu.RLock()
	convID := s.convID
	s.mu.RUnlock()
	if convID == "" {
		return s.State(), ErrNoConversation
	}
	return s.fetch(ctx)
}

func (s *viewServiceImpl) fetch(ctx context.Context) (ViewState, error) {
	s.mu.Lock()
	s.gen++
	gen, convID, recentOnly := s.gen, s.convID, s.recentOnly
	s.mu.Unlock()

	var seenAt *time.Time
	if c, ok := s.sync.Get(convID); ok {
		seenAt = c.LastMessageAt
	}

	msgs, err := s.client.ListMessages(ctx, convID, s.sync.State().CompanyID, recentOnly)

	s.mu.Lock()
	if gen != s.gen {
		// 期间又发起了新的拉取或切换了会话
		s.mu.Unlock()
		return s.State(), nil
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		log.WarnContext(ctx, "消息记录拉取失败", "conversationID", convID, "recentOnly", recentOnly, "err", err)
		return s.State(), fmt.Errorf("%w: %w", ErrMessagesFetchFailed, err)
	}
	s.messages = msgs
	s.lastErr = nil
	s.seenAt = seenAt
	ev := s.bumpLocked()
	s.mu.Unlock()

	s.emit(ev)
	return s.State(), nil
}

func (s *viewServiceImpl) State() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := ViewState{
		ConversationID: s.convID,
		RecentOnly:     s.recentOnly,
		ScrollSeq:      s.scrollSeq,
		Messages:       make([]*model.Message, 0, len(s.messages)+len(s.pending)),
	}
	for _, m := range s.messages {
		cp := *m
		st.Messages = append(st.Messages, &cp)
	}
	for _, m := range s.pending {
		cp := *m
		st.Messages = append(st.Messages, &cp)
	}
	if s.lastErr != nil {
		st.LastError = ErrMessagesFetchFailed.Error()
	}
	return st
}

func (s *viewServiceImpl) Selected() (*model.Conversation, bool) {
	s.mu.RLock()
	convID := s.convID
	s.mu.RUnlock()
	if convID == "" {
		return nil, false
	}
	return s.sync.Get(convID)
}

// AppendPending 发送前先在界面上显示一条待发送消息
func (s *viewServiceImpl) AppendPending(conversationID string, msg *model.Message) {
	s.mu.Lock()
	if s.convID != conversationID {
		s.mu.Unlock()
		return
	}
	cp := *msg
	cp.Status = model.MessagePending
	s.pending = append(s.pending, &cp)
	ev := s.bumpLocked()
	s.mu.Unlock()
	s.emit(ev)
}

// MarkSent 发送成功后移除本地占位，真实消息由随后的拉取带回
func (s *viewServiceImpl) MarkSent(conversationID, localID string) {
	s.mu.Lock()
	if s.convID != conversationID {
		s.mu.Unlock()
		return
	}
	for i, m := range s.pending {
		if m.ID == localID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

func (s *viewServiceImpl) MarkFailed(conversationID, localID, reason string) {
	s.mu.Lock()
	if s.convID != conversationID {
		s.mu.Unlock()
		return
	}
	found := false
	for _, m := range s.pending {
		if m.ID == localID {
			m.Status = model.MessageFailed
			m.FailureReason = reason
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return
	}
	ev := s.bumpLocked()
	s.mu.Unlock()
	s.emit(ev)
}

// Subscribe 订阅滚动事件，消费过慢时丢弃旧事件
func (s *viewServiceImpl) Subscribe() (<-chan ViewEvent, func()) {
	ch := make(chan ViewEvent, 8)
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

// Run 监听会话列表变化，当前会话有新消息时重新拉取消息记录
func (s *viewServiceImpl) Run(ctx context.Context) error {
	changes, cancel := s.sync.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			log.Info("ViewService shut down gracefully")
			return nil
		case <-changes:
			if !s.selectedChanged() {
				continue
			}
			if _, err := s.Reload(ctx); err != nil {
				log.WarnContext(ctx, "会话更新后重新拉取消息失败", "err", err)
			}
		}
	}
}

func (s *viewServiceImpl) selectedChanged() bool {
	s.mu.RLock()
	convID, seenAt := s.convID, s.seenAt
	s.mu.RUnlock()
	if convID == "" {
		return false
	}
	c, ok := s.sync.Get(convID)
	if !ok || c.LastMessageAt == nil {
		return false
	}
	return seenAt == nil || !c.LastMessageAt.Equal(*seenAt)
}

func (s *viewServiceImpl) bumpLocked() ViewEvent {
	s.scrollSeq++
	return ViewEvent{Type: ViewEventScrollToLatest, ConversationID: s.convID, Seq: s.scrollSeq}
}

func (s *viewServiceImpl) emit(ev ViewEvent) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
