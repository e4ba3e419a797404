package service

import (
	"Switchboard/internal/model"
	"Switchboard/internal/pkg/triage"
	"context"
	log "log/slog"
	"strings"
	"sync"
	"time"
)

type Tab string

const (
	TabNeedsReply Tab = "needs-reply"
	TabBulk       Tab = "bulk-messages"
	TabAll        Tab = "all"
)

var Tabs = []Tab{TabNeedsReply, TabBulk, TabAll}

func ParseTab(s string) (Tab, bool) {
	switch t := Tab(strings.TrimSpace(s)); t {
	case TabNeedsReply, TabBulk, TabAll:
		return t, true
	}
	return "", false
}

// PreferenceStore 作用域内的键值偏好
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Filters 临时筛选条件，切换标签页时不重置
type Filters struct {
	Search   string `json:"search"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// TabService 标签页状态机：needs-reply / bulk-messages / all 之间任意切换
// 切换只做重新过滤，不触发拉取
type TabService interface {
	Restore(ctx context.Context) Tab
	ActiveTab() Tab
	SetTab(ctx context.Context, tab string) (Tab, error)
	Filters() Filters
	SetFilters(f Filters)
	SetSearch(term string)
	SetStatusFilter(status string)
	SetPriorityFilter(priority string)
	Visible(now time.Time) []*model.Conversation
	Counts(now time.Time) map[Tab]int
}

type tabServiceImpl struct {
	sync  SyncService
	prefs PreferenceStore
	key   string

	mu      sync.RWMutex
	active  Tab
	filters Filters
}

func NewTabService(syncer SyncService, prefs PreferenceStore, scope string) TabService {
	return &tabServiceImpl{
		sync:   syncer,
		prefs:  prefs,
		key:    scope,
		active: TabNeedsReply,
	}
}

// Restore 读取持久化的标签页，缺失或非法时回落到 needs-reply
func (s *tabServiceImpl) Restore(ctx context.Context) Tab {
	tab := TabNeedsReply
	if raw, err := s.prefs.Get(ctx, s.key); err != nil {
		log.WarnContext(ctx, "读取标签页偏好失败", "key", s.key, "err", err)
	} else if t, ok := ParseTab(raw); ok {
		tab = t
	}

	s.mu.Lock()
	s.active = tab
	s.mu.Unlock()
	return tab
}

func (s *tabServiceImpl) ActiveTab() Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetTab 每次切换都写回偏好，写入失败不影响切换
func (s *tabServiceImpl) SetTab(ctx context.Context, tab string) (Tab, error) {
	t, ok := ParseTab(tab)
	if !ok {
		return s.ActiveTab(), ErrTabInvalid
	}

	s.mu.Lock()
	s.active = t
	s.mu.Unlock()

	if err := s.prefs.Set(ctx, s.key, string(t)); err != nil {
		log.WarnContext(ctx, "保存标签页偏好失败", "key", s.key, "err", err)
	}
	return t, nil
}

func (s *tabServiceImpl) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

func (s *tabServiceImpl) SetFilters(f Filters) {
	s.mu.Lock()
	s.filters = f
	s.mu.Unlock()
}

func (s *tabServiceImpl) SetSearch(term string) {
	s.mu.Lock()
	s.filters.Search = term
	s.mu.Unlock()
}

func (s *tabServiceImpl) SetStatusFilter(status string) {
	s.mu.Lock()
	s.filters.Status = status
	s.mu.Unlock()
}

func (s *tabServiceImpl) SetPriorityFilter(priority string) {
	s.mu.Lock()
	s.filters.Priority = priority
	s.mu.Unlock()
}

// Visible 在已加载的列表上重新计算可见集合，每次调用都按 now 重新分类
func (s *tabServiceImpl) Visible(now time.Time) []*model.Conversation {
	s.mu.RLock()
	tab, f := s.active, s.filters
	s.mu.RUnlock()
	return FilterConversations(s.sync.Snapshot(), f, tab, now)
}

func (s *tabServiceImpl) Counts(now time.Time) map[Tab]int {
	s.mu.RLock()
	f := s.filters
	s.mu.RUnlock()

	base := applyFilters(s.sync.Snapshot(), f)
	counts := make(map[Tab]int, len(Tabs))
	for _, c := range base {
		counts[TabAll]++
		if triage.NeedsReply(c, now) {
			counts[TabNeedsReply]++
		}
		if triage.IsBulkBroadcast(c, now) {
			counts[TabBulk]++
		}
	}
	return counts
}

// FilterConversations 依次执行：搜索 -> 状态 -> 优先级 -> 标签页，保留服务端顺序
func FilterConversations(list []*model.Conversation, f Filters, tab Tab, now time.Time) []*model.Conversation {
	out := applyFilters(list, f)
	res := out[:0]
	for _, c := range out {
		if matchTab(c, tab, now) {
			res = append(res, c)
		}
	}
	return res
}

func applyFilters(list []*model.Conversation, f Filters) []*model.Conversation {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*model.Conversation, 0, len(list))
	for _, c := range list {
		if term != "" && !matchSearch(c, term) {
			continue
		}
		if !matchEqual(c.Status, f.Status) {
			continue
		}
		if !matchEqual(c.Priority, f.Priority) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchSearch(c *model.Conversation, term string) bool {
	return strings.Contains(strings.ToLower(c.CustomerName), term) ||
		strings.Contains(strings.ToLower(c.LastMessageText), term) ||
		strings.Contains(strings.ToLower(c.CustomerExternalID), term)
}

// matchEqual 空值或 all 表示不过滤
func matchEqual(value, want string) bool {
	if want == "" || want == "all" {
		return true
	}
	return value == want
}

func matchTab(c *model.Conversation, tab Tab, now time.Time) bool {
	switch tab {
	case TabNeedsReply:
		return triage.NeedsReply(c, now)
	case TabBulk:
		return triage.IsBulkBroadcast(c, now)
	default:
		return true
	}
}

// MemoryPreferenceStore 进程内偏好存储，未配置 Redis 时使用
type MemoryPreferenceStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{values: make(map[string]string)}
}

func (s *MemoryPreferenceStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

func (s *MemoryPreferenceStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
