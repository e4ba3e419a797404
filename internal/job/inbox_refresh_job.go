package job

import (
	"Switchboard/internal/service"
	"context"
	"errors"
	log "log/slog"
	"time"
)

// InboxRefreshJob 推送断开时依靠它定期拉取会话列表
type InboxRefreshJob struct {
	syncService service.SyncService
	timeout     time.Duration
}

func NewInboxRefreshJob(syncService service.SyncService, timeout time.Duration) *InboxRefreshJob {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &InboxRefreshJob{syncService: syncService, timeout: timeout}
}

func (s *InboxRefreshJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.syncService.Refresh(ctx)
	switch {
	case err == nil:
		log.Debug("inbox refresh job finished", "count", s.syncService.State().Count)
	case errors.Is(err, service.ErrNotLoaded):
		log.Debug("inbox refresh job skipped, list not loaded")
	default:
		log.Warn("inbox refresh job failed", "err", err)
	}
}
