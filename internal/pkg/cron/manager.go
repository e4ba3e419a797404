package cron

import (
	"Switchboard/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine          *cron.Cron
	pollSpec        string
	inboxRefreshJob *job.InboxRefreshJob
}

func NewCronManager(pollSpec string, inboxRefreshJob *job.InboxRefreshJob) *Manager {
	return &Manager{
		engine:          cron.New(cron.WithSeconds()),
		pollSpec:        pollSpec,
		inboxRefreshJob: inboxRefreshJob,
	}
}

// RegisterJobs 注册定时任务，pollSpec 为空时不做定时拉取
func (s *Manager) RegisterJobs() error {
	if s.pollSpec == "" {
		log.Info("未配置定时拉取，跳过会话刷新任务")
		return nil
	}
	if _, err := s.engine.AddJob(s.pollSpec, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(s.inboxRefreshJob)); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
