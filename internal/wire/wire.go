package wire

import (
	"Switchboard/internal/api"
	"Switchboard/internal/api/config"
	"Switchboard/internal/api/handler"
	"Switchboard/internal/job"
	"Switchboard/internal/pkg/backend"
	"Switchboard/internal/pkg/consts"
	"Switchboard/internal/pkg/cron"
	"Switchboard/internal/pkg/minio"
	"Switchboard/internal/pkg/push"
	"Switchboard/internal/pkg/redis"
	"Switchboard/internal/pkg/stash"
	"Switchboard/internal/service"
	"context"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router      *gin.Engine
	SyncService service.SyncService
	TabService  service.TabService
	ViewService service.ViewService
	PushChannel push.Channel
	CronMgr     *cron.Manager
	CompanyID   string
}

// BuildApplication 组装依赖；Redis 需在调用前初始化，未初始化时偏好保存在内存
func BuildApplication(ctx context.Context, cfg *config.Config) (*ApplicationContainer, error) {
	client := backend.NewClient(cfg.Backend)

	syncService := service.NewSyncService(client, service.SyncOptions{
		RefreshDelay: time.Duration(cfg.Inbox.RefreshDelayMs) * time.Millisecond,
		FetchTimeout: time.Duration(cfg.Backend.Timeout) * time.Second,
	})

	prefs, err := buildPreferenceStore()
	if err != nil {
		return nil, err
	}
	tabService := service.NewTabService(syncService, prefs, consts.ActiveTabScope+cfg.Inbox.CompanyID+":"+cfg.Inbox.UserID)
	viewService := service.NewViewService(client, syncService)

	store, err := buildStash(ctx, cfg.MinIO)
	if err != nil {
		return nil, err
	}
	dispatchService := service.NewDispatchService(client, store, syncService, viewService, service.DispatchOptions{
		CompanyID:     cfg.Inbox.CompanyID,
		MaxImageBytes: cfg.Inbox.MaxImageBytes,
		FallbackLabel: cfg.Inbox.FallbackImageLabel,
		SendTimeout:   time.Duration(cfg.Backend.SendTimeout) * time.Second,
	})

	channel, err := buildPushChannel(cfg)
	if err != nil {
		return nil, err
	}

	handlers := &api.HandlersGroup{
		InboxHandler: handler.NewInboxHandler(syncService, tabService, viewService, dispatchService, time.Now),
		WSHandler:    handler.NewWsHandler(syncService, viewService),
	}
	router := api.SetupRouter(handlers)

	refreshJob := job.NewInboxRefreshJob(syncService, time.Duration(cfg.Backend.Timeout)*time.Second)
	cronMgr := cron.NewCronManager(cfg.Inbox.PollSpec, refreshJob)

	return &ApplicationContainer{
		Router:      router,
		SyncService: syncService,
		TabService:  tabService,
		ViewService: viewService,
		PushChannel: channel,
		CronMgr:     cronMgr,
		CompanyID:   cfg.Inbox.CompanyID,
	}, nil
}

func buildPreferenceStore() (service.PreferenceStore, error) {
	if redis.Enabled() {
		return redis.NewPreferenceStore(), nil
	}
	log.Warn("Redis 未配置，标签页偏好仅保存在内存中")
	return service.NewMemoryPreferenceStore(), nil
}

func buildStash(ctx context.Context, cfg config.MinIOConfig) (stash.Store, error) {
	if cfg.Endpoint == "" {
		log.Warn("MinIO 未配置，草稿图片仅保存在内存中")
		return stash.NewMemoryStore(), nil
	}
	client, err := minio.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return minio.NewStore(client, cfg.TempBucket), nil
}

func buildPushChannel(cfg *config.Config) (push.Channel, error) {
	switch cfg.Push.Mode {
	case "", "none":
		return push.NewNoneChannel(), nil
	case "websocket":
		if cfg.Push.WebsocketURL == "" {
			return nil, fmt.Errorf("push.websocket_url is required for websocket mode")
		}
		return push.NewWSChannel(cfg.Push.WebsocketURL), nil
	case "redis":
		if !redis.Enabled() {
			return nil, fmt.Errorf("redis push mode requires redis.addr")
		}
		return push.NewRedisChannel(redis.Rdb, cfg.Push.RedisChannel), nil
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 || cfg.Push.KafkaTopic == "" {
			return nil, fmt.Errorf("kafka push mode requires kafka.brokers and push.kafka_topic")
		}
		return push.NewKafkaChannel(cfg.Kafka, cfg.Push.KafkaTopic, cfg.Push.KafkaGroupID), nil
	default:
		return nil, fmt.Errorf("unknown push mode %q", cfg.Push.Mode)
	}
}
