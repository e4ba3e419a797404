package push

import (
	"context"
	log "log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChannel 通过 Redis pub/sub 订阅 <prefix><companyID>，订阅失败时退避重试
type RedisChannel struct {
	rdb        *redis.Client
	prefix     string
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewRedisChannel(rdb *redis.Client, prefix string) *RedisChannel {
	return &RedisChannel{
		rdb:        rdb,
		prefix:     prefix,
		backoff:    wsInitialBackoff,
		maxBackoff: wsMaxBackoff,
	}
}

func (s *RedisChannel) Run(ctx context.Context, companyID string, sink Sink) error {
	channel := s.prefix + companyID
	backoff := s.backoff
	for {
		subscribed, err := s.session(ctx, channel, companyID, sink)
		sink.OnStatus(false)
		if ctx.Err() != nil {
			return nil
		}
		if subscribed {
			backoff = s.backoff
		}
		log.Warn("push redis subscription lost, retrying", "channel", channel, "backoff", backoff, "err", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

// session 单次订阅，返回是否曾订阅成功
func (s *RedisChannel) session(ctx context.Context, channel, companyID string, sink Sink) (bool, error) {
	pubsub := s.rdb.Subscribe(ctx, channel)
	defer func() {
		_ = pubsub.Close()
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, err
	}
	sink.OnStatus(true)
	log.Info("push redis subscribed", "channel", channel)

	// Channel() 内部会自动重连，断开期间不会关闭
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, nil
			}
			ev, match, err := Decode([]byte(msg.Payload), companyID)
			if err != nil {
				log.Warn("drop malformed push event", "channel", channel, "err", err)
				continue
			}
			if match {
				sink.OnEvent(ev)
			}
		}
	}
}
