package push

import (
	"Switchboard/internal/api/config"
	"context"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
)

// newSaramaConfig 统一初始化 sarama.Config
func newSaramaConfig(kafkaCfg config.KafkaConfig) *sarama.Config {
	c := sarama.NewConfig()

	if kafkaCfg.Sasl.Enable {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = kafkaCfg.Sasl.Username
		c.Net.SASL.Password = kafkaCfg.Sasl.Password
	}

	c.Consumer.Return.Errors = true
	c.Consumer.Offsets.Initial = sarama.OffsetNewest

	if kafkaCfg.Consumer.SessionTimeout > 0 {
		c.Consumer.Group.Session.Timeout = time.Duration(kafkaCfg.Consumer.SessionTimeout) * time.Second
	}
	if kafkaCfg.Consumer.HeartbeatInterval > 0 {
		c.Consumer.Group.Heartbeat.Interval = time.Duration(kafkaCfg.Consumer.HeartbeatInterval) * time.Second
	}
	if kafkaCfg.Consumer.RebalanceTimeout > 0 {
		c.Consumer.Group.Rebalance.Timeout = time.Duration(kafkaCfg.Consumer.RebalanceTimeout) * time.Second
	}

	return c
}

// KafkaChannel 消费变更事件 topic，事件按 companyId 过滤
type KafkaChannel struct {
	cfg     config.KafkaConfig
	topic   string
	groupID string
}

func NewKafkaChannel(cfg config.KafkaConfig, topic, groupID string) *KafkaChannel {
	return &KafkaChannel{cfg: cfg, topic: topic, groupID: groupID}
}

func (s *KafkaChannel) Run(ctx context.Context, companyID string, sink Sink) error {
	group, err := sarama.NewConsumerGroup(s.cfg.Brokers, s.groupID, newSaramaConfig(s.cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := group.Close(); err != nil {
			log.Error("Failed to close push consumer", "err", err)
		}
		sink.OnStatus(false)
	}()

	go func() {
		for err := range group.Errors() {
			log.Error("push consumer error", "err", err)
		}
	}()

	handler := &eventConsumer{companyID: companyID, sink: sink}
	log.Info("push kafka consumer started", "topic", s.topic)
	for {
		if err := group.Consume(ctx, []string{s.topic}, handler); err != nil {
			log.Error("Error from consumer", "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(3 * time.Second):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

type eventConsumer struct {
	companyID string
	sink      Sink
}

func (c *eventConsumer) Setup(sarama.ConsumerGroupSession) error {
	c.sink.OnStatus(true)
	return nil
}

func (c *eventConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	c.sink.OnStatus(false)
	return nil
}

func (c *eventConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			ev, match, err := Decode(msg.Value, c.companyID)
			if err != nil {
				log.Warn("drop malformed push event", "offset", msg.Offset, "err", err)
			} else if match {
				c.sink.OnEvent(ev)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
