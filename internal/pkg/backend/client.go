package backend

import (
	"Switchboard/internal/api/config"
	"Switchboard/internal/model"
	"Switchboard/internal/pkg/logger"
	"Switchboard/internal/pkg/util"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
)

// Client 会话/消息后端与发送能力
type Client interface {
	ListConversations(ctx context.Context, companyID string) ([]*model.Conversation, error)
	ListMessages(ctx context.Context, conversationID, companyID string, recentOnly bool) ([]*model.Message, error)
	Send(ctx context.Context, req *SendRequest) (*SendResult, error)
}

type clientImpl struct {
	rc          *resty.Client
	sendTimeout time.Duration
}

func NewClient(cfg config.BackendConfig) Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetTransport(&logger.HTTPTransport{Transport: http.DefaultTransport}).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}

	sendTimeout := time.Duration(cfg.SendTimeout) * time.Second
	if sendTimeout <= 0 {
		sendTimeout = 60 * time.Second
	}
	return &clientImpl{rc: rc, sendTimeout: sendTimeout}
}

// ListConversations 拉取公司下全部会话，data 为空视为空列表
func (s *clientImpl) ListConversations(ctx context.Context, companyID string) ([]*model.Conversation, error) {
	var env envelope[[]conversationWire]
	resp, err := s.rc.R().
		SetContext(ctx).
		SetQueryParam("companyId", companyID).
		SetResult(&env).
		SetError(&env).
		Get("/conversations")
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list conversations: status %d: %s", resp.StatusCode(), env.Message)
	}
	if !env.Success {
		return nil, fmt.Errorf("list conversations: %w: %s", ErrUnsuccessful, env.Message)
	}

	res := make([]*model.Conversation, 0, len(env.Data))
	for i := range env.Data {
		c := &model.Conversation{}
		if err := copier.Copy(c, &env.Data[i]); err != nil {
			return nil, fmt.Errorf("map conversation %s: %w", env.Data[i].ID, err)
		}
		if c.CompanyID == "" {
			c.CompanyID = companyID
		}
		res = append(res, c)
	}
	return res, nil
}

// ListMessages recentOnly 为 true 时只取近期窗口，由服务端裁剪
func (s *clientImpl) ListMessages(ctx context.Context, conversationID, companyID string, recentOnly bool) ([]*model.Message, error) {
	var env envelope[[]*model.Message]
	resp, err := s.rc.R().
		SetContext(ctx).
		SetPathParam("id", conversationID).
		SetQueryParams(map[string]string{
			"companyId": companyID,
			"recent":    fmt.Sprintf("%t", recentOnly),
		}).
		SetResult(&env).
		SetError(&env).
		Get("/conversations/{id}/messages")
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list messages: status %d: %s", resp.StatusCode(), env.Message)
	}
	if !env.Success {
		return nil, fmt.Errorf("list messages: %w: %s", ErrUnsuccessful, env.Message)
	}
	if env.Data == nil {
		return []*model.Message{}, nil
	}
	for _, m := range env.Data {
		if m.ConversationID == "" {
			m.ConversationID = conversationID
		}
	}
	return env.Data, nil
}

// Send 调用发送能力，失败统一返回 *SendError
func (s *clientImpl) Send(ctx context.Context, req *SendRequest) (*SendResult, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, &SendError{Kind: KindGeneric, Message: err.Error(), Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	var env envelope[SendResult]
	resp, err := s.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&env).
		SetError(&env).
		Post("/messages/send")
	if err != nil {
		return nil, &SendError{Kind: KindNetwork, Err: err}
	}
	if resp.IsError() || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = resp.Status()
		}
		return nil, &SendError{
			Kind:    classify(resp.StatusCode(), env.ErrorCode, msg),
			Status:  resp.StatusCode(),
			Message: msg,
		}
	}
	return &env.Data, nil
}
