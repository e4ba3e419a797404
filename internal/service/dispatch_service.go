package service

import (
	"Switchboard/internal/model"
	"Switchboard/internal/pkg/backend"
	"Switchboard/internal/pkg/consts"
	"Switchboard/internal/pkg/stash"
	"Switchboard/internal/pkg/util"
	"context"
	"io"
	log "log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PendingImagePrefix 本地待发送图片消息的占位地址前缀
const PendingImagePrefix = "pending://"

const DefaultFallbackLabel = "📷 [image attach failed]"

type OutcomeStatus string

const (
	OutcomeSent    OutcomeStatus = "sent"
	OutcomePartial OutcomeStatus = "partial" // 图片失败，文本降级发送成功
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome 一次发送的结果，Partial 需以警告形式展示
type Outcome struct {
	Status       OutcomeStatus `json:"status"`
	Kind         string        `json:"kind,omitempty"`
	Message      string        `json:"message"`
	DraftCleared bool          `json:"draftCleared"`
	MessageID    string        `json:"messageId,omitempty"`
}

// DraftImage 已通过校验并暂存的图片
type DraftImage struct {
	Attachment
	Key string `json:"-"`
}

// Draft 每个会话独立的编辑状态
type Draft struct {
	ConversationID string      `json:"conversationId"`
	Text           string      `json:"text"`
	Image          *DraftImage `json:"image,omitempty"`
	Rev            uint64      `json:"rev"`
}

func (d Draft) empty() bool {
	return strings.TrimSpace(d.Text) == "" && d.Image == nil
}

type DispatchService interface {
	Draft(conversationID string) Draft
	SetDraftText(conversationID, text string) Draft
	AttachImage(ctx context.Context, conversationID string, a Attachment, r io.Reader) (Draft, error)
	RemoveImage(ctx context.Context, conversationID string) (Draft, error)
	Send(ctx context.Context, conversationID string) (Outcome, error)
}

type DispatchOptions struct {
	CompanyID     string
	MaxImageBytes int64
	FallbackLabel string
	SendTimeout   time.Duration
}

type dispatchServiceImpl struct {
	client backend.Client
	store  stash.Store
	sync   SyncService
	view   ViewService
	opts   DispatchOptions

	mu     sync.Mutex
	drafts map[string]*Draft
}

func NewDispatchService(client backend.Client, store stash.Store, syncer SyncService, view ViewService, opts DispatchOptions) DispatchService {
	if opts.FallbackLabel == "" {
		opts.FallbackLabel = DefaultFallbackLabel
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 60 * time.Second
	}
	return &dispatchServiceImpl{
		client: client,
		store:  store,
		sync:   syncer,
		view:   view,
		opts:   opts,
		drafts: make(map[string]*Draft),
	}
}

func (s *dispatchServiceImpl) Draft(conversationID string) Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftLocked(conversationID)
}

func (s *dispatchServiceImpl) SetDraftText(conversationID, text string) Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.ensureLocked(conversationID)
	d.Text = text
	d.Rev++
	return s.draftLocked(conversationID)
}

// AttachImage 先校验再暂存，替换掉已有图片
func (s *dispatchServiceImpl) AttachImage(ctx context.Context, conversationID string, a Attachment, r io.Reader) (Draft, error) {
	if conversationID == "" {
		return Draft{}, ErrNoConversation
	}
	if err := ValidateAttachment(a, s.opts.MaxImageBytes); err != nil {
		return s.Draft(conversationID), err
	}

	key := path.Join("drafts", conversationID, uuid.NewString()+path.Ext(a.Name))
	limited := io.LimitReader(r, s.maxBytes())
	if err := s.store.Put(ctx, key, limited, a.Size, a.ContentType); err != nil {
		log.ErrorContext(ctx, "草稿图片暂存失败", "conversationID", conversationID, "err", err)
		return s.Draft(conversationID), UnExpectedError
	}

	s.mu.Lock()
	d := s.ensureLocked(conversationID)
	old := d.Image
	d.Image = &DraftImage{Attachment: a, Key: key}
	d.Rev++
	out := s.draftLocked(conversationID)
	s.mu.Unlock()

	if old != nil {
		s.removeStash(ctx, old.Key)
	}
	return out, nil
}

func (s *dispatchServiceImpl) RemoveImage(ctx context.Context, conversationID string) (Draft, error) {
	if conversationID == "" {
		return Draft{}, ErrNoConversation
	}
	s.mu.Lock()
	d := s.ensureLocked(conversationID)
	old := d.Image
	if old != nil {
		d.Image = nil
		d.Rev++
	}
	out := s.draftLocked(conversationID)
	s.mu.Unlock()

	if old != nil {
		s.removeStash(ctx, old.Key)
	}
	return out, nil
}

// Send 发送当前草稿
// 返回的 error 只代表发送前的校验失败，网络层面的失败体现在 Outcome 中
func (s *dispatchServiceImpl) Send(ctx context.Context, conversationID string) (Outcome, error) {
	if conversationID == "" {
		return Outcome{}, ErrNoConversation
	}
	if _, ok := s.sync.Get(conversationID); !ok {
		return Outcome{}, ErrConversationNotFound
	}
	draft := s.Draft(conversationID)
	if draft.empty() {
		return Outcome{}, ErrEmptyMessage
	}
	if draft.Image != nil {
		if err := ValidateAttachment(draft.Image.Attachment, s.opts.MaxImageBytes); err != nil {
			return Outcome{}, err
		}
	}

	// 切换会话不取消正在进行的发送
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SendTimeout)
	defer cancel()

	text := strings.TrimSpace(draft.Text)
	localID := "local-" + uuid.NewString()
	pending := &model.Message{
		ID:             localID,
		ConversationID: conversationID,
		Direction:      model.DirectionOutgoing,
		Text:           text,
		CreatedAt:      time.Now(),
	}
	if draft.Image != nil {
		// 图片上传完成前没有真实地址
		pending.ImageURL = PendingImagePrefix + draft.Image.Name
	}
	s.view.AppendPending(conversationID, pending)

	var out Outcome
	if draft.Image == nil {
		out = s.sendText(ctx, conversationID, text, draft)
	} else {
		out = s.sendImage(ctx, conversationID, text, draft)
	}

	if out.Status == OutcomeFailed {
		s.view.MarkFailed(conversationID, localID, out.Message)
	} else {
		s.view.MarkSent(conversationID, localID)
	}
	log.InfoContext(ctx, "消息发送结束", "conversationID", conversationID,
		"status", out.Status, "kind", out.Kind, "draftCleared", out.DraftCleared)
	return out, nil
}

func (s *dispatchServiceImpl) sendText(ctx context.Context, conversationID, text string, draft Draft) Outcome {
	res, err := s.client.Send(ctx, s.request(conversationID, text))
	s.sync.RefreshAfterSend()
	if err != nil {
		log.WarnContext(ctx, "文本消息发送失败", "conversationID", conversationID, "err", err)
		return failedOutcome(backend.KindOf(err))
	}
	return Outcome{
		Status:       OutcomeSent,
		Message:      "发送成功",
		DraftCleared: s.clearIfUnchanged(ctx, conversationID, draft.Rev),
		MessageID:    res.MessageID,
	}
}

// sendImage 先整体编码为 data URI 再发送，失败时按文本降级
func (s *dispatchServiceImpl) sendImage(ctx context.Context, conversationID, text string, draft Draft) Outcome {
	img := draft.Image
	dataURI, err := s.encode(ctx, img)
	if err != nil {
		log.WarnContext(ctx, "草稿图片读取失败", "conversationID", conversationID, "key", img.Key, "err", err)
		return Outcome{
			Status:  OutcomeFailed,
			Kind:    backend.KindUpload.String(),
			Message: ErrAttachmentUnavailable.Error(),
		}
	}

	req := s.request(conversationID, text)
	req.Type = backend.MessageTypeImage
	req.ImageData = dataURI
	req.ImageName = img.Name

	res, err := s.client.Send(ctx, req)
	if err == nil {
		s.sync.RefreshAfterSend()
		return Outcome{
			Status:       OutcomeSent,
			Message:      "发送成功",
			DraftCleared: s.clearIfUnchanged(ctx, conversationID, draft.Rev),
			MessageID:    res.MessageID,
		}
	}

	imageKind := backend.KindOf(err)
	log.WarnContext(ctx, "图片消息发送失败", "conversationID", conversationID, "kind", imageKind, "err", err)
	if text == "" {
		s.sync.RefreshAfterSend()
		return failedOutcome(imageKind)
	}

	res, err = s.client.Send(ctx, s.request(conversationID, text+" "+s.opts.FallbackLabel))
	s.sync.RefreshAfterSend()
	if err != nil {
		log.WarnContext(ctx, "降级文本发送失败", "conversationID", conversationID, "err", err)
		return failedOutcome(backend.KindOf(err))
	}
	return Outcome{
		Status:       OutcomePartial,
		Kind:         imageKind.String(),
		Message:      "图片发送失败，已仅发送文字内容",
		DraftCleared: s.clearIfUnchanged(ctx, conversationID, draft.Rev),
		MessageID:    res.MessageID,
	}
}

func (s *dispatchServiceImpl) encode(ctx context.Context, img *DraftImage) (string, error) {
	rc, err := s.store.Open(ctx, img.Key)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return util.EncodeDataURI(rc, img.ContentType)
}

func (s *dispatchServiceImpl) request(conversationID, text string) *backend.SendRequest {
	return &backend.SendRequest{
		ConversationID: conversationID,
		CompanyID:      s.companyID(),
		Text:           text,
		Type:           backend.MessageTypeText,
	}
}

func (s *dispatchServiceImpl) companyID() string {
	if id := s.sync.State().CompanyID; id != "" {
		return id
	}
	return s.opts.CompanyID
}

// clearIfUnchanged 发送期间用户又编辑过草稿时保留新内容
func (s *dispatchServiceImpl) clearIfUnchanged(ctx context.Context, conversationID string, rev uint64) bool {
	s.mu.Lock()
	d, ok := s.drafts[conversationID]
	if !ok || d.Rev != rev {
		s.mu.Unlock()
		return false
	}
	delete(s.drafts, conversationID)
	s.mu.Unlock()

	if d.Image != nil {
		s.removeStash(ctx, d.Image.Key)
	}
	return true
}

func (s *dispatchServiceImpl) removeStash(ctx context.Context, key string) {
	if err := s.store.Remove(ctx, key); err != nil {
		log.WarnContext(ctx, "删除暂存图片失败", "key", key, "err", err)
	}
}

func (s *dispatchServiceImpl) maxBytes() int64 {
	if s.opts.MaxImageBytes > 0 {
		return s.opts.MaxImageBytes
	}
	return consts.DefaultMaxImageBytes
}

func (s *dispatchServiceImpl) ensureLocked(conversationID string) *Draft {
	d, ok := s.drafts[conversationID]
	if !ok {
		d = &Draft{ConversationID: conversationID}
		s.drafts[conversationID] = d
	}
	return d
}

func (s *dispatchServiceImpl) draftLocked(conversationID string) Draft {
	d, ok := s.drafts[conversationID]
	if !ok {
		return Draft{ConversationID: conversationID}
	}
	out := *d
	if d.Image != nil {
		img := *d.Image
		out.Image = &img
	}
	return out
}

func failedOutcome(kind backend.ErrorKind) Outcome {
	return Outcome{
		Status:  OutcomeFailed,
		Kind:    kind.String(),
		Message: sendFailureMessage(kind),
	}
}

// sendFailureMessage 失败类别对应的用户提示
func sendFailureMessage(kind backend.ErrorKind) string {
	switch kind {
	case backend.KindNetwork:
		return "网络异常，请检查连接后重试"
	case backend.KindToken:
		return "登录状态已失效，请重新登录后再发送"
	case backend.KindUpload:
		return "图片上传失败，请更换图片后重试"
	default:
		return "发送失败，请稍后重试"
	}
}
