package handler

import (
	"Switchboard/internal/api/dto"
	"Switchboard/internal/model"
	"Switchboard/internal/pkg/response"
	"Switchboard/internal/pkg/timeutil"
	"Switchboard/internal/pkg/triage"
	"Switchboard/internal/pkg/util"
	"Switchboard/internal/service"
	"errors"
	log "log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
)

const sniffLen = 512

type InboxHandler struct {
	syncService     service.SyncService
	tabService      service.TabService
	viewService     service.ViewService
	dispatchService service.DispatchService
	now             timeutil.Clock
}

func NewInboxHandler(syncService service.SyncService, tab service.TabService, view service.ViewService, dispatch service.DispatchService, now timeutil.Clock) *InboxHandler {
	return &InboxHandler{
		syncService:     syncService,
		tabService:      tab,
		viewService:     view,
		dispatchService: dispatch,
		now:             now,
	}
}

// GetConversations 当前标签页下的可见会话，query 中出现的筛选条件覆盖已保存的对应项
func (s *InboxHandler) GetConversations(c *gin.Context) {
	req := dto.FiltersReq(s.tabService.Filters())
	present := false
	for key, field := range map[string]*string{
		"search":   &req.Search,
		"status":   &req.Status,
		"priority": &req.Priority,
	} {
		if v, ok := c.GetQuery(key); ok {
			*field = v
			present = true
		}
	}
	if present {
		if err := util.ValidateDTO(&req); err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
		s.tabService.SetFilters(service.Filters(req))
	}
	response.Success(c, s.inbox())
}

// SetTab 切换标签页，只重新过滤本地列表
func (s *InboxHandler) SetTab(c *gin.Context) {
	var req dto.SetTabReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, service.ErrTabInvalid)
		return
	}
	if _, err := s.tabService.SetTab(c.Request.Context(), req.Tab); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s.inbox())
}

func (s *InboxHandler) SetFilters(c *gin.Context) {
	var req dto.FiltersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	s.tabService.SetFilters(service.Filters(req))
	response.Success(c, s.inbox())
}

// Refresh 用户主动刷新；失败时仍返回上一次的列表
func (s *InboxHandler) Refresh(c *gin.Context) {
	if err := s.syncService.Refresh(c.Request.Context()); err != nil {
		if errors.Is(err, service.ErrFetchFailed) {
			response.FailWithData(c, service.BadGateway, service.ErrFetchFailed.Error(), s.inbox())
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, s.inbox())
}

func (s *InboxHandler) OpenConversation(c *gin.Context) {
	convID := c.Param("id")
	st, err := s.viewService.Open(c.Request.Context(), convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"view":  st,
		"draft": s.dispatchService.Draft(convID),
	})
}

func (s *InboxHandler) ToggleHistory(c *gin.Context) {
	st, err := s.viewService.ToggleHistory(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, st)
}

func (s *InboxHandler) GetMessages(c *gin.Context) {
	response.Success(c, s.viewService.State())
}

func (s *InboxHandler) GetDraft(c *gin.Context) {
	response.Success(c, s.dispatchService.Draft(c.Param("id")))
}

func (s *InboxHandler) SetDraftText(c *gin.Context) {
	var req dto.DraftTextReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	response.Success(c, s.dispatchService.SetDraftText(c.Param("id"), req.Text))
}

// AttachImage 上传草稿图片，校验在暂存之前完成
func (s *InboxHandler) AttachImage(c *gin.Context) {
	draft, err := s.attachFromForm(c, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, draft)
}

func (s *InboxHandler) RemoveImage(c *gin.Context) {
	draft, err := s.dispatchService.RemoveImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, draft)
}

// Send 发送草稿，multipart 请求可同时携带 text 与 file
func (s *InboxHandler) Send(c *gin.Context) {
	convID := c.Param("id")

	switch {
	case strings.HasPrefix(c.ContentType(), gin.MIMEMultipartPOSTForm):
		if text, ok := c.GetPostForm("text"); ok {
			s.dispatchService.SetDraftText(convID, text)
		}
		if _, err := c.FormFile("file"); err == nil {
			if _, err := s.attachFromForm(c, convID); err != nil {
				response.Error(c, err)
				return
			}
		}
	case c.Request.ContentLength > 0:
		var req dto.SendReq
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
		if err := util.ValidateDTO(&req); err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
		if req.Text != nil {
			s.dispatchService.SetDraftText(convID, *req.Text)
		}
	}

	out, err := s.dispatchService.Send(c.Request.Context(), convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if out.Status == service.OutcomeFailed {
		response.FailWithData(c, service.BadGateway, out.Message, out)
		return
	}
	response.Success(c, out)
}

func (s *InboxHandler) attachFromForm(c *gin.Context, convID string) (service.Draft, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return service.Draft{}, service.ErrParamInvalid
	}
	reader, err := file.Open()
	if err != nil {
		return service.Draft{}, service.ErrParamInvalid
	}
	defer func() { _ = reader.Close() }()

	head, body, err := util.PeekHead(reader, sniffLen)
	if err != nil {
		return service.Draft{}, service.ErrAttachmentUnavailable
	}
	contentType := util.GetSafeContentType(file.Header.Get("Content-Type"), head)
	log.DebugContext(c.Request.Context(), "草稿图片上传", "name", file.Filename, "contentType", contentType, "size", file.Size)

	return s.dispatchService.AttachImage(c.Request.Context(), convID, service.Attachment{
		Name:        file.Filename,
		ContentType: contentType,
		Size:        file.Size,
	}, body)
}

func (s *InboxHandler) inbox() dto.InboxResp {
	now := s.now()
	visible := s.tabService.Visible(now)
	st := s.syncService.State()

	counts := make(map[string]int)
	for tab, n := range s.tabService.Counts(now) {
		counts[string(tab)] = n
	}

	return dto.InboxResp{
		Tab:           string(s.tabService.ActiveTab()),
		Filters:       dto.FiltersReq(s.tabService.Filters()),
		Counts:        counts,
		Conversations: toItems(visible, now),
		Connected:     st.Connected,
		Loaded:        st.Loaded,
		LastError:     st.LastError,
		LastSyncAt:    st.LastSyncAt,
	}
}

func toItems(list []*model.Conversation, now time.Time) []dto.ConversationItem {
	items := make([]dto.ConversationItem, 0, len(list))
	for _, conv := range list {
		var item dto.ConversationItem
		if err := copier.Copy(&item, conv); err != nil {
			log.Error("会话转换失败", "conversationID", conv.ID, "err", err)
			continue
		}
		item.LastMessageLabel = timeutil.RelativeLabel(conv.LastMessageAt, now)
		item.Tags = make([]string, 0, 2)
		for _, tag := range triage.Tags(conv, now) {
			item.Tags = append(item.Tags, string(tag))
		}
		items = append(items, item)
	}
	return items
}

