package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
	BadGateway          = 502
)

var (
	ErrParamInvalid          = errors.New("参数错误")
	ErrNoConversation        = errors.New("请先选择会话")
	ErrConversationNotFound  = errors.New("会话不存在")
	ErrEmptyMessage          = errors.New("请输入消息内容或选择图片")
	ErrAttachmentType        = errors.New("不支持的图片类型，仅支持 JPG/PNG/GIF")
	ErrAttachmentTooLarge    = errors.New("图片过大，最大 10MB")
	ErrTabInvalid            = errors.New("未知的标签页")
	ErrNotLoaded             = errors.New("会话列表尚未加载")
	ErrFetchFailed           = errors.New("会话列表刷新失败，显示的是上次的数据")
	ErrMessagesFetchFailed   = errors.New("消息记录加载失败")
	ErrAttachmentUnavailable = errors.New("图片读取失败")
	UnExpectedError          = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:          BadRequest,
	ErrNoConversation:        BadRequest,
	ErrConversationNotFound:  NotFound,
	ErrEmptyMessage:          BadRequest,
	ErrAttachmentType:        BadRequest,
	ErrAttachmentTooLarge:    BadRequest,
	ErrTabInvalid:            BadRequest,
	ErrNotLoaded:             Conflict,
	ErrFetchFailed:           BadGateway,
	ErrMessagesFetchFailed:   BadGateway,
	ErrAttachmentUnavailable: BadRequest,
	UnExpectedError:          InternalServerError,
}
