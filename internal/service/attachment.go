package service

import (
	"Switchboard/internal/pkg/consts"
	"strings"
)

// Attachment 待发送图片的元数据
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

var allowedImageTypes = map[string]struct{}{
	consts.MimeJPEG: {},
	consts.MimeJPG:  {},
	consts.MimePNG:  {},
	consts.MimeGIF:  {},
}

// ValidateAttachment 在任何编码或暂存之前执行，maxBytes <= 0 时使用默认上限
func ValidateAttachment(a Attachment, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = consts.DefaultMaxImageBytes
	}
	if _, ok := allowedImageTypes[strings.ToLower(a.ContentType)]; !ok {
		return ErrAttachmentType
	}
	if a.Size > maxBytes {
		return ErrAttachmentTooLarge
	}
	return nil
}
