package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind 发送失败的类别
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindNetwork
	KindToken
	KindUpload
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindToken:
		return "token"
	case KindUpload:
		return "upload"
	default:
		return "generic"
	}
}

var ErrUnsuccessful = errors.New("backend responded with success=false")

// SendError 发送能力返回的失败，Kind 由离网络调用最近的这一层判定
type SendError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *SendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("send failed (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("send failed (%s): %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// KindOf 非 SendError 的错误视为 generic
func KindOf(err error) ErrorKind {
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindGeneric
}

func kindFromStatus(status int) (ErrorKind, bool) {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindToken, true
	case http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return KindUpload, true
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindNetwork, true
	}
	return KindGeneric, false
}

func kindFromCode(code string) (ErrorKind, bool) {
	switch strings.ToLower(code) {
	case "token_expired", "token_invalid", "unauthorized":
		return KindToken, true
	case "upload_failed", "image_rejected", "attachment_failed":
		return KindUpload, true
	case "network", "upstream_unavailable":
		return KindNetwork, true
	}
	return KindGeneric, false
}

// kindFromMessage 服务端只给出文案时的兜底匹配
func kindFromMessage(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "network"):
		return KindNetwork
	case strings.Contains(lower, "token"):
		return KindToken
	case strings.Contains(lower, "upload"):
		return KindUpload
	}
	return KindGeneric
}

func classify(status int, code, msg string) ErrorKind {
	if k, ok := kindFromCode(code); ok {
		return k
	}
	if k, ok := kindFromStatus(status); ok {
		return k
	}
	return kindFromMessage(msg)
}
