package util

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// EncodeDataURI 读取整张图片并编码为 data:<mime>;base64,...
func EncodeDataURI(r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(contentType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(contentType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String(), nil
}

// GetSafeContentType 当上传未声明类型时按内容嗅探，返回不带参数的 MIME
func GetSafeContentType(declared string, head []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(head).String()
}

// PeekHead 读取前 n 字节用于嗅探，并返回还原后的 reader
func PeekHead(r io.Reader, n int) ([]byte, io.Reader, error) {
	head := make([]byte, n)
	read, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, nil, err
	}
	head = head[:read]
	return head, io.MultiReader(bytes.NewReader(head), r), nil
}
