package consts

const (
	MimeJPEG = "image/jpeg"
	MimeJPG  = "image/jpg"
	MimePNG  = "image/png"
	MimeGIF  = "image/gif"
)

const (
	// DefaultMaxImageBytes 单张图片上限 10 MiB
	DefaultMaxImageBytes int64 = 10 << 20
)
