package common

const (
	// MaxImageUploadBytes limits a single listing image.
	MaxImageUploadBytes = 10 << 20
	// MaxMultipartBody bounds the whole multipart request (image plus form fields).
	MaxMultipartBody = MaxImageUploadBytes + 1<<20
	// MaxFormMemory is how much of a multipart form is buffered in memory before spilling to disk.
	MaxFormMemory = 2 << 20
	// MaxJSONRequestBody limits JSON request bodies for review/account endpoints.
	MaxJSONRequestBody = 1 << 20
)

// AllowedImageExtensions はアップロードを許可する画像形式。
var AllowedImageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}
