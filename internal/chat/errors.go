package chat

import "errors"

var (
	// ErrConfiguration means the session has no usable API key or model.
	ErrConfiguration = errors.New("configuration required")
	// ErrService means the completion request failed.
	ErrService = errors.New("completion service error")
	// ErrUpload means a file attachment could not be uploaded.
	ErrUpload = errors.New("file upload failed")
)
