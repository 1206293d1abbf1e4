package domain

import "errors"

var (
	ErrNoFileHandle        = errors.New("image has no platform file handle")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrUploadInProgress    = errors.New("upload already in progress")
	ErrUploadStatus        = errors.New("upload rejected by server")
)
