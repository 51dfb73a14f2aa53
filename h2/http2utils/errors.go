package http2utils

import "errors"

// ErrPaddingOutOfRange is returned by CutPadding when a frame's declared
// pad length would consume more bytes than the frame actually carries.
var ErrPaddingOutOfRange = errors.New("http2utils: padding length exceeds payload")
