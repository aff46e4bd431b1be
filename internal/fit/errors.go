package fit

import "errors"

var (
	// ErrDecode reports input that is not a readable image.
	ErrDecode = errors.New("decode failed")
	// ErrEncode reports a resize or encode failure. A missed byte budget is
	// not an encode failure.
	ErrEncode = errors.New("encode failed")
	// ErrUnsupportedFormat reports an output extension no encoder handles.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)
