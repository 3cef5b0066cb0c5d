package modelfile

import "errors"

var (
	// ErrUnsupportedFormat indicates a file extension that is neither YAML nor JSON.
	ErrUnsupportedFormat = errors.New("unsupported model file format")

	// ErrDecode indicates a file that does not parse as a model or target.
	ErrDecode = errors.New("malformed model file")
)
