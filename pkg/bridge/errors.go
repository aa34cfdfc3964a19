package bridge

import "errors"

var (
	ErrNotConnected = errors.New("bridge: not connected")

	ErrUnsupportedOutput = errors.New("bridge: output id not expected by this bridge")
)
