package asr

import "errors"

var (
	ErrAudioTooShort = errors.New("asr: audio shorter than the configured floor")
	ErrUnknownEngine = errors.New("asr: unknown engine")
)
