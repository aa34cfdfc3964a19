package prefs

import "errors"

var (
	// ErrProviderNotFound is returned by operations that require an
	// existing provider id.
	ErrProviderNotFound = errors.New("prefs: provider not found")

	// ErrProviderNotCustom is returned by RemoveProvider when asked to
	// remove a built-in provider: only custom providers may be removed.
	ErrProviderNotCustom = errors.New("prefs: only custom providers can be removed")
)
