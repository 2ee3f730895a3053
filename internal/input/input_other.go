//go:build !windows && !linux

package input

import "github.com/verte-zerg/switchlife/internal/model"

// NewBackend has no controller API to offer on this platform.
func NewBackend(method model.InputMethod) Backend {
	return unsupported{}
}
