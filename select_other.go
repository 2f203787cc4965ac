//go:build !linux && !darwin

package ioloop

const selectSupported = false

func newSelectBackend(*loopOptions) (Backend, error) {
	return nil, ErrBackendUnsupported
}
