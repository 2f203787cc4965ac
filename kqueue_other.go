//go:build !darwin

package ioloop

const kqueueSupported = false

func newKqueueBackend(*loopOptions) (Backend, error) {
	return nil, ErrBackendUnsupported
}
