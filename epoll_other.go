//go:build !linux

package ioloop

const epollSupported = false

func newEpollBackend(*loopOptions) (Backend, error) {
	return nil, ErrBackendUnsupported
}
