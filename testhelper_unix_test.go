//go:build linux || darwin

package ioloop

import (
	"testing"

	"golang.org/x/sys/unix"
)

// newPipe returns the read and write ends of a non-blocking pipe, closed on
// test cleanup unless already closed.
func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		t.Fatalf("Pipe failed: %v", err)
	}
	for _, fd := range p {
		if err := unix.SetNonblock(fd, true); err != nil {
			t.Fatalf("SetNonblock failed: %v", err)
		}
		closeOnCleanup(t, fd)
	}
	return p[0], p[1]
}

// newSocketPair returns a connected pair of unix stream sockets.
func newSocketPair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair failed: %v", err)
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			t.Fatalf("SetNonblock failed: %v", err)
		}
		closeOnCleanup(t, fd)
	}
	return fds[0], fds[1]
}

// closeOnCleanup closes fd at the end of the test, tolerating EBADF from
// tests that close it themselves.
func closeOnCleanup(t *testing.T, fd int) {
	t.Cleanup(func() {
		_ = unix.Close(fd)
	})
}

func mustWrite(t *testing.T, fd int, b []byte) {
	t.Helper()
	if _, err := unix.Write(fd, b); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func drain(fd int) {
	var buf [512]byte
	for {
		if n, err := unix.Read(fd, buf[:]); err != nil || n == 0 {
			return
		}
	}
}
