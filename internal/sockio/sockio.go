// Package sockio wraps the non-blocking send/recv syscalls the A2DP and
// HFP paths use against their socket descriptors, normalizing EAGAIN into
// a single sentinel error both callers branch on.
package sockio

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned by Send/Recv when the socket has no room (send)
// or no data (recv) available right now. Callers treat it as WouldBlock
// per the spec's error taxonomy: handled locally, never surfaced past a
// poll callback.
var ErrWouldBlock = errors.New("sockio: would block")

func isRetriable(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

// Send writes b to fd non-blockingly, returning the number of bytes
// accepted by the socket. It returns ErrWouldBlock, wrapped, when the
// socket is not currently writable.
func Send(fd int, b []byte) (int, error) {
	n, err := unix.Write(fd, b)
	if err != nil {
		if isRetriable(err) {
			return 0, fmt.Errorf("%w: %v", ErrWouldBlock, err)
		}
		return 0, fmt.Errorf("sockio: send: %w", err)
	}
	return n, nil
}

// Recv reads into b from fd non-blockingly, returning the number of bytes
// received. It returns ErrWouldBlock, wrapped, when no data is currently
// available; it returns (0, nil) on a graceful peer close (EOF), which
// callers treat as a short read.
func Recv(fd int, b []byte) (int, error) {
	n, err := unix.Read(fd, b)
	if err != nil {
		if isRetriable(err) {
			return 0, fmt.Errorf("%w: %v", ErrWouldBlock, err)
		}
		return 0, fmt.Errorf("sockio: recv: %w", err)
	}
	return n, nil
}

// SetNonblock marks fd as non-blocking, as configure() does for every
// socket descriptor obtained from a transport before registering it with
// the poll facility.
func SetNonblock(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("sockio: set_nonblock: %w", err)
	}
	return nil
}
