//go:build unix

package redisserver

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddrControl sets SO_REUSEADDR so a restart can rebind a port whose
// previous connections are still in TIME_WAIT.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// isTransientAcceptErr reports accept errors that clear up on their own,
// such as running out of descriptors.
func isTransientAcceptErr(err error) bool {
	return errors.Is(err, unix.EMFILE) ||
		errors.Is(err, unix.ENFILE) ||
		errors.Is(err, unix.ECONNABORTED) ||
		errors.Is(err, unix.ENOBUFS)
}
