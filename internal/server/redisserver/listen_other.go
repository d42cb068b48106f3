//go:build !unix

package redisserver

import "syscall"

// reuseAddrControl is a no-op where SO_REUSEADDR has different semantics.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}

func isTransientAcceptErr(err error) bool {
	return false
}
