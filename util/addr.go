package util

import (
	"net"

	extErrors "github.com/pkg/errors"
)

// FreeLocalAddr asks the kernel for a loopback TCP address that nothing listens on.
// The port is released before returning, so it may be reused by another process.
func FreeLocalAddr() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", extErrors.Wrap(err, "Cannot listen on loopback")
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		return "", extErrors.Wrap(err, "Cannot release loopback port")
	}
	return addr, nil
}
