//go:build linux

package outbound

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func setMark(c syscall.RawConn, mark uint32) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_MARK, int(mark))
	}); err != nil {
		return err
	}
	return sockErr
}
