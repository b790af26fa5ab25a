//go:build !linux

package outbound

import (
	"errors"
	"syscall"
)

func setMark(c syscall.RawConn, mark uint32) error {
	return errors.New("socket mark is only supported on linux")
}
