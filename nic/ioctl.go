package nic

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl issues a raw ioctl(2) against fd, used for the TUNSETIFF request
// that golang.org/x/sys/unix does not wrap directly (it needs a pointer
// to a variable-length struct ifreq, not a plain int argument).
func ioctl(fd uintptr, request uintptr, arg *byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, uintptr(unsafe.Pointer(arg)))
	if errno != 0 {
		return errno
	}
	return nil
}
