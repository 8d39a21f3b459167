//go:build linux || darwin || freebsd || netbsd || openbsd

package payload

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func uname() (release, machine string) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", runtime.GOARCH
	}
	return unix.ByteSliceToString(u.Release[:]), unix.ByteSliceToString(u.Machine[:])
}
