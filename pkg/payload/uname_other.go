//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package payload

import "runtime"

func uname() (release, machine string) {
	return "", runtime.GOARCH
}
