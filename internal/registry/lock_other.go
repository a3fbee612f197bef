//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package registry

import (
	"fmt"
	"os"
	"runtime"
)

func tryLock(*os.File) (bool, error) {
	return false, fmt.Errorf("%w: file locking on %s", ErrUnimplemented, runtime.GOOS)
}

func unlock(*os.File) error {
	return nil
}
