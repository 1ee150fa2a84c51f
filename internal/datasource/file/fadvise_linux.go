//go:build linux

package file

import (
	"os"

	"golang.org/x/sys/unix"

	"csvviz/internal/logging"
)

func adviseSequential(f *os.File) {
	if err := unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL); err != nil {
		logging.Logger().Debug("file: fadvise failed", "path", f.Name(), "err", err)
	}
}
