//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/webmin/internal/errors"
)

// openFileNoFollow opens a file for writing with O_NOFOLLOW so an exported
// report can never be written through a symlink. O_CLOEXEC prevents FD leaks
// across exec.
//
// O_NOFOLLOW only protects the final component; ValidateExportPath keeps
// directory components out of reach by requiring files to sit directly in an
// allowed directory.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
