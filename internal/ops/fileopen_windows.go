//go:build windows

package ops

import (
	"os"

	"github.com/AO-5002/piecewall/internal/errors"
)

// openNoFollow opens path. Windows has no O_NOFOLLOW; pathPolicy has already
// refused symlinked files.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound("file", path)
	}
	return f, err
}
