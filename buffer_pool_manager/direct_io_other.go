//go:build !linux && !darwin
// +build !linux,!darwin

package buffer_pool_manager

import (
	"os"

	"github.com/ncw/directio"
)

func openFileDirectIO(filePath string, flags int, permissions os.FileMode) (*os.File, error) {
	return directio.OpenFile(filePath, flags, permissions)
}
