package utils

import (
	"os"
	"path/filepath"
)

// EnsureAbsPath resolves p against the working directory. Downloads keep
// running if the caller later changes directory.
func EnsureAbsPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	return filepath.Join(wd, p)
}
