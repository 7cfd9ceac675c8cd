//go:build windows

package config

import (
	"fmt"
	"os"
)

// openConfigFile opens the config file on Windows.
// Windows has no O_NOFOLLOW; creating symlinks requires special privileges.
func openConfigFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("config: failed to open %s: %w", path, err)
	}
	return f, nil
}

// checkFileOwnership on Windows is a no-op; ownership is governed by ACLs.
func checkFileOwnership(_ os.FileInfo) error {
	return nil
}
