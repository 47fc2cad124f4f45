package scaffold

import (
	"fmt"
	"os"
)

// CheckExisting returns an error if a config already exists at path
func CheckExisting(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'waveportal init --force' to reinitialize (this will overwrite existing configuration)", path)
}
