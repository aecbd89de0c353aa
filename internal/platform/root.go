package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ConfigNames are the file names FindConfig looks for, in order.
var ConfigNames = []string{"govmeta.yaml", "govmeta.yml", ".govmeta.yaml"}

// ErrConfigNotFound is returned by FindConfig when no configuration file exists
// between startDir and the filesystem root.
var ErrConfigNotFound = errors.New("config not found")

// FindConfig looks upwards from startDir for a configuration file and returns
// its absolute path.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, name := range ConfigNames {
			if hasFile(dir, name) {
				return filepath.Join(dir, name), nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrConfigNotFound
}

func hasFile(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}
