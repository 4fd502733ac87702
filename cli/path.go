package cli

import (
	"os"
	"path/filepath"

	"github.com/ardnew/fable/pkg"
)

// cacheDir returns the per-user cache directory for fable artifacts such
// as profiling output.
func cacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, pkg.Name)
}
