// Package config loads dotenv files into the process environment and reads
// the service configuration from it.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"

	"neomentor/internal/infra"
)

// DefaultFiles are read in order; a value from an earlier file wins because
// godotenv never overrides a variable that is already set.
var DefaultFiles = []string{".env.local", ".env"}

// Load reads the given dotenv files (DefaultFiles when none), skipping the
// ones that do not exist, and then builds the configuration.
func Load(files ...string) (*infra.Config, error) {
	if len(files) == 0 {
		files = DefaultFiles
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return infra.LoadConfig()
}
