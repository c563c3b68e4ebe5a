package params

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".env"

// LoadEnvFiles loads the default .env file if it exists, then every explicit
// file in order. Explicit files must exist. It returns the files that were loaded.
//
// godotenv never overrides a variable that is already set, so the process
// environment keeps priority, and earlier files win over later ones.
func LoadEnvFiles(explicit ...string) ([]string, error) {
	var loaded []string

	if _, err := os.Stat(DefaultEnvFile); err == nil {
		if err := godotenv.Load(DefaultEnvFile); err != nil {
			return nil, fmt.Errorf("parse %s: %v: %w", DefaultEnvFile, err, crmingest.ErrInvalidConfig)
		}
		loaded = append(loaded, DefaultEnvFile)
	}

	for _, path := range explicit {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return loaded, fmt.Errorf("env file %s not found: %w", path, crmingest.ErrInvalidConfig)
			}
			return loaded, err
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("parse %s: %v: %w", path, err, crmingest.ErrInvalidConfig)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// ReadEnvFile parses a dotenv file without touching the process environment.
func ReadEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("env file %s not found: %w", path, crmingest.ErrInvalidConfig)
		}
		return nil, fmt.Errorf("parse %s: %v: %w", path, err, crmingest.ErrInvalidConfig)
	}
	return values, nil
}
