package params

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// LookupEnv matches os.LookupEnv and is swapped in tests.
type LookupEnv func(key string) (string, bool)

// Load reads parameter-<profile>.properties from scriptRoot, lets environment
// variables override keys the file declares, then applies overrides on top.
// A missing file is not an error: only overrides are returned.
func Load(scriptRoot, profile string, overrides map[string]string, lookup LookupEnv) (map[string]string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	name := fmt.Sprintf(dlsync.ParameterFilePattern, profile)
	values, err := readProperties(filepath.Join(scriptRoot, name))
	if err != nil {
		return nil, err
	}

	for key := range values {
		if v, ok := lookup(key); ok {
			values[key] = v
		}
	}
	for key, v := range overrides {
		values[key] = v
	}
	return values, nil
}

func readProperties(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse %s: %v", dlsync.ErrInvalidConfig, filepath.Base(path), err)
	}
	return values, nil
}
