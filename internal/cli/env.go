package cli

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFileVar overrides the --env flag when set.
const EnvFileVar = "EVENTSYNC_ENV_FILE"

// EnvLoader loads one or more .env files named by an --env flag.
type EnvLoader struct {
	value       *string
	defaultPath string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}

	value := fs.String("env", defaultPath, "Comma-separated .env files (later files win)")
	return &EnvLoader{
		value:       value,
		defaultPath: defaultPath,
	}
}

// Load applies the configured files on top of the process environment and
// returns the files that were read. A missing default file is not an error,
// since deployed schedulers inject variables directly.
func (l *EnvLoader) Load() ([]string, error) {
	if l == nil {
		return nil, fmt.Errorf("env loader is nil")
	}

	requested := strings.TrimSpace(os.Getenv(EnvFileVar))
	if requested == "" && l.value != nil {
		requested = strings.TrimSpace(*l.value)
	}
	if requested == "" {
		requested = l.defaultPath
	}

	paths := splitPaths(requested)
	loaded := make([]string, 0, len(paths))
	for _, path := range paths {
		err := godotenv.Overload(path)
		if err == nil {
			loaded = append(loaded, path)
			continue
		}
		if errors.Is(err, fs.ErrNotExist) && path == l.defaultPath {
			continue
		}
		return loaded, fmt.Errorf("load env file %s: %w", path, err)
	}
	return loaded, nil
}

func splitPaths(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
