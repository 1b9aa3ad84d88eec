package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnvName is read from the manifest directory when present.
const DotEnvName = ".env"

// Environment variables that override [input] settings.
const (
	EnvJobs   = "DERIVE_CODEGEN_JOBS"
	EnvStrict = "DERIVE_CODEGEN_STRICT"
	EnvCache  = "DERIVE_CODEGEN_CACHE_DIR"
)

func loadDotEnv(dir string) (map[string]string, error) {
	path := filepath.Join(dir, DotEnvName)
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

// ApplyEnv overrides manifest settings from the process environment and
// then from .env, in that order of precedence.
func (m *Manifest) ApplyEnv() error {
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(m.DotEnv[key])
	}
	if v := lookup(EnvJobs); v != "" {
		jobs, err := strconv.Atoi(v)
		if err != nil || jobs < 0 {
			return fmt.Errorf("%s=%q: want a non-negative integer", EnvJobs, v)
		}
		m.Input.Jobs = jobs
	}
	if v := lookup(EnvStrict); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvStrict, v, err)
		}
		m.Input.Strict = strict
	}
	if v := lookup(EnvCache); v != "" {
		m.Cache.Dir = m.abs(v)
	}
	return nil
}
