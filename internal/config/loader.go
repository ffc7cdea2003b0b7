// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from four layers (highest
precedence last):

  1. Built-in defaults (defaults.go).
  2. Optional `conf/.env` file, exported into the process environment.
  3. `conf/registrar.yaml`.
  4. Environment variables prefixed `REGISTRAR_`, where `__` maps to “.”
     (e.g., `REGISTRAR_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled into strongly-typed structs,
validated, enriched with the runtime root path, and cached in an
`atomic.Pointer` for lock-free reads.  `Reload()` calls `Load()` again and
swaps the pointer only when the new tree validates, so a bad edit never
replaces a good config.

Instrumentation
---------------
  • DEBUG spans – root discovery, YAML read, env overlay.
  • ERROR spans – YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  – final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/registrar.yaml`;
    this lets `go run ./cmd/registrar` work from any sub-directory.
  • A missing YAML file is not an error; defaults plus env are enough for
    the in-memory store.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// EnvPrefix is the environment override prefix.
const EnvPrefix = "REGISTRAR_"

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves REGISTRAR_ROOT or climbs directories until
// conf/registrar.yaml is found.  Falls back to the executable heuristic for
// the production layout.
func rootDir() string {
	if r := os.Getenv(EnvPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "registrar.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads defaults, .env, YAML, env overrides, validates, and caches
// Config.
func Load() (*Config, error) {
	cfg, err := LoadFrom(rootDir())
	if err != nil {
		return nil, err
	}
	current.Store(cfg)
	return cfg, nil
}

// LoadFrom builds a Config rooted at root without touching the cached
// pointer.  Tests use it directly.
func LoadFrom(root string) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")
	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("config default %s: %w", key, err)
		}
	}

	yamlPath := filepath.Join(root, "conf", "registrar.yaml")
	switch err := k.Load(file.Provider(yamlPath), yaml.Parser()); {
	case err == nil:
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	case errors.Is(err, fs.ErrNotExist):
		zap.S().Debugw("config yaml absent, using defaults", "file", yamlPath)
	default:
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	// Env overrides: REGISTRAR_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"base_path", cfg.HTTP.BasePath,
		"driver", cfg.Database.Driver,
		"timezone", cfg.Registrar.Timezone,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// Get returns the cached Config, or nil before the first Load.
func Get() *Config { return current.Load() }

// Set installs cfg as the cached Config.  Boot code and tests use it when
// they build a Config by hand.
func Set(cfg *Config) { current.Store(cfg) }

// Reload re-reads every layer and swaps the cached pointer on success.
func Reload() error { _, err := Load(); return err }
