// Package config handles fastipc's runtime tunables: where PID markers
// live, how long Open retries, and how the spin/park split is tuned. The
// fields are all PascalCase but round-trip through YAML in camelCase, the
// same convention the reference app's user config uses, so a fastipc.yml
// dropped next to a binary can override any of them.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/OpenPeeDeeP/xdg"
	yaml "github.com/jesseduffield/yaml"
)

// EnvPIDDir is the environment variable that overrides the default PID-root
// directory, matching spec.md §6.
const EnvPIDDir = "FASTIPC_PID_DIR"

// EnvDebug, when set to a truthy value, switches the in-process registry
// lock (pkg/fastipc/registry.go) into deadlock-detecting mode and raises
// the applog level, mirroring the reference app's DEBUG env toggle.
const EnvDebug = "FASTIPC_DEBUG"

// Options configures a GuardedSegment's open/close behavior and a
// WordPrimitive's wait strategy.
type Options struct {
	// PIDRoot is the directory under which "{name}.pids" participant
	// directories are created. Defaults to /dev/shm/fastipc on hosts with
	// a /dev/shm tmpfs, otherwise an XDG runtime directory.
	PIDRoot string `yaml:"pidRoot,omitempty"`

	// MaxAttempts bounds the attach-or-create retry loop in Open.
	MaxAttempts int `yaml:"maxAttempts,omitempty"`

	// BackoffBase is the base sleep, in seconds, between Open attempts;
	// the actual sleep is BackoffBase * (1 + U[0,1)).
	BackoffBase float64 `yaml:"backoffBase,omitempty"`

	// Spin is the default number of busy-wait iterations Semaphore.Wait
	// performs before parking, absent an explicit override per call.
	Spin int `yaml:"spin,omitempty"`

	// Debug enables verbose close-protocol logging. Default() sets it from
	// FASTIPC_DEBUG; the registry's deadlock detection reads that
	// environment variable directly and is not switched by this field.
	Debug bool `yaml:"debug,omitempty"`
}

// Default returns the built-in defaults, then applies the FASTIPC_PID_DIR
// and FASTIPC_DEBUG environment overrides, matching the precedence spec.md
// §6 describes for the PID root.
func Default() Options {
	o := Options{
		PIDRoot:     defaultPIDRoot(),
		MaxAttempts: 128,
		BackoffBase: 0.002,
		Spin:        128,
	}
	if dir := os.Getenv(EnvPIDDir); dir != "" {
		o.PIDRoot = dir
	}
	if v := os.Getenv(EnvDebug); v == "1" || v == "true" || v == "TRUE" {
		o.Debug = true
	}
	return o
}

// defaultPIDRoot resolves /dev/shm/fastipc when /dev/shm exists and is a
// tmpfs-backed directory (true on Linux-like hosts per spec.md §6); it
// falls back to an XDG runtime directory on hosts without /dev/shm, the
// same library the reference app uses for its own config/cache paths.
func defaultPIDRoot() string {
	const linuxShm = "/dev/shm"
	if runtime.GOOS == "linux" {
		if info, err := os.Stat(linuxShm); err == nil && info.IsDir() {
			return filepath.Join(linuxShm, "fastipc")
		}
	}
	return filepath.Join(xdg.New("", "fastipc").RuntimeDir(), "fastipc")
}

// Load reads a YAML config file at path, applying it on top of Default().
// A missing file is not an error: Default() alone is returned.
func Load(path string) (Options, error) {
	o := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return o, nil
		}
		return o, err
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		return o, err
	}
	return o, nil
}

// OpenBackoffCeiling returns the upper bound on the total backoff sleep of
// one Open call, MaxAttempts × BackoffBase × 2, for diagnostics.
func (o Options) OpenBackoffCeiling() time.Duration {
	return time.Duration(float64(o.MaxAttempts) * o.BackoffBase * 2 * float64(time.Second))
}
