// Package engineopts holds the small set of tunables the planner and
// estimator need: memory budget, worker count, the sampling constant T,
// and the merge-join scan-budget multiplier. It plays the role the
// teacher's sqle.Config plays for the SQL engine proper, but for a
// library rather than a server: callers construct one directly, or load
// one from YAML with LoadConfig.
package engineopts

import (
	"os"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

// Config holds the tunables of spec.md §2-§5.
type Config struct {
	// MemoryBudgetPerThread caps the inner-side size the planner will
	// accept before preferring a sort-merge strategy over a hash build
	// (spec §4.5, rule 3).
	MemoryBudgetPerThread int64 `yaml:"memory_budget_per_thread"`
	// WorkerCount bounds the pool of worker goroutines used to run
	// independent operator calls concurrently. Zero means "use
	// runtime.NumCPU(), capped at 16 on 32-bit platforms" (spec §5).
	WorkerCount int `yaml:"worker_count"`
	// SamplingExponent is T in spec §4.3: sampling is skipped when three
	// times the smaller input's row count is at most 2^T.
	SamplingExponent uint `yaml:"sampling_exponent"`
	// ScanBudgetFactor is the multiplier applied to ceil(log2(|R|)) to
	// derive the opportunistic scan budget W in merge-join (spec
	// §4.4.1).
	ScanBudgetFactor int `yaml:"scan_budget_factor"`
}

// Default returns the configuration spec.md describes: T≈17, a 4x scan
// budget multiplier, and a worker count of zero (caller decides at
// runtime).
func Default() Config {
	return Config{
		MemoryBudgetPerThread: 256 << 20,
		WorkerCount:           0,
		SamplingExponent:      17,
		ScanBudgetFactor:      4,
	}
}

// LoadConfig reads a Config from a YAML file, falling back to Default
// for any zero-valued field.
func LoadConfig(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Config{}, err
	}

	if loaded.MemoryBudgetPerThread != 0 {
		cfg.MemoryBudgetPerThread = loaded.MemoryBudgetPerThread
	}
	if loaded.WorkerCount != 0 {
		cfg.WorkerCount = loaded.WorkerCount
	}
	if loaded.SamplingExponent != 0 {
		cfg.SamplingExponent = loaded.SamplingExponent
	}
	if loaded.ScanBudgetFactor != 0 {
		cfg.ScanBudgetFactor = loaded.ScanBudgetFactor
	}

	return cfg, nil
}

// envOverrides lists the environment variables ApplyEnvOverrides
// recognizes, keyed by the same names as the YAML tags.
var envOverrides = map[string]func(*Config, string) error{
	"BATJOIN_MEMORY_BUDGET_PER_THREAD": func(c *Config, v string) error {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return err
		}
		c.MemoryBudgetPerThread = n
		return nil
	},
	"BATJOIN_WORKER_COUNT": func(c *Config, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		c.WorkerCount = n
		return nil
	},
	"BATJOIN_SAMPLING_EXPONENT": func(c *Config, v string) error {
		n, err := cast.ToUintE(v)
		if err != nil {
			return err
		}
		c.SamplingExponent = n
		return nil
	},
	"BATJOIN_SCAN_BUDGET_FACTOR": func(c *Config, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		c.ScanBudgetFactor = n
		return nil
	},
}

// ApplyEnvOverrides mutates cfg in place from whichever of the
// BATJOIN_* environment variables are set, coercing each value with
// cast so that "16", 16, or "0x10"-style inputs all parse rather than
// rejecting anything that isn't already the target Go type -- the
// loader has no control over how an operator's process manager quotes
// environment variables.
func ApplyEnvOverrides(cfg *Config) error {
	for name, apply := range envOverrides {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		if err := apply(cfg, v); err != nil {
			return err
		}
	}
	return nil
}
