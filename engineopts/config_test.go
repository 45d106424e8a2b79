package engineopts

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, int64(256<<20), cfg.MemoryBudgetPerThread)
	require.Equal(t, 0, cfg.WorkerCount)
	require.Equal(t, uint(17), cfg.SamplingExponent)
	require.Equal(t, 4, cfg.ScanBudgetFactor)
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString("worker_count: 8\nscan_budget_factor: 2\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg, err := LoadConfig(f.Name())
	require.NoError(t, err)
	require.Equal(t, 8, cfg.WorkerCount)
	require.Equal(t, 2, cfg.ScanBudgetFactor)
	// Untouched fields keep their Default() value.
	require.Equal(t, int64(256<<20), cfg.MemoryBudgetPerThread)
	require.Equal(t, uint(17), cfg.SamplingExponent)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/no/such/file.yaml")
	require.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("BATJOIN_WORKER_COUNT", "12")
	t.Setenv("BATJOIN_SAMPLING_EXPONENT", "20")

	cfg := Default()
	require.NoError(t, ApplyEnvOverrides(&cfg))
	require.Equal(t, 12, cfg.WorkerCount)
	require.Equal(t, uint(20), cfg.SamplingExponent)
	require.Equal(t, 4, cfg.ScanBudgetFactor)
}

func TestApplyEnvOverridesRejectsBadValue(t *testing.T) {
	t.Setenv("BATJOIN_WORKER_COUNT", "not-a-number")
	cfg := Default()
	require.Error(t, ApplyEnvOverrides(&cfg))
}
