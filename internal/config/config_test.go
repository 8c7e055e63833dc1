package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/pacsim/internal/config"
	"github.com/gyaneshwarpardhi/pacsim/internal/event"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pacsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("version: v1\n"))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))

	assert.Equal(t, "UTC", cfg.Generator.Timezone)
	assert.Equal(t, "Main Entrance", cfg.Generator.Commute.EntranceDoor)
	assert.Equal(t, 20, cfg.Generator.Commute.MaxEmployees)
	assert.Equal(t, 7, cfg.Generator.Fault.IntervalDays)
	assert.Equal(t, 200_000, cfg.Budget.MaxCount)

	gen, err := cfg.GeneratorConfig()
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, gen.Commute.Arrival)
	assert.Equal(t, 60*time.Minute, gen.Commute.DepartureJitter)
	assert.Len(t, gen.Catalog, 13)
}

func TestParse_Distribution(t *testing.T) {
	cfg, err := config.Parse([]byte(`
version: v1
generator:
  timezone: Europe/Berlin
  distribution:
    access: 60
    door: 25
    alarm: 5
    fault: 5
    system: 5
`))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
	assert.Equal(t, 60.0, cfg.Generator.Distribution[event.CategoryAccess])

	gen, err := cfg.GeneratorConfig()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", gen.Location.String())
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"missing version", "engine: {workers: 1}\n", "version is required"},
		{"distribution sum", "version: v1\ngenerator:\n  distribution: {access: 50}\n", "sum to"},
		{"unknown category", "version: v1\ngenerator:\n  distribution: {weather: 100}\n", "unknown category"},
		{"bad timezone", "version: v1\ngenerator:\n  timezone: Mars/Olympus\n", "timezone"},
		{"bad clock", "version: v1\ngenerator:\n  commute: {arrival: '8am'}\n", "HH:MM"},
		{"ratio", "version: v1\nbudget: {max_usage_ratio: 1.5}\n", "max_usage_ratio"},
		{"min over max", "version: v1\nbudget: {min_count: 10, max_count: 5}\n", "min_count"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := config.Parse([]byte(tc.yaml))
			require.NoError(t, err)
			err = config.Validate(cfg)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.want), "error %q should mention %q", err, tc.want)
		})
	}
}

func TestLoader_Reload(t *testing.T) {
	path := writeConfig(t, "version: v1\nbudget: {max_count: 5000}\n")
	l, err := config.NewLoader(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, l.Config().Budget.MaxCount)

	var calls atomic.Int32
	l.OnChange(func(*config.Config) { calls.Add(1) })

	require.NoError(t, os.WriteFile(path, []byte("version: v2\nbudget: {max_count: 9000}\n"), 0o644))
	cfg, err := l.Reload()
	require.NoError(t, err)
	assert.Equal(t, "v2", cfg.Version)
	assert.Equal(t, 9000, l.Config().Budget.MaxCount)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoader_ReloadKeepsOldOnError(t *testing.T) {
	path := writeConfig(t, "version: v1\n")
	l, err := config.NewLoader(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("version: [unterminated\n"), 0o644))
	_, err = l.Reload()
	require.Error(t, err)
	assert.Equal(t, "v1", l.Config().Version)
}

func TestLoader_Watch(t *testing.T) {
	path := writeConfig(t, "version: v1\n")
	l, err := config.NewLoader(path)
	require.NoError(t, err)

	stop, err := l.Watch()
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("version: v3\n"), 0o644))
	require.Eventually(t, func() bool { return l.Config().Version == "v3" }, 5*time.Second, 20*time.Millisecond)
}

func TestStatic(t *testing.T) {
	l := config.Static(config.Default())
	cfg, err := l.Reload()
	require.NoError(t, err)
	assert.Equal(t, "v1", cfg.Version)
	stop, err := l.Watch()
	require.NoError(t, err)
	stop()
}
