package candy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 10_000, cfg.GetInt("vm.channel.max_capacity"))
	assert.Equal(t, 1_000_000, cfg.GetInt("vm.packet.max_size"))
	assert.Equal(t, 20, cfg.GetInt("compiler.inline.tiny_threshold"))
	assert.True(t, cfg.GetBool("tracing.register_fuzzables"))
	assert.False(t, cfg.GetBool("tracing.calls"))
}

func TestConfigGetMissingKeyPanics(t *testing.T) {
	cfg := NewConfig()
	assert.Panics(t, func() { cfg.GetInt("nonexistent.key") })
}

func TestConfigGetWrongTypePanics(t *testing.T) {
	cfg := NewConfig()
	cfg.SetInt("some.int", 1)
	assert.Panics(t, func() { cfg.GetBool("some.int") })
}

func TestConfigSetReassignWrongTypePanics(t *testing.T) {
	cfg := NewConfig()
	assert.Panics(t, func() {
		// vm.channel.max_capacity is already an Int; assigning it fresh
		// each call is fine (SetInt replaces the cfgVal), but forcing a
		// type mismatch on the same key via assignType must panic.
		val := (*cfg)["vm.channel.max_capacity"]
		val.assignType(cfgValType_String)
	})
}

func TestConfigLoadYAMLMergesSubsetOfSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candy.yaml")
	contents := "vm.channel.max_capacity: 64\nfuzzer.enabled: true\nproject.name: demo\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg := NewConfig()
	require.NoError(t, cfg.LoadYAML(path))

	assert.Equal(t, 64, cfg.GetInt("vm.channel.max_capacity"))
	assert.True(t, cfg.GetBool("fuzzer.enabled"))
	assert.Equal(t, "demo", cfg.GetString("project.name"))
	// Untouched defaults survive the merge.
	assert.Equal(t, 1_000_000, cfg.GetInt("vm.packet.max_size"))
}

func TestConfigLoadYAMLMissingFileReturnsError(t *testing.T) {
	cfg := NewConfig()
	err := cfg.LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
