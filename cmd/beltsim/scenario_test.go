package main

import (
	"os"
	"path/filepath"
	"testing"

	factory "github.com/richkcho/factory-lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScenario = `{
	"ticks": 20,
	"connections": {
		"feed": {"kind": "input", "item_limit": 100, "output_stack_size": 2},
		"sink": {"kind": "output", "item_limit": 100, "output_stack_size": 2}
	},
	"belts": {
		"main": {"length": 512, "speed": 128, "input_connection": "feed", "output_connection": "sink"}
	}
}`

func writeScenario(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadScenario_ParsesBeltsAndConnections(t *testing.T) {
	path := writeScenario(t, sampleScenario)

	cfg, err := loadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(20), cfg.Ticks)
	assert.Len(t, cfg.Connections, 2)
	assert.Len(t, cfg.Belts, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := loadScenario(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}

func TestScenarioBuild_WiresConnectionsToBelts(t *testing.T) {
	path := writeScenario(t, sampleScenario)
	cfg, err := loadScenario(path)
	require.NoError(t, err)

	w, err := cfg.build()
	require.NoError(t, err)

	belt, err := w.belt("main")
	require.NoError(t, err)
	assert.NotNil(t, belt.InputConnection())
	assert.NotNil(t, belt.OutputConnection())
	assert.Equal(t, []string{"main"}, w.beltOrder)
}

func TestScenarioBuild_UnknownConnectionReference(t *testing.T) {
	path := writeScenario(t, `{
		"ticks": 1,
		"belts": {"main": {"length": 512, "speed": 128, "input_connection": "missing"}}
	}`)
	cfg, err := loadScenario(path)
	require.NoError(t, err)

	_, err = cfg.build()
	assert.Error(t, err)
}

func TestWorld_TickFeedsItemsFromInputThroughToOutput(t *testing.T) {
	path := writeScenario(t, sampleScenario)
	cfg, err := loadScenario(path)
	require.NoError(t, err)

	w, err := cfg.build()
	require.NoError(t, err)

	feed, err := w.connection("feed")
	require.NoError(t, err)
	assert.True(t, feed.AcceptStack(factory.NewStack(1, 4)))

	before := w.totalItems()
	assert.Equal(t, uint64(4), before)

	for i := 0; i < int(cfg.Ticks); i++ {
		w.tick()
	}

	assert.Equal(t, before, w.totalItems(), "ticking conserves total item count")

	sink, err := w.connection("sink")
	require.NoError(t, err)
	assert.Equal(t, uint16(4), sink.BufferedItemCount(), "items travel the belt's full length within the tick budget")
}
