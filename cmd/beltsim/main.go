// Command beltsim runs a belt-and-splitter logistics scenario described
// by a JSON file, advancing it tick by tick and logging progress.
package main

import (
	"fmt"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <scenario.json>\n", os.Args[0])
		os.Exit(2)
	}

	logger := stumpy.L.New(
		stumpy.L.WithStumpy(),
	)

	if err := run(os.Args[1], logger); err != nil {
		logger.Err().Err(err).Log("beltsim: run failed")
		os.Exit(1)
	}
}

func run(path string, logger *logiface.Logger[*stumpy.Event]) error {
	cfg, err := loadScenario(path)
	if err != nil {
		return err
	}

	w, err := cfg.build()
	if err != nil {
		return err
	}

	logger.Info().
		Int("belts", len(w.belts)).
		Int("connections", len(w.connections)).
		Int("buffered_splitters", len(w.bufferedSplitters)).
		Int("direct_splitters", len(w.directSplitters)).
		Uint64("ticks", uint64(w.ticks)).
		Log("beltsim: scenario loaded")

	for i := uint32(0); i < w.ticks; i++ {
		w.tick()
		logger.Debug().
			Uint64("tick", uint64(i+1)).
			Uint64("total_items", w.totalItems()).
			Log("beltsim: tick complete")
	}

	logger.Info().
		Uint64("total_items", w.totalItems()).
		Log("beltsim: run complete")

	return nil
}
