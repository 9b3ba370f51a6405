package main

import (
	"encoding/json"
	"fmt"
	"os"

	factory "github.com/richkcho/factory-lib"
	"golang.org/x/exp/slices"
)

// connectionConfig describes one Connection to build, keyed by name in
// scenarioConfig.Connections so belts and splitters can reference it.
type connectionConfig struct {
	Kind            string            `json:"kind"`
	ItemLimit       uint16            `json:"item_limit"`
	OutputStackSize uint16            `json:"output_stack_size"`
	ItemFilter      []factory.ItemType `json:"item_filter,omitempty"`
}

// beltConfig describes one Belt, referencing connections by name.
type beltConfig struct {
	Length           uint32 `json:"length"`
	Speed            uint32 `json:"speed"`
	InputConnection  string `json:"input_connection,omitempty"`
	OutputConnection string `json:"output_connection,omitempty"`
}

// bufferedSplitterConfig describes one BufferedSplitter, wiring named
// connections into its four connection sets.
type bufferedSplitterConfig struct {
	PriorityInputs  []string `json:"priority_inputs,omitempty"`
	RRInputs        []string `json:"rr_inputs,omitempty"`
	PriorityOutputs []string `json:"priority_outputs,omitempty"`
	RROutputs       []string `json:"rr_outputs,omitempty"`
}

// directSplitterConfig describes one DirectSplitter, wiring named belts
// directly into its four belt sets.
type directSplitterConfig struct {
	PriorityInputs  []string `json:"priority_inputs,omitempty"`
	RRInputs        []string `json:"rr_inputs,omitempty"`
	PriorityOutputs []string `json:"priority_outputs,omitempty"`
	RROutputs       []string `json:"rr_outputs,omitempty"`
}

// scenarioConfig is the JSON document cmd/beltsim loads: a flat set of
// named connections and belts, plus the splitters that wire them
// together, and how many ticks to run.
type scenarioConfig struct {
	Ticks             uint32                            `json:"ticks"`
	Connections       map[string]connectionConfig       `json:"connections"`
	Belts             map[string]beltConfig             `json:"belts"`
	BufferedSplitters map[string]bufferedSplitterConfig `json:"buffered_splitters"`
	DirectSplitters   map[string]directSplitterConfig   `json:"direct_splitters"`
}

// world is the built simulation: every named component, plus the
// splitters to drive each tick. Belts are kept in a map for inspection
// (e.g. final item counts) after the run completes.
type world struct {
	ticks             uint32
	belts             map[string]*factory.Belt
	connections       map[string]*factory.Connection
	bufferedSplitters map[string]*factory.BufferedSplitter
	directSplitters   map[string]*directSplitterInstance
	beltOrder         []string
	bufferedOrder     []string
	directOrder       []string
}

// directSplitterInstance pairs a DirectSplitter with the belt sets its
// Run method needs every tick, since (unlike BufferedSplitter) it does
// not hold belt references itself.
type directSplitterInstance struct {
	splitter        *factory.DirectSplitter
	priorityInputs  []*factory.Belt
	rrInputs        []*factory.Belt
	priorityOutputs []*factory.Belt
	rrOutputs       []*factory.Belt
}

func (d *directSplitterInstance) run() {
	d.splitter.Run(d.priorityInputs, d.rrInputs, d.priorityOutputs, d.rrOutputs)
}

func loadScenario(path string) (scenarioConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return scenarioConfig{}, fmt.Errorf("beltsim: open scenario: %w", err)
	}
	defer f.Close()

	var cfg scenarioConfig
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return scenarioConfig{}, fmt.Errorf("beltsim: decode scenario: %w", err)
	}
	return cfg, nil
}

func (c connectionConfig) kind() (factory.ConnectionKind, error) {
	switch c.Kind {
	case "input":
		return factory.Input, nil
	case "output":
		return factory.Output, nil
	default:
		return 0, fmt.Errorf("beltsim: connection: unknown kind %q", c.Kind)
	}
}

// build constructs a world from cfg. Connections are built first (belts
// and splitters only ever reference them by name), then belts, then
// splitters.
func (cfg scenarioConfig) build() (*world, error) {
	w := &world{
		ticks:             cfg.Ticks,
		belts:             make(map[string]*factory.Belt, len(cfg.Belts)),
		connections:       make(map[string]*factory.Connection, len(cfg.Connections)),
		bufferedSplitters: make(map[string]*factory.BufferedSplitter, len(cfg.BufferedSplitters)),
		directSplitters:   make(map[string]*directSplitterInstance, len(cfg.DirectSplitters)),
	}

	for name, c := range cfg.Connections {
		kind, err := c.kind()
		if err != nil {
			return nil, err
		}
		if c.OutputStackSize == 0 {
			c.OutputStackSize = 1
		}
		w.connections[name] = factory.NewConnection(kind, c.ItemLimit, c.OutputStackSize, c.ItemFilter)
	}

	for name, b := range cfg.Belts {
		belt := factory.NewBelt(b.Length, b.Speed)
		if b.InputConnection != "" {
			conn, err := w.connection(b.InputConnection)
			if err != nil {
				return nil, err
			}
			belt.SetInputConnection(conn)
		}
		if b.OutputConnection != "" {
			conn, err := w.connection(b.OutputConnection)
			if err != nil {
				return nil, err
			}
			belt.SetOutputConnection(conn)
		}
		w.belts[name] = belt
		w.beltOrder = append(w.beltOrder, name)
	}

	for name, s := range cfg.BufferedSplitters {
		priorityInputs, err := w.connections_(s.PriorityInputs)
		if err != nil {
			return nil, err
		}
		rrInputs, err := w.connections_(s.RRInputs)
		if err != nil {
			return nil, err
		}
		priorityOutputs, err := w.connections_(s.PriorityOutputs)
		if err != nil {
			return nil, err
		}
		rrOutputs, err := w.connections_(s.RROutputs)
		if err != nil {
			return nil, err
		}
		w.bufferedSplitters[name] = factory.NewBufferedSplitter(priorityInputs, rrInputs, priorityOutputs, rrOutputs)
		w.bufferedOrder = append(w.bufferedOrder, name)
	}

	for name, s := range cfg.DirectSplitters {
		priorityInputs, err := w.belts_(s.PriorityInputs)
		if err != nil {
			return nil, err
		}
		rrInputs, err := w.belts_(s.RRInputs)
		if err != nil {
			return nil, err
		}
		priorityOutputs, err := w.belts_(s.PriorityOutputs)
		if err != nil {
			return nil, err
		}
		rrOutputs, err := w.belts_(s.RROutputs)
		if err != nil {
			return nil, err
		}
		w.directSplitters[name] = &directSplitterInstance{
			splitter:        factory.NewDirectSplitter(),
			priorityInputs:  priorityInputs,
			rrInputs:        rrInputs,
			priorityOutputs: priorityOutputs,
			rrOutputs:       rrOutputs,
		}
		w.directOrder = append(w.directOrder, name)
	}

	// Map iteration order is randomized; sort each tick-driven component
	// list once so repeated runs of the same scenario are reproducible.
	slices.Sort(w.beltOrder)
	slices.Sort(w.bufferedOrder)
	slices.Sort(w.directOrder)

	return w, nil
}

// tick advances the simulation by one step: belts drain to their output
// connections, compact, and fill from their input connections; then
// splitters redistribute whatever belts deposited into connections,
// ready for the next tick's belts to pick up. Within each half, order is
// fixed by sorted component name.
func (w *world) tick() {
	for _, name := range w.beltOrder {
		w.belts[name].Run(1)
	}
	for _, name := range w.bufferedOrder {
		w.bufferedSplitters[name].Run()
	}
	for _, name := range w.directOrder {
		w.directSplitters[name].run()
	}
}

// totalItems adds each belt's ItemCount (its number of stacks, a sum of
// multiplicities) to each connection's buffered item count, for logging
// across ticks. A belt stack counts once whatever its item count, so the
// sum equals the number of items held only while every stack on every
// belt carries a single item.
func (w *world) totalItems() uint64 {
	var total uint64
	for _, b := range w.belts {
		total += b.ItemCount()
	}
	for _, c := range w.connections {
		total += uint64(c.BufferedItemCount())
	}
	return total
}

func (w *world) connection(name string) (*factory.Connection, error) {
	c, ok := w.connections[name]
	if !ok {
		return nil, fmt.Errorf("beltsim: unknown connection %q", name)
	}
	return c, nil
}

func (w *world) connections_(names []string) ([]*factory.Connection, error) {
	out := make([]*factory.Connection, 0, len(names))
	for _, n := range names {
		c, err := w.connection(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (w *world) belt(name string) (*factory.Belt, error) {
	b, ok := w.belts[name]
	if !ok {
		return nil, fmt.Errorf("beltsim: unknown belt %q", name)
	}
	return b, nil
}

func (w *world) belts_(names []string) ([]*factory.Belt, error) {
	out := make([]*factory.Belt, 0, len(names))
	for _, n := range names {
		b, err := w.belt(n)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
