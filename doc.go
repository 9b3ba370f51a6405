// Package factory implements the logistics core of a factory-building
// simulation: conveyor belts that carry stacks of items between buffered
// connections, and splitters that redistribute those stacks with priority
// and round-robin fairness.
//
// The package is a pure in-memory simulation. Every operation is
// synchronous; advancing time is always explicit, via Run or a splitter's
// Run method, driven by an outer caller. Nothing here touches the
// filesystem, the network, or a clock.
package factory
