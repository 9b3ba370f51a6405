package factory

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

func minOf[T constraints.Unsigned](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// BufferedSplitter redistributes items between sets of connection
// buffers: two prioritized input sets and two prioritized output sets,
// with round-robin cursors that persist across ticks.
type BufferedSplitter struct {
	priorityInputs  []*Connection
	rrInputs        []*Connection
	inputRRIndex    int
	priorityOutputs []*Connection
	rrOutputs       []*Connection
	outputRRIndex   int
}

// NewBufferedSplitter creates a splitter over the given connection sets,
// with both round-robin cursors starting at zero.
func NewBufferedSplitter(priorityInputs, rrInputs, priorityOutputs, rrOutputs []*Connection) *BufferedSplitter {
	return &BufferedSplitter{
		priorityInputs:  priorityInputs,
		rrInputs:        rrInputs,
		priorityOutputs: priorityOutputs,
		rrOutputs:       rrOutputs,
	}
}

func distinctTypes(conns []*Connection) []ItemType {
	var types []ItemType
	for _, c := range conns {
		if t, ok := c.CurrentItemType(); ok {
			types = append(types, t)
		}
	}
	slices.Sort(types)
	return slices.Compact(types)
}

// distributeItems fills priority outputs greedily in order, then
// fast-forwards round-robin distribution across rrOutputs: each round
// computes the set of outputs that can currently take itemType and have
// spare capacity, splits as even a chunk as the smallest capacity in that
// set allows, and hands the remainder one-at-a-time (in round-robin
// order from *rrIndex) to the first few recipients. It returns whatever
// could not be placed.
func distributeItems(remaining uint16, itemType ItemType, priorityOutputs, rrOutputs []*Connection, rrIndex *int) uint16 {
	for _, out := range priorityOutputs {
		remaining = out.IncItemCount(itemType, remaining)
		if remaining == 0 {
			return 0
		}
	}

	if len(rrOutputs) == 0 {
		return remaining
	}

	n := len(rrOutputs)
	for remaining > 0 {
		var eligible []int
		for i := 0; i < n; i++ {
			idx := (*rrIndex + i) % n
			out := rrOutputs[idx]
			if out.CanTakeItemType(itemType) && out.MaxAcceptableItemCount() > 0 {
				eligible = append(eligible, idx)
			}
		}
		k := len(eligible)
		if k == 0 {
			break
		}

		m := rrOutputs[eligible[0]].MaxAcceptableItemCount()
		for _, idx := range eligible[1:] {
			m = minOf(m, rrOutputs[idx].MaxAcceptableItemCount())
		}
		if m == 0 {
			break
		}

		chunk := minOf(remaining, uint16(k)*m)
		perBelt := chunk / uint16(k)
		bonus := chunk % uint16(k)

		for pos, idx := range eligible {
			toGive := perBelt
			if uint16(pos) < bonus {
				toGive++
				*rrIndex = (idx + 1) % n
			}
			if toGive == 0 {
				continue
			}
			if leftover := rrOutputs[idx].IncItemCount(itemType, toGive); leftover != 0 {
				panic("factory: splitter: distribute items: output rejected an amount its own capacity query had certified")
			}
		}

		remaining -= chunk
	}

	return remaining
}

// drainConnections computes how much of itemType is buffered across
// rrInputs, hands that amount to distributeItems, and then fast-forwards
// the actual per-input consumption so the round-robin cursor ends exactly
// where a naive one-item-at-a-time reference distributor would leave it.
func drainConnections(itemType ItemType, rrInputs []*Connection, inputRRIndex *int, priorityOutputs, rrOutputs []*Connection, outputRRIndex *int) {
	if len(rrInputs) == 0 {
		return
	}

	var itemCount uint16
	for _, in := range rrInputs {
		if t, ok := in.CurrentItemType(); ok && t == itemType {
			itemCount += in.BufferedItemCount()
		}
	}

	remaining := distributeItems(itemCount, itemType, priorityOutputs, rrOutputs, outputRRIndex)

	consumed := itemCount - remaining
	n := len(rrInputs)
	for consumed > 0 {
		var eligible []int
		for i := 0; i < n; i++ {
			idx := (*inputRRIndex + i) % n
			in := rrInputs[idx]
			if t, ok := in.CurrentItemType(); ok && t == itemType && in.BufferedItemCount() > 0 {
				eligible = append(eligible, idx)
			}
		}
		k := len(eligible)
		if k == 0 {
			break
		}

		m := rrInputs[eligible[0]].BufferedItemCount()
		for _, idx := range eligible[1:] {
			m = minOf(m, rrInputs[idx].BufferedItemCount())
		}
		if m == 0 {
			break
		}

		take := minOf(consumed, uint16(k)*m)
		perBelt := take / uint16(k)
		bonus := take % uint16(k)

		for pos, idx := range eligible {
			toTake := perBelt
			if uint16(pos) < bonus {
				toTake++
				*inputRRIndex = (idx + 1) % n
			}
			if toTake == 0 {
				continue
			}
			if leftover := rrInputs[idx].DecItemCount(toTake); leftover != 0 {
				panic("factory: splitter: drain connections: input held less than the distribution pass certified")
			}
		}

		consumed -= take
	}
}

// rrLoopOnce walks each rr input once (starting from *inputRRIndex),
// assigning it to the next rr output (starting from *outputRRIndex) that
// can currently accept its buffered type, depositing a single item. This
// primes otherwise-empty rr outputs with a type before bulk distribution
// proceeds.
func rrLoopOnce(rrInputs, rrOutputs []*Connection, inputRRIndex, outputRRIndex *int) {
	if len(rrInputs) == 0 || len(rrOutputs) == 0 {
		return
	}

	n := len(rrInputs)
	m := len(rrOutputs)

	for i := 0; i < n; i++ {
		inputIdx := (*inputRRIndex + i) % n
		in := rrInputs[inputIdx]
		itemType, ok := in.CurrentItemType()
		if !ok {
			continue
		}

		for j := 0; j < m; j++ {
			outputIdx := (*outputRRIndex + j) % m
			out := rrOutputs[outputIdx]
			if out.CanTakeItemType(itemType) && out.MaxAcceptableItemCount() > 0 {
				out.IncItemCount(itemType, 1)
				in.DecItemCount(1)
				*outputRRIndex = (outputIdx + 1) % m
				break
			}
		}
	}
}

// Run executes one tick: priority inputs drain to any outputs, then rr
// inputs drain to priority outputs, then rr outputs are primed with
// types, then rr inputs drain to rr outputs.
func (s *BufferedSplitter) Run() {
	for _, in := range s.priorityInputs {
		itemType, ok := in.CurrentItemType()
		if !ok {
			continue
		}
		drainConnections(itemType, []*Connection{in}, &s.inputRRIndex, s.priorityOutputs, s.rrOutputs, &s.outputRRIndex)
	}

	for _, t := range distinctTypes(s.rrInputs) {
		unused := 0
		drainConnections(t, s.rrInputs, &s.inputRRIndex, s.priorityOutputs, nil, &unused)
	}

	rrLoopOnce(s.rrInputs, s.rrOutputs, &s.inputRRIndex, &s.outputRRIndex)

	for _, t := range distinctTypes(s.rrInputs) {
		drainConnections(t, s.rrInputs, &s.inputRRIndex, s.priorityOutputs, s.rrOutputs, &s.outputRRIndex)
	}
}
