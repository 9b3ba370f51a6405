package factory

// DirectSplitter distributes items the same way BufferedSplitter does —
// priority order then round-robin fairness — but reads and writes belt
// ends directly instead of going through an intermediate connection
// buffer. It trades the batch-sized fast-forwarding for a simple
// repeated single-item sweep, since there is no buffered count to size a
// bulk transfer against.
type DirectSplitter struct {
	inputRRIndex  int
	outputRRIndex int
}

// NewDirectSplitter creates a direct splitter with both round-robin
// cursors starting at zero.
func NewDirectSplitter() *DirectSplitter {
	return &DirectSplitter{}
}

// tryPlace attempts to append stack to a priority output first, falling
// back to round-robin outputs starting at outputRRIndex. The cursor only
// advances past an output that actually accepted the item.
func (s *DirectSplitter) tryPlace(stack Stack, priorityOutputs, rrOutputs []*Belt) bool {
	for _, out := range priorityOutputs {
		if out.AddItem(stack) {
			return true
		}
	}

	n := len(rrOutputs)
	if n == 0 {
		return false
	}
	for i := 0; i < n; i++ {
		idx := (s.outputRRIndex + i) % n
		if rrOutputs[idx].AddItem(stack) {
			s.outputRRIndex = (idx + 1) % n
			return true
		}
	}
	return false
}

// drainOne peeks the front of in and, if it can be placed on an output,
// removes it from in. Reports whether an item moved.
func (s *DirectSplitter) drainOne(in *Belt, priorityOutputs, rrOutputs []*Belt) bool {
	stack, ok := in.PeekFrontStack()
	if !ok {
		return false
	}
	if !s.tryPlace(stack, priorityOutputs, rrOutputs) {
		return false
	}
	in.RemoveItem()
	return true
}

// Run moves items from priority and round-robin input belts onto priority
// and round-robin output belts. Priority inputs are drained first, each
// trying priority outputs before round-robin outputs; round-robin inputs
// are then swept in rotation, each trying the same output order. The
// whole pass repeats until a full sweep places nothing.
func (s *DirectSplitter) Run(priorityInputs, rrInputs, priorityOutputs, rrOutputs []*Belt) {
	for {
		progress := false

		for _, in := range priorityInputs {
			if s.drainOne(in, priorityOutputs, rrOutputs) {
				progress = true
			}
		}

		if n := len(rrInputs); n > 0 {
			for i := 0; i < n; i++ {
				idx := (s.inputRRIndex + i) % n
				if s.drainOne(rrInputs[idx], priorityOutputs, rrOutputs) {
					s.inputRRIndex = (idx + 1) % n
					progress = true
				}
			}
		}

		if !progress {
			return
		}
	}
}
