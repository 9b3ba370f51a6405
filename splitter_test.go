package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistributeItems_FillsPriorityOutputsFirst(t *testing.T) {
	p1 := NewConnection(Output, 5, 1, nil)
	p2 := NewConnection(Output, 5, 1, nil)
	rrIndex := 0

	remaining := distributeItems(8, 1, []*Connection{p1, p2}, nil, &rrIndex)
	assert.Equal(t, uint16(0), remaining)
	assert.Equal(t, uint16(5), p1.BufferedItemCount())
	assert.Equal(t, uint16(3), p2.BufferedItemCount())
}

func TestDistributeItems_SplitsEvenlyAcrossRoundRobinOutputs(t *testing.T) {
	o1 := NewConnection(Output, 100, 1, nil)
	o2 := NewConnection(Output, 100, 1, nil)
	rrIndex := 0

	remaining := distributeItems(10, 1, nil, []*Connection{o1, o2}, &rrIndex)
	assert.Equal(t, uint16(0), remaining)
	assert.Equal(t, uint16(5), o1.BufferedItemCount())
	assert.Equal(t, uint16(5), o2.BufferedItemCount())
}

func TestDistributeItems_OddRemainderGoesToRoundRobinCursor(t *testing.T) {
	o1 := NewConnection(Output, 100, 1, nil)
	o2 := NewConnection(Output, 100, 1, nil)
	rrIndex := 0

	remaining := distributeItems(11, 1, nil, []*Connection{o1, o2}, &rrIndex)
	assert.Equal(t, uint16(0), remaining)
	assert.Equal(t, uint16(6), o1.BufferedItemCount(), "first output in rotation absorbs the odd item")
	assert.Equal(t, uint16(5), o2.BufferedItemCount())
	assert.Equal(t, 1, rrIndex, "cursor advances past the bonus recipient")
}

func TestDistributeItems_SkipsFullOutputs(t *testing.T) {
	o1 := NewConnection(Output, 2, 1, nil)
	o2 := NewConnection(Output, 100, 1, nil)
	assert.Equal(t, uint16(0), o1.IncItemCount(1, 2))
	rrIndex := 0

	remaining := distributeItems(6, 1, nil, []*Connection{o1, o2}, &rrIndex)
	assert.Equal(t, uint16(0), remaining)
	assert.Equal(t, uint16(2), o1.BufferedItemCount(), "already full, receives nothing more")
	assert.Equal(t, uint16(6), o2.BufferedItemCount())
}

func TestDistributeItems_ReturnsLeftoverWhenAllOutputsFull(t *testing.T) {
	o1 := NewConnection(Output, 3, 1, nil)
	rrIndex := 0

	remaining := distributeItems(10, 1, nil, []*Connection{o1}, &rrIndex)
	assert.Equal(t, uint16(7), remaining)
	assert.Equal(t, uint16(3), o1.BufferedItemCount())
}

// newBufferedConnection builds a connection pre-loaded with n items of the
// given type, used to stand in for a belt's round-robin input buffer.
func newBufferedConnection(kind ConnectionKind, limit uint16, t ItemType, n uint16) *Connection {
	c := NewConnection(kind, limit, 1, nil)
	if n > 0 {
		leftover := c.IncItemCount(t, n)
		if leftover != 0 {
			panic("newBufferedConnection: limit too small for requested preload")
		}
	}
	return c
}

// Ported from the Rust reference's test_buffered_splitter_rr_simple: two rr
// inputs of 5 each, type 1, feeding two rr outputs with ample capacity;
// after one tick, each output should hold exactly 5.
func TestBufferedSplitter_RRSimple(t *testing.T) {
	in1 := newBufferedConnection(Input, 100, 1, 5)
	in2 := newBufferedConnection(Input, 100, 1, 5)
	out1 := NewConnection(Output, 100, 1, nil)
	out2 := NewConnection(Output, 100, 1, nil)

	splitter := NewBufferedSplitter(nil, []*Connection{in1, in2}, nil, []*Connection{out1, out2})
	splitter.Run()

	assert.True(t, in1.IsEmpty())
	assert.True(t, in2.IsEmpty())
	assert.Equal(t, uint16(5), out1.BufferedItemCount())
	assert.Equal(t, uint16(5), out2.BufferedItemCount())
}

// Ported from test_buffered_splitter_rr_simple_2: rr inputs of 6 and 12
// (limit 12 each), type 1, two equal-capacity rr outputs; the fair split of
// 18 items across 2 outputs is 9 apiece.
func TestBufferedSplitter_RRSimple2(t *testing.T) {
	in1 := newBufferedConnection(Input, 12, 1, 6)
	in2 := newBufferedConnection(Input, 12, 1, 12)
	out1 := NewConnection(Output, 100, 1, nil)
	out2 := NewConnection(Output, 100, 1, nil)

	splitter := NewBufferedSplitter(nil, []*Connection{in1, in2}, nil, []*Connection{out1, out2})
	splitter.Run()

	assert.True(t, in1.IsEmpty())
	assert.True(t, in2.IsEmpty())
	assert.Equal(t, uint16(9), out1.BufferedItemCount())
	assert.Equal(t, uint16(9), out2.BufferedItemCount())
}

// Ported from test_buffered_splitter_rr_simple_3: three rr inputs (6, 6, 12)
// feeding two rr outputs; 24 items split evenly across 2 outputs is 12
// apiece.
func TestBufferedSplitter_RRSimple3(t *testing.T) {
	in1 := newBufferedConnection(Input, 12, 1, 6)
	in2 := newBufferedConnection(Input, 12, 1, 6)
	in3 := newBufferedConnection(Input, 12, 1, 12)
	out1 := NewConnection(Output, 100, 1, nil)
	out2 := NewConnection(Output, 100, 1, nil)

	splitter := NewBufferedSplitter(nil, []*Connection{in1, in2, in3}, nil, []*Connection{out1, out2})
	splitter.Run()

	assert.True(t, in1.IsEmpty())
	assert.True(t, in2.IsEmpty())
	assert.True(t, in3.IsEmpty())
	assert.Equal(t, uint16(12), out1.BufferedItemCount())
	assert.Equal(t, uint16(12), out2.BufferedItemCount())
}

// Splitter priority then rr: two priority inputs (4 and 3, type 1, limit 5
// each), two rr inputs (5 and 2, type 1), two priority outputs (limit 5
// each) and two rr outputs (limit 6 each). The priority inputs' 7 items
// land in the priority outputs (5 and 2); the rr inputs then top the
// priority outputs up with 3 more, and their remaining 4 items split
// evenly across the rr outputs, 2 apiece.
func TestBufferedSplitter_PriorityThenRR(t *testing.T) {
	pIn1 := newBufferedConnection(Input, 5, 1, 4)
	pIn2 := newBufferedConnection(Input, 5, 1, 3)
	rrIn1 := newBufferedConnection(Input, 100, 1, 5)
	rrIn2 := newBufferedConnection(Input, 100, 1, 2)
	pOut1 := NewConnection(Output, 5, 1, nil)
	pOut2 := NewConnection(Output, 5, 1, nil)
	rrOut1 := NewConnection(Output, 6, 1, nil)
	rrOut2 := NewConnection(Output, 6, 1, nil)

	splitter := NewBufferedSplitter(
		[]*Connection{pIn1, pIn2},
		[]*Connection{rrIn1, rrIn2},
		[]*Connection{pOut1, pOut2},
		[]*Connection{rrOut1, rrOut2},
	)
	splitter.Run()

	assert.True(t, pIn1.IsEmpty())
	assert.True(t, pIn2.IsEmpty())
	assert.True(t, rrIn1.IsEmpty())
	assert.True(t, rrIn2.IsEmpty())
	assert.Equal(t, uint16(5), pOut1.BufferedItemCount())
	assert.Equal(t, uint16(5), pOut2.BufferedItemCount())
	assert.Equal(t, uint16(2), rrOut1.BufferedItemCount())
	assert.Equal(t, uint16(2), rrOut2.BufferedItemCount())
}

// Rr fairness across unequal inputs: three rr inputs (6, 6, 12, type 1,
// limit 12) feeding two rr outputs (limit 12 each); both end at 12.
func TestBufferedSplitter_RRFairnessAcrossUnequalInputs(t *testing.T) {
	in1 := newBufferedConnection(Input, 12, 1, 6)
	in2 := newBufferedConnection(Input, 12, 1, 6)
	in3 := newBufferedConnection(Input, 12, 1, 12)
	out1 := NewConnection(Output, 12, 1, nil)
	out2 := NewConnection(Output, 12, 1, nil)

	splitter := NewBufferedSplitter(nil, []*Connection{in1, in2, in3}, nil, []*Connection{out1, out2})
	splitter.Run()

	assert.True(t, in1.IsEmpty())
	assert.True(t, in2.IsEmpty())
	assert.True(t, in3.IsEmpty())
	assert.Equal(t, uint16(12), out1.BufferedItemCount())
	assert.Equal(t, uint16(12), out2.BufferedItemCount())
}

func TestBufferedSplitter_IgnoresEmptyInputs(t *testing.T) {
	in1 := NewConnection(Input, 100, 1, nil)
	out1 := NewConnection(Output, 100, 1, nil)

	splitter := NewBufferedSplitter(nil, []*Connection{in1}, nil, []*Connection{out1})
	assert.NotPanics(t, func() { splitter.Run() })
	assert.True(t, out1.IsEmpty())
}

func TestBufferedSplitter_DistinctTypesHandledIndependently(t *testing.T) {
	in1 := newBufferedConnection(Input, 100, 1, 4)
	in2 := newBufferedConnection(Input, 100, 2, 6)
	out1 := NewConnection(Output, 100, 1, nil)
	out2 := NewConnection(Output, 100, 1, nil)

	splitter := NewBufferedSplitter(nil, []*Connection{in1, in2}, nil, []*Connection{out1, out2})
	splitter.Run()

	assert.True(t, in1.IsEmpty())
	assert.True(t, in2.IsEmpty())

	total1 := uint16(0)
	total2 := uint16(0)
	for _, out := range []*Connection{out1, out2} {
		tp, ok := out.CurrentItemType()
		if !ok {
			continue
		}
		switch tp {
		case 1:
			total1 += out.BufferedItemCount()
		case 2:
			total2 += out.BufferedItemCount()
		}
	}
	assert.Equal(t, uint16(4), total1)
	assert.Equal(t, uint16(6), total2)
}
