package factory

import "math"

// ConnectionKind denotes whether a Connection feeds items onto a belt
// (Input) or accepts items draining off one (Output).
type ConnectionKind int

const (
	Input ConnectionKind = iota
	Output
)

// Connection is a bounded buffer attached to one end of a belt. It holds at
// most one stack entry (multiplicity always 1), aggregating additional
// items into that entry up to ItemLimit as long as incoming stacks match the
// buffered item type. An optional filter further restricts which item
// types are accepted at all.
type Connection struct {
	kind            ConnectionKind
	itemLimit       uint16
	outputStackSize uint16
	itemFilter      []ItemType
	buffer          *Stack
}

// NewConnection creates a connection of the given kind. outputStackSize is
// the size of stacks this connection emits when acting as an Input; it must
// be non-zero. itemFilter, if non-nil, restricts which item types
// CanAcceptStack/AcceptStack will ever admit.
func NewConnection(kind ConnectionKind, itemLimit, outputStackSize uint16, itemFilter []ItemType) *Connection {
	if outputStackSize == 0 {
		panic("factory: connection: output stack size must be non-zero")
	}
	return &Connection{
		kind:            kind,
		itemLimit:       itemLimit,
		outputStackSize: outputStackSize,
		itemFilter:      itemFilter,
	}
}

// Kind returns the connection's orientation.
func (c *Connection) Kind() ConnectionKind {
	return c.kind
}

// ItemLimit returns the maximum number of items that can be buffered.
func (c *Connection) ItemLimit() uint16 {
	return c.itemLimit
}

// OutputStackSize returns the desired size of stacks this connection emits.
func (c *Connection) OutputStackSize() uint16 {
	return c.outputStackSize
}

// ItemFilter returns the item filter, if any.
func (c *Connection) ItemFilter() []ItemType {
	return c.itemFilter
}

// SetItemFilter replaces the item filter with a new value; nil clears it.
func (c *Connection) SetItemFilter(filter []ItemType) {
	c.itemFilter = filter
}

// BufferedItemCount returns the number of items currently buffered.
func (c *Connection) BufferedItemCount() uint16 {
	if c.buffer == nil {
		return 0
	}
	return c.buffer.ItemCount
}

// IsEmpty reports whether the connection currently holds no items.
func (c *Connection) IsEmpty() bool {
	return c.buffer == nil
}

func (c *Connection) allowsType(t ItemType) bool {
	if c.itemFilter == nil {
		return true
	}
	for _, f := range c.itemFilter {
		if f == t {
			return true
		}
	}
	return false
}

// CanAcceptStack reports whether stack could be accepted without violating
// the connection's type, filter, or capacity constraints.
func (c *Connection) CanAcceptStack(stack Stack) bool {
	if stack.Multiplicity != 1 {
		return false
	}
	if !c.allowsType(stack.ItemType) {
		return false
	}

	items := uint32(stack.ItemCount)
	if items == 0 {
		return true
	}

	if c.buffer == nil {
		return items <= uint32(c.itemLimit)
	}
	if c.buffer.ItemType != stack.ItemType {
		return false
	}
	return uint32(c.buffer.ItemCount)+items <= uint32(c.itemLimit)
}

// AcceptStack attempts to accept stack, returning true if it was consumed.
func (c *Connection) AcceptStack(stack Stack) bool {
	if !c.CanAcceptStack(stack) {
		return false
	}
	stack.Multiplicity = 1

	if c.buffer != nil {
		c.buffer.ItemCount += stack.ItemCount
	} else {
		c.buffer = &stack
	}
	return true
}

// CurrentItemType returns the item type currently buffered, if any.
func (c *Connection) CurrentItemType() (ItemType, bool) {
	if c.buffer == nil {
		return 0, false
	}
	return c.buffer.ItemType, true
}

// CanTakeItemType reports whether the connection's filter and current
// buffer contents allow it to receive more items of type t, irrespective
// of remaining capacity.
func (c *Connection) CanTakeItemType(t ItemType) bool {
	if !c.allowsType(t) {
		return false
	}
	if c.buffer == nil {
		return true
	}
	return c.buffer.ItemType == t
}

// CanTakeItemCount reports whether n more items of type t would fit.
func (c *Connection) CanTakeItemCount(t ItemType, n uint16) bool {
	if !c.CanTakeItemType(t) {
		return false
	}
	return n <= c.MaxAcceptableItemCount()
}

// MaxAcceptableItemCount returns the remaining room in the buffer.
func (c *Connection) MaxAcceptableItemCount() uint16 {
	if c.buffer == nil {
		return c.itemLimit
	}
	if c.buffer.ItemCount >= c.itemLimit {
		return 0
	}
	return c.itemLimit - c.buffer.ItemCount
}

// IncItemCount attempts to add n items of type t, bounded by remaining
// capacity; a type mismatch against the current buffer contents yields
// the full n back as leftover. Returns whatever could not be added.
func (c *Connection) IncItemCount(t ItemType, n uint16) uint16 {
	if n == 0 {
		return 0
	}
	if !c.CanTakeItemType(t) {
		return n
	}
	room := c.MaxAcceptableItemCount()
	add := n
	if add > room {
		add = room
	}
	if add == 0 {
		return n
	}
	if c.buffer == nil {
		c.buffer = &Stack{ItemType: t, ItemCount: add, Multiplicity: 1}
	} else {
		c.buffer.ItemCount += add
	}
	return n - add
}

// DecItemCount removes up to n items from the buffer, bounded by what is
// currently held, emptying the entry once it reaches zero. Returns
// whatever could not be removed.
func (c *Connection) DecItemCount(n uint16) uint16 {
	if n == 0 {
		return 0
	}
	if c.buffer == nil {
		return n
	}
	dec := n
	if dec > c.buffer.ItemCount {
		dec = c.buffer.ItemCount
	}
	c.buffer.ItemCount -= dec
	if c.buffer.ItemCount == 0 {
		c.buffer = nil
	}
	return n - dec
}

// MaxAcceptableStacks returns the largest count for which
// AcceptStacks(stack, count) would succeed, without mutating the
// connection. Used by the belt's Phase 1 drain to fast-forward whole
// batches instead of looping one stack at a time.
func (c *Connection) MaxAcceptableStacks(stack Stack) uint32 {
	if stack.Multiplicity != 1 {
		return 0
	}
	if !c.allowsType(stack.ItemType) {
		return 0
	}

	perStack := uint32(stack.ItemCount)
	if perStack == 0 {
		return math.MaxUint32
	}

	if c.buffer == nil {
		limit := uint32(c.itemLimit)
		if perStack > limit {
			return 0
		}
		return limit / perStack
	}

	if c.buffer.ItemType != stack.ItemType {
		return 0
	}
	limit := uint32(c.itemLimit)
	if uint32(c.buffer.ItemCount) >= limit {
		return 0
	}
	remaining := limit - uint32(c.buffer.ItemCount)
	return remaining / perStack
}

// AcceptStacks attempts to accept count copies of stack as a single batch,
// returning true if all of them were consumed.
func (c *Connection) AcceptStacks(stack Stack, count uint32) bool {
	if count == 0 {
		return true
	}
	if stack.Multiplicity != 1 {
		return false
	}
	if count > c.MaxAcceptableStacks(stack) {
		return false
	}

	totalItems := count * uint32(stack.ItemCount)
	if totalItems == 0 {
		return true
	}

	if c.buffer != nil {
		c.buffer.ItemCount = uint16(uint32(c.buffer.ItemCount) + totalItems)
	} else {
		c.buffer = &Stack{ItemType: stack.ItemType, ItemCount: uint16(totalItems), Multiplicity: 1}
	}
	return true
}

// OutputBatch is what TakeOutputBatch drains from a connection: at most one
// full-size stack (itself multiplicity-compressed) plus at most one partial
// remainder stack.
type OutputBatch struct {
	FullStack    *Stack
	PartialStack *Stack
}

// NumStacks reports how many belt slots (ItemWidth-denominated physical
// stacks) this batch will consume: the full stack's multiplicity, plus one
// more if a partial stack is present.
func (b OutputBatch) NumStacks() uint32 {
	var used uint32
	if b.FullStack != nil {
		used += b.FullStack.Multiplicity
	}
	if b.PartialStack != nil {
		used++
	}
	return used
}

// TakeOutputBatch drains up to maxStacks belt slots' worth of buffered
// items, shaped into full OutputStackSize stacks (fused via multiplicity)
// followed by at most one smaller remainder stack. It reports ok=false if
// nothing could be drained.
func (c *Connection) TakeOutputBatch(maxStacks uint32) (OutputBatch, bool) {
	if maxStacks == 0 || c.buffer == nil || c.buffer.ItemCount == 0 {
		return OutputBatch{}, false
	}

	outputSize := uint32(c.outputStackSize)
	itemsAvailable := uint32(c.buffer.ItemCount)
	slotsRemaining := maxStacks

	var fullStackCount uint32
	if outputSize > 0 {
		possibleFull := itemsAvailable / outputSize
		fullStackCount = possibleFull
		if fullStackCount > slotsRemaining {
			fullStackCount = slotsRemaining
		}
		itemsAvailable -= fullStackCount * outputSize
		slotsRemaining -= fullStackCount
	}

	var partialStackItems uint16
	if slotsRemaining > 0 && itemsAvailable > 0 {
		partialStackItems = uint16(itemsAvailable)
	}

	if fullStackCount == 0 && partialStackItems == 0 {
		return OutputBatch{}, false
	}

	consumed := fullStackCount*outputSize + uint32(partialStackItems)

	var batch OutputBatch
	if fullStackCount > 0 {
		batch.FullStack = &Stack{ItemType: c.buffer.ItemType, ItemCount: c.outputStackSize, Multiplicity: fullStackCount}
	}
	if partialStackItems > 0 {
		batch.PartialStack = &Stack{ItemType: c.buffer.ItemType, ItemCount: partialStackItems, Multiplicity: 1}
	}

	remaining := uint32(c.buffer.ItemCount) - consumed
	if remaining == 0 {
		c.buffer = nil
	} else {
		c.buffer.ItemCount = uint16(remaining)
	}

	return batch, true
}

// PeekNextOutput returns a snapshot of the next stack TakeNextOutput would
// emit, without consuming it.
func (c *Connection) PeekNextOutput() (Stack, bool) {
	if c.buffer == nil {
		return Stack{}, false
	}
	count := c.buffer.ItemCount
	if count > c.outputStackSize {
		count = c.outputStackSize
	}
	if count == 0 {
		return Stack{}, false
	}
	return Stack{ItemType: c.buffer.ItemType, ItemCount: count, Multiplicity: 1}, true
}

// TakeNextOutput removes and returns the next stack this connection should
// emit when feeding a belt.
func (c *Connection) TakeNextOutput() (Stack, bool) {
	if c.buffer == nil || c.buffer.ItemCount == 0 {
		return Stack{}, false
	}

	count := c.buffer.ItemCount
	if count > c.outputStackSize {
		count = c.outputStackSize
	}

	emitted := Stack{ItemType: c.buffer.ItemType, ItemCount: count, Multiplicity: 1}
	c.buffer.ItemCount -= count
	if c.buffer.ItemCount == 0 {
		c.buffer = nil
	}
	return emitted, true
}
