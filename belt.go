package factory

// itemWidth is the spatial width, in belt distance units, occupied by a
// single physical stack entry (a multiplicity of one). It must be a power
// of two; 128 gives ample headroom for sub-slot gap bookkeeping while
// keeping typical belt lengths and speeds small integers.
const itemWidth uint32 = 128

// beltItem is one entry in a belt's item sequence: a stack plus the
// spatial gap to whatever comes next, and this entry's place within its
// contiguous group: a flat record carrying enough metadata that the ends
// of the sequence can answer questions in O(1).
type beltItem struct {
	stack        Stack
	nextItemDist *uint32 // nil means this is the physically last entry
	isGroupHead  bool
	isGroupTail  bool
	groupSize    uint32
}

func ptrU32(v uint32) *uint32 { return &v }

func itemTypeIn(filter []ItemType, t ItemType) bool {
	for _, f := range filter {
		if f == t {
			return true
		}
	}
	return false
}

// Belt models a fixed-length conveyor lane carrying stacks from tail to
// head. It advances in bulk per Run call, auto-merges adjacent equal
// stacks, preserves group metadata for O(1) access at its ends, and
// coordinates with an optional input connection (feeding the tail) and
// output connection (draining the head).
type Belt struct {
	length uint32
	speed  uint32

	items *itemRing[beltItem]

	emptySpaceFront uint32
	emptySpaceBack  uint32

	inputConnection  *Connection
	outputConnection *Connection
}

// NewBelt creates an empty belt of the given length and speed. Initially
// the entire length is free space on both ends (there is nothing between
// them to measure).
func NewBelt(length, speed uint32) *Belt {
	return &Belt{
		length:          length,
		speed:           speed,
		items:           newItemRing[beltItem](8),
		emptySpaceFront: length,
		emptySpaceBack:  length,
	}
}

// Length returns the belt's physical capacity in spatial units.
func (b *Belt) Length() uint32 { return b.length }

// Speed returns the spatial units advanced per tick.
func (b *Belt) Speed() uint32 { return b.speed }

// EmptySpaceFront returns the free space before the first entry.
func (b *Belt) EmptySpaceFront() uint32 { return b.emptySpaceFront }

// EmptySpaceBack returns the free trailing space after the last entry.
func (b *Belt) EmptySpaceBack() uint32 { return b.emptySpaceBack }

// InputConnection returns the connection feeding this belt's tail, if any.
func (b *Belt) InputConnection() *Connection { return b.inputConnection }

// OutputConnection returns the connection draining this belt's head, if any.
func (b *Belt) OutputConnection() *Connection { return b.outputConnection }

// SetInputConnection attaches (or, with nil, detaches) the connection that
// fills this belt's tail. Attaching anything but an Input-kind connection
// is a contract violation.
func (b *Belt) SetInputConnection(c *Connection) {
	if c != nil && c.Kind() != Input {
		panic("factory: belt: set input connection: wrong connection kind")
	}
	b.inputConnection = c
}

// SetOutputConnection attaches (or, with nil, detaches) the connection
// that drains this belt's head. Attaching anything but an Output-kind
// connection is a contract violation.
func (b *Belt) SetOutputConnection(c *Connection) {
	if c != nil && c.Kind() != Output {
		panic("factory: belt: set output connection: wrong connection kind")
	}
	b.outputConnection = c
}

// IsEmpty reports whether the belt carries no stacks.
func (b *Belt) IsEmpty() bool {
	return b.items.Len() == 0
}

// ItemCount returns the sum of multiplicities across all entries.
func (b *Belt) ItemCount() uint64 {
	var total uint64
	for i := 0; i < b.items.Len(); i++ {
		total += uint64(b.items.Get(i).stack.Multiplicity)
	}
	return total
}

// AddItem pushes stack onto the tail without advancing the belt. It fails
// if stack carries more than one physical copy, or there is no room for
// another item's width of trailing space. An immediately-adjacent equal
// stack is fused by multiplicity instead of creating a new entry.
func (b *Belt) AddItem(stack Stack) bool {
	if stack.Multiplicity != 1 {
		return false
	}
	if b.emptySpaceBack < itemWidth {
		return false
	}

	gap := b.emptySpaceBack - itemWidth

	if b.items.Len() == 0 {
		b.emptySpaceFront -= itemWidth
		b.emptySpaceBack = 0
		b.items.PushBack(beltItem{stack: stack, isGroupHead: true, isGroupTail: true, groupSize: 1})
		return true
	}

	l := b.items.Len()
	lastIdx := l - 1
	last := b.items.Get(lastIdx)

	if gap == 0 && last.stack.Equal(stack) {
		last.stack.Multiplicity += stack.Multiplicity
		b.items.Set(lastIdx, last)
		b.emptySpaceBack = 0
		return true
	}

	last.nextItemDist = ptrU32(gap)

	isGroupHead := true
	groupSize := uint32(1)
	if gap == 0 {
		last.isGroupTail = false
		isGroupHead = false
		groupSize = last.groupSize + 1
		last.groupSize = groupSize

		groupHeadIndex := l + 1 - int(groupSize)
		head := b.items.Get(groupHeadIndex)
		head.groupSize = groupSize
		b.items.Set(groupHeadIndex, head)
	}
	b.items.Set(lastIdx, last)
	b.emptySpaceBack = 0

	b.items.PushBack(beltItem{stack: stack, isGroupHead: isGroupHead, isGroupTail: true, groupSize: groupSize})
	return true
}

// popFrontEntry removes the head entry, promoting the next entry to group
// head (with a shrunk group size) if the removed entry was not alone in
// its group, and adds the gap that followed the removed entry to
// empty_space_front. Callers account for the removed entry's own slot
// before calling: RemoveItem leaves it as front space, while the motion
// paths have already credited it to back space.
func (b *Belt) popFrontEntry() (beltItem, bool) {
	item, ok := b.items.PopFront()
	if !ok {
		return item, false
	}

	if item.groupSize > 1 && b.items.Len() > 0 {
		next := b.items.Get(0)
		next.isGroupHead = true
		next.groupSize = item.groupSize - 1
		b.items.Set(0, next)
	}

	if item.nextItemDist != nil {
		b.emptySpaceFront += *item.nextItemDist
	} else {
		b.emptySpaceFront = b.length
	}

	if b.items.Len() == 0 {
		b.emptySpaceBack = b.length
	}

	return item, true
}

// RemoveItem pops one stack off the head without advancing the belt. It
// fails if any front gap remains. The returned stack always has
// multiplicity 1, decremented from the head entry's multiplicity; the
// entry is dropped (promoting the next one) once its multiplicity
// reaches zero.
func (b *Belt) RemoveItem() (Stack, bool) {
	if b.emptySpaceFront > 0 {
		return Stack{}, false
	}
	if b.items.Len() == 0 {
		return Stack{}, false
	}

	front := b.items.Get(0)
	out := front.stack
	out.Multiplicity = 1
	front.stack.Multiplicity--
	b.items.Set(0, front)
	b.emptySpaceFront = itemWidth

	if front.stack.Multiplicity == 0 {
		b.popFrontEntry()
	}

	return out, true
}

// PeekFrontStack returns the single-unit stack RemoveItem would produce,
// without consuming it. Used by the direct splitter variant, which reads
// belt ends directly rather than through a connection buffer.
func (b *Belt) PeekFrontStack() (Stack, bool) {
	if b.emptySpaceFront > 0 || b.items.Len() == 0 {
		return Stack{}, false
	}
	front := b.items.Get(0).stack
	front.Multiplicity = 1
	return front, true
}

// RemoveWhileRun simulates forward motion by distance spatial units,
// pulling complete stacks off the head as far as the distance budget
// allows. It stops at the first head entry whose type is not in filter
// (when filter is non-nil), or once the total items removed reaches
// limit (when limit is non-nil). Any leftover distance too small to pull
// one more item becomes a fresh front gap, mirrored by an equal increase
// in back space.
func (b *Belt) RemoveWhileRun(distance uint32, filter []ItemType, limit *uint32) []Stack {
	var removed []Stack
	var totalRemoved uint32
	remaining := distance

	for remaining > 0 {
		if b.items.Len() == 0 {
			break
		}

		if b.emptySpaceFront > 0 {
			if remaining < b.emptySpaceFront {
				b.emptySpaceFront -= remaining
				b.emptySpaceBack += remaining
				remaining = 0
				break
			}
			remaining -= b.emptySpaceFront
			b.emptySpaceBack += b.emptySpaceFront
			b.emptySpaceFront = 0
			continue
		}

		front := b.items.Get(0)

		if filter != nil && !itemTypeIn(filter, front.stack.ItemType) {
			break
		}
		if limit != nil && totalRemoved >= *limit {
			break
		}

		maxByDistance := remaining / itemWidth
		if maxByDistance == 0 {
			b.emptySpaceFront += remaining
			b.emptySpaceBack += remaining
			remaining = 0
			break
		}

		removable := front.stack.Multiplicity
		if maxByDistance < removable {
			removable = maxByDistance
		}
		if limit != nil {
			budget := *limit - totalRemoved
			if removable > budget {
				removable = budget
			}
		}
		if removable == 0 {
			break
		}

		out := front.stack
		out.Multiplicity = removable
		removed = append(removed, out)
		totalRemoved += removable

		remaining -= removable * itemWidth
		b.emptySpaceBack += removable * itemWidth

		if removable < front.stack.Multiplicity {
			front.stack.Multiplicity -= removable
			b.items.Set(0, front)
			b.emptySpaceFront = 0
		} else {
			b.popFrontEntry()
		}
	}

	return removed
}

// appendFromConnection appends stack to the belt tail per the
// append-from-connection rule used by Phase 3 of Run: an equal trailing
// entry is fused by multiplicity, same as AddItem; otherwise it starts a
// fresh zero-gap entry that extends the current tail's group.
func (b *Belt) appendFromConnection(stack Stack) {
	if b.items.Len() == 0 {
		b.emptySpaceFront = 0
		b.items.PushBack(beltItem{stack: stack, isGroupHead: true, isGroupTail: true, groupSize: 1})
		return
	}

	l := b.items.Len()
	lastIdx := l - 1
	last := b.items.Get(lastIdx)

	if last.stack.Equal(stack) {
		last.stack.Multiplicity += stack.Multiplicity
		b.items.Set(lastIdx, last)
		return
	}

	last.isGroupTail = false
	last.nextItemDist = ptrU32(0)
	b.items.Set(lastIdx, last)

	groupSize := last.groupSize + 1
	groupHeadIndex := l + 1 - int(groupSize)
	head := b.items.Get(groupHeadIndex)
	head.groupSize = groupSize
	b.items.Set(groupHeadIndex, head)

	b.items.PushBack(beltItem{stack: stack, isGroupHead: false, isGroupTail: true, groupSize: groupSize})
}

// runPhase1 drains stacks to the attached output connection as far as
// distance and the connection's capacity allow, returning unspent
// distance and whether the connection blocked further progress.
func (b *Belt) runPhase1(distance uint32) (remaining uint32, blocked bool) {
	remaining = distance
	if b.outputConnection == nil {
		return remaining, false
	}

	for {
		if remaining == 0 && b.emptySpaceFront > 0 {
			return remaining, false
		}

		if b.emptySpaceFront > 0 {
			if remaining < b.emptySpaceFront {
				b.emptySpaceFront -= remaining
				b.emptySpaceBack += remaining
				return 0, false
			}
			remaining -= b.emptySpaceFront
			b.emptySpaceBack += b.emptySpaceFront
			b.emptySpaceFront = 0
		}

		if b.items.Len() == 0 {
			return remaining, false
		}

		front := b.items.Get(0)
		probe := Stack{ItemType: front.stack.ItemType, ItemCount: front.stack.ItemCount, Multiplicity: 1}
		maxAccept := b.outputConnection.MaxAcceptableStacks(probe)
		if maxAccept == 0 {
			return remaining, true
		}

		var removable uint32
		if remaining == 0 {
			removable = front.stack.Multiplicity
		} else {
			removable = remaining / itemWidth
		}
		if removable > front.stack.Multiplicity {
			removable = front.stack.Multiplicity
		}
		if removable > maxAccept {
			removable = maxAccept
		}
		if removable == 0 {
			return remaining, true
		}

		toSend := Stack{ItemType: front.stack.ItemType, ItemCount: front.stack.ItemCount, Multiplicity: 1}
		if !b.outputConnection.AcceptStacks(toSend, removable) {
			panic("factory: belt: run: output connection rejected a stack it had just certified as acceptable")
		}

		if remaining > 0 {
			remaining -= removable * itemWidth
		}
		b.emptySpaceBack += removable * itemWidth

		if removable < front.stack.Multiplicity {
			front.stack.Multiplicity -= removable
			b.items.Set(0, front)
		} else {
			b.popFrontEntry()
		}
	}
}

// runPhase2 advances whatever distance Phase 1 did not consume, closing
// the front gap and then compacting groups at the head until the
// distance budget is spent or the belt runs out of gaps to close.
func (b *Belt) runPhase2(distance uint32) {
	if distance <= b.emptySpaceFront {
		b.emptySpaceFront -= distance
		b.emptySpaceBack += distance
		return
	}
	distance -= b.emptySpaceFront
	b.emptySpaceBack += b.emptySpaceFront
	b.emptySpaceFront = 0

	if b.items.Len() == 0 {
		return
	}

	groupStart := 0
	for distance > 0 && groupStart < b.items.Len() {
		groupSize := b.items.Get(groupStart).groupSize
		groupTailIndex := groupStart + int(groupSize) - 1

		tail := b.items.Get(groupTailIndex)
		if tail.nextItemDist == nil {
			break
		}
		distanceToNext := *tail.nextItemDist

		if distanceToNext > distance {
			tail.nextItemDist = ptrU32(distanceToNext - distance)
			b.items.Set(groupTailIndex, tail)
			b.emptySpaceBack += distance
			return
		}

		distance -= distanceToNext
		b.emptySpaceBack += distanceToNext

		nextGroupStart := groupTailIndex + 1
		if nextGroupStart >= b.items.Len() {
			tail.nextItemDist = nil
			b.items.Set(groupTailIndex, tail)
			break
		}

		nextGroupSize := b.items.Get(nextGroupStart).groupSize
		nextGroupTail := nextGroupStart + int(nextGroupSize) - 1
		tailNextDist := b.items.Get(nextGroupTail).nextItemDist

		groupTailStack := b.items.Get(groupTailIndex).stack
		nextHeadStack := b.items.Get(nextGroupStart).stack

		if groupTailStack.Equal(nextHeadStack) {
			addition := nextHeadStack.Multiplicity
			gt := b.items.Get(groupTailIndex)
			gt.stack.Multiplicity += addition
			b.items.Set(groupTailIndex, gt)

			remaining := nextGroupSize - 1
			b.items.RemoveAt(nextGroupStart)

			newTailIndex := groupTailIndex
			newGroupSize := groupSize
			if remaining > 0 {
				newTailIndex = nextGroupStart + int(remaining) - 1
				newGroupSize = groupSize + remaining
			}
			for idx := groupStart; idx <= newTailIndex; idx++ {
				item := b.items.Get(idx)
				item.groupSize = newGroupSize
				item.isGroupHead = idx == groupStart
				item.isGroupTail = idx == newTailIndex
				if idx < newTailIndex {
					item.nextItemDist = ptrU32(0)
				} else {
					item.nextItemDist = tailNextDist
				}
				b.items.Set(idx, item)
			}
		} else {
			newTailIndex := nextGroupTail
			newGroupSize := groupSize + nextGroupSize
			for idx := groupStart; idx <= newTailIndex; idx++ {
				item := b.items.Get(idx)
				item.groupSize = newGroupSize
				item.isGroupHead = idx == groupStart
				item.isGroupTail = idx == newTailIndex
				if idx < newTailIndex {
					item.nextItemDist = ptrU32(0)
				} else {
					item.nextItemDist = tailNextDist
				}
				b.items.Set(idx, item)
			}
		}
	}
}

// runPhase3 fills back space from the attached input connection, in
// whole-slot batches, converting any unused slots back into back space
// alongside whatever sub-slot leftover was already there.
func (b *Belt) runPhase3() {
	s := b.emptySpaceBack
	slots := s / itemWidth
	leftover := s % itemWidth

	if b.inputConnection == nil || slots == 0 {
		return
	}

	batch, ok := b.inputConnection.TakeOutputBatch(slots)
	if !ok {
		return
	}

	if batch.FullStack != nil {
		b.appendFromConnection(*batch.FullStack)
	}
	if batch.PartialStack != nil {
		b.appendFromConnection(*batch.PartialStack)
	}

	used := batch.NumStacks()
	b.emptySpaceBack = (slots-used)*itemWidth + leftover
}

// Run advances the belt by ticks, first draining to the output
// connection, then compacting groups with whatever distance remains,
// then filling back space from the input connection. A belt that starts
// the tick empty has nothing to drain or compact, so Phases 1 and 2 are
// skipped entirely rather than spending distance against emptySpaceFront
// with no item to account for it; mirrors belt.rs's is_empty guard on
// run, except Phase 3 still runs so an input connection can fill an
// empty belt.
func (b *Belt) Run(ticks uint32) {
	distance := ticks * b.speed

	if !b.IsEmpty() {
		remaining, _ := b.runPhase1(distance)
		b.runPhase2(remaining)
	}

	b.runPhase3()
}

// SanityCheck validates the belt well-formedness invariants, panicking on
// violation. Intended for use in tests and debug builds, not hot paths.
func (b *Belt) SanityCheck() {
	if b.emptySpaceFront > b.length || b.emptySpaceBack > b.length {
		panic("factory: belt: sanity check: space exceeds length")
	}

	if b.items.Len() == 0 {
		if b.emptySpaceFront != b.length || b.emptySpaceBack != b.length {
			panic("factory: belt: sanity check: empty belt must have full front and back space")
		}
		return
	}

	if b.emptySpaceFront+b.emptySpaceBack > b.length {
		panic("factory: belt: sanity check: front and back space exceed length")
	}

	curPos := b.emptySpaceFront
	for i := 0; i < b.items.Len(); i++ {
		item := b.items.Get(i)
		curPos += item.stack.Multiplicity * itemWidth
		if item.nextItemDist != nil {
			curPos += *item.nextItemDist
		} else if b.length-curPos != b.emptySpaceBack {
			panic("factory: belt: sanity check: trailing space inconsistent with last entry")
		}
		if curPos > b.length {
			panic("factory: belt: sanity check: occupied length exceeds belt length")
		}
	}

	if curPos+b.emptySpaceBack != b.length {
		panic("factory: belt: sanity check: occupied length plus back space does not equal belt length")
	}
}
