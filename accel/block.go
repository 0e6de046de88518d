package accel

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/achilleasa/bihtrace/types"
)

const (
	// The number of nodes stored in a block; three levels of a binary tree.
	BlockNodes = 7

	// Slots below this index keep their children in the same block.
	firstOverflowSlot = 3

	// Bit offset of the per-slot generic flags in the tag word.
	genericShift = 16

	// Bit offset of the generic flags of the level-2 slots.
	overflowShift = genericShift + firstOverflowSlot
)

// A node is either a leaf holding a [begin, end) range into the
// indirection array or a generic node holding its left and right split
// planes. Which one is recorded in the owning block.
type Node struct {
	a, b uint32
}

// First indirection array position of a leaf.
func (n *Node) Begin() int {
	return int(n.a)
}

// One past the last indirection array position of a leaf.
func (n *Node) End() int {
	return int(n.b)
}

// The maximum extent of the primitives in the left child of a generic node.
func (n *Node) LeftSplit() float32 {
	return math.Float32frombits(n.a)
}

// The minimum extent of the primitives in the right child of a generic node.
func (n *Node) RightSplit() float32 {
	return math.Float32frombits(n.b)
}

// A Block packs three tree levels into 64 bytes. Children of slots 0-2
// live in the same block. Children of generic slots 3-6 live in a group of
// child blocks, two per generic slot, that starts at the child address.
//
// The tags word stores the split axis of slot i in bits 2i..2i+1 and its
// generic flag in bit 16+i.
type Block struct {
	nodes [BlockNodes]Node
	child uint32
	tags  uint32
}

// Build a node address from a block index and a slot.
func NodeAddress(block uint32, slot int) uint32 {
	return block<<3 | uint32(slot)
}

// Split a node address into a block index and a slot.
func SplitAddress(addr uint32) (uint32, int) {
	return addr >> 3, int(addr & 7)
}

func checkSlot(slot int) {
	if slot < 0 || slot >= BlockNodes {
		panic(fmt.Sprintf("accel: block slot %d out of range", slot))
	}
}

func (b *Block) checkParent(slot int) {
	if slot == 0 {
		return
	}
	if parent := (slot - 1) / 2; !b.IsGeneric(parent) {
		panic(fmt.Sprintf("accel: slot %d written below leaf slot %d", slot, parent))
	}
}

// Write a leaf node covering the indirection range [begin, end) to slot.
func (b *Block) CreateLeafNode(begin, end, slot int) {
	checkSlot(slot)
	b.checkParent(slot)
	if begin < 0 || end < begin || uint64(end) > math.MaxUint32 {
		panic(fmt.Sprintf("accel: invalid leaf range [%d, %d)", begin, end))
	}

	b.nodes[slot] = Node{a: uint32(begin), b: uint32(end)}
	b.tags &^= 3<<uint(2*slot) | 1<<uint(genericShift+slot)
}

// Write a generic node splitting along axis to slot.
func (b *Block) CreateGenericNode(leftSplit, rightSplit float32, slot int, axis types.Axis) {
	checkSlot(slot)
	b.checkParent(slot)
	if axis > types.ZAxis {
		panic(fmt.Sprintf("accel: invalid split axis %d", axis))
	}

	b.nodes[slot] = Node{a: math.Float32bits(leftSplit), b: math.Float32bits(rightSplit)}
	b.tags &^= 3 << uint(2*slot)
	b.tags |= uint32(axis)<<uint(2*slot) | 1<<uint(genericShift+slot)
}

// Get the node stored in a slot.
func (b *Block) Node(slot int) *Node {
	return &b.nodes[slot]
}

// Returns true if the slot holds a generic node.
func (b *Block) IsGeneric(slot int) bool {
	return b.tags&(1<<uint(genericShift+slot)) != 0
}

// Get the split axis of a generic slot.
func (b *Block) SplitAxis(slot int) types.Axis {
	return types.Axis((b.tags >> uint(2*slot)) & 3)
}

// Set the node address of the first child block.
func (b *Block) SetChildBlock(addr uint32) {
	if addr&7 != 0 {
		panic(fmt.Sprintf("accel: child block address %d is not block aligned", addr))
	}
	b.child = addr
}

// Get the node address of the first child block.
func (b *Block) ChildBlock() uint32 {
	return b.child
}

// The number of child blocks needed by the generic level-2 slots.
func (b *Block) ChildBlocksRequired() int {
	return bits.OnesCount32(b.tags>>overflowShift&0xf) << 1
}

// Get the address of the left child of a generic slot in block blockIdx.
func (b *Block) LeftChild(blockIdx uint32, slot int) uint32 {
	if slot < firstOverflowSlot {
		return NodeAddress(blockIdx, 2*slot+1)
	}
	return b.child + b.overflowOffset(slot)
}

// Get the address of the right child of a generic slot in block blockIdx.
func (b *Block) RightChild(blockIdx uint32, slot int) uint32 {
	if slot < firstOverflowSlot {
		return NodeAddress(blockIdx, 2*slot+2)
	}
	return b.child + b.overflowOffset(slot) + 8
}

// Each generic level-2 slot before slot owns two child blocks (16 node
// addresses).
func (b *Block) overflowOffset(slot int) uint32 {
	mask := uint32(1)<<uint(slot-firstOverflowSlot) - 1
	return uint32(bits.OnesCount32(b.tags>>overflowShift&mask)) << 4
}
