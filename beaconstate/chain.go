package beaconstate

// Chain is the append-only sequence of accepted blocks, each keyed by an
// externally-computed hash (hashing is out of scope for this core; see
// types.go). It backs get_block_by_hash and get_block_by_slot_number (§3).
type Chain struct {
	order  [][32]byte
	blocks map[[32]byte]*Block
	bySlot map[uint64][32]byte
	head   [32]byte
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{
		blocks: make(map[[32]byte]*Block),
		bySlot: make(map[uint64][32]byte),
	}
}

// Append adds block under hash and advances the head pointer to it.
func (c *Chain) Append(hash [32]byte, block *Block) {
	c.order = append(c.order, hash)
	c.blocks[hash] = block
	c.bySlot[block.SlotNumber] = hash
	c.head = hash
}

// GetByHash returns the block stored under hash, if any.
func (c *Chain) GetByHash(hash [32]byte) (*Block, bool) {
	b, ok := c.blocks[hash]
	return b, ok
}

// GetBySlot returns the block at the given slot number, if any.
func (c *Chain) GetBySlot(slot uint64) (*Block, bool) {
	hash, ok := c.bySlot[slot]
	if !ok {
		return nil, false
	}
	return c.GetByHash(hash)
}

// HashBySlot returns the hash of the block at the given slot number, if
// any. The reward engine needs the hash (not just the block) to look up a
// slot's entry in the vote cache.
func (c *Chain) HashBySlot(slot uint64) ([32]byte, bool) {
	hash, ok := c.bySlot[slot]
	return hash, ok
}

// Head returns the most recently appended block and its hash.
func (c *Chain) Head() ([32]byte, *Block, bool) {
	if len(c.order) == 0 {
		return [32]byte{}, nil, false
	}
	return c.head, c.blocks[c.head], true
}

// Copy returns a shallow, copy-on-write clone: the block values themselves
// are immutable once appended, so only the index structures are duplicated.
func (c *Chain) Copy() *Chain {
	out := &Chain{
		order:  make([][32]byte, len(c.order)),
		blocks: make(map[[32]byte]*Block, len(c.blocks)),
		bySlot: make(map[uint64][32]byte, len(c.bySlot)),
		head:   c.head,
	}
	copy(out.order, c.order)
	for k, v := range c.blocks {
		out.blocks[k] = v
	}
	for k, v := range c.bySlot {
		out.bySlot[k] = v
	}
	return out
}
