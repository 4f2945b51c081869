package ledger

import (
	log "github.com/sirupsen/logrus"
)

// Blockchain owns the ordered block sequence and the pending-transaction
// pool. It is not safe for concurrent use; the node's event loop is its
// only mutator.
//
// All rejections are booleans, never errors, so every operation is safe
// to call speculatively.
type Blockchain struct {
	blocks  []*Block
	pending []*Transaction

	// committed holds the id of every transaction inside a block, so
	// admission does not rescan the whole chain.
	committed map[string]struct{}
}

// New creates a chain holding only the genesis block.
func New() *Blockchain {
	return &Blockchain{
		blocks:    []*Block{Genesis()},
		committed: make(map[string]struct{}),
	}
}

// fromBlocks builds a chain around the given blocks with an empty pool.
// The caller validates the blocks.
func fromBlocks(blocks []*Block) *Blockchain {
	c := &Blockchain{
		blocks:    blocks,
		committed: make(map[string]struct{}),
	}
	for _, b := range blocks {
		for _, t := range b.Transactions {
			c.committed[t.ID] = struct{}{}
		}
	}
	return c
}

// Len returns the number of blocks, also referred to as the chain's length.
func (c *Blockchain) Len() int {
	return len(c.blocks)
}

// Blocks returns a copy of the block list.
func (c *Blockchain) Blocks() []*Block {
	blocks := make([]*Block, len(c.blocks))
	copy(blocks, c.blocks)
	return blocks
}

// LastBlock returns the last block in the chain. The chain is never empty.
func (c *Blockchain) LastBlock() *Block {
	return c.blocks[len(c.blocks)-1]
}

// Pending returns a copy of the pending-transaction pool.
func (c *Blockchain) Pending() []*Transaction {
	pending := make([]*Transaction, len(c.pending))
	copy(pending, c.pending)
	return pending
}

// AdmitTransaction inserts a transaction into the pool. It is the single
// gate for all ingestion and returns false if a transaction with the same
// id is already pending or committed.
func (c *Blockchain) AdmitTransaction(tx *Transaction) bool {
	if _, ok := c.committed[tx.ID]; ok {
		return false
	}
	for _, t := range c.pending {
		if t.ID == tx.ID {
			return false
		}
	}
	c.pending = append(c.pending, tx)
	log.Debugf("New transaction %s admitted", tx.ID)
	return true
}

// CreateBlock drains the entire pool into a new block, appends it to the
// chain and returns it.
func (c *Blockchain) CreateBlock(proof uint64, previousHash string) *Block {
	transactions := c.pending
	c.pending = nil

	block := &Block{
		Index:        uint64(len(c.blocks)),
		Timestamp:    now(),
		Proof:        proof,
		Transactions: transactions,
		PreviousHash: previousHash,
	}
	c.blocks = append(c.blocks, block)
	for _, t := range transactions {
		c.committed[t.ID] = struct{}{}
	}
	return block
}

// AppendBlock accepts a candidate only for exactly the next slot, with a
// correct previous-hash link and a valid proof relation. Pending
// transactions the candidate already contains are purged from the pool.
func (c *Blockchain) AppendBlock(block *Block) bool {
	currentLen := uint64(len(c.blocks))
	switch {
	case block.Index < currentLen:
		log.Debug("The incoming block is too old, so it is dropped")
		return false
	case block.Index > currentLen:
		log.Debug("The incoming block is too new for us, we need to resolve conflicts")
		return false
	}

	last := c.LastBlock()
	if last.Hash() != block.PreviousHash || !ValidProof(last.Proof, block.Proof) {
		log.Debug("The incoming block is not valid")
		return false
	}

	// The network already committed these, drop our pending copies.
	if len(c.pending) > 0 {
		inBlock := make(map[string]struct{}, len(block.Transactions))
		for _, t := range block.Transactions {
			inBlock[t.ID] = struct{}{}
		}
		kept := c.pending[:0]
		for _, t := range c.pending {
			if _, ok := inBlock[t.ID]; !ok {
				kept = append(kept, t)
			}
		}
		c.pending = kept
	}

	c.blocks = append(c.blocks, block)
	for _, t := range block.Transactions {
		c.committed[t.ID] = struct{}{}
	}
	log.Debug("The incoming block is accepted")
	return true
}

// RunPoW brute-forces a proof valid against the last block's proof.
func (c *Blockchain) RunPoW() uint64 {
	return ProofOfWork(c.LastBlock().Proof)
}

// IsValidChain reports whether blocks form a valid chain: the genesis
// sentinel first, then an unbroken run of hash links and proof relations.
// Any violation invalidates the whole chain.
func IsValidChain(blocks []*Block) bool {
	if len(blocks) == 0 {
		return false
	}

	genesis := blocks[0]
	if genesis.Proof != genesisProof ||
		len(genesis.Transactions) != 0 ||
		genesis.PreviousHash != genesisPreviousHash {
		return false
	}

	prev := genesis
	for _, block := range blocks[1:] {
		if prev.Hash() != block.PreviousHash {
			return false
		}
		if !ValidProof(prev.Proof, block.Proof) {
			return false
		}
		prev = block
	}
	return true
}

// Adopt replaces the chain wholesale with a strictly longer, valid one.
// Locally pending transactions absent from the new chain are re-admitted
// so in-flight transactions are not lost in the swap.
func (c *Blockchain) Adopt(blocks []*Block) bool {
	if len(blocks) <= len(c.blocks) {
		return false
	}
	if !IsValidChain(blocks) {
		return false
	}

	next := fromBlocks(blocks)
	for _, t := range c.pending {
		next.AdmitTransaction(t)
	}
	*c = *next
	return true
}
