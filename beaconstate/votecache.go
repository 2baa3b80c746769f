package beaconstate

import "math/big"

// VoteCacheEntry tracks who has voted for a given block hash and the total
// stake behind those votes (§3, §9's mapping note). TotalVoterDeposits is a
// sum of wei-equivalent validator balances, so it shares ValidatorRecord
// Balance's need for arbitrary precision.
type VoteCacheEntry struct {
	VoterIndices       map[uint32]struct{}
	TotalVoterDeposits *big.Int
}

// BlockVoteCache maps a block hash to its accumulated vote record.
type BlockVoteCache map[[32]byte]*VoteCacheEntry

// NewBlockVoteCache returns an empty vote cache.
func NewBlockVoteCache() BlockVoteCache {
	return make(BlockVoteCache)
}

// HasVoted reports whether validator index is recorded as having voted for
// blockHash.
func (c BlockVoteCache) HasVoted(blockHash [32]byte, index uint32) bool {
	entry, ok := c[blockHash]
	if !ok {
		return false
	}
	_, voted := entry.VoterIndices[index]
	return voted
}

// Copy returns a deep copy suitable for copy-on-write mutation: the block
// processor folds attestations into a cache copy, never the parent's.
func (c BlockVoteCache) Copy() BlockVoteCache {
	out := make(BlockVoteCache, len(c))
	for hash, entry := range c {
		newEntry := &VoteCacheEntry{
			VoterIndices:       make(map[uint32]struct{}, len(entry.VoterIndices)),
			TotalVoterDeposits: new(big.Int).Set(entry.TotalVoterDeposits),
		}
		for idx := range entry.VoterIndices {
			newEntry.VoterIndices[idx] = struct{}{}
		}
		out[hash] = newEntry
	}
	return out
}
