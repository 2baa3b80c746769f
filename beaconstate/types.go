// Package beaconstate defines the two state containers the state
// transition core advances together each block: CrystallizedState (slow,
// recomputed at cycle boundaries) and ActiveState (fast, updated every
// block), plus their constituent record types (§3 Data Model).
//
// This package drops the protobuf-backed representation the teacher's
// beacon-chain/types package used (`*pb.CrystallizedState`): block
// serialization and hashing codec are explicitly out of scope (spec §1),
// so the internal representation here is plain exported structs, and a
// block's hash is always supplied by the caller rather than computed by
// this package.
package beaconstate

import "math/big"

// ValidatorRecord is a single validator's consensus-relevant state: its
// public key, balance, and the dynasty range in which it is active.
//
// Balance is denominated in wei-equivalent units (§3), so a single
// validator's standard deposit already exceeds uint64's range (32 ETH is
// ~3.2e19, uint64 tops out at ~1.8e19) — the same reason go-ethereum
// represents wei amounts with *big.Int rather than a fixed-width integer.
type ValidatorRecord struct {
	PubKey       []byte
	Balance      *big.Int
	StartDynasty uint64
	EndDynasty   uint64
}

// IsActive reports whether the validator is active during dynasty d:
// start_dynasty <= d < end_dynasty.
func (v *ValidatorRecord) IsActive(dynasty uint64) bool {
	return v.StartDynasty <= dynasty && dynasty < v.EndDynasty
}

// ShardCommittee is an ordered subset of validator indices assigned to
// attest for a single shard during one slot.
type ShardCommittee struct {
	ShardID   uint64
	Committee []uint32
}

// CrosslinkRecord is the latest committee-confirmed shard-block hash for
// one shard.
type CrosslinkRecord struct {
	Dynasty uint64
	Slot    uint64
	Hash    [32]byte
}

// AttestationRecord is a single committee's vote on a shard block and on
// the FFG justified chain, as carried inside a Block.
type AttestationRecord struct {
	Slot                 uint64
	ShardID              uint64
	ObliqueParentHashes  [][32]byte
	ShardBlockHash       [32]byte
	AttesterBitfield     []byte
	JustifiedSlot        uint64
	JustifiedBlockHash   [32]byte
	AggregateSig         []byte
}

// Block is the beacon chain block primitive the core consumes. Hashing and
// wire encoding are external collaborators (§1); a Block's hash, wherever
// one is needed (e.g. chain indexing, justified_block_hash lookups), is
// supplied by the caller alongside the block rather than computed here.
type Block struct {
	ParentHash            [32]byte
	SlotNumber            uint64
	Attestations          []*AttestationRecord
	RandaoReveal          [32]byte
	PowChainRef           [32]byte
	ActiveStateRoot       [32]byte
	CrystallizedStateRoot [32]byte
}
