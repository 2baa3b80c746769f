// Package shuffle provides a concrete implementation of the §6 shuffling
// oracle (get_new_shuffling). The state transition core treats shuffling as
// an external, pure function of (seed, validators, dynasty, start_shard);
// this package supplies that function since nothing upstream of this module
// provides one.
package shuffle

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethshard/beacon-core/params"
	"github.com/ethshard/beacon-core/shared/hashutil"
)

// minCommitteeSize is the minimal number of validators a committee needs in
// order to keep the "1/3 of a committee can't unilaterally stall a shard"
// property the sharding design assumes.
const minCommitteeSize = 128

// Committee is an ordered subset of validator indices responsible for a
// single (slot, shard) pair.
type Committee struct {
	ShardID   uint64
	Committee []uint32
}

// ActiveValidatorIndex is the minimal validator shape the shuffler needs:
// just enough to know who is active in the target dynasty.
type ActiveValidatorIndex struct {
	Index        uint32
	StartDynasty uint64
	EndDynasty   uint64
}

// ShuffleIndices deterministically permutes indices using seed as the
// source of randomness. It is a Fisher-Yates shuffle driven by successive
// 4-byte windows of seed itself and then of its repeated Blake2b-256
// hashes, matching the teacher's hash-driven swap source.
func ShuffleIndices(seed common.Hash, indices []uint64) ([]uint64, error) {
	out := make([]uint64, len(indices))
	copy(out, indices)
	if len(out) == 0 {
		return out, nil
	}

	source := seed
	pos := 0
	nextRand := func() uint32 {
		if pos+4 > len(source) {
			source = common.Hash(hashutil.Blake(source[:]))
			pos = 0
		}
		v := binary.BigEndian.Uint32(source[pos : pos+4])
		pos += 4
		return v
	}

	for i := len(out) - 1; i > 0; i-- {
		j := int(nextRand() % uint32(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// SplitIndices partitions list into n nearly-equal contiguous slices, in
// order, dropping no element.
func SplitIndices(list []uint64, n uint64) [][]uint64 {
	if n == 0 {
		return nil
	}
	out := make([][]uint64, n)
	total := uint64(len(list))
	for i := uint64(0); i < n; i++ {
		start := total * i / n
		end := total * (i + 1) / n
		out[i] = list[start:end]
	}
	return out
}

// NewShuffling builds the cycle_length-length committee schedule for a
// dynasty, starting shard assignment at startShard and wrapping around
// shard_count. Grounded on casper/sharding.go's committee-count-per-slot
// derivation: committees are only split across multiple shards per slot
// once there are enough active validators to keep every committee at or
// above minCommitteeSize.
func NewShuffling(seed common.Hash, validators []ActiveValidatorIndex, dynasty uint64, startShard uint64) ([][]Committee, error) {
	cfg := params.BeaconConfig()

	var active []uint64
	for _, v := range validators {
		if v.StartDynasty <= dynasty && dynasty < v.EndDynasty {
			active = append(active, uint64(v.Index))
		}
	}

	committeesPerSlot := uint64(1)
	if uint64(len(active)) >= cfg.CycleLength*minCommitteeSize {
		committeesPerSlot = uint64(len(active))/cfg.CycleLength/(minCommitteeSize*2) + 1
	}

	shuffled, err := ShuffleIndices(seed, active)
	if err != nil {
		return nil, err
	}

	perSlot := SplitIndices(shuffled, cfg.CycleLength)
	schedule := make([][]Committee, cfg.CycleLength)
	for slot, slotIndices := range perSlot {
		perShard := SplitIndices(slotIndices, committeesPerSlot)
		committees := make([]Committee, 0, committeesPerSlot)
		for i, committeeIndices := range perShard {
			shardID := (startShard + uint64(slot)*committeesPerSlot + uint64(i)) % cfg.ShardCount
			members := make([]uint32, len(committeeIndices))
			for k, idx := range committeeIndices {
				members[k] = uint32(idx)
			}
			committees = append(committees, Committee{ShardID: shardID, Committee: members})
		}
		schedule[slot] = committees
	}
	return schedule, nil
}
