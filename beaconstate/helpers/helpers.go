// Package helpers implements the slot-indexed lookups and windowing
// arithmetic shared by the attestation validator, block processor and cycle
// engine (spec §4.1): committee lookup by slot, attestation committee
// lookup, parent-hash window reconstruction, the recent-block-hashes
// sliding window, and proposer position.
package helpers

import (
	"github.com/ethshard/beacon-core/beaconstate"
	"github.com/ethshard/beacon-core/params"
	"github.com/pkg/errors"
)

// ShardAndCommitteesForSlot returns the committee schedule entry for slot,
// grounded on casper/validator.go's GetShardAndCommitteesForSlot: the lower
// bound is last_state_recalc − cycle_length, clamped to zero rather than
// underflowing, since slot numbers are unsigned.
func ShardAndCommitteesForSlot(cs *beaconstate.CrystallizedState, slot uint64) ([]beaconstate.ShardCommittee, error) {
	cfg := params.BeaconConfig()

	lastStateRecalc := cs.LastStateRecalc
	if lastStateRecalc < cfg.CycleLength {
		lastStateRecalc = 0
	} else {
		lastStateRecalc -= cfg.CycleLength
	}

	lowerBound := lastStateRecalc
	upperBound := lastStateRecalc + 2*cfg.CycleLength
	if slot < lowerBound || slot >= upperBound {
		return nil, errors.Errorf(
			"helpers: slot %d outside committee schedule range [%d, %d)", slot, lowerBound, upperBound)
	}

	idx := slot - lastStateRecalc
	if int(idx) >= len(cs.ShardAndCommitteeForSlots) {
		return nil, errors.Errorf("helpers: computed index %d exceeds committee schedule length %d", idx, len(cs.ShardAndCommitteeForSlots))
	}
	return cs.ShardAndCommitteeForSlots[idx], nil
}

// AttestationIndices returns the committee assigned to att's (slot, shard
// id) pair.
func AttestationIndices(cs *beaconstate.CrystallizedState, att *beaconstate.AttestationRecord) ([]uint32, error) {
	committees, err := ShardAndCommitteesForSlot(cs, att.Slot)
	if err != nil {
		return nil, err
	}
	for _, sc := range committees {
		if sc.ShardID == att.ShardID {
			return sc.Committee, nil
		}
	}
	return nil, errors.Errorf("helpers: no committee scheduled for shard %d at slot %d", att.ShardID, att.Slot)
}

// SignedParentHashes reconstructs the cycle_length-length ordered list of
// block hashes that att is signing over: the window
// [att.Slot-cycle_length+1 .. att.Slot], drawn from active.RecentBlockHashes
// and keyed relative to parentBlock's slot, with any positions before slot
// zero filled from att.ObliqueParentHashes.
func SignedParentHashes(active *beaconstate.ActiveState, parentBlock *beaconstate.Block, att *beaconstate.AttestationRecord) ([][32]byte, error) {
	cfg := params.BeaconConfig()
	cycleLength := cfg.CycleLength

	var windowStart int64
	if int64(att.Slot)-int64(cycleLength)+1 < 0 {
		windowStart = int64(att.Slot) - int64(cycleLength) + 1
	} else {
		windowStart = int64(att.Slot-cycleLength) + 1
	}

	missing := 0
	if windowStart < 0 {
		missing = int(-windowStart)
	}
	if missing > len(att.ObliqueParentHashes) {
		return nil, errors.Errorf(
			"helpers: attestation needs %d oblique parent hashes for pre-genesis slots, has %d", missing, len(att.ObliqueParentHashes))
	}

	out := make([][32]byte, 0, cycleLength)
	out = append(out, att.ObliqueParentHashes[:missing]...)

	startSlot := windowStart
	if startSlot < 0 {
		startSlot = 0
	}
	remaining := int(cycleLength) - missing
	for i := 0; i < remaining; i++ {
		slot := startSlot + int64(i)
		idx := len(active.RecentBlockHashes) - 1 - int(int64(parentBlock.SlotNumber)-slot)
		if idx < 0 || idx >= len(active.RecentBlockHashes) {
			return nil, errors.Errorf("helpers: recent block hash index %d out of range for slot %d (len %d)", idx, slot, len(active.RecentBlockHashes))
		}
		out = append(out, active.RecentBlockHashes[idx])
	}
	return out, nil
}

// NewRecentBlockHashes shifts prev left by (newSlot - parentSlot) positions
// and pads the right with that many copies of parentHash, preserving its
// length (generalizes the teacher's CalculateNewBlockHashes).
func NewRecentBlockHashes(prev [][32]byte, parentSlot, newSlot uint64, parentHash [32]byte) [][32]byte {
	shift := int(newSlot - parentSlot)
	n := len(prev)
	out := make([][32]byte, n)

	if shift >= n {
		for i := range out {
			out[i] = parentHash
		}
		return out
	}

	copy(out, prev[shift:])
	for i := n - shift; i < n; i++ {
		out[i] = parentHash
	}
	return out
}

// ProposerPosition returns the proposer's index within its committee and
// that committee's shard id, for the slot after parentBlock.
func ProposerPosition(parentBlock *beaconstate.Block, cs *beaconstate.CrystallizedState) (proposerIndexInCommittee uint64, shardID uint64, err error) {
	committees, err := ShardAndCommitteesForSlot(cs, parentBlock.SlotNumber)
	if err != nil {
		return 0, 0, err
	}
	if len(committees) == 0 {
		return 0, 0, errors.Errorf("helpers: no committees scheduled for slot %d", parentBlock.SlotNumber)
	}
	first := committees[0]
	if len(first.Committee) == 0 {
		return 0, 0, errors.Errorf("helpers: empty committee scheduled for shard %d at slot %d", first.ShardID, parentBlock.SlotNumber)
	}
	return parentBlock.SlotNumber % uint64(len(first.Committee)), first.ShardID, nil
}
