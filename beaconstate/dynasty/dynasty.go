// Package dynasty implements the §4.6 dynasty engine: the readiness check
// that gates a validator-set rotation and the rotation itself, including
// the committee reshuffle that follows it.
package dynasty

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethshard/beacon-core/beaconstate"
	"github.com/ethshard/beacon-core/params"
	"github.com/ethshard/beacon-core/shared/shuffle"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "dynasty")

// ReadyForTransition reports whether cs is eligible to rotate its dynasty
// at block, per the three conditions the reference checks in sequence:
// enough slots have elapsed since the last rotation, finality has advanced
// past the rotation point, and every shard named anywhere in the current
// committee schedule has a crosslink newer than the rotation point.
func ReadyForTransition(cs *beaconstate.CrystallizedState, block *beaconstate.Block) bool {
	cfg := params.BeaconConfig()

	slotsSinceLastChange := block.SlotNumber - cs.DynastyStart
	if slotsSinceLastChange < cfg.MinDynastyLength {
		return false
	}

	if cs.LastFinalizedSlot <= cs.DynastyStart {
		return false
	}

	requiredShards := make(map[uint64]struct{})
	for _, slotCommittees := range cs.ShardAndCommitteeForSlots {
		for _, sc := range slotCommittees {
			requiredShards[sc.ShardID] = struct{}{}
		}
	}

	for shardID, crosslink := range cs.CrosslinkRecords {
		if _, required := requiredShards[uint64(shardID)]; !required {
			continue
		}
		if crosslink.Slot <= cs.DynastyStart {
			return false
		}
	}

	return true
}

// ComputeTransition rotates cs to the next dynasty: current_dynasty
// increments, dynasty_start resets to last_state_recalc, and the upper half
// of the committee schedule is replaced by a fresh shuffle seeded from
// block's parent hash (a documented placeholder for real randomness — the
// state transition core treats the seed source as an external collaborator,
// per §6).
//
// next_start_shard is derived from the shard id of the very last committee
// of the very last scheduled slot, wrapped modulo shard_count — reproduced
// exactly as the reference computes it, since it is consensus-observable
// and any other derivation would diverge from it.
func ComputeTransition(cs *beaconstate.CrystallizedState, block *beaconstate.Block) (*beaconstate.CrystallizedState, error) {
	cfg := params.BeaconConfig()

	next := cs.Copy()
	next.CurrentDynasty = cs.CurrentDynasty + 1
	next.DynastyStart = cs.LastStateRecalc

	lastSlot := cs.ShardAndCommitteeForSlots[len(cs.ShardAndCommitteeForSlots)-1]
	lastCommittee := lastSlot[len(lastSlot)-1]
	nextStartShard := (lastCommittee.ShardID + 1) % cfg.ShardCount

	validators := make([]shuffle.ActiveValidatorIndex, len(cs.Validators))
	for i, v := range cs.Validators {
		validators[i] = shuffle.ActiveValidatorIndex{Index: uint32(i), StartDynasty: v.StartDynasty, EndDynasty: v.EndDynasty}
	}

	seed := common.Hash(block.ParentHash)
	reshuffled, err := shuffle.NewShuffling(seed, validators, next.CurrentDynasty, nextStartShard)
	if err != nil {
		return nil, err
	}

	newUpperHalf := make([][]beaconstate.ShardCommittee, len(reshuffled))
	for slot, committees := range reshuffled {
		converted := make([]beaconstate.ShardCommittee, len(committees))
		for i, c := range committees {
			converted[i] = beaconstate.ShardCommittee{ShardID: c.ShardID, Committee: c.Committee}
		}
		newUpperHalf[slot] = converted
	}

	copy(next.ShardAndCommitteeForSlots[cfg.CycleLength:], newUpperHalf)

	log.WithFields(logrus.Fields{
		"dynasty":        next.CurrentDynasty,
		"nextStartShard": nextStartShard,
		"dynastyStart":   next.DynastyStart,
	}).Info("dynasty transition computed")

	return next, nil
}
