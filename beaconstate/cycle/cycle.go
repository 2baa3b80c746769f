// Package cycle implements the §4.4 cycle engine: the once-per-cycle
// recalculation that advances justification/finalization, folds crosslinks,
// prunes stale attestations and applies rewards.
package cycle

import (
	"math/big"

	"github.com/ethshard/beacon-core/beaconstate"
	"github.com/ethshard/beacon-core/beaconstate/helpers"
	"github.com/ethshard/beacon-core/beaconstate/rewards"
	"github.com/ethshard/beacon-core/params"
	"github.com/ethshard/beacon-core/shared/bitutil"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "cycle")

// InitializeNewCycle advances the crystallized/active state by one cycle.
// block is the transition-triggering block, used only as the time
// reference passed through to rewards.Apply; the crosslink slot stamp is
// last_state_recalc + cycle_length, not the block's slot.
//
// The justification/finalization walk indexes active.RecentBlockHashes
// directly by position within the outgoing cycle — it does NOT look blocks
// up via the chain, unlike the FFG rewards pass in beaconstate/rewards,
// which does. This mirrors the reference: recent_block_hashes is already
// the window of hashes for the cycle just ending, so no chain lookup is
// needed to walk it.
func InitializeNewCycle(cs *beaconstate.CrystallizedState, active *beaconstate.ActiveState, block *beaconstate.Block) (*beaconstate.CrystallizedState, *beaconstate.ActiveState, error) {
	cfg := params.BeaconConfig()
	cycleLength := cfg.CycleLength

	lastStateRecalc := cs.LastStateRecalc
	lastJustifiedSlot := cs.LastJustifiedSlot
	lastFinalizedSlot := cs.LastFinalizedSlot
	justifiedStreak := cs.JustifiedStreak

	totalDeposits := cs.TotalDeposits(cs.CurrentDynasty)
	two := big.NewInt(2)
	three := big.NewInt(3)

	var lower int64
	if int64(lastStateRecalc)-int64(cycleLength) > 0 {
		lower = int64(lastStateRecalc) - int64(cycleLength)
	}

	for i := uint64(0); i < cycleLength; i++ {
		slot := lower + int64(i)

		voteBalance := big.NewInt(0)
		if int(i) < len(active.RecentBlockHashes) {
			hash := active.RecentBlockHashes[i]
			if entry, ok := active.BlockVoteCache[hash]; ok {
				voteBalance = entry.TotalVoterDeposits
			}
		}

		if new(big.Int).Mul(three, voteBalance).Cmp(new(big.Int).Mul(two, totalDeposits)) >= 0 {
			if slot > 0 && uint64(slot) > lastJustifiedSlot {
				lastJustifiedSlot = uint64(slot)
			}
			justifiedStreak++
		} else {
			justifiedStreak = 0
		}

		if justifiedStreak >= cycleLength+1 && slot > int64(cycleLength) {
			candidate := uint64(slot) - cycleLength - 1
			if candidate > lastFinalizedSlot {
				lastFinalizedSlot = candidate
			}
		}
	}

	crosslinkRecords, err := updateCrosslinks(cs, active, cfg)
	if err != nil {
		return nil, nil, err
	}

	var pendingAttestations []*beaconstate.AttestationRecord
	for _, att := range active.PendingAttestations {
		if att.Slot >= lastStateRecalc {
			pendingAttestations = append(pendingAttestations, att)
		}
	}

	updatedValidators, err := rewards.Apply(cs, active, block)
	if err != nil {
		return nil, nil, err
	}

	// Rebuild the committee schedule for the next cycle. This is a
	// documented reference stub, not a real reshuffle: it duplicates the
	// second half of the outgoing schedule rather than drawing fresh
	// committees, deferring actual reshuffling to the dynasty engine.
	half := cs.ShardAndCommitteeForSlots[cycleLength:]
	nextSchedule := make([][]beaconstate.ShardCommittee, 0, 2*len(half))
	nextSchedule = append(nextSchedule, beaconstate.CopyShardAndCommitteeForSlots(half)...)
	nextSchedule = append(nextSchedule, beaconstate.CopyShardAndCommitteeForSlots(half)...)

	newCS := &beaconstate.CrystallizedState{
		Validators:                updatedValidators,
		LastStateRecalc:           lastStateRecalc + cycleLength,
		ShardAndCommitteeForSlots: nextSchedule,
		LastJustifiedSlot:         lastJustifiedSlot,
		JustifiedStreak:           justifiedStreak,
		LastFinalizedSlot:         lastFinalizedSlot,
		CurrentDynasty:            cs.CurrentDynasty,
		DynastyStart:              cs.DynastyStart,
		DynastySeed:               cs.DynastySeed,
		CrosslinkRecords:          crosslinkRecords,
	}

	newActive := &beaconstate.ActiveState{
		PendingAttestations: pendingAttestations,
		RecentBlockHashes:   append([][32]byte(nil), active.RecentBlockHashes...),
		BlockVoteCache:      active.BlockVoteCache.Copy(),
		Chain:               active.Chain.Copy(),
	}

	log.WithFields(logrus.Fields{
		"lastStateRecalc":   newCS.LastStateRecalc,
		"lastJustifiedSlot": lastJustifiedSlot,
		"lastFinalizedSlot": lastFinalizedSlot,
		"justifiedStreak":   justifiedStreak,
	}).Debug("cycle initialized")

	return newCS, newActive, nil
}

// updateCrosslinks implements §4.4.1: pending attestations are grouped by
// (shard_id, shard_block_hash) — a narrower key than the crosslink rewards
// pass in beaconstate/rewards, which groups by shard_id alone via the
// committee schedule. total_committee_balance is recomputed fresh for every
// attestation folded into a group rather than accumulated once per group,
// faithfully reproducing the reference's own redundant-but-harmless
// recomputation. The comparison runs after every attestation, against the
// group's running attestation balance; the first attestation at which it
// holds promotes the shard's crosslink, and the dynasty check then keeps
// later attestations from replacing it.
func updateCrosslinks(cs *beaconstate.CrystallizedState, active *beaconstate.ActiveState, cfg *params.Config) ([]beaconstate.CrosslinkRecord, error) {
	crosslinks := beaconstate.CopyCrosslinkRecords(cs.CrosslinkRecords)

	type shardTuple struct {
		shardID uint64
		hash    [32]byte
	}
	totalAttestationBalance := make(map[shardTuple]*big.Int)

	two := big.NewInt(2)
	three := big.NewInt(3)

	for _, att := range active.PendingAttestations {
		key := shardTuple{att.ShardID, att.ShardBlockHash}
		if _, ok := totalAttestationBalance[key]; !ok {
			totalAttestationBalance[key] = big.NewInt(0)
		}

		indices, err := helpers.AttestationIndices(cs, att)
		if err != nil {
			return nil, err
		}

		totalCommitteeBalance := big.NewInt(0)
		for _, idx := range indices {
			totalCommitteeBalance.Add(totalCommitteeBalance, cs.Validators[idx].Balance)
		}

		votedBalance := big.NewInt(0)
		for pos, idx := range indices {
			if bitutil.HasVoted(att.AttesterBitfield, pos) {
				votedBalance.Add(votedBalance, cs.Validators[idx].Balance)
			}
		}
		totalAttestationBalance[key].Add(totalAttestationBalance[key], votedBalance)

		if int(att.ShardID) >= len(crosslinks) {
			continue
		}

		lhs := new(big.Int).Mul(three, totalAttestationBalance[key])
		rhs := new(big.Int).Mul(two, totalCommitteeBalance)
		if lhs.Cmp(rhs) >= 0 && cs.CurrentDynasty > crosslinks[att.ShardID].Dynasty {
			crosslinks[att.ShardID] = beaconstate.CrosslinkRecord{
				Dynasty: cs.CurrentDynasty,
				Slot:    cs.LastStateRecalc + cfg.CycleLength,
				Hash:    att.ShardBlockHash,
			}
		}
	}
	return crosslinks, nil
}
