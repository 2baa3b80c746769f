// Package rewards implements the §4.5 reward engine: FFG rewards,
// crosslink rewards, the quadratic leak penalty, and balance application.
// It is invoked once per cycle by the cycle engine's initialize_new_cycle.
package rewards

import (
	"math/big"

	"github.com/ethshard/beacon-core/beaconstate"
	"github.com/ethshard/beacon-core/beaconstate/helpers"
	"github.com/ethshard/beacon-core/params"
	"github.com/ethshard/beacon-core/shared/bitutil"
	"github.com/ethshard/beacon-core/shared/mathutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// floorDiv divides a by b the way the reference formulas' `//` operator
// does: floored toward negative infinity. big.Int's DivMod computes
// Euclidean division, which coincides with floor division whenever the
// divisor is positive — true of every divisor here (reward_quotient,
// total_deposits, quadratic_penalty_quotient). Plain int64 division would
// truncate toward zero instead, giving the wrong sign for penalty terms.
func floorDiv(a, b *big.Int) *big.Int {
	q, m := new(big.Int), new(big.Int)
	q.DivMod(a, b, m)
	return q
}

var log = logrus.WithField("prefix", "rewards")

// quotients computes the shared reward_quotient / quadratic_penalty_quotient
// prelude. totalDeposits must be positive and slot_duration must evenly
// divide sqrt_e_drop_time — both are configuration-level invariants, fatal
// when violated (§7). totalDeposits is wei-scale (ValidatorRecord.Balance's
// unit); it is floor-divided down to a plain ETH count before the integer
// square root, which is where all of this engine's arithmetic returns to
// ordinary machine-word range.
func quotients(cfg *params.Config, totalDeposits *big.Int) (rewardQuotient uint64, quadraticPenaltyQuotient uint64, err error) {
	if totalDeposits.Sign() <= 0 {
		return 0, 0, errors.New("rewards: total deposits must be positive")
	}
	if !cfg.IsQuadraticPenaltyQuotientExact() {
		return 0, 0, errors.New("rewards: quadratic penalty quotient is not an exact integer for the active configuration")
	}
	depositsInEth := floorDiv(totalDeposits, big.NewInt(params.WeiPerEth)).Uint64()
	rewardQuotient = cfg.BaseRewardQuotient * mathutil.IntegerSquareRoot(depositsInEth)
	quadraticPenaltyQuotient = cfg.QuadraticPenaltyQuotient()
	return rewardQuotient, quadraticPenaltyQuotient, nil
}

// Apply runs the FFG and crosslink reward passes over the cycle ending at
// cs.LastStateRecalc and returns the validator list with rewards/penalties
// applied, balances floored at zero. block is the transition-triggering
// block; it supplies the time reference point for both passes (§4.5's
// block.slot_number), not any per-slot block found during iteration.
func Apply(cs *beaconstate.CrystallizedState, active *beaconstate.ActiveState, block *beaconstate.Block) ([]*beaconstate.ValidatorRecord, error) {
	totalDeposits := cs.TotalDeposits(cs.CurrentDynasty)
	cfg := params.BeaconConfig()

	rewardQuotient, quadraticPenaltyQuotient, err := quotients(cfg, totalDeposits)
	if err != nil {
		return nil, err
	}

	ffgDeltas, err := ffgRewards(cs, active, block, cfg, rewardQuotient, quadraticPenaltyQuotient, totalDeposits)
	if err != nil {
		return nil, err
	}

	crosslinkDeltas, err := crosslinkRewards(cs, active, block, cfg, rewardQuotient, quadraticPenaltyQuotient)
	if err != nil {
		return nil, err
	}

	updated := beaconstate.CopyValidators(cs.Validators)
	activeIndices := cs.ActiveValidatorIndices(cs.CurrentDynasty)
	zero := big.NewInt(0)
	for _, idx := range activeIndices {
		delta := new(big.Int).Add(deltaFor(ffgDeltas, idx), deltaFor(crosslinkDeltas, idx))
		newBalance := new(big.Int).Add(updated[idx].Balance, delta)
		if newBalance.Cmp(zero) < 0 {
			newBalance.SetInt64(0)
		}
		updated[idx].Balance = newBalance
	}

	log.WithFields(logrus.Fields{
		"rewardQuotient":   rewardQuotient,
		"activeValidators": len(activeIndices),
	}).Debug("rewards applied")

	return updated, nil
}

// cycleSlotRange returns [max(last_state_recalc-cycle_length, 0),
// last_state_recalc), the window both reward passes iterate (§4.5).
func cycleSlotRange(cs *beaconstate.CrystallizedState, cfg *params.Config) (uint64, uint64) {
	var lower uint64
	if cs.LastStateRecalc > cfg.CycleLength {
		lower = cs.LastStateRecalc - cfg.CycleLength
	}
	return lower, cs.LastStateRecalc
}

// deltaFor returns the accumulated delta for validator idx, or zero if
// idx never appeared (participating in no slot/shard this cycle).
func deltaFor(deltas map[uint32]*big.Int, idx uint32) *big.Int {
	if d, ok := deltas[idx]; ok {
		return d
	}
	return big.NewInt(0)
}

func addDelta(deltas map[uint32]*big.Int, idx uint32, delta *big.Int) {
	if existing, ok := deltas[idx]; ok {
		existing.Add(existing, delta)
		return
	}
	deltas[idx] = new(big.Int).Set(delta)
}

// ffgRewards implements §4.5's FFG rewards pass.
func ffgRewards(cs *beaconstate.CrystallizedState, active *beaconstate.ActiveState, block *beaconstate.Block, cfg *params.Config, rewardQuotient, quadraticPenaltyQuotient uint64, totalDeposits *big.Int) (map[uint32]*big.Int, error) {
	deltas := make(map[uint32]*big.Int)
	activeIndices := cs.ActiveValidatorIndices(cs.CurrentDynasty)
	timeSinceFinality := big.NewInt(int64(block.SlotNumber) - int64(cs.LastFinalizedSlot))
	finalityCutoff := new(big.Int).Mul(big.NewInt(3), new(big.Int).SetUint64(cfg.CycleLength))

	rq := new(big.Int).SetUint64(rewardQuotient)
	qpq := new(big.Int).SetUint64(quadraticPenaltyQuotient)

	lower, upper := cycleSlotRange(cs, cfg)
	for slot := lower; slot < upper; slot++ {
		voterIndices, totalParticipated := voteCacheForSlot(active, slot)

		for _, idx := range activeIndices {
			_, participated := voterIndices[idx]
			balance := cs.Validators[idx].Balance

			if timeSinceFinality.Cmp(finalityCutoff) <= 0 {
				if participated {
					numerator := new(big.Int).Sub(new(big.Int).Mul(big.NewInt(2), totalParticipated), totalDeposits)
					delta := floorDiv(new(big.Int).Mul(floorDiv(balance, rq), numerator), totalDeposits)
					addDelta(deltas, idx, delta)
				} else {
					addDelta(deltas, idx, new(big.Int).Neg(floorDiv(balance, rq)))
				}
			} else if !participated {
				leak := floorDiv(new(big.Int).Mul(balance, timeSinceFinality), qpq)
				penalty := new(big.Int).Add(floorDiv(balance, rq), leak)
				addDelta(deltas, idx, new(big.Int).Neg(penalty))
			}
		}
	}
	return deltas, nil
}

// voteCacheForSlot resolves the block recorded at slot (if any) to its vote
// cache entry, returning an empty voter set and zero deposits when either
// the slot has no block or the block's hash has no cache entry.
func voteCacheForSlot(active *beaconstate.ActiveState, slot uint64) (map[uint32]struct{}, *big.Int) {
	hash, ok := active.Chain.HashBySlot(slot)
	if !ok {
		return nil, big.NewInt(0)
	}
	entry, ok := active.BlockVoteCache[hash]
	if !ok {
		return nil, big.NewInt(0)
	}
	return entry.VoterIndices, entry.TotalVoterDeposits
}

// crosslinkRewards implements §4.5's crosslink rewards pass, over the
// per-shard aggregation built by shardParticipationByCycle.
func crosslinkRewards(cs *beaconstate.CrystallizedState, active *beaconstate.ActiveState, block *beaconstate.Block, cfg *params.Config, rewardQuotient, quadraticPenaltyQuotient uint64) (map[uint32]*big.Int, error) {
	deltas := make(map[uint32]*big.Int)

	groups, err := shardParticipationByCycle(cs, active, cfg)
	if err != nil {
		return nil, err
	}

	rq := new(big.Int).SetUint64(rewardQuotient)
	qpq := new(big.Int).SetUint64(quadraticPenaltyQuotient)

	for shardID, g := range groups {
		if int(shardID) >= len(cs.CrosslinkRecords) {
			continue
		}
		if cs.CrosslinkRecords[shardID].Dynasty == cs.CurrentDynasty {
			continue
		}

		timeSinceLastConfirmation := big.NewInt(int64(block.SlotNumber) - int64(cs.CrosslinkRecords[shardID].Slot))

		for _, idx := range g.participating {
			balance := cs.Validators[idx].Balance
			numerator := new(big.Int).Sub(new(big.Int).Mul(big.NewInt(2), g.totalParticipatedDeposits), g.totalDeposits)
			delta := floorDiv(new(big.Int).Mul(floorDiv(balance, rq), numerator), g.totalDeposits)
			addDelta(deltas, idx, delta)
		}
		for _, idx := range g.nonParticipating {
			balance := cs.Validators[idx].Balance
			leak := floorDiv(new(big.Int).Mul(balance, timeSinceLastConfirmation), qpq)
			penalty := new(big.Int).Add(floorDiv(balance, rq), leak)
			addDelta(deltas, idx, new(big.Int).Neg(penalty))
		}
	}
	return deltas, nil
}

type shardRewardData struct {
	participating             []uint32
	nonParticipating          []uint32
	totalParticipatedDeposits *big.Int
	totalDeposits             *big.Int
}

// shardParticipationByCycle aggregates committee participation, shard by
// shard, across every (slot, shard_id) scheduled in the cycle's slot range,
// per §4.5's crosslink rewards pass. This is a coarser grouping than
// §4.4.1's crosslink update, which groups by (shard_id, shard_block_hash)
// instead — the two are separate aggregations over the same window.
func shardParticipationByCycle(cs *beaconstate.CrystallizedState, active *beaconstate.ActiveState, cfg *params.Config) (map[uint64]*shardRewardData, error) {
	groups := make(map[uint64]*shardRewardData)

	lower, upper := cycleSlotRange(cs, cfg)
	for slot := lower; slot < upper; slot++ {
		committees, err := helpers.ShardAndCommitteesForSlot(cs, slot)
		if err != nil {
			return nil, err
		}

		for _, sc := range committees {
			g, ok := groups[sc.ShardID]
			if !ok {
				g = &shardRewardData{totalParticipatedDeposits: big.NewInt(0), totalDeposits: big.NewInt(0)}
				groups[sc.ShardID] = g
			}

			var bitfields [][]byte
			for _, att := range active.PendingAttestations {
				if att.Slot == slot && att.ShardID == sc.ShardID {
					bitfields = append(bitfields, att.AttesterBitfield)
				}
			}

			var bitfield []byte
			if len(bitfields) > 0 {
				bitfield = bitutil.OrBitfields(bitfields)
			} else {
				bitfield = bitutil.EmptyBitfield(len(sc.Committee))
			}

			for c, v := range sc.Committee {
				balance := cs.Validators[v].Balance
				if bitutil.HasVoted(bitfield, c) {
					g.participating = append(g.participating, v)
					g.totalParticipatedDeposits.Add(g.totalParticipatedDeposits, balance)
				} else {
					g.nonParticipating = append(g.nonParticipating, v)
				}
				g.totalDeposits.Add(g.totalDeposits, balance)
			}
		}
	}
	return groups, nil
}
