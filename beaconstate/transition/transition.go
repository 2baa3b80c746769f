// Package transition implements the §4.7 state transition driver: the
// top-level orchestration that advances a (CrystallizedState, ActiveState)
// pair by one block, running every cycle boundary the block's slot number
// has passed.
package transition

import (
	"github.com/ethshard/beacon-core/beaconstate"
	"github.com/ethshard/beacon-core/beaconstate/blocks"
	"github.com/ethshard/beacon-core/beaconstate/cycle"
	"github.com/ethshard/beacon-core/beaconstate/dynasty"
	"github.com/ethshard/beacon-core/beaconstate/helpers"
	"github.com/ethshard/beacon-core/params"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "transition")

// preProcessingGate is the pre-processing validity check the reference
// leaves as a stub: its own comments enumerate four conditions (parent
// exists and is valid, block's slot is after its parent's, the RANDAO
// reveal matches the expected proposer's commitment, the PoW chain
// reference is plausible) but implement none of them. This function is
// kept as an explicit, documented no-op rather than silently dropped, so
// the gate's absence stays visible at the call site.
func preProcessingGate(cs *beaconstate.CrystallizedState, parentBlock, block *beaconstate.Block) error {
	return nil
}

// Run advances (cs, active) by block, whose parent is parentBlock, per
// §4.7:
//  1. the pre-processing gate (a no-op placeholder, see preProcessingGate).
//  2. extend active.RecentBlockHashes to cover the gap between parentBlock
//     and block.
//  3. validate and fold block's attestations into the active state.
//  4. run every cycle boundary the block's slot has reached, each
//     followed by a dynasty-transition check.
func Run(cs *beaconstate.CrystallizedState, active *beaconstate.ActiveState, parentBlock, block *beaconstate.Block, blockHash [32]byte) (*beaconstate.CrystallizedState, *beaconstate.ActiveState, error) {
	if err := preProcessingGate(cs, parentBlock, block); err != nil {
		return nil, nil, err
	}

	next := active.Copy()
	next.RecentBlockHashes = helpers.NewRecentBlockHashes(next.RecentBlockHashes, parentBlock.SlotNumber, block.SlotNumber, block.ParentHash)

	next, err := blocks.Process(cs, next, block, parentBlock, blockHash)
	if err != nil {
		return nil, nil, err
	}

	cfg := params.BeaconConfig()
	for block.SlotNumber >= cs.LastStateRecalc+cfg.CycleLength {
		cs, next, err = cycle.InitializeNewCycle(cs, next, block)
		if err != nil {
			return nil, nil, err
		}

		if dynasty.ReadyForTransition(cs, block) {
			cs, err = dynasty.ComputeTransition(cs, block)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	log.WithFields(logrus.Fields{
		"slot":            block.SlotNumber,
		"lastStateRecalc": cs.LastStateRecalc,
		"currentDynasty":  cs.CurrentDynasty,
	}).Debug("state transition complete")

	return cs, next, nil
}
