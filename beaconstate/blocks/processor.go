// Package blocks implements the §4.3 block processor: validating a
// block's attestations and folding them into a new copy of the active
// state's vote cache.
package blocks

import (
	"math/big"

	"github.com/ethshard/beacon-core/beaconstate"
	"github.com/ethshard/beacon-core/beaconstate/attestations"
	"github.com/ethshard/beacon-core/beaconstate/helpers"
	"github.com/ethshard/beacon-core/shared/bitutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "blocks")

// Process validates block against cs/active/parentBlock (proposer
// attestation rule, then every attestation in order) and returns a new
// ActiveState with the attestations folded into a vote-cache copy,
// pending_attestations extended, and the chain extended by blockHash. The
// parent's active state is left untouched.
func Process(cs *beaconstate.CrystallizedState, active *beaconstate.ActiveState, block *beaconstate.Block, parentBlock *beaconstate.Block, blockHash [32]byte) (*beaconstate.ActiveState, error) {
	if err := attestations.ValidateProposerAttestation(block, parentBlock, cs); err != nil {
		return nil, err
	}

	next := active.Copy()

	for i, att := range block.Attestations {
		if err := attestations.Validate(cs, active, att, block, parentBlock); err != nil {
			return nil, errors.Wrapf(err, "block processor: attestation %d rejected", i)
		}
		if err := foldAttestation(cs, active, next.BlockVoteCache, att, parentBlock); err != nil {
			return nil, err
		}
	}

	next.PendingAttestations = append(next.PendingAttestations, block.Attestations...)
	next.Chain.Append(blockHash, block)

	log.WithFields(logrus.Fields{
		"slot":         block.SlotNumber,
		"attestations": len(block.Attestations),
	}).Debug("block processed")

	return next, nil
}

// foldAttestation applies att's folding rule into cache: for every
// signed-window parent hash the attestation is not declaring oblique, every
// voting committee member is recorded against that hash.
func foldAttestation(cs *beaconstate.CrystallizedState, active *beaconstate.ActiveState, cache beaconstate.BlockVoteCache, att *beaconstate.AttestationRecord, parentBlock *beaconstate.Block) error {
	parentHashes, err := helpers.SignedParentHashes(active, parentBlock, att)
	if err != nil {
		return err
	}
	committee, err := helpers.AttestationIndices(cs, att)
	if err != nil {
		return err
	}

	for _, ph := range parentHashes {
		if isOblique(ph, att.ObliqueParentHashes) {
			continue
		}

		entry, ok := cache[ph]
		if !ok {
			entry = &beaconstate.VoteCacheEntry{VoterIndices: make(map[uint32]struct{}), TotalVoterDeposits: big.NewInt(0)}
			cache[ph] = entry
		}

		for c, v := range committee {
			if !bitutil.HasVoted(att.AttesterBitfield, c) {
				continue
			}
			if _, voted := entry.VoterIndices[v]; voted {
				continue
			}
			entry.VoterIndices[v] = struct{}{}
			entry.TotalVoterDeposits.Add(entry.TotalVoterDeposits, cs.Validators[v].Balance)
		}
	}
	return nil
}

func isOblique(hash [32]byte, oblique [][32]byte) bool {
	for _, o := range oblique {
		if o == hash {
			return true
		}
	}
	return false
}
