// Package attestations implements the §4.2 attestation validator: the set
// of checks an attestation must pass before a block processor folds it into
// the vote cache, plus the block-level rule that a block's first
// attestation must be its proposer's own.
package attestations

import (
	"encoding/binary"

	"github.com/ethshard/beacon-core/beaconstate"
	"github.com/ethshard/beacon-core/beaconstate/errs"
	"github.com/ethshard/beacon-core/beaconstate/helpers"
	"github.com/ethshard/beacon-core/params"
	"github.com/ethshard/beacon-core/shared/bitutil"
	"github.com/ethshard/beacon-core/shared/bls"
	"github.com/ethshard/beacon-core/shared/hashutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "attestations")

// Validate checks att against cs/active/block/parentBlock per spec §4.2,
// returning a descriptive error wrapping one of beaconstate/errs's sentinel
// kinds when a condition fails.
func Validate(cs *beaconstate.CrystallizedState, active *beaconstate.ActiveState, att *beaconstate.AttestationRecord, block *beaconstate.Block, parentBlock *beaconstate.Block) error {
	if att.Slot > parentBlock.SlotNumber {
		return errors.Wrapf(errs.ErrAttestationSlotOutOfRange, "attestation slot %d is ahead of parent block slot %d", att.Slot, parentBlock.SlotNumber)
	}

	cycleLength := params.BeaconConfig().CycleLength
	var lowerBound uint64
	if parentBlock.SlotNumber+1 >= cycleLength {
		lowerBound = parentBlock.SlotNumber + 1 - cycleLength
	}
	if att.Slot < lowerBound {
		return errors.Wrapf(errs.ErrAttestationSlotOutOfRange, "attestation slot %d precedes lower bound %d", att.Slot, lowerBound)
	}

	if att.JustifiedSlot > cs.LastJustifiedSlot {
		return errors.Wrapf(errs.ErrJustifiedSlotTooNew, "attestation justified slot %d exceeds crystallized state's %d", att.JustifiedSlot, cs.LastJustifiedSlot)
	}

	justifiedBlock, ok := active.Chain.GetByHash(att.JustifiedBlockHash)
	if !ok {
		return errors.Wrapf(errs.ErrJustifiedBlockMissing, "justified block hash %x not found", att.JustifiedBlockHash)
	}
	if justifiedBlock.SlotNumber != att.JustifiedSlot {
		return errors.Wrapf(errs.ErrJustifiedBlockSlotMismatch, "justified block at %x has slot %d, attestation claims %d", att.JustifiedBlockHash, justifiedBlock.SlotNumber, att.JustifiedSlot)
	}

	committee, err := helpers.AttestationIndices(cs, att)
	if err != nil {
		return err
	}

	expectedLen := bitutil.BitLength(len(committee))
	if len(att.AttesterBitfield) != expectedLen {
		return errors.Wrapf(errs.ErrBitfieldLengthWrong, "bitfield has %d bytes, expected %d for committee of size %d", len(att.AttesterBitfield), expectedLen, len(committee))
	}

	lastBit := len(committee)
	if remainder := lastBit % 8; remainder != 0 {
		for i := 0; i < 8-remainder; i++ {
			if bitutil.HasVoted(att.AttesterBitfield, lastBit+i) {
				return errors.Wrap(errs.ErrBitfieldTrailingBitsNonZero, "bit set past committee size")
			}
		}
	}

	parentHashes, err := helpers.SignedParentHashes(active, parentBlock, att)
	if err != nil {
		return err
	}

	var pubkeys [][]byte
	for c, v := range committee {
		if bitutil.HasVoted(att.AttesterBitfield, c) {
			pubkeys = append(pubkeys, cs.Validators[v].PubKey)
		}
	}
	if len(pubkeys) == 0 {
		return errors.Wrap(errs.ErrAggregateSignatureInvalid, "attestation has no participating voters")
	}

	aggPub, err := bls.AggregatePublicKeys(pubkeys)
	if err != nil {
		return errors.Wrap(errs.ErrAggregateSignatureInvalid, err.Error())
	}

	msg := SigningMessage(att, parentHashes)
	valid, err := bls.Verify(msg, aggPub, att.AggregateSig)
	if err != nil {
		return errors.Wrap(errs.ErrAggregateSignatureInvalid, err.Error())
	}
	if !valid {
		return errors.Wrap(errs.ErrAggregateSignatureInvalid, "signature does not verify against committee's aggregate public key")
	}

	log.WithFields(logrus.Fields{
		"slot":    att.Slot,
		"shardID": att.ShardID,
		"voters":  len(pubkeys),
	}).Debug("attestation validated")

	return nil
}

// SigningMessage builds the byte string an attestation's aggregate
// signature covers: big8(slot) || concat(parent_hashes) || big2(shard_id)
// || shard_block_hash || big8(justified_slot), hashed with Blake2b-256.
func SigningMessage(att *beaconstate.AttestationRecord, parentHashes [][32]byte) []byte {
	var buf []byte

	var slotBytes [8]byte
	binary.BigEndian.PutUint64(slotBytes[:], att.Slot)
	buf = append(buf, slotBytes[:]...)

	for _, h := range parentHashes {
		buf = append(buf, h[:]...)
	}

	var shardBytes [2]byte
	binary.BigEndian.PutUint16(shardBytes[:], uint16(att.ShardID))
	buf = append(buf, shardBytes[:]...)

	buf = append(buf, att.ShardBlockHash[:]...)

	var justifiedBytes [8]byte
	binary.BigEndian.PutUint64(justifiedBytes[:], att.JustifiedSlot)
	buf = append(buf, justifiedBytes[:]...)

	digest := hashutil.Blake(buf)
	return digest[:]
}

// ValidateProposerAttestation enforces that block.Attestations[0] is the
// proposer's own: it must cover (proposer's shard, parentBlock.SlotNumber)
// and the proposer's committee bit must be set. Skipped at genesis
// (block.SlotNumber == 0).
func ValidateProposerAttestation(block *beaconstate.Block, parentBlock *beaconstate.Block, cs *beaconstate.CrystallizedState) error {
	if block.SlotNumber == 0 {
		return nil
	}
	if len(block.Attestations) == 0 {
		return errors.Wrap(errs.ErrEmptyAttestations, "non-genesis block carries no attestations")
	}

	proposerIndex, shardID, err := helpers.ProposerPosition(parentBlock, cs)
	if err != nil {
		return err
	}

	first := block.Attestations[0]
	if first.ShardID != shardID || first.Slot != parentBlock.SlotNumber {
		return errors.Wrapf(errs.ErrProposerNotAttester, "first attestation covers (shard %d, slot %d), expected (shard %d, slot %d)", first.ShardID, first.Slot, shardID, parentBlock.SlotNumber)
	}
	if !bitutil.HasVoted(first.AttesterBitfield, int(proposerIndex)) {
		return errors.Wrap(errs.ErrProposerNotAttester, "proposer's committee bit is not set in its own attestation")
	}
	return nil
}
