// Package errs defines the sentinel validation-failure kinds a block or
// attestation can be rejected with (spec §7). Every rejection is one of
// these kinds, optionally wrapped with call-specific detail via
// github.com/pkg/errors so callers can still recover the kind with
// errors.Cause.
package errs

import "github.com/pkg/errors"

var (
	// ErrEmptyAttestations is returned when a non-genesis block carries no
	// attestations.
	ErrEmptyAttestations = errors.New("block has zero attestations")

	// ErrProposerNotAttester is returned when block.attestations[0] does not
	// cover the expected proposer.
	ErrProposerNotAttester = errors.New("proposer attestation missing or does not cover the proposer")

	// ErrAttestationSlotOutOfRange is returned when an attestation's slot is
	// too high or too low relative to its parent block.
	ErrAttestationSlotOutOfRange = errors.New("attestation slot out of range")

	// ErrJustifiedSlotTooNew is returned when att.justified_slot exceeds
	// cs.last_justified_slot.
	ErrJustifiedSlotTooNew = errors.New("attestation justified slot is newer than crystallized state's")

	// ErrJustifiedBlockMissing is returned when att.justified_block_hash is
	// not present in the chain.
	ErrJustifiedBlockMissing = errors.New("attestation justified block hash not found in chain")

	// ErrJustifiedBlockSlotMismatch is returned when the justified block's
	// slot does not equal att.justified_slot.
	ErrJustifiedBlockSlotMismatch = errors.New("attestation justified block slot does not match justified slot")

	// ErrBitfieldLengthWrong is returned when att.attester_bitfield's length
	// does not match the committee's expected bitfield length.
	ErrBitfieldLengthWrong = errors.New("attestation bitfield length incorrect")

	// ErrBitfieldTrailingBitsNonZero is returned when bits past the
	// committee's size are set in the bitfield's last byte.
	ErrBitfieldTrailingBitsNonZero = errors.New("attestation bitfield has non-zero trailing bits")

	// ErrAggregateSignatureInvalid is returned when the attestation's
	// aggregate BLS signature fails verification.
	ErrAggregateSignatureInvalid = errors.New("attestation aggregate signature invalid")
)
