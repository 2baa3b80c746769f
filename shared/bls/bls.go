// Package bls implements the §6 BLS oracle contract
// (aggregate_pubs/verify) the attestation validator depends on to check an
// aggregate signature against a bitfield-selected committee's public keys.
//
// This package exposes a public API for verifying and aggregating BLS
// signatures using the library written by Herumi, mirroring the
// bls12-over-BLS12-381 binding the rest of the pack already depends on.
package bls

import (
	"github.com/herumi/bls-eth-go-binary/bls"
	"github.com/pkg/errors"
)

func init() {
	if err := bls.Init(bls.BLS12_381); err != nil {
		panic(errors.Wrap(err, "bls: failed to initialize BLS12-381 curve"))
	}
	if err := bls.SetETHmode(bls.EthModeDraft07); err != nil {
		panic(errors.Wrap(err, "bls: failed to set ETH2 signing mode"))
	}
}

// PublicKey is an alias for the underlying curve point type, kept opaque to
// callers outside this package.
type PublicKey = bls.PublicKey

// AggregatePublicKeys combines the given serialized public keys into a
// single aggregate public key. Implements §6's `aggregate_pubs`.
func AggregatePublicKeys(pubkeys [][]byte) (*PublicKey, error) {
	if len(pubkeys) == 0 {
		return nil, errors.New("bls: cannot aggregate zero public keys")
	}
	agg := new(bls.PublicKey)
	for i, raw := range pubkeys {
		var pub bls.PublicKey
		if err := pub.Deserialize(raw); err != nil {
			return nil, errors.Wrapf(err, "bls: invalid public key at committee index %d", i)
		}
		if i == 0 {
			*agg = pub
			continue
		}
		agg.Add(&pub)
	}
	return agg, nil
}

// Verify reports whether sig is a valid signature over msg under the
// aggregate public key pub. Implements §6's `verify`.
func Verify(msg []byte, pub *PublicKey, sig []byte) (bool, error) {
	var signature bls.Sign
	if err := signature.Deserialize(sig); err != nil {
		return false, errors.Wrap(err, "bls: invalid aggregate signature encoding")
	}
	return signature.Verify(pub, string(msg)), nil
}
