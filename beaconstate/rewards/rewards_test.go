package rewards

import (
	"math/big"
	"testing"

	"github.com/ethshard/beacon-core/beaconstate"
	"github.com/ethshard/beacon-core/params"
	"github.com/stretchr/testify/require"
)

// withTestConfig installs a small configuration for the duration of the
// test and restores the previous one on cleanup.
func withTestConfig(t *testing.T) {
	t.Helper()
	prev := params.BeaconConfig()
	params.UseConfig(&params.Config{
		CycleLength:        2,
		MinDynastyLength:   4,
		ShardCount:         1,
		BaseRewardQuotient: 1,
		SqrtEDropTime:      100,
		SlotDuration:       10,
		DepositSize:        32,
	})
	t.Cleanup(func() { params.UseConfig(prev) })
}

func scheduleWithSingleShard(n int) [][]beaconstate.ShardCommittee {
	out := make([][]beaconstate.ShardCommittee, n)
	for i := range out {
		out[i] = []beaconstate.ShardCommittee{{ShardID: 0, Committee: []uint32{0, 1}}}
	}
	return out
}

// weiBalance returns ethCount ETH expressed in wei.
func weiBalance(ethCount int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(ethCount), big.NewInt(params.WeiPerEth))
}

func TestApplyZeroesBalancesUnderFullNonParticipation(t *testing.T) {
	withTestConfig(t)

	cs := &beaconstate.CrystallizedState{
		Validators: []*beaconstate.ValidatorRecord{
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
		},
		LastStateRecalc:           2,
		LastFinalizedSlot:         0,
		CurrentDynasty:            1,
		ShardAndCommitteeForSlots: scheduleWithSingleShard(4),
		CrosslinkRecords:          []beaconstate.CrosslinkRecord{{Dynasty: 0, Slot: 0}},
	}

	var hash0, hash1 [32]byte
	hash0[0], hash1[0] = 1, 2
	chain := beaconstate.NewChain()
	chain.Append(hash0, &beaconstate.Block{SlotNumber: 0})
	chain.Append(hash1, &beaconstate.Block{SlotNumber: 1})

	cache := beaconstate.NewBlockVoteCache()
	cache[hash0] = &beaconstate.VoteCacheEntry{
		VoterIndices:       map[uint32]struct{}{0: {}, 1: {}},
		TotalVoterDeposits: weiBalance(8),
	}
	// hash1 has no cache entry: nobody voted for slot 1's block.

	active := &beaconstate.ActiveState{
		Chain:          chain,
		BlockVoteCache: cache,
	}

	block := &beaconstate.Block{SlotNumber: 2}

	updated, err := Apply(cs, active, block)
	require.NoError(t, err)
	require.Equal(t, int64(0), updated[0].Balance.Int64())
	require.Equal(t, int64(0), updated[1].Balance.Int64())
}

func TestApplyRewardsFullCrosslinkParticipation(t *testing.T) {
	withTestConfig(t)

	cs := &beaconstate.CrystallizedState{
		Validators: []*beaconstate.ValidatorRecord{
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
		},
		LastStateRecalc:           2,
		LastFinalizedSlot:         0,
		CurrentDynasty:            1,
		ShardAndCommitteeForSlots: scheduleWithSingleShard(4),
		CrosslinkRecords:          []beaconstate.CrosslinkRecord{{Dynasty: 0, Slot: 0}},
	}

	var hash0, hash1 [32]byte
	hash0[0], hash1[0] = 1, 2
	chain := beaconstate.NewChain()
	chain.Append(hash0, &beaconstate.Block{SlotNumber: 0})
	chain.Append(hash1, &beaconstate.Block{SlotNumber: 1})

	cache := beaconstate.NewBlockVoteCache()
	cache[hash0] = &beaconstate.VoteCacheEntry{VoterIndices: map[uint32]struct{}{0: {}, 1: {}}, TotalVoterDeposits: weiBalance(8)}
	// hash1 has no cache entry, so the FFG pass sees slot 1 as wholly
	// unparticipated: its penalty and slot 0's reward cancel, isolating this
	// test's assertion to the crosslink rewards pass below (which draws on
	// PendingAttestations, not the vote cache).

	fullBitfield := []byte{0xC0}
	active := &beaconstate.ActiveState{
		Chain:          chain,
		BlockVoteCache: cache,
		PendingAttestations: []*beaconstate.AttestationRecord{
			{Slot: 0, ShardID: 0, AttesterBitfield: fullBitfield},
			{Slot: 1, ShardID: 0, AttesterBitfield: fullBitfield},
		},
	}

	block := &beaconstate.Block{SlotNumber: 2}

	updated, err := Apply(cs, active, block)
	require.NoError(t, err)
	// FFG nets to zero (slot 0's reward cancels slot 1's penalty); the net
	// gain comes entirely from the crosslink pass rewarding full committee
	// participation at both of the cycle's scheduled occurrences.
	require.Equal(t, weiBalance(8).Int64(), updated[0].Balance.Int64())
	require.Equal(t, weiBalance(8).Int64(), updated[1].Balance.Int64())
}

func TestQuotientsRejectsZeroTotalDeposits(t *testing.T) {
	withTestConfig(t)
	_, _, err := quotients(params.BeaconConfig(), big.NewInt(0))
	require.Error(t, err)
}

func TestQuotientsRejectsInexactQuadraticPenalty(t *testing.T) {
	cfg := &params.Config{BaseRewardQuotient: 1, SqrtEDropTime: 10, SlotDuration: 3}
	_, _, err := quotients(cfg, big.NewInt(1))
	require.Error(t, err)
}
