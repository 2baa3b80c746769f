package cycle

import (
	"math/big"
	"testing"

	"github.com/ethshard/beacon-core/beaconstate"
	"github.com/ethshard/beacon-core/params"
	"github.com/stretchr/testify/require"
)

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

func weiBalance(ethCount int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(ethCount), big.NewInt(params.WeiPerEth))
}

func scheduleWithSingleShard(n int) [][]beaconstate.ShardCommittee {
	out := make([][]beaconstate.ShardCommittee, n)
	for i := range out {
		out[i] = []beaconstate.ShardCommittee{{ShardID: 0, Committee: []uint32{0, 1}}}
	}
	return out
}

func TestInitializeNewCycleJustifiesFullyVotedSlots(t *testing.T) {
	withTestConfig(t)

	cs := &beaconstate.CrystallizedState{
		Validators: []*beaconstate.ValidatorRecord{
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
		},
		LastStateRecalc:           2,
		CurrentDynasty:            1,
		ShardAndCommitteeForSlots: scheduleWithSingleShard(4),
		CrosslinkRecords:          []beaconstate.CrosslinkRecord{{Dynasty: 0, Slot: 0}},
	}

	var hash0, hash1 [32]byte
	hash0[0], hash1[0] = 1, 2
	cache := beaconstate.NewBlockVoteCache()
	cache[hash0] = &beaconstate.VoteCacheEntry{VoterIndices: map[uint32]struct{}{0: {}, 1: {}}, TotalVoterDeposits: weiBalance(8)}
	cache[hash1] = &beaconstate.VoteCacheEntry{VoterIndices: map[uint32]struct{}{0: {}, 1: {}}, TotalVoterDeposits: weiBalance(8)}

	active := &beaconstate.ActiveState{
		RecentBlockHashes: [][32]byte{hash0, hash1},
		BlockVoteCache:    cache,
		Chain:             beaconstate.NewChain(),
	}

	block := &beaconstate.Block{SlotNumber: 2}

	newCS, newActive, err := InitializeNewCycle(cs, active, block)
	require.NoError(t, err)
	require.Equal(t, uint64(4), newCS.LastStateRecalc)
	require.Equal(t, uint64(1), newCS.LastJustifiedSlot)
	require.Equal(t, uint64(2), newCS.JustifiedStreak)
	require.NotNil(t, newActive)
}

func TestInitializeNewCycleResetsStreakOnUnvotedSlot(t *testing.T) {
	withTestConfig(t)

	cs := &beaconstate.CrystallizedState{
		Validators: []*beaconstate.ValidatorRecord{
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
		},
		LastStateRecalc:           2,
		CurrentDynasty:            1,
		JustifiedStreak:           5,
		ShardAndCommitteeForSlots: scheduleWithSingleShard(4),
		CrosslinkRecords:          []beaconstate.CrosslinkRecord{{Dynasty: 0, Slot: 0}},
	}

	active := &beaconstate.ActiveState{
		RecentBlockHashes: [][32]byte{{}, {}},
		BlockVoteCache:    beaconstate.NewBlockVoteCache(),
		Chain:             beaconstate.NewChain(),
	}

	block := &beaconstate.Block{SlotNumber: 2}

	newCS, _, err := InitializeNewCycle(cs, active, block)
	require.NoError(t, err)
	require.Equal(t, uint64(0), newCS.JustifiedStreak)
}

func TestInitializeNewCyclePrunesStaleAttestations(t *testing.T) {
	withTestConfig(t)

	cs := &beaconstate.CrystallizedState{
		Validators: []*beaconstate.ValidatorRecord{
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
		},
		LastStateRecalc:           2,
		CurrentDynasty:            1,
		ShardAndCommitteeForSlots: scheduleWithSingleShard(4),
		CrosslinkRecords:          []beaconstate.CrosslinkRecord{{Dynasty: 0, Slot: 0}},
	}

	active := &beaconstate.ActiveState{
		RecentBlockHashes: [][32]byte{{}, {}},
		BlockVoteCache:    beaconstate.NewBlockVoteCache(),
		Chain:             beaconstate.NewChain(),
		PendingAttestations: []*beaconstate.AttestationRecord{
			{Slot: 0, ShardID: 0, AttesterBitfield: []byte{0x00}},
			{Slot: 2, ShardID: 0, AttesterBitfield: []byte{0x00}},
		},
	}

	block := &beaconstate.Block{SlotNumber: 2}

	_, newActive, err := InitializeNewCycle(cs, active, block)
	require.NoError(t, err)
	require.Len(t, newActive.PendingAttestations, 1)
	require.Equal(t, uint64(2), newActive.PendingAttestations[0].Slot)
}

func TestInitializeNewCycleUpdatesCrosslinkOnSupermajority(t *testing.T) {
	withTestConfig(t)

	var shardHash [32]byte
	shardHash[0] = 9

	cs := &beaconstate.CrystallizedState{
		Validators: []*beaconstate.ValidatorRecord{
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
			{Balance: weiBalance(4), StartDynasty: 0, EndDynasty: 10},
		},
		LastStateRecalc:           2,
		CurrentDynasty:            1,
		ShardAndCommitteeForSlots: scheduleWithSingleShard(4),
		CrosslinkRecords:          []beaconstate.CrosslinkRecord{{Dynasty: 0, Slot: 0}},
	}

	active := &beaconstate.ActiveState{
		RecentBlockHashes: [][32]byte{{}, {}},
		BlockVoteCache:    beaconstate.NewBlockVoteCache(),
		Chain:             beaconstate.NewChain(),
		PendingAttestations: []*beaconstate.AttestationRecord{
			{Slot: 0, ShardID: 0, ShardBlockHash: shardHash, AttesterBitfield: []byte{0xC0}},
		},
	}

	block := &beaconstate.Block{SlotNumber: 2}

	newCS, _, err := InitializeNewCycle(cs, active, block)
	require.NoError(t, err)
	require.Equal(t, uint64(1), newCS.CrosslinkRecords[0].Dynasty)
	require.Equal(t, shardHash, newCS.CrosslinkRecords[0].Hash)
	require.Equal(t, uint64(4), newCS.CrosslinkRecords[0].Slot)
}
