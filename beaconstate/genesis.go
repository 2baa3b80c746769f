package beaconstate

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethshard/beacon-core/params"
	"github.com/ethshard/beacon-core/shared/shuffle"
)

// Genesis builds the starting (CrystallizedState, ActiveState) pair for the
// given validator set. This is test/bootstrap scaffolding only — it is not
// a production genesis ceremony (no PoW deposit contract ingestion, no
// genesis JSON, no CLI), mirroring the teacher's
// NewGenesisCrystallizedState's role as the starting point the core's own
// tests build on.
func Genesis(validators []*ValidatorRecord) (*CrystallizedState, *ActiveState, error) {
	cfg := params.BeaconConfig()

	shuffleInput := make([]shuffle.ActiveValidatorIndex, len(validators))
	for i, v := range validators {
		shuffleInput[i] = shuffle.ActiveValidatorIndex{Index: uint32(i), StartDynasty: v.StartDynasty, EndDynasty: v.EndDynasty}
	}

	schedule, err := shuffle.NewShuffling(common.Hash(params.ZeroHash32), shuffleInput, 1, 0)
	if err != nil {
		return nil, nil, err
	}
	shardCommittees := toShardCommittees(schedule)

	// Bootstrap with two cycles (2*cycle_length slots) of the same
	// committee assignment, per §3's invariant 1.
	full := append(CopyShardAndCommitteeForSlots(shardCommittees), CopyShardAndCommitteeForSlots(shardCommittees)...)

	crosslinks := make([]CrosslinkRecord, cfg.ShardCount)

	cs := &CrystallizedState{
		Validators:                CopyValidators(validators),
		LastStateRecalc:           0,
		ShardAndCommitteeForSlots: full,
		LastJustifiedSlot:         0,
		JustifiedStreak:           0,
		LastFinalizedSlot:         0,
		CurrentDynasty:            1,
		DynastyStart:              0,
		DynastySeed:               params.ZeroHash32,
		CrosslinkRecords:          crosslinks,
	}

	as := &ActiveState{
		PendingAttestations: nil,
		RecentBlockHashes:   make([][32]byte, 2*cfg.CycleLength),
		BlockVoteCache:      NewBlockVoteCache(),
		Chain:               NewChain(),
	}

	return cs, as, nil
}

func toShardCommittees(schedule [][]shuffle.Committee) [][]ShardCommittee {
	out := make([][]ShardCommittee, len(schedule))
	for i, slot := range schedule {
		committees := make([]ShardCommittee, len(slot))
		for j, c := range slot {
			committees[j] = ShardCommittee{ShardID: c.ShardID, Committee: c.Committee}
		}
		out[i] = committees
	}
	return out
}
