package beaconstate

import "math/big"

// CrystallizedState is the slowly-changing half of consensus state,
// recomputed only at cycle boundaries (§3).
type CrystallizedState struct {
	Validators                []*ValidatorRecord
	LastStateRecalc           uint64
	ShardAndCommitteeForSlots [][]ShardCommittee // length 2*cycle_length
	LastJustifiedSlot         uint64
	JustifiedStreak           uint64
	LastFinalizedSlot         uint64
	CurrentDynasty            uint64
	DynastyStart              uint64
	DynastySeed               [32]byte
	CrosslinkRecords          []CrosslinkRecord // indexed by shard_id
}

// ActiveState is the fast-changing half of consensus state, updated every
// block (§3).
type ActiveState struct {
	PendingAttestations []*AttestationRecord
	RecentBlockHashes   [][32]byte // length 2*cycle_length
	BlockVoteCache      BlockVoteCache
	Chain               *Chain
}

// TotalDeposits returns the sum of balances of validators active in the
// given dynasty (§3's derived total_deposits field).
func (cs *CrystallizedState) TotalDeposits(dynasty uint64) *big.Int {
	total := big.NewInt(0)
	for _, v := range cs.Validators {
		if v.IsActive(dynasty) {
			total.Add(total, v.Balance)
		}
	}
	return total
}

// ActiveValidatorIndices returns the indices of validators active in the
// given dynasty, in registry order (§4.1 get_active_validator_indices).
func (cs *CrystallizedState) ActiveValidatorIndices(dynasty uint64) []uint32 {
	var out []uint32
	for i, v := range cs.Validators {
		if v.IsActive(dynasty) {
			out = append(out, uint32(i))
		}
	}
	return out
}

// CopyValidators returns a deep copy of the validator registry, so a state
// transition can mutate balances without aliasing the parent state's
// records (generalizes casper/validator.go's DeepCopyValidators).
func CopyValidators(validators []*ValidatorRecord) []*ValidatorRecord {
	out := make([]*ValidatorRecord, len(validators))
	for i, v := range validators {
		cp := *v
		cp.PubKey = append([]byte(nil), v.PubKey...)
		cp.Balance = new(big.Int).Set(v.Balance)
		out[i] = &cp
	}
	return out
}

// CopyShardAndCommitteeForSlots returns a deep-enough copy (new outer and
// per-slot slices; Committee slices are treated as immutable once built by
// the shuffler, so they are shared).
func CopyShardAndCommitteeForSlots(in [][]ShardCommittee) [][]ShardCommittee {
	out := make([][]ShardCommittee, len(in))
	for i, slot := range in {
		out[i] = append([]ShardCommittee(nil), slot...)
	}
	return out
}

// CopyCrosslinkRecords returns a copy of the crosslink records slice.
func CopyCrosslinkRecords(in []CrosslinkRecord) []CrosslinkRecord {
	return append([]CrosslinkRecord(nil), in...)
}

// Copy returns a copy-on-write clone of the crystallized state: mutable
// substructures (validator balances, crosslink records, committee
// schedule) are deep-copied; everything else is value-copied.
func (cs *CrystallizedState) Copy() *CrystallizedState {
	out := *cs
	out.Validators = CopyValidators(cs.Validators)
	out.ShardAndCommitteeForSlots = CopyShardAndCommitteeForSlots(cs.ShardAndCommitteeForSlots)
	out.CrosslinkRecords = CopyCrosslinkRecords(cs.CrosslinkRecords)
	return &out
}

// Copy returns a copy-on-write clone of the active state.
func (as *ActiveState) Copy() *ActiveState {
	out := *as
	out.PendingAttestations = append([]*AttestationRecord(nil), as.PendingAttestations...)
	out.RecentBlockHashes = append([][32]byte(nil), as.RecentBlockHashes...)
	out.BlockVoteCache = as.BlockVoteCache.Copy()
	out.Chain = as.Chain.Copy()
	return &out
}
