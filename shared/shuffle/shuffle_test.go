package shuffle

import (
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestShuffleIndicesDeterministic(t *testing.T) {
	seed := common.BytesToHash([]byte("deterministic-seed"))
	var list []uint64
	for i := 0; i < 10; i++ {
		list = append(list, uint64(i))
	}

	shuffled1, err := ShuffleIndices(seed, list)
	require.NoError(t, err)
	shuffled2, err := ShuffleIndices(seed, list)
	require.NoError(t, err)

	require.Equal(t, shuffled1, shuffled2)
}

func TestShuffleIndicesDifferentSeedsDiffer(t *testing.T) {
	seed1 := common.BytesToHash([]byte("seed-one"))
	seed2 := common.BytesToHash([]byte("seed-two"))
	var list []uint64
	for i := 0; i < 20; i++ {
		list = append(list, uint64(i))
	}

	shuffled1, err := ShuffleIndices(seed1, list)
	require.NoError(t, err)
	shuffled2, err := ShuffleIndices(seed2, list)
	require.NoError(t, err)

	require.False(t, reflect.DeepEqual(shuffled1, shuffled2))
}

func TestShuffleIndicesPreservesElements(t *testing.T) {
	seed := common.BytesToHash([]byte("preserve"))
	var list []uint64
	for i := 0; i < 50; i++ {
		list = append(list, uint64(i))
	}
	shuffled, err := ShuffleIndices(seed, list)
	require.NoError(t, err)
	require.ElementsMatch(t, list, shuffled)
}

func TestSplitIndicesCoversAllElementsInOrder(t *testing.T) {
	var list []uint64
	for i := 0; i < 100; i++ {
		list = append(list, uint64(i))
	}
	split := SplitIndices(list, 10)
	require.Len(t, split, 10)

	var rebuilt []uint64
	for _, s := range split {
		rebuilt = append(rebuilt, s...)
	}
	require.Equal(t, list, rebuilt)
}

func TestNewShufflingProducesCycleLengthSlots(t *testing.T) {
	seed := common.BytesToHash([]byte("shuffling-seed"))
	var validators []ActiveValidatorIndex
	for i := 0; i < 300; i++ {
		validators = append(validators, ActiveValidatorIndex{Index: uint32(i), StartDynasty: 0, EndDynasty: 10})
	}

	schedule, err := NewShuffling(seed, validators, 1, 5)
	require.NoError(t, err)
	require.Len(t, schedule, 64)

	var total int
	for _, slotCommittees := range schedule {
		for _, c := range slotCommittees {
			total += len(c.Committee)
		}
	}
	require.Equal(t, 300, total)
}

func TestNewShufflingDeterministic(t *testing.T) {
	seed := common.BytesToHash([]byte("determinism"))
	var validators []ActiveValidatorIndex
	for i := 0; i < 50; i++ {
		validators = append(validators, ActiveValidatorIndex{Index: uint32(i), StartDynasty: 0, EndDynasty: 5})
	}

	a, err := NewShuffling(seed, validators, 1, 0)
	require.NoError(t, err)
	b, err := NewShuffling(seed, validators, 1, 0)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
