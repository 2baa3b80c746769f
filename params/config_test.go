package params

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMainnetConfigDefaults(t *testing.T) {
	cfg := MainnetConfig()
	require.Equal(t, uint64(64), cfg.CycleLength)
	require.Equal(t, uint64(1024), cfg.ShardCount)
	require.Equal(t, uint64(32768), cfg.BaseRewardQuotient)
	require.Equal(t, uint64(1048576), cfg.SqrtEDropTime)
	require.True(t, cfg.IsQuadraticPenaltyQuotientExact())
}

func TestUseConfigOverridesAndRestores(t *testing.T) {
	original := BeaconConfig()
	defer UseConfig(original)

	minimal := MainnetConfig()
	minimal.CycleLength = 8
	minimal.ShardCount = 4
	UseConfig(minimal)

	require.Equal(t, uint64(8), BeaconConfig().CycleLength)
	require.Equal(t, uint64(4), BeaconConfig().ShardCount)
}

func TestQuadraticPenaltyQuotient(t *testing.T) {
	cfg := &Config{SqrtEDropTime: 100, SlotDuration: 10}
	require.True(t, cfg.IsQuadraticPenaltyQuotientExact())
	require.Equal(t, uint64(100), cfg.QuadraticPenaltyQuotient())

	cfg2 := &Config{SqrtEDropTime: 101, SlotDuration: 10}
	require.False(t, cfg2.IsQuadraticPenaltyQuotientExact())
}
