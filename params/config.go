// Package params defines the configuration options recognized by the
// beacon-chain state transition core.
package params

import (
	"io/ioutil"
	"sync"

	"gopkg.in/yaml.v2"
)

// WeiPerEth is the number of wei-equivalent units in one deposit-denomination
// ether. Used to scale the reward quotient by total stake.
const WeiPerEth = 1e18

// ZeroHash32 is the all-zero 32-byte hash used as a sentinel parent/oblique
// hash in genesis and test fixtures.
var ZeroHash32 = [32]byte{}

// Config holds the tunables the state transition core reads. All fields are
// consensus-critical: changing any of them changes the output of the
// transition for otherwise identical inputs.
type Config struct {
	CycleLength        uint64 `yaml:"CYCLE_LENGTH"`         // Slots per cycle.
	MinDynastyLength   uint64 `yaml:"MIN_DYNASTY_LENGTH"`   // Minimum slots before a dynasty may rotate.
	ShardCount         uint64 `yaml:"SHARD_COUNT"`          // Total shard count; bounds crosslink records length.
	BaseRewardQuotient uint64 `yaml:"BASE_REWARD_QUOTIENT"` // Base scaling factor for FFG/crosslink rewards.
	SqrtEDropTime      uint64 `yaml:"SQRT_E_DROP_TIME"`     // Numerator of the quadratic leak penalty quotient.
	SlotDuration       uint64 `yaml:"SLOT_DURATION"`        // Denominator of the quadratic leak penalty quotient, in seconds.
	DepositSize        uint64 `yaml:"DEPOSIT_SIZE"`         // Standard validator deposit, in whole ETH. A caller bootstrapping a validator set multiplies by WeiPerEth to get the wei-equivalent ValidatorRecord.Balance; the field itself stays a plain uint64 since, denominated in wei directly, it would already overflow one (32 ETH is ~3.2e19, past uint64's ~1.8e19 ceiling).
}

// mainnetConfig mirrors the sharding-era defaults: 64-slot cycles, 1024
// shards, a base reward quotient of 32768 and a sqrt-e drop time of
// 2^20 seconds.
var mainnetConfig = &Config{
	CycleLength:        64,
	MinDynastyLength:   256,
	ShardCount:         1024,
	BaseRewardQuotient: 32768,
	SqrtEDropTime:      1048576,
	SlotDuration:       8,
	DepositSize:        32,
}

var (
	activeConfig   = mainnetConfig
	activeConfigMu sync.RWMutex
)

// MainnetConfig returns a copy of the default sharding-era configuration.
func MainnetConfig() *Config {
	cfg := *mainnetConfig
	return &cfg
}

// BeaconConfig returns the currently active configuration. Safe for
// concurrent use; callers must not mutate the returned pointer.
func BeaconConfig() *Config {
	activeConfigMu.RLock()
	defer activeConfigMu.RUnlock()
	return activeConfig
}

// UseConfig overrides the active configuration. Tests use this to swap in a
// minimal config (short cycles, few shards) the way shared/featureconfig
// swaps in a feature-flag override for the duration of a test.
func UseConfig(cfg *Config) {
	activeConfigMu.Lock()
	defer activeConfigMu.Unlock()
	activeConfig = cfg
}

// LoadConfigFile reads a YAML-encoded config override from path and installs
// it as the active configuration. Unset fields keep the mainnet default.
func LoadConfigFile(path string) (*Config, error) {
	raw, err := ioutil.ReadFile(path) // #nosec G304 -- path is an operator-supplied config file.
	if err != nil {
		return nil, err
	}
	cfg := MainnetConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	UseConfig(cfg)
	return cfg, nil
}

// QuadraticPenaltyQuotient returns (sqrt_e_drop_time / slot_duration)^2 as
// required by §4.5. The caller is responsible for verifying the division is
// exact; a fractional quotient is a configuration-level invariant violation.
func (c *Config) QuadraticPenaltyQuotient() uint64 {
	q := c.SqrtEDropTime / c.SlotDuration
	return q * q
}

// IsQuadraticPenaltyQuotientExact reports whether slot_duration divides
// sqrt_e_drop_time evenly, as §4.5 requires.
func (c *Config) IsQuadraticPenaltyQuotientExact() bool {
	return c.SqrtEDropTime%c.SlotDuration == 0
}
