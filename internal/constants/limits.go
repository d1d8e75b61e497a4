package constants

// Basis-point caps and core limits. All percentages are hundredths of a
// percent out of 10000.
const (
	MaxContingencyBps = 2000
	MaxPlatformFeeBps = 1000
	MaxMilestones     = 20

	MinClaimPeriodDays = 30
	MaxClaimPeriodDays = 365

	// MinimumLiquidity shares are locked forever on pool creation so the pool
	// can never be fully drained into a divide-by-zero state.
	MinimumLiquidity = 1000

	DefaultSwapFeeBps          = 30
	DefaultLPFeeShareBps       = 5000
	DefaultMaxSlippageBps      = 500
	DefaultMaxTransactionBps   = 1000
	DefaultBreakerThresholdBps = 2000
	DefaultBreakerCooldown     = 300
)
