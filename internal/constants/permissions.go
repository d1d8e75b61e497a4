package constants

const (
	ViewData           = "view_data"
	CreateProject      = "create_project"
	ManageMilestones   = "manage_milestones"
	AssignVerifier     = "assign_verifier"
	Invest             = "invest"
	SubmitMilestone    = "submit_milestone"
	VerifyMilestone    = "verify_milestone"
	DisputeMilestone   = "dispute_milestone"
	ResolveDispute     = "resolve_dispute"
	TransitionPhase    = "transition_phase"
	ClaimRefund        = "claim_refund"
	UseContingency     = "use_contingency"
	CollectFee         = "collect_fee"
	EmergencyWithdraw  = "emergency_withdraw"
	ManagePool         = "manage_pool"
	ProvideLiquidity   = "provide_liquidity"
	Swap               = "swap"
	ManageDistribution = "manage_distribution"
	ClaimProfit        = "claim_profit"
	AssignRole         = "assign_role"
	CreateUser         = "create_user"
)
