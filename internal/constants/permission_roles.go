package constants

// PermissionRoles maps each permission to the roles allowed to perform it.
// Consulted at the start of every privileged route; grants and revocations are
// themselves gated behind AssignRole.
var PermissionRoles = map[string][]string{
	ViewData:           {Investor, Verifier, Contractor, Treasury, Admin},
	CreateProject:      {Admin},
	ManageMilestones:   {Admin},
	AssignVerifier:     {Admin},
	Invest:             {Investor, Admin},
	SubmitMilestone:    {Contractor},
	VerifyMilestone:    {Verifier},
	DisputeMilestone:   {Contractor, Verifier},
	ResolveDispute:     {Admin},
	TransitionPhase:    {Admin},
	ClaimRefund:        {Investor, Admin},
	UseContingency:     {Admin},
	CollectFee:         {Treasury, Admin},
	EmergencyWithdraw:  {Admin},
	ManagePool:         {Admin},
	ProvideLiquidity:   {Investor, Treasury, Admin},
	Swap:               {Investor, Treasury, Admin},
	ManageDistribution: {Admin},
	ClaimProfit:        {Investor, Admin},
	AssignRole:         {Admin},
	CreateUser:         {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
