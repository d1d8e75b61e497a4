package constants

const (
	Admin      = "admin"
	Treasury   = "treasury"
	Contractor = "contractor"
	Verifier   = "verifier"
	Investor   = "investor"
)

// ValidRoles is the set of allowed DB enum values for user role.
var ValidRoles = []string{Investor, Verifier, Contractor, Treasury, Admin}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
