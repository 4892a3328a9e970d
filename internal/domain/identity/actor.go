package identity

// Actor is who performs a workflow action: a user id under a role
type Actor struct {
	UserID string
	Role   Role
}

// IsSales reports whether the actor acts as a Sales Executive
func (a Actor) IsSales() bool {
	return a.Role == RoleSalesExecutive
}

// IsAnalyst reports whether the actor acts as a Pricing Analyst
func (a Actor) IsAnalyst() bool {
	return a.Role == RolePricingAnalyst
}
