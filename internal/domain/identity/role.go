package identity

import "strings"

// Role is the workflow role of a user. The wire form is the short code.
type Role string

const (
	RoleSalesExecutive Role = "SE"
	RolePricingAnalyst Role = "PA"
)

// IsValid checks if the role is one of the two workflow roles
func (r Role) IsValid() bool {
	return r == RoleSalesExecutive || r == RolePricingAnalyst
}

// String returns the wire code
func (r Role) String() string {
	return string(r)
}

// DisplayName returns the human readable role name
func (r Role) DisplayName() string {
	switch r {
	case RoleSalesExecutive:
		return "Sales Executive"
	case RolePricingAnalyst:
		return "Pricing Analyst"
	}
	return "Unknown"
}

// ParseRole accepts the wire codes as well as the long names used by older
// clients ("SALES_EXECUTIVE", "pricing analyst").
func ParseRole(s string) (Role, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch norm {
	case "SE", "SALES_EXECUTIVE", "SALES":
		return RoleSalesExecutive, true
	case "PA", "PRICING_ANALYST", "ANALYST":
		return RolePricingAnalyst, true
	}
	return "", false
}
