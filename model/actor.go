package model

// Role names understood by the policy table and by company scoping.
const (
	RoleSuperUser       = "SUPER_USER"
	RoleCenterHead      = "CENTER_HEAD"
	RoleAccountant      = "ACCOUNTANT"
	RolePropertyManager = "PROPERTY_MANAGER"
)

// Actor is the authenticated principal on whose behalf a core operation runs.
// Authentication itself happens upstream; the core only consumes the result.
type Actor struct {
	UserID     string  `json:"user_id"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	CompanyIDs []int64 `json:"company_ids"`
}

// Unscoped reports whether the actor sees data across all companies.
func (a Actor) Unscoped() bool {
	return a.Role == RoleSuperUser
}
