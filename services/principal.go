package services

import "github.com/kendall-kelly/powder-coating-api/models"

// Principal is the authenticated user an operation runs on behalf of.
type Principal struct {
	UserID uint
	Role   string
}

// PrincipalFor builds a Principal from a stored user
func PrincipalFor(u models.User) Principal {
	return Principal{UserID: u.ID, Role: u.Role}
}

func (p Principal) IsAdmin() bool  { return p.Role == models.RoleAdmin }
func (p Principal) IsClient() bool { return p.Role == models.RoleClient }
func (p Principal) IsTeam() bool   { return p.Role == models.RoleTeam }

// owns reports whether p is the client who submitted o
func (p Principal) owns(o *models.Order) bool {
	return o.UserID == p.UserID
}

// authorRoleFor is the role recorded on ledger entries written by p.
// The order owner is always "client", whatever their account role.
func (p Principal) authorRoleFor(o *models.Order) string {
	if p.owns(o) {
		return models.RoleClient
	}
	return p.Role
}
