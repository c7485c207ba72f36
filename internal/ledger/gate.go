package ledger

import "relief-ledger/internal/models"

// Principal is the authenticated actor of a request.
type Principal struct {
	ID   uint
	Name string
	Role models.UserRole
}

// Gate decides who may touch which donation.
type Gate interface {
	IsPrivileged(p *Principal) bool
	Owns(p *Principal, d *models.Donation) bool
}

// RoleGate grants administrative roles access to everything and everyone
// else access to their own donations.
type RoleGate struct{}

func (RoleGate) IsPrivileged(p *Principal) bool {
	return p != nil && p.Role.Privileged()
}

func (RoleGate) Owns(p *Principal, d *models.Donation) bool {
	return p != nil && d != nil && d.DonatedBy == p.ID
}

func canModify(g Gate, p *Principal, d *models.Donation) bool {
	return g.IsPrivileged(p) || g.Owns(p, d)
}
