package domain

// Role is the coarse permission level of an authenticated actor.
type Role string

const (
	RoleOwner    Role = "OWNER"
	RoleReviewer Role = "REVIEWER"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleOwner || r == RoleReviewer
}

// Actor is the verified identity attached to every inbound call.
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// IsReviewer reports whether the actor holds the reviewer role.
func (a Actor) IsReviewer() bool {
	return a.Role == RoleReviewer
}

// Owns reports whether the actor authored the report.
func (a Actor) Owns(r *Report) bool {
	return r != nil && r.OwnerID == a.ID
}
