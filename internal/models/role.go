package models

// Role is a user's standing within a team. Owner is implicit: it comes from
// teams.owner_id and is never stored as a membership row.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleAdmin        Role = "admin"
	RoleAgent        Role = "agent"
	RolePhotographer Role = "photographer"
	RoleMember       Role = "member"
)

// ValidMemberRole reports whether r can be assigned to a membership row.
func ValidMemberRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleAgent, RolePhotographer, RoleMember:
		return true
	}
	return false
}

// CanInvite reports whether actor may invite someone into the team with the
// target role, or change an existing member to it.
func CanInvite(actor, target Role) bool {
	switch actor {
	case RoleOwner:
		return target == RoleAdmin || target == RoleAgent || target == RolePhotographer || target == RoleMember
	case RoleAdmin:
		return target == RoleAgent || target == RolePhotographer || target == RoleMember
	case RoleAgent:
		return target == RolePhotographer
	}
	return false
}

// CanAllocateTo reports whether actor may grant credits to a member holding
// the target role. Owners and admins may fund anyone; agents may only fund
// photographers, out of their own allocation.
func CanAllocateTo(actor, target Role) bool {
	switch actor {
	case RoleOwner, RoleAdmin:
		return ValidMemberRole(target)
	case RoleAgent:
		return target == RolePhotographer
	}
	return false
}

// AllocatesFromWallet reports whether actor's allocations draw down the team
// wallet. Agents draw down their own unspent allocation instead.
func AllocatesFromWallet(actor Role) bool {
	return actor == RoleOwner || actor == RoleAdmin
}

// CanRemoveMember reports whether actor may remove another member.
// Anyone may remove themselves (leave); that check happens at the call site.
func CanRemoveMember(actor Role) bool {
	return actor == RoleOwner || actor == RoleAdmin
}
