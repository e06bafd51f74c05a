package rbac

type Role string
type Action string

const (
	RoleMember   Role = "member"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

// ActionProfileReadAny reads another user's profile completion; the
// profile actions without it are scoped to the caller's own profile.
const (
	ActionProfileRead     Action = "profile:read"
	ActionProfileWrite    Action = "profile:write"
	ActionProfileReadAny  Action = "profile:read-any"
	ActionCatalogRead     Action = "catalog:read"
	ActionCatalogWarnings Action = "catalog:warnings"
	ActionAdmin           Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleReviewer:
		return action == ActionProfileRead || action == ActionProfileWrite || action == ActionCatalogRead || action == ActionProfileReadAny
	case RoleMember:
		return action == ActionProfileRead || action == ActionProfileWrite || action == ActionCatalogRead
	default:
		return false
	}
}

// Normalize maps unknown or empty roles to member.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleMember, RoleReviewer, RoleAdmin:
		return Role(role)
	default:
		return RoleMember
	}
}
