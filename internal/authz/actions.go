package authz

// Resource is a class of objects guarded by the role policy.
type Resource string

// Guarded resources.
const (
	ResourceFollows         Resource = "follows"
	ResourceLikes           Resource = "likes"
	ResourceCalendar        Resource = "calendar"
	ResourcePendingRequests Resource = "pending_requests"
	ResourceOrganizations   Resource = "organizations"
	ResourceMembers         Resource = "members"
	ResourcePosts           Resource = "posts"
	ResourcePositions       Resource = "positions"
)

// Action represents the type of operation being performed on a resource
type Action string

// Authorization actions
const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
	ActionSubmit Action = "submit"
	ActionDecide Action = "decide"
	ActionList   Action = "list"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// Roles, from least to most privileged. Each role inherits the one before it.
const (
	RoleMember    = "member"
	RoleExecutive = "executive"
	RoleAdmin     = "admin"
)
