package rbac

// Role names mirror the profile roles of the auth provider.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleParent  = "parent"
	RoleAdmin   = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// IsLearner reports whether the role can run tutoring sessions.
func IsLearner(role string) bool { return role == RoleStudent }
