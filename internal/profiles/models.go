package profiles

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
)

// Profile mirrors an auth-provider user. ExternalID is the provider's user
// id and is unique; xp and class are owned by this platform.
type Profile struct {
	ID         string    `json:"id" db:"id"`
	ExternalID string    `json:"external_id" db:"external_id"`
	Email      string    `json:"email" db:"email"`
	FullName   string    `json:"full_name,omitempty" db:"full_name"`
	ClassID    string    `json:"class_id,omitempty" db:"class_id"`
	AvatarURL  string    `json:"avatar_url,omitempty" db:"avatar_url"`
	Role       Role      `json:"role" db:"role"`
	XP         int       `json:"xp" db:"xp"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Identity is the provider-owned part of a profile written on user sync.
type Identity struct {
	ExternalID string
	Email      string
	FullName   string
	AvatarURL  string
}
