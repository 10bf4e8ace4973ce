package models

import "time"

// Household groups users who share visions
type Household struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AdminUserID string    `json:"admin_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

type MemberStatus string

const (
	MemberStatusPending MemberStatus = "pending"
	MemberStatusActive  MemberStatus = "active"
	MemberStatusRemoved MemberStatus = "removed"
)

// HouseholdMember links a user to a household. Only active members have access.
type HouseholdMember struct {
	HouseholdID string       `json:"household_id"`
	UserID      string       `json:"user_id"`
	DisplayName string       `json:"display_name"`
	Role        MemberRole   `json:"role"`
	Status      MemberStatus `json:"status"`
	JoinedAt    time.Time    `json:"joined_at"`
}

// IsActive reports whether the membership grants access
func (m *HouseholdMember) IsActive() bool {
	return m != nil && m.Status == MemberStatusActive
}
