package models

import (
	"time"

	"gorm.io/gorm"
)

// Availability of a team member
const (
	AvailabilityAvailable   = "available"
	AvailabilityBusy        = "busy"
	AvailabilityUnavailable = "unavailable"
)

// TeamMember is a shop-floor worker who can be assigned to orders
type TeamMember struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Role         string         `gorm:"not null" json:"role"` // job title, e.g. "coater"
	Department   string         `json:"department"`
	Availability string         `gorm:"not null;default:'available'" json:"availability"`
	UserID       *uint          `gorm:"index" json:"user_id"` // linked login account, if provisioned
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the TeamMember model
func (TeamMember) TableName() string {
	return "team_members"
}

// IsValidAvailability reports whether a is a known availability value
func IsValidAvailability(a string) bool {
	switch a {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityUnavailable:
		return true
	}
	return false
}

// OrderTeamAssignment links a team member to an order
type OrderTeamAssignment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	OrderID      uint       `gorm:"not null;uniqueIndex:ux_assignment_order_member" json:"order_id"`
	TeamMemberID uint       `gorm:"not null;uniqueIndex:ux_assignment_order_member;index" json:"team_member_id"`
	TeamMember   TeamMember `gorm:"foreignKey:TeamMemberID" json:"team_member"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TableName specifies the table name for the OrderTeamAssignment model
func (OrderTeamAssignment) TableName() string {
	return "order_team_assignments"
}
