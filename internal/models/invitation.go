package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
)

type Invitation struct {
	gorm.Model

	ProjectID uint   `gorm:"not null;index"`
	InviterID uint   `gorm:"not null"`
	Email     string `gorm:"not null;index"`
	Token     string `gorm:"uniqueIndex;not null"`
	Status    string `gorm:"not null;default:'pending'"`
	ExpiresAt time.Time `gorm:"not null"`

	// Relationships
	Project Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Inviter User    `gorm:"foreignKey:InviterID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
