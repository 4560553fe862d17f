package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription statuses mirror the payment provider's.
const (
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

type Subscription struct {
	gorm.Model

	UserID           uint   `gorm:"uniqueIndex;not null"`
	PlanID           string `gorm:"not null"`
	Status           string `gorm:"not null"`
	CurrentPeriodEnd *time.Time
	// Provider-side subscription id; uniqueness is enforced per user, not
	// here, so update events can re-insert through the user_id upsert.
	ExternalID string `gorm:"index;not null"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
