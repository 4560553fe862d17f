package models

import "gorm.io/gorm"

type User struct {
	gorm.Model

	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	AvatarURL    string

	// Preferences
	DefaultPriority    string `gorm:"not null;default:'medium'"`
	EmailNotifications bool   `gorm:"not null;default:true"`
	PushNotifications  bool   `gorm:"not null;default:true"`
	TaskReminders      bool   `gorm:"not null;default:true"`

	// Reference into the payment provider, empty until first checkout
	PaymentCustomerID string `gorm:"index"`

	// Relationships
	OwnedProjects      []Project           `gorm:"foreignKey:OwnerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	ProjectMemberships []ProjectMembership `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Tasks              []Task              `gorm:"foreignKey:OwnerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Subscription       *Subscription       `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
