package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task statuses. Done and cancelled are terminal: the reminder job and
// overdue queries ignore both.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	gorm.Model

	Title       string `gorm:"not null"`
	Description string
	Status      string `gorm:"not null;default:'todo';index"`
	Priority    string `gorm:"not null;default:'medium'"`
	Category    string `gorm:"index"`
	Tags        datatypes.JSON

	DueDate     *time.Time `gorm:"index"`
	CompletedAt *time.Time

	ReminderSent bool `gorm:"not null;default:false"`
	Archived     bool `gorm:"not null;default:false"`

	OwnerID      uint  `gorm:"not null;index"`
	ProjectID    *uint `gorm:"index"`
	ParentTaskID *uint `gorm:"index"`

	// Relationships
	Owner    User     `gorm:"foreignKey:OwnerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Project  *Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
	Subtasks []Task   `gorm:"foreignKey:ParentTaskID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
