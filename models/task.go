package models

import "time"

type Task struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Reward      int64  `gorm:"not null;default:0" json:"reward"`
	Icon        string `gorm:"type:text" json:"icon"`
	Link        string `gorm:"type:text" json:"link"`
	MaxUsers    *int   `json:"max_users"` // nil = unlimited

	Timestamps
}

// TaskCompletion exists once per (profile, task). RewardedAt is set the
// first time the task is completed so toggling never pays twice.
type TaskCompletion struct {
	ID          string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProfileID   string     `gorm:"type:uuid;not null;uniqueIndex:uniq_task_completion" json:"profile_id"`
	TaskID      string     `gorm:"type:uuid;not null;uniqueIndex:uniq_task_completion;index" json:"task_id"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	RewardedAt  *time.Time `json:"rewarded_at,omitempty"`
	Task        Task       `gorm:"foreignKey:TaskID" json:"-"`

	Timestamps
}
