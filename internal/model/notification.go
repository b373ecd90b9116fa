package model

import "time"

// Notification is one admin inbox row. ReadAt nil means unread.
type Notification struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	RecipientID uint64     `gorm:"not null;index" json:"recipient_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Message     string     `gorm:"type:text" json:"message"`
	ModelType   string     `gorm:"size:64;not null" json:"model_type"`
	ModelID     uint64     `gorm:"not null" json:"model_id"`
	ActionURL   string     `gorm:"type:text" json:"action_url"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }
