package models

import (
	"time"
)

// User represents a customer whose phone number has been verified.
type User struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Phone      string    `gorm:"uniqueIndex;not null" json:"phone"`
	Name       string    `json:"name"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}
