package models

import (
	"time"
)

// Recognition is one processed document, kept for the history endpoint.
type Recognition struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	RequestID  string `gorm:"size:36;uniqueIndex;not null"`
	FileName   string `gorm:"size:255;not null"`
	Backend    string `gorm:"size:32;index;not null"`
	Source     string `gorm:"size:16"` // web, api or watch
	Pages      int
	LineCount  int
	Amount     string `gorm:"size:32;not null;default:'0'"`
	ResultFile string `gorm:"size:255"`
	DurationMs int64
	// Failed rows keep the error kind so failures can be reviewed.
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
