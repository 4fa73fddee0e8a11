package models

import (
	"time"
)

// A run groups the verdicts of one batch classification
type Run struct {
	ID          uint   `gorm:"primary_key"`
	Ruid        string `gorm:"index"`
	Description string
	Host        string
	StartTime   time.Time
	EndTime     time.Time
}

type Verdict struct {
	ID         uint   `gorm:"primary_key"`
	RunID      uint   `gorm:"index"`
	RequestID  string `gorm:"index"`
	URL        string `gorm:"index"`
	Label      string
	Confidence float64
	Features   string // json object, keyed by feature name
	Degraded   string // comma separated signals
	CreatedAt  time.Time
}
