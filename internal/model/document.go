package model

import (
	"time"
)

// Document names
const (
	DocSubscribers   = "subscribers"
	DocQuestions     = "questions"
	DocConfirmations = "confirmations"
)

// Document is a named JSON document persisted by the SQL store backends
type Document struct {
	Name      string `gorm:"primaryKey;size:64"`
	Body      string `gorm:"type:longtext;not null"`
	UpdatedAt time.Time
}

// TableName returns the table name for Document
func (Document) TableName() string {
	return "documents"
}
