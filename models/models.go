package models

import (
	"time"

	"gorm.io/gorm"
)

// Selection outcome statuses
const (
	SelectionStatusSelected = "SELECTED"
	SelectionStatusFailed   = "FAILED" // exhausted every candidate expiration
	SelectionStatusError    = "ERROR"  // invalid input, provider or stale chain
)

// DBSelection is one evaluated signal and its outcome
type DBSelection struct {
	gorm.Model
	SelectionID string `gorm:"uniqueIndex"`
	Underlying  string `gorm:"index"`
	Direction   string
	Strategy    string `gorm:"index"`
	Status      string `gorm:"index"`

	// Selected contract
	ContractSymbol string
	Side           string
	Strike         string // decimal text
	Expiration     *time.Time
	DTE            int
	Delta          float64
	Bid            string
	Ask            string
	OpenInterest   int64
	SpotPrice      string
	BiasRelaxed    bool
	Attempts       int

	// Failure diagnostics
	FailureReason   string
	FailureCategory string
	Eliminated      string // JSON object of category -> count

	EvaluatedAt time.Time `gorm:"index"`
}

// TableName overrides for cleaner table names
func (DBSelection) TableName() string {
	return "selections"
}
