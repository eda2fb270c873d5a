package models

// RequestSequence is the per-year counter backing request number allocation.
// The row for the current year is locked FOR UPDATE while a number is
// assigned so concurrent creations never observe the same value.
type RequestSequence struct {
	Year       int  `gorm:"primaryKey;autoIncrement:false" json:"year"`
	LastNumber uint `gorm:"not null;default:0" json:"last_number"`
}

func (RequestSequence) TableName() string { return "request_sequences" }
