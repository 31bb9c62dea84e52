package store

import (
	"gorm.io/gorm"
)

// Pointer is the persisted collection cursor for one logical source. The
// value is an opaque string interpreted by the collector's time format.
type Pointer struct {
	gorm.Model
	Source string `gorm:"uniqueIndex"`
	Value  string
}

// Row is one collected record, stored as raw JSON alongside its source.
type Row struct {
	gorm.Model
	Source string `gorm:"index"`
	Raw    []byte // Raw JSON data
}
