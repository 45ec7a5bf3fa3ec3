package database

import "time"

// User is a registered logbook owner.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// Procedure is a single logbook entry.
type Procedure struct {
	ID          string
	UserID      string
	Name        string
	PerformedAt time.Time
	Hospital    string
	Role        string // lead, assistant, observed
	Category    string // cranial, spinal, functional, other
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Template is a reusable procedure skeleton.
type Template struct {
	ID        string
	UserID    string
	Name      string
	Category  string
	Role      string
	Notes     string
	CreatedAt time.Time
}

// MediaFile records an uploaded file stored on disk.
type MediaFile struct {
	ID          string
	UserID      string
	ProcedureID *string // nil when not attached to a procedure
	Category    string
	FileName    string // original name, display only
	StoredName  string
	FileType    string
	SizeBytes   int64
	PublicPath  string
	CreatedAt   time.Time
}

// UserStats holds per-user aggregate statistics.
type UserStats struct {
	ProcedureCount int64
	ImageCount     int64
	VideoCount     int64
	RadiologyCount int64
	StorageUsed    int64
}
