package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Exchange is one assistant round trip kept for operators. Visitors never
// read it back.
type Exchange struct {
	ID        string
	SessionID string
	CreatedAt time.Time
	UserText  string
	Reply     string
	Backend   string
	Fallback  bool
	Error     string
	Duration  time.Duration
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
