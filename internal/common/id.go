package common

import (
	"github.com/google/uuid"
)

// NewLogFileID generates a unique log file ID with the "file_" prefix
func NewLogFileID() string {
	return "file_" + uuid.New().String()
}

// NewEventID generates a unique event record ID with the "evt_" prefix
func NewEventID() string {
	return "evt_" + uuid.New().String()
}
