package handlers

import "time"

const (
	// Form field limits
	maxFieldLength = 200
	maxNotesLength = 2000

	healthPingTimeout = 2 * time.Second
)
