package domain

import "time"

// Transfer permanently links an origin entity to the counterpart created from it.
type Transfer struct {
	ID          string
	Origin      EntityRef
	Destination EntityRef
	Motive      string
	CreatedBy   string
	CreatedAt   time.Time
}
