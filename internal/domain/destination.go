package domain

import "time"

// Destination is a reference entity flight requests point at. It carries no
// workflow of its own; requests only require it to exist and be active.
type Destination struct {
	ID          string
	Name        string
	Code        string
	Description *string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
