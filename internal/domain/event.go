package domain

import "time"

// Change kinds carried by a ChangeEvent.
const (
	ChangeUpdate  = "update"
	ChangeRemoval = "removal"
)

// ChangeEvent is the published form of an observation change.
type ChangeEvent struct {
	Source     SourceKind  `json:"source"`
	Change     string      `json:"change"`
	RegionCode string      `json:"region_code,omitempty"`
	RegionName string      `json:"region_name,omitempty"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
	ObservedAt time.Time   `json:"observed_at"`
}
