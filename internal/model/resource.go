package model

import "time"

// ResourceType classifies what is being booked.
type ResourceType string

const (
	ResourceRoom      ResourceType = "ROOM"
	ResourceEquipment ResourceType = "EQUIPMENT"
	ResourceVehicle   ResourceType = "VEHICLE"
	ResourceCourt     ResourceType = "COURT"
	ResourceStudio    ResourceType = "STUDIO"
	ResourceLab       ResourceType = "LAB"
	ResourceMovie     ResourceType = "MOVIE"
	ResourceEvent     ResourceType = "EVENT"
	ResourceOther     ResourceType = "OTHER"
)

// Resource is a bookable event or space.  A nil Capacity means the
// resource has no ticket limit.  Resources with a StartTime in the past
// no longer accept bookings.
type Resource struct {
	ID          uint64       `json:"id"`
	Name        string       `json:"name"`
	Type        ResourceType `json:"type"`
	Description *string      `json:"description,omitempty"`
	Location    *string      `json:"location,omitempty"`
	Capacity    *int         `json:"capacity,omitempty"`
	StartTime   *time.Time   `json:"start_time,omitempty"`
	EndTime     *time.Time   `json:"end_time,omitempty"`
	IsActive    bool         `json:"is_active"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Started reports whether the resource's start time is at or before now.
func (r Resource) Started(now time.Time) bool {
	return r.StartTime != nil && !r.StartTime.After(now)
}
