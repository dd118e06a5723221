// internal/workers/zones/occupy-slot/models.go
package occupyslot

// Input carries the occupy request. Increment defaults to 1 when omitted.
type Input struct {
	ZoneID     string `json:"zoneId"`
	Increment  int    `json:"increment"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

// Output is the updated slot summary for the zone.
type Output struct {
	ZoneID       string `json:"zoneId"`
	Province     string `json:"province"`
	Municipality string `json:"municipality"`
	TotalSlots   int    `json:"totalSlots"`
	Occupied     int    `json:"occupied"`
	Free         int    `json:"free"`
	Status       string `json:"status"`
	Clamped      bool   `json:"clamped"`
}
